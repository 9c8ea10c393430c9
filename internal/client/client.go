// Package client talks to the remote schema-generation service. The service
// accepts a schema document plus an optional lock file and answers with a
// ZIP bundle of generated artifacts; everything interesting happens on the
// server, so this client is request/response plumbing with careful error
// reporting.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is the production generation service.
const DefaultEndpoint = "https://core.omnify.jp"

// generateTimeout bounds one generation round-trip. Bundles for large
// schemas can take minutes to build server-side.
const generateTimeout = 10 * time.Minute

// APIError is a structured failure response from the service.
type APIError struct {
	Status      int
	Message     string
	Detail      string
	FieldErrors map[string][]string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api request failed (HTTP %d)", e.Status)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if len(e.FieldErrors) > 0 {
		fields := make([]string, 0, len(e.FieldErrors))
		for field := range e.FieldErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			for _, msg := range e.FieldErrors[field] {
				fmt.Fprintf(&b, "; %s: %s", field, msg)
			}
		}
	}
	return b.String()
}

// Client is a generation-service API client. Authentication is either a
// bearer token (interactive login) or a project secret (CI use); when both
// are set the project secret wins, matching the service's precedence.
type Client struct {
	baseURL       string
	token         string
	projectSecret string
	httpClient    *http.Client
	logger        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token used for authenticated requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithProjectSecret sets the x-project-secret header value.
func WithProjectSecret(secret string) Option {
	return func(c *Client) { c.projectSecret = secret }
}

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for the given endpoint. An empty endpoint selects
// the production service.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultEndpoint
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: generateTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token is a created API token with its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Login exchanges email/password for an API token.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	form := url.Values{"email": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/create-token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   any    `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}
	return &Token{AccessToken: body.AccessToken, ExpiresAt: parseExpiry(body.ExpiresAt)}, nil
}

// Verify checks the cached token against the service's identity endpoint.
func (c *Client) Verify(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	var me struct {
		ID any `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return false, nil
	}
	return me.ID != nil, nil
}

// GenerateOptions describes one generation request.
type GenerateOptions struct {
	Schema   []byte // schema.json document
	LockFile []byte // omnify.lock contents, optional
	Fresh    bool   // ask the service for a from-scratch bundle
}

// Generate uploads the schema and writes the returned ZIP bundle to
// destZip. Non-2xx responses are decoded into *APIError.
func (c *Client) Generate(ctx context.Context, opts GenerateOptions, destZip string) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("schema", "schema.json")
	if err != nil {
		return err
	}
	if _, err := part.Write(opts.Schema); err != nil {
		return err
	}
	if len(opts.LockFile) > 0 {
		lockPart, err := form.CreateFormFile("omnify-lock", "omnify.lock")
		if err != nil {
			return err
		}
		if _, err := lockPart.Write(opts.LockFile); err != nil {
			return err
		}
	}
	if err := form.Close(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/generate?fresh=%t", c.baseURL, opts.Fresh)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	c.logger.Info("requesting generation bundle",
		zap.Bool("fresh", opts.Fresh),
		zap.Int("schema_bytes", len(opts.Schema)),
		zap.Bool("lock_file", len(opts.LockFile) > 0))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	out, err := os.Create(destZip)
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	n, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		return fmt.Errorf("download bundle: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	c.logger.Info("bundle downloaded", zap.Int64("bytes", n), zap.String("path", destZip))
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.projectSecret != "" {
		req.Header.Set("x-project-secret", c.projectSecret)
		return
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// decodeAPIError maps the service's JSON error payload
// ({message, error, errors: {field: [...]}}) onto *APIError. Non-JSON
// bodies surface as the raw detail string.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}

	var body struct {
		Message string          `json:"message"`
		Detail  string          `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Detail = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Message = body.Message
	apiErr.Detail = body.Detail

	if len(body.Errors) > 0 {
		fields := map[string][]string{}
		var asLists map[string][]string
		if err := json.Unmarshal(body.Errors, &asLists); err == nil {
			fields = asLists
		} else {
			var asStrings map[string]string
			if err := json.Unmarshal(body.Errors, &asStrings); err == nil {
				for field, msg := range asStrings {
					fields[field] = []string{msg}
				}
			}
		}
		if len(fields) > 0 {
			apiErr.FieldErrors = fields
		}
	}
	return apiErr
}

// parseExpiry accepts the service's two expiry encodings: a unix timestamp
// number and an RFC3339 string. Anything else means "no known expiry".
func parseExpiry(v any) time.Time {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0)
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
		if unix, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Unix(unix, 0)
		}
	}
	return time.Time{}
}
