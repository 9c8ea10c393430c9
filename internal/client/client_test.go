package client

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/create-token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "correct" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message": "The given data was invalid.", "errors": {"email": ["These credentials do not match our records."]}}`))
			return
		}
		w.Write([]byte(`{"access_token": "tok-123", "expires_at": 4102444800}`))
	}))
	defer srv.Close()

	c := New(srv.URL)

	tok, err := c.Login(context.Background(), "dev@example.com", "correct")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok.AccessToken)
	assert.Equal(t, int64(4102444800), tok.ExpiresAt.Unix())

	_, err = c.Login(context.Background(), "dev@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "credentials do not match")
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id": 7, "email": "dev@example.com"}`))
	}))
	defer srv.Close()

	ok, err := New(srv.URL, WithToken("good")).Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = New(srv.URL, WithToken("bad")).Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerate_DownloadsBundle(t *testing.T) {
	bundle := zipBytes(t, map[string]string{"build/filelist.json": "[]"})

	var gotFresh string
	var gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFresh = r.URL.Query().Get("fresh")
		gotSecret = r.Header.Get("x-project-secret")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		schema, header, err := r.FormFile("schema")
		require.NoError(t, err)
		defer schema.Close()
		assert.Equal(t, "schema.json", header.Filename)

		lock, _, err := r.FormFile("omnify-lock")
		require.NoError(t, err)
		lock.Close()

		w.Write(bundle)
	}))
	defer srv.Close()

	c := New(srv.URL, WithProjectSecret("s3cret"))
	dest := filepath.Join(t.TempDir(), "bundle.zip")

	err := c.Generate(context.Background(), GenerateOptions{
		Schema:   []byte(`{"User": {}}`),
		LockFile: []byte("lock"),
		Fresh:    true,
	}, dest)
	require.NoError(t, err)

	assert.Equal(t, "true", gotFresh)
	assert.Equal(t, "s3cret", gotSecret)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, bundle, data)
}

func TestGenerate_APIErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Schema validation failed", "errors": {"User.attributes": ["unknown type: blob"]}}`))
	}))
	defer srv.Close()

	err := New(srv.URL).Generate(context.Background(), GenerateOptions{Schema: []byte(`{}`)}, filepath.Join(t.TempDir(), "b.zip"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Schema validation failed", apiErr.Message)
	assert.Equal(t, []string{"unknown type: blob"}, apiErr.FieldErrors["User.attributes"])
}

func TestGenerate_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	err := New(srv.URL).Generate(context.Background(), GenerateOptions{Schema: []byte(`{}`)}, filepath.Join(t.TempDir(), "b.zip"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Detail, "upstream exploded")
}

func TestParseExpiry(t *testing.T) {
	assert.Equal(t, int64(4102444800), parseExpiry(float64(4102444800)).Unix())
	assert.Equal(t, int64(4102444800), parseExpiry("4102444800").Unix())

	rfc := parseExpiry("2100-01-01T00:00:00Z")
	assert.Equal(t, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC), rfc.UTC())

	assert.True(t, parseExpiry(nil).IsZero())
	assert.True(t, parseExpiry("soon").IsZero())
}
