package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"omnify/internal/auth"
	"omnify/internal/client"
	"omnify/internal/config"
	"omnify/internal/ux"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the generation service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(projectDir)
		if err != nil {
			return err
		}
		cache, err := credentialCache()
		if err != nil {
			return err
		}

		if creds, err := cache.Load(); err != nil {
			return err
		} else if creds != nil {
			fmt.Println(ux.Success("already authenticated"))
			return nil
		}

		reader := bufio.NewReader(cmd.InOrStdin())
		email, err := prompt(reader, "Email: ")
		if err != nil {
			return err
		}
		password, err := prompt(reader, "Password: ")
		if err != nil {
			return err
		}
		if email == "" || password == "" {
			return fmt.Errorf("email and password are required")
		}

		api := client.New(cfg.Service.URL)
		token, err := api.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}

		if err := cache.Save(auth.Credentials{Token: token.AccessToken, ExpiresAt: token.ExpiresAt}); err != nil {
			return err
		}
		fmt.Println(ux.Success("login successful, token saved"))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the cached credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := credentialCache()
		if err != nil {
			return err
		}
		if err := cache.Clear(); err != nil {
			return err
		}
		fmt.Println(ux.Success("credentials removed"))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication and project status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(projectDir)
		if err != nil {
			return err
		}

		if cfg.Service.ProjectSecret != "" {
			fmt.Println(ux.Success("project secret configured"))
			return nil
		}

		cache, err := credentialCache()
		if err != nil {
			return err
		}
		creds, err := cache.Load()
		if err != nil {
			return err
		}
		if creds == nil {
			fmt.Println(ux.Warn("not authenticated: run `omnify login`"))
			return nil
		}

		api := client.New(cfg.Service.URL, client.WithToken(creds.Token))
		ok, err := api.Verify(cmd.Context())
		if err != nil {
			return err
		}
		if !ok {
			// Server-side rejection; the cached token is useless now.
			_ = cache.Clear()
			fmt.Println(ux.Warn("token rejected by the service, credentials cleared"))
			return nil
		}
		fmt.Println(ux.Success("authenticated"))
		return nil
	},
}

func credentialCache() (*auth.Cache, error) {
	path, err := auth.DefaultPath()
	if err != nil {
		return nil, err
	}
	return auth.NewCache(path), nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
