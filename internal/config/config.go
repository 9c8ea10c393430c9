// Package config loads the project-level omnify.toml. The file is optional;
// defaults cover a standard project layout, and a couple of settings can be
// overridden through the environment for CI use.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the config file looked up at the project root.
const FileName = "omnify.toml"

// Env override names. The project secret in particular should come from the
// environment in CI rather than a committed file.
const (
	EnvURL           = "OMNIFY_URL"
	EnvProjectSecret = "OMNIFY_PROJECT_SECRET"
)

// Config is the project configuration.
type Config struct {
	Service   ServiceConfig   `toml:"service"`
	Schemas   SchemasConfig   `toml:"schemas"`
	Output    OutputConfig    `toml:"output"`
	Documents DocumentsConfig `toml:"documents"`
}

// ServiceConfig points at the generation service.
type ServiceConfig struct {
	URL           string `toml:"url"`
	ProjectSecret string `toml:"project_secret"`
}

// SchemasConfig lists the schema directories, scanned in order with later
// directories winning on object-name collisions.
type SchemasConfig struct {
	Dirs []string `toml:"dirs"`
}

// OutputConfig controls where bundle files land.
type OutputConfig struct {
	// BaseDir is the project root the manifest destinations are relative
	// to. Empty means the directory containing omnify.toml.
	BaseDir string `toml:"base_dir"`
	// LockFile is the bundle lock attached to generation requests.
	LockFile string `toml:"lock_file"`
}

// DocumentsConfig configures the generated-document store and templates.
type DocumentsConfig struct {
	DatabasePath string `toml:"database_path"`
	TemplateDir  string `toml:"template_dir"`
}

// Default returns the configuration for a project with no omnify.toml.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{},
		Schemas: SchemasConfig{
			Dirs: []string{
				filepath.Join("database", "schemas"),
				filepath.Join("support", "database", "schemas"),
			},
		},
		Output: OutputConfig{
			LockFile: "omnify.lock",
		},
		Documents: DocumentsConfig{
			DatabasePath: filepath.Join(".omnify", "documents.db"),
			TemplateDir:  filepath.Join("documents", "templates"),
		},
	}
}

// Load reads omnify.toml from projectDir, falling back to defaults when the
// file is absent, then applies environment overrides. Relative paths in the
// file are resolved against projectDir.
func Load(projectDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(projectDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file; defaults apply.
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", FileName, err)
		}
	}

	if url := os.Getenv(EnvURL); url != "" {
		cfg.Service.URL = url
	}
	if secret := os.Getenv(EnvProjectSecret); secret != "" {
		cfg.Service.ProjectSecret = secret
	}

	cfg.resolve(projectDir)
	return cfg, nil
}

// resolve anchors relative paths at the project root.
func (c *Config) resolve(projectDir string) {
	if c.Output.BaseDir == "" {
		c.Output.BaseDir = projectDir
	} else if !filepath.IsAbs(c.Output.BaseDir) {
		c.Output.BaseDir = filepath.Join(projectDir, c.Output.BaseDir)
	}

	for i, dir := range c.Schemas.Dirs {
		if !filepath.IsAbs(dir) {
			c.Schemas.Dirs[i] = filepath.Join(projectDir, dir)
		}
	}
	if !filepath.IsAbs(c.Output.LockFile) {
		c.Output.LockFile = filepath.Join(projectDir, c.Output.LockFile)
	}
	if !filepath.IsAbs(c.Documents.DatabasePath) {
		c.Documents.DatabasePath = filepath.Join(projectDir, c.Documents.DatabasePath)
	}
	if !filepath.IsAbs(c.Documents.TemplateDir) {
		c.Documents.TemplateDir = filepath.Join(projectDir, c.Documents.TemplateDir)
	}
}
