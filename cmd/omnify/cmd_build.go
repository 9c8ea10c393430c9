package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omnify/internal/archive"
	"omnify/internal/auth"
	"omnify/internal/client"
	"omnify/internal/config"
	"omnify/internal/manifest"
	"omnify/internal/schema"
	"omnify/internal/ux"
)

var (
	buildFresh    bool
	buildDetailed bool
	buildWorkers  int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generate the bundle and install it into the project",
	Long: `Loads the project's schema files, sends them to the generation
service and installs the returned bundle according to its file manifest
(build/filelist.json). Files whose manifest entry has replace=false are
never overwritten once they exist locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(projectDir)
		if err != nil {
			return err
		}
		return runBuild(cmd.Context(), cfg, buildOptions{
			fresh:    buildFresh,
			detailed: buildDetailed,
			workers:  buildWorkers,
			legacy:   false,
		})
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildFresh, "fresh", false, "request a from-scratch bundle")
	buildCmd.Flags().BoolVar(&buildDetailed, "detailed", false, "list every file with its outcome")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "parallel copy workers (0 = default)")
}

type buildOptions struct {
	fresh    bool
	detailed bool
	workers  int
	legacy   bool
}

// runBuild is the full generation round-trip, shared by build, install and
// watch.
func runBuild(ctx context.Context, cfg *config.Config, opts buildOptions) error {
	objects, err := schema.Load(cfg.Schemas.Dirs...)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return fmt.Errorf("no schema files found under %v", cfg.Schemas.Dirs)
	}
	logger.Info("schemas loaded",
		zap.Int("objects", len(objects)),
		zap.Strings("names", schema.Names(objects)))

	schemaJSON, err := schema.Marshal(objects)
	if err != nil {
		return fmt.Errorf("encode schema document: %w", err)
	}

	api, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	genOpts := client.GenerateOptions{Schema: schemaJSON, Fresh: opts.fresh}
	if lock, err := os.ReadFile(cfg.Output.LockFile); err == nil {
		genOpts.LockFile = lock
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read lock file: %w", err)
	}

	staging, err := os.MkdirTemp("", "omnify-bundle-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	bundleZip := filepath.Join(staging, "bundle.zip")
	if err := api.Generate(ctx, genOpts, bundleZip); err != nil {
		return err
	}

	extractDir := filepath.Join(staging, "extracted")
	if err := archive.Extract(bundleZip, extractDir); err != nil {
		return err
	}

	manifestRel := filepath.Join("build", "filelist.json")
	sourceRoot := filepath.Join(extractDir, "build")
	if opts.legacy {
		manifestRel = "filelist.json"
		sourceRoot = extractDir
	}

	manifestData, err := os.ReadFile(filepath.Join(extractDir, manifestRel))
	if err != nil {
		return fmt.Errorf("%w: %s not found in bundle", manifest.ErrManifestFormat, manifestRel)
	}
	entries, err := manifest.Decode(manifestData)
	if err != nil {
		return err
	}

	reconciler := &manifest.Reconciler{
		SourceRoot: sourceRoot,
		DestRoot:   cfg.Output.BaseDir,
		Workers:    opts.workers,
		Logger:     logger,
	}
	report, err := reconciler.Run(ctx, entries)
	if err != nil {
		return err
	}

	fmt.Print(ux.RenderReport(report, opts.detailed))
	if report.Totals.Failed > 0 {
		return fmt.Errorf("%d files failed to install", report.Totals.Failed)
	}
	fmt.Println(ux.Success("bundle installed"))
	return nil
}

// newAPIClient builds the service client from config and cached
// credentials. A project secret takes precedence over an interactive token.
func newAPIClient(cfg *config.Config) (*client.Client, error) {
	opts := []client.Option{client.WithLogger(logger)}

	if cfg.Service.ProjectSecret != "" {
		opts = append(opts, client.WithProjectSecret(cfg.Service.ProjectSecret))
		return client.New(cfg.Service.URL, opts...), nil
	}

	path, err := auth.DefaultPath()
	if err != nil {
		return nil, err
	}
	creds, err := auth.NewCache(path).Load()
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, errors.New("not authenticated: run `omnify login` or set OMNIFY_PROJECT_SECRET")
	}
	opts = append(opts, client.WithToken(creds.Token))
	return client.New(cfg.Service.URL, opts...), nil
}
