package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omnify/internal/config"
	"omnify/internal/ux"
)

// watchDebounce coalesces editor write bursts into one rebuild.
const watchDebounce = 750 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild whenever a schema file changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(projectDir)
		if err != nil {
			return err
		}
		return runWatch(cmd.Context(), cfg)
	},
}

func runWatch(ctx context.Context, cfg *config.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range cfg.Schemas.Dirs {
		if err := watchRecursive(watcher, dir); err != nil {
			return err
		}
		if _, err := os.Stat(dir); err == nil {
			watched++
		}
	}
	if watched == 0 {
		return fmt.Errorf("no schema directories exist under %v", cfg.Schemas.Dirs)
	}

	fmt.Println(ux.Success("watching schema directories, Ctrl-C to stop"))

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSchemaFile(event.Name) {
				// New subdirectories need to join the watch set.
				if event.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watchRecursive(watcher, event.Name)
					}
				}
				continue
			}
			logger.Debug("schema change detected",
				zap.String("path", event.Name), zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))

		case <-rebuild:
			if err := runBuild(ctx, cfg, buildOptions{}); err != nil {
				// Keep watching; a broken schema edit shouldn't end the session.
				fmt.Println(ux.Error(err.Error()))
			}
		}
	}
}

func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
