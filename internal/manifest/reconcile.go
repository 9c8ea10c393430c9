package manifest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status classifies the outcome of one manifest entry.
type Status string

const (
	StatusCopied   Status = "copied"
	StatusSkipped  Status = "skipped"
	StatusNotFound Status = "not_found"
	StatusInvalid  Status = "invalid"
	StatusFailed   Status = "failed"
)

// Result records the outcome of one entry, in manifest order.
type Result struct {
	Entry  Entry
	Status Status
	Reason string
}

// CategoryStats accumulates outcomes for one manifest category.
type CategoryStats struct {
	Name     string
	Copied   int
	Skipped  int
	NotFound int
	Invalid  int
	Failed   int
	Total    int
}

// Report is the full reconciliation outcome: per-entry results in manifest
// order, per-category statistics in order of first appearance, and the
// overall totals.
type Report struct {
	Results    []Result
	Categories []CategoryStats
	Totals     CategoryStats
}

// Reconciler copies manifest entries from an extracted bundle into the
// project tree. Entries are independent, so the copy work runs on a bounded
// worker pool; results land in preallocated slots and statistics are reduced
// afterwards, keeping the report deterministic regardless of scheduling.
type Reconciler struct {
	SourceRoot string
	DestRoot   string
	Workers    int
	Logger     *zap.Logger
}

const defaultWorkers = 8

// Run reconciles all entries. Per-entry failures (missing source, I/O
// errors) are recorded in the report and never abort the run; the returned
// error is only non-nil when the context is cancelled.
func (r *Reconciler) Run(ctx context.Context, entries []Entry) (*Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	results := make([]Result, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.reconcileEntry(entry, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Results: results}
	report.reduce()
	return report, nil
}

// reconcileEntry decides and applies the outcome for a single entry.
func (r *Reconciler) reconcileEntry(entry Entry, logger *zap.Logger) Result {
	if entry.Invalid() {
		logger.Warn("invalid manifest entry", zap.String("reason", entry.InvalidReason))
		return Result{Entry: entry, Status: StatusInvalid, Reason: entry.InvalidReason}
	}

	source := filepath.Join(r.SourceRoot, filepath.FromSlash(entry.SourcePath))
	dest := filepath.Join(r.DestRoot, filepath.FromSlash(entry.DestinationPath))

	if _, err := os.Stat(source); err != nil {
		logger.Warn("source file not found", zap.String("path", entry.SourcePath))
		return Result{Entry: entry, Status: StatusNotFound, Reason: "source file not found"}
	}

	if !entry.Replace {
		if _, err := os.Stat(dest); err == nil {
			logger.Debug("skipping existing file",
				zap.String("destination", entry.DestinationPath))
			return Result{Entry: entry, Status: StatusSkipped, Reason: "file exists and replace=false"}
		}
	}

	if err := copyFile(source, dest); err != nil {
		logger.Warn("copy failed",
			zap.String("destination", entry.DestinationPath), zap.Error(err))
		return Result{Entry: entry, Status: StatusFailed, Reason: err.Error()}
	}

	logger.Debug("file installed", zap.String("destination", entry.DestinationPath))
	return Result{Entry: entry, Status: StatusCopied}
}

// copyFile copies source to dest, creating parent directories and
// overwriting any existing file.
func copyFile(source, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy contents: %w", err)
	}
	return out.Close()
}

// reduce builds category and overall statistics from the ordered results.
func (rep *Report) reduce() {
	index := map[string]int{}
	for _, res := range rep.Results {
		name := res.Entry.Category
		i, ok := index[name]
		if !ok {
			i = len(rep.Categories)
			index[name] = i
			rep.Categories = append(rep.Categories, CategoryStats{Name: name})
		}
		rep.Categories[i].add(res.Status)
		rep.Totals.add(res.Status)
	}
}

func (s *CategoryStats) add(status Status) {
	s.Total++
	switch status {
	case StatusCopied:
		s.Copied++
	case StatusSkipped:
		s.Skipped++
	case StatusNotFound:
		s.NotFound++
	case StatusInvalid:
		s.Invalid++
	case StatusFailed:
		s.Failed++
	}
}
