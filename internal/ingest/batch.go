package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// ImportPaths imports every file named by paths. Directories are walked
// recursively, skipping hidden entries. Results are returned in discovery
// order. A failing file never stops the batch.
func (im *Importer) ImportPaths(ctx context.Context, paths []string) (Summary, []Result) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString()}

	metrics.BatchRunsTotal.Inc()
	metrics.BatchIsRunning.Set(1)
	defer metrics.BatchIsRunning.Set(0)

	files, walkErrors := collectFiles(ctx, paths)
	summary.WalkErrors = walkErrors
	logging.Info("Import run %s: %d candidate files from %d paths (%d walk errors)",
		summary.RunID, len(files), len(paths), walkErrors)

	results := make([]Result, len(files))
	done := make([]bool, len(files))

	var g errgroup.Group
	g.SetLimit(im.opts.Workers)
	for i, path := range files {
		if ctx.Err() != nil {
			logging.Warn("Import run %s cancelled with %d files not started", summary.RunID, len(files)-i)
			break
		}
		g.Go(func() error {
			results[i] = im.ImportFile(ctx, path)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	finished := results[:0]
	for i, r := range results {
		if done[i] {
			finished = append(finished, r)
		}
	}
	for _, r := range finished {
		summary.add(r)
	}
	summary.Duration = time.Since(start)

	recordBatch(summary)
	logging.Info("Import run %s complete in %v: %d imported (%s), %d already present, %d skipped, %d failed",
		summary.RunID, summary.Duration.Round(time.Millisecond), summary.Imported,
		humanize.IBytes(uint64(summary.Bytes)), summary.AlreadyPresent, summary.Skipped, summary.Failed)

	return summary, finished
}

func recordBatch(s Summary) {
	metrics.BatchLastRunDuration.Set(s.Duration.Seconds())
	metrics.BatchLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.BatchLastRunFiles.WithLabelValues(Imported.String()).Set(float64(s.Imported))
	metrics.BatchLastRunFiles.WithLabelValues(AlreadyPresent.String()).Set(float64(s.AlreadyPresent))
	metrics.BatchLastRunFiles.WithLabelValues(Skipped.String()).Set(float64(s.Skipped))
	metrics.BatchLastRunFiles.WithLabelValues(Failed.String()).Set(float64(s.Failed))
}

// collectFiles expands paths into regular files. Explicit file arguments are
// kept even when hidden; unreadable entries are counted and skipped.
func collectFiles(ctx context.Context, paths []string) ([]string, int) {
	var files []string
	walkErrors := 0

	for _, root := range paths {
		info, err := filesystem.StatWithRetry(root, filesystem.DefaultRetryConfig())
		if err != nil {
			logging.Warn("Cannot access %s: %v", root, err)
			walkErrors++
			continue
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if err != nil {
				logging.Warn("Error accessing path %s: %v", path, err)
				walkErrors++
				return nil
			}
			if path != root && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			logging.Warn("Failed to walk %s: %v", root, err)
			walkErrors++
		}
	}
	return files, walkErrors
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
