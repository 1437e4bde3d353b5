package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/metrics"
	"github.com/LukSky123/Prices.ai/internal/upload"
)

// Processor ingests one input file end to end.
type Processor interface {
	ProcessFile(ctx context.Context, path string) (upload.Report, error)
}

// Notifier publishes an event for each successfully ingested file.
// Publish failures never affect the run outcome.
type Notifier interface {
	FileIngested(ctx context.Context, result FileResult) error
}

// Config controls one batch run.
type Config struct {
	// Directory holds the input files. A missing directory is fatal.
	Directory string
	// Concurrency is the group size C: at most C files in flight at once.
	Concurrency int
	// SkipExisting excludes files already present in the processed log.
	SkipExisting bool
	// GroupDelay is the pacing pause between consecutive groups.
	GroupDelay time.Duration
}

// Summary is the final accounting of a run.
type Summary struct {
	ProcessedCount     int
	FailedCount        int
	TotalItemsUploaded int
	Failed             []FileResult
}

// Driver enumerates input files, dispatches them in concurrency-bounded
// groups, and persists the processed log after every group barrier so a
// crash loses at most one in-flight group.
type Driver struct {
	cfg       Config
	store     *LogStore
	processor Processor
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewDriver wires a Driver. notifier may be nil.
func NewDriver(cfg Config, store *LogStore, processor Processor, notifier Notifier, logger *zap.Logger) *Driver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.GroupDelay < 0 {
		cfg.GroupDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		cfg:       cfg,
		store:     store,
		processor: processor,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the full Load, Discover, Group, Dispatch, Pace, Summarize flow.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	return d.run(ctx, nil, d.cfg.SkipExisting)
}

// Retry re-runs exactly the previously failed file paths. The failed list is
// cleared and persisted before the re-run so a second retry does not see
// stale entries.
func (d *Driver) Retry(ctx context.Context) (Summary, error) {
	log := d.store.Load()
	if len(log.Failed) == 0 {
		d.logger.Info("No failed files to retry")
		return Summary{}, nil
	}

	only := make(map[string]bool, len(log.Failed))
	for _, r := range log.Failed {
		only[r.File] = true
	}
	d.logger.Info("Retrying failed files", zap.Int("count", len(only)))

	log.Failed = nil
	if err := d.store.Save(log); err != nil {
		return Summary{}, fmt.Errorf("clear failed list: %w", err)
	}
	return d.run(ctx, only, false)
}

// run is the shared state machine. only, when non-nil, restricts the
// discovered file list to exactly those paths.
func (d *Driver) run(ctx context.Context, only map[string]bool, skipExisting bool) (Summary, error) {
	log := d.store.Load()

	all, err := d.discover()
	if err != nil {
		return Summary{}, err
	}

	files := make([]string, 0, len(all))
	for _, f := range all {
		if only != nil && !only[f] {
			continue
		}
		if only == nil && skipExisting && log.HasProcessed(f) {
			continue
		}
		files = append(files, f)
	}

	d.logger.Info("Starting batch upload",
		zap.String("directory", d.cfg.Directory),
		zap.Int("found", len(all)),
		zap.Int("to_process", len(files)),
		zap.Int("concurrency", d.cfg.Concurrency),
	)

	var summary Summary
	if len(files) == 0 {
		d.logger.Info("No files to process")
		return summary, nil
	}

	groups := (len(files) + d.cfg.Concurrency - 1) / d.cfg.Concurrency
	for start, groupNo := 0, 1; start < len(files); start, groupNo = start+d.cfg.Concurrency, groupNo+1 {
		// No mid-group cancellation: a dispatched group always runs to its
		// barrier. Cancellation takes effect between groups.
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run canceled before group %d: %w", groupNo, err)
		}

		end := start + d.cfg.Concurrency
		if end > len(files) {
			end = len(files)
		}
		group := files[start:end]
		d.logger.Info("Processing group", zap.Int("group", groupNo), zap.Int("of", groups), zap.Int("files", len(group)))

		for _, result := range d.dispatch(ctx, group) {
			if result.Success {
				summary.ProcessedCount++
				summary.TotalItemsUploaded += result.Processed
				log.Processed = append(log.Processed, result)
				d.notify(ctx, result)
			} else {
				summary.FailedCount++
				summary.Failed = append(summary.Failed, result)
				log.Failed = append(log.Failed, result)
			}
		}

		// Flush after every barrier, not only at the end.
		if err := d.store.Save(log); err != nil {
			d.logger.Error("Failed to persist processed log", zap.Error(err))
		} else {
			metrics.LogFlushed()
		}

		if end < len(files) && d.cfg.GroupDelay > 0 {
			d.logger.Debug("Pacing before next group", zap.Duration("delay", d.cfg.GroupDelay))
			select {
			case <-ctx.Done():
			case <-time.After(d.cfg.GroupDelay):
			}
		}
	}

	d.logger.Info("Batch upload completed",
		zap.Int("processed", summary.ProcessedCount),
		zap.Int("failed", summary.FailedCount),
		zap.Int("items_uploaded", summary.TotalItemsUploaded),
	)
	for _, f := range summary.Failed {
		d.logger.Warn("Failed file", zap.String("file", f.FileName), zap.String("error", f.Error))
	}
	return summary, nil
}

// discover lists input files with a .json suffix, case-insensitively.
func (d *Driver) discover() ([]string, error) {
	entries, err := os.ReadDir(d.cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("read data directory %s: %w", d.cfg.Directory, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			files = append(files, filepath.Join(d.cfg.Directory, e.Name()))
		}
	}
	return files, nil
}

// dispatch runs one group of files concurrently and joins at the barrier.
// Workers send result values; only the coordinator mutates the log. Results
// come back in completion order, which is fine: log entries are keyed by
// file path, not position.
func (d *Driver) dispatch(ctx context.Context, group []string) []FileResult {
	results := make(chan FileResult, len(group))
	var wg sync.WaitGroup
	for _, path := range group {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			results <- d.processOne(ctx, path)
		}(path)
	}
	wg.Wait()
	close(results)

	collected := make([]FileResult, 0, len(group))
	for r := range results {
		collected = append(collected, r)
	}
	return collected
}

// processOne converts any per-file failure into a failed FileResult; no
// error escapes the group barrier, so one bad file never aborts the batch.
func (d *Driver) processOne(ctx context.Context, path string) FileResult {
	fileName := filepath.Base(path)
	report, err := d.processor.ProcessFile(ctx, path)
	if err != nil {
		metrics.FileProcessed(false)
		d.logger.Error("File failed", zap.String("file", fileName), zap.Error(err))
		if upload.IsConnectionRefused(err) {
			d.logger.Warn("Connection refused; is the catalog ingest server running?")
		}
		return FileResult{
			File:      path,
			FileName:  fileName,
			Timestamp: d.now(),
			Success:   false,
			Error:     err.Error(),
		}
	}

	metrics.FileProcessed(true)
	d.logger.Info("File uploaded",
		zap.String("file", fileName),
		zap.Int("processed", report.Processed),
		zap.Int("errors", report.Errors),
		zap.Int("skipped", report.Skipped),
	)
	return FileResult{
		File:      path,
		FileName:  fileName,
		Timestamp: d.now(),
		Success:   true,
		Processed: report.Processed,
		Errors:    report.Errors,
		Skipped:   report.Skipped,
	}
}

func (d *Driver) notify(ctx context.Context, result FileResult) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.FileIngested(ctx, result); err != nil {
		d.logger.Warn("Failed to publish ingest notification", zap.String("file", result.FileName), zap.Error(err))
	}
}
