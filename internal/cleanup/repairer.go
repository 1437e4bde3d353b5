// Package cleanup repairs accumulated drift in the price catalog: duplicate
// items created by concurrent ingest runs, and items left without any price
// observation. Both operations are read-then-act; the race window against
// concurrent writers is accepted and corrected on the next invocation.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/catalog"
	"github.com/LukSky123/Prices.ai/internal/metrics"
)

// Config controls repair batching and pacing.
type Config struct {
	// BatchSize bounds each orphan delete batch.
	BatchSize int
	// BatchDelay paces consecutive delete batches.
	BatchDelay time.Duration
}

// Report summarizes the catalog's health for the analyze operation.
type Report struct {
	Stats           catalog.Stats
	DuplicateGroups []catalog.DuplicateGroup
	Orphans         int
}

// Repairer runs post-hoc maintenance against the catalog store.
type Repairer struct {
	store  catalog.Store
	cfg    Config
	logger *zap.Logger
}

// NewRepairer wires a Repairer.
func NewRepairer(store catalog.Store, cfg Config, logger *zap.Logger) *Repairer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repairer{store: store, cfg: cfg, logger: logger}
}

// Analyze reports catalog stats, duplicate groups, and orphan count without
// changing anything.
func (r *Repairer) Analyze(ctx context.Context) (Report, error) {
	stats, err := r.store.Stats(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("analyze stats: %w", err)
	}
	groups, err := r.store.FindDuplicateGroups(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("analyze duplicates: %w", err)
	}
	orphans, err := r.store.ListItemsWithoutPrices(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("analyze orphans: %w", err)
	}

	report := Report{Stats: stats, DuplicateGroups: groups, Orphans: len(orphans)}
	r.logger.Info("Catalog analysis",
		zap.Int64("items", stats.Items),
		zap.Int64("markets", stats.Markets),
		zap.Int64("prices", stats.Prices),
		zap.Int("duplicate_groups", len(groups)),
		zap.Int("orphan_items", len(orphans)),
	)
	for _, g := range groups {
		r.logger.Info("Duplicate group",
			zap.String("name", g.Name),
			zap.String("unit", g.Unit),
			zap.Int("count", g.Count),
		)
	}
	return report, nil
}

// MergeDuplicates merges every duplicate (name, unit) group onto its
// earliest-created item and returns the number of duplicate items removed.
// A failing group is skipped; the remaining groups are still attempted.
func (r *Repairer) MergeDuplicates(ctx context.Context) (int, error) {
	groups, err := r.store.FindDuplicateGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("find duplicate groups: %w", err)
	}
	if len(groups) == 0 {
		r.logger.Info("No duplicate items found")
		return 0, nil
	}

	removed := 0
	failed := 0
	for _, g := range groups {
		ids, err := r.store.ListItemIDs(ctx, g.Name, g.Unit)
		if err != nil {
			r.logger.Error("Failed to list duplicate group", zap.String("name", g.Name), zap.String("unit", g.Unit), zap.Error(err))
			failed++
			continue
		}
		if len(ids) < 2 {
			// Resolved since detection; nothing to merge.
			continue
		}
		survivor, duplicates := ids[0], ids[1:]
		if err := r.store.MergeGroup(ctx, survivor, duplicates); err != nil {
			r.logger.Error("Failed to merge duplicate group",
				zap.String("name", g.Name),
				zap.String("unit", g.Unit),
				zap.Error(err),
			)
			failed++
			continue
		}
		removed += len(duplicates)
		metrics.ItemsRemoved("duplicate", len(duplicates))
		r.logger.Info("Merged duplicate group",
			zap.String("name", g.Name),
			zap.String("unit", g.Unit),
			zap.Stringer("survivor", survivor),
			zap.Int("removed", len(duplicates)),
		)
	}

	r.logger.Info("Duplicate merge completed", zap.Int("removed", removed), zap.Int("failed_groups", failed))
	if failed > 0 {
		return removed, fmt.Errorf("merge duplicates: %d of %d groups failed", failed, len(groups))
	}
	return removed, nil
}

// RemoveOrphans deletes items with zero price observations in size-bounded
// batches with a pacing delay between them. A batch failure aborts the
// remaining batches; already-deleted batches stand.
func (r *Repairer) RemoveOrphans(ctx context.Context) (int, error) {
	ids, err := r.store.ListItemsWithoutPrices(ctx)
	if err != nil {
		return 0, fmt.Errorf("list orphan items: %w", err)
	}
	if len(ids) == 0 {
		r.logger.Info("No orphan items to remove")
		return 0, nil
	}
	r.logger.Info("Removing orphan items", zap.Int("count", len(ids)), zap.Int("batch_size", r.cfg.BatchSize))

	removed := 0
	for start := 0; start < len(ids); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		if err := r.store.DeleteItems(ctx, batch); err != nil {
			return removed, fmt.Errorf("delete orphan batch: %w", err)
		}
		removed += len(batch)
		metrics.ItemsRemoved("orphan", len(batch))

		if end < len(ids) && r.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return removed, ctx.Err()
			case <-time.After(r.cfg.BatchDelay):
			}
		}
	}

	r.logger.Info("Orphan removal completed", zap.Int("removed", removed))
	return removed, nil
}
