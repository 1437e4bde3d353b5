package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/metrics"
	"github.com/LukSky123/Prices.ai/internal/source"
	"github.com/LukSky123/Prices.ai/internal/upload"
)

// Uploader sends one file's canonical records to the catalog boundary.
type Uploader interface {
	Upload(ctx context.Context, records []upload.Record) (upload.Report, error)
}

// Archiver persists a processed batch for later inspection.
type Archiver interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// Processor runs the ingest flow for a single input file.
type Processor struct {
	registry *source.Registry
	uploader Uploader
	archiver Archiver
	logger   *zap.Logger
}

// NewProcessor wires a Processor. archiver may be nil to disable archiving.
func NewProcessor(registry *source.Registry, uploader Uploader, archiver Archiver, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		registry: registry,
		uploader: uploader,
		archiver: archiver,
		logger:   logger,
	}
}

// ProcessFile ingests one file, auto-detecting its source profile.
func (p *Processor) ProcessFile(ctx context.Context, path string) (upload.Report, error) {
	return p.ProcessFileAs(ctx, path, "")
}

// ProcessFileAs ingests one file using the named source profile, or
// auto-detection when sourceName is empty. Any failure fails the whole file;
// individual bad records degrade to counted skips instead.
func (p *Processor) ProcessFileAs(ctx context.Context, path, sourceName string) (upload.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return upload.Report{}, fmt.Errorf("read %s: %w", path, err)
	}

	var records []source.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return upload.Report{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return upload.Report{}, fmt.Errorf("invalid data format in %s: expected non-empty array", filepath.Base(path))
	}

	fileName := filepath.Base(path)
	if sourceName == "" {
		sourceName = p.registry.Detect(fileName, records)
	}
	profile := p.registry.Profile(sourceName)
	metrics.RecordsSeen(profile.Name, len(records))

	canonical := make([]upload.Record, 0, len(records))
	skips := map[SkipReason]int{}
	for i, rec := range records {
		out := Normalize(rec, profile, i+1)
		if out.Skipped {
			skips[out.Reason]++
			metrics.RecordSkipped(string(out.Reason))
			p.logger.Debug("Skipping record",
				zap.String("file", fileName),
				zap.Int("index", i+1),
				zap.String("reason", string(out.Reason)),
				zap.String("raw_price", out.RawPrice),
			)
			continue
		}
		canonical = append(canonical, out.Record)
	}

	p.logger.Info("File normalized",
		zap.String("file", fileName),
		zap.String("source", profile.Name),
		zap.Int("total", len(records)),
		zap.Int("valid", len(canonical)),
		zap.Int("missing_title", skips[SkipMissingTitle]),
		zap.Int("invalid_price", skips[SkipInvalidPrice]),
	)

	if len(canonical) == 0 {
		return upload.Report{}, fmt.Errorf("no valid records in %s after processing", fileName)
	}

	p.archive(ctx, fileName, canonical)

	metrics.UploadStarted()
	defer metrics.UploadFinished()

	report, err := p.uploader.Upload(ctx, canonical)
	if err != nil {
		return upload.Report{}, fmt.Errorf("upload %s: %w", fileName, err)
	}
	metrics.ItemsUploaded(report.Processed)
	return report, nil
}

// archive writes the canonical batch next to the catalog for inspection.
// Best effort: archive failures never fail the file.
func (p *Processor) archive(ctx context.Context, fileName string, records []upload.Record) {
	if p.archiver == nil {
		return
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		p.logger.Warn("Failed to marshal processed batch", zap.String("file", fileName), zap.Error(err))
		return
	}
	if err := p.archiver.Save(ctx, "processed_"+fileName, data); err != nil {
		p.logger.Warn("Failed to archive processed batch", zap.String("file", fileName), zap.Error(err))
	}
}
