// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/archive"
	"github.com/LukSky123/Prices.ai/internal/batch"
	"github.com/LukSky123/Prices.ai/internal/catalog"
	"github.com/LukSky123/Prices.ai/internal/catalog/postgres"
	"github.com/LukSky123/Prices.ai/internal/config"
	"github.com/LukSky123/Prices.ai/internal/logging"
	"github.com/LukSky123/Prices.ai/internal/metrics"
	"github.com/LukSky123/Prices.ai/internal/notify"
)

// App holds the shared, long-lived services for the application: the logger,
// the archive provider, the ingest-event notifier and the catalog store. It
// is initialized once at startup and passed to the commands that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	archive  archive.Provider
	notifier batch.Notifier
	closers  []func()

	storeOnce sync.Once
	store     catalog.Store
	storeErr  error
}

// New builds the service container from configuration. Archive and notify
// providers are initialized eagerly so misconfiguration fails fast; the
// catalog store connects lazily because only the serve and cleanup commands
// reach the database.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logging.InitLogger(cfg.Logging.Development)
	l := logging.L
	metrics.Init()

	a := &App{cfg: cfg, logger: l}

	switch cfg.Archive.Provider {
	case "gcs":
		l.Info("Using GCS archive provider", zap.String("bucket", cfg.Archive.GCSBucket))
		a.archive, err = archive.NewGCSProvider(ctx, cfg.Archive.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("initialize archive: %w", err)
		}
	case "local":
		l.Info("Using local archive provider", zap.String("directory", cfg.Archive.Directory))
		a.archive, err = archive.NewLocalProvider(cfg.Archive.Directory)
		if err != nil {
			return nil, fmt.Errorf("initialize archive: %w", err)
		}
	case "noop":
		l.Info("Archiving disabled, processed batches will not be kept")
		a.archive = &archive.NoOpProvider{}
	}

	switch cfg.Notify.Provider {
	case "pubsub":
		l.Info("Connecting to GCP Pub/Sub", zap.String("topic", cfg.Notify.TopicName))
		n, err := notify.NewPubSubNotifier(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicName, l)
		if err != nil {
			return nil, fmt.Errorf("initialize notifier: %w", err)
		}
		a.notifier = n
		a.closers = append(a.closers, func() {
			if cerr := n.Close(); cerr != nil {
				l.Warn("Error closing notifier", zap.Error(cerr))
			}
		})
	case "noop":
		a.notifier = notify.NoOpNotifier{}
	}

	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Archive exposes the configured batch archive provider.
func (a *App) Archive() archive.Provider {
	return a.archive
}

// Notifier returns the ingest-event notifier.
func (a *App) Notifier() batch.Notifier {
	return a.notifier
}

// Store returns the catalog store, connecting to the database on first use.
func (a *App) Store(ctx context.Context) (catalog.Store, error) {
	a.storeOnce.Do(func() {
		if a.cfg.DB.DSN == "" {
			a.storeErr = fmt.Errorf("db.dsn is not configured")
			return
		}
		a.logger.Info("Connecting to PostgreSQL")
		store, err := postgres.NewStore(ctx, a.cfg.DB.DSN)
		if err != nil {
			a.storeErr = fmt.Errorf("connect catalog store: %w", err)
			return
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	})
	return a.store, a.storeErr
}

// Close gracefully shuts down all services in the container. It is called by
// a Cobra hook after the command finishes execution.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	// Flush buffered log entries; stderr sync errors are expected on some
	// platforms and safe to ignore.
	_ = a.logger.Sync()
}
