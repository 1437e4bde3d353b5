// Package cmd defines and implements the CLI commands for the pricesai
// executable.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/app"
	"github.com/LukSky123/Prices.ai/internal/archive"
	"github.com/LukSky123/Prices.ai/internal/batch"
	"github.com/LukSky123/Prices.ai/internal/catalog"
	"github.com/LukSky123/Prices.ai/internal/config"
	"github.com/LukSky123/Prices.ai/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows a
// mock app to be injected during tests.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Archive() archive.Provider
	Notifier() batch.Notifier
	Store(ctx context.Context) (catalog.Store, error)
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context) (App, error) {
	return app.New(ctx, cfgFile)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricesai",
		Short: "Ingestion tooling for the Prices.ai food-price catalog.",
		Long: `pricesai moves scraped supermarket exports into the price catalog.
It normalizes tolerant JSON dumps from supermart, jumia, konga and unknown
sources, uploads them to the catalog boundary in paced concurrent batches,
keeps a durable log so re-runs never double-ingest, and repairs catalog
drift (duplicate items, price-less orphans) after the fact.`,

		SilenceUsage: true,

		// Runs before the subcommand's RunE: build and inject the service
		// container so every command resolves its dependencies from context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches environment only)")

	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newRetryCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newClearLogCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger(true)

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}
