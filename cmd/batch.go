package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LukSky123/Prices.ai/internal/batch"
	"github.com/LukSky123/Prices.ai/internal/config"
	"github.com/LukSky123/Prices.ai/internal/pipeline"
	"github.com/LukSky123/Prices.ai/internal/source"
	"github.com/LukSky123/Prices.ai/internal/upload"
)

// newBatchCmd creates the 'batch' subcommand, which discovers every JSON
// export in the data directory and ingests the ones the processed log has
// not seen yet.
func newBatchCmd() *cobra.Command {
	var (
		directory    string
		concurrency  int
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Ingest all pending files from the data directory",
		Long: `Discovers JSON exports in the data directory and uploads them to the
catalog boundary in small paced groups. Files recorded in the processed log
are skipped, so repeated runs only pick up new exports.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			cfg := appInstance.Config()
			if cmd.Flags().Changed("directory") {
				cfg.Batch.Directory = directory
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Batch.Concurrency = concurrency
			}
			if cmd.Flags().Changed("skip-existing") {
				cfg.Batch.SkipExisting = skipExisting
			}

			driver, err := buildDriver(appInstance, cfg)
			if err != nil {
				return err
			}
			summary, err := driver.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run batch: %w", err)
			}
			if summary.FailedCount > 0 {
				return fmt.Errorf("%d of %d files failed", summary.FailedCount,
					summary.FailedCount+summary.ProcessedCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&directory, "directory", "", "directory holding scraped JSON exports")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "files processed in parallel per group")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", true, "skip files already in the processed log")

	return cmd
}

// buildDriver assembles the upload client, the source registry, the file
// processor and the batch driver from the service container.
func buildDriver(a App, cfg config.Config) (*batch.Driver, error) {
	registry, err := source.NewRegistry(cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("build source registry: %w", err)
	}

	client := upload.NewClient(cfg.Upload.Endpoint, cfg.UploadTimeout(), a.Logger())
	processor := pipeline.NewProcessor(registry, client, a.Archive(), a.Logger())
	logStore := batch.NewLogStore(cfg.Batch.ProcessedLog, a.Logger())

	driverCfg := batch.Config{
		Directory:    cfg.Batch.Directory,
		Concurrency:  cfg.Batch.Concurrency,
		SkipExisting: cfg.Batch.SkipExisting,
		GroupDelay:   cfg.GroupDelay(),
	}
	return batch.NewDriver(driverCfg, logStore, processor, a.Notifier(), a.Logger()), nil
}
