package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/pipeline"
	"github.com/LukSky123/Prices.ai/internal/source"
	"github.com/LukSky123/Prices.ai/internal/upload"
)

// newUploadCmd creates the 'upload' subcommand for ingesting a single file
// without touching the processed log.
func newUploadCmd() *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Ingest one JSON export",
		Long: `Normalizes and uploads a single scraped JSON export. The source profile
is detected from the file name and record shape unless --source forces one.
The processed log is not consulted or updated.`,
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()

			registry, err := source.NewRegistry(cfg.Sources)
			if err != nil {
				return fmt.Errorf("build source registry: %w", err)
			}
			client := upload.NewClient(cfg.Upload.Endpoint, cfg.UploadTimeout(), appInstance.Logger())
			processor := pipeline.NewProcessor(registry, client, appInstance.Archive(), appInstance.Logger())

			var report upload.Report
			if sourceName != "" {
				report, err = processor.ProcessFileAs(cmd.Context(), args[0], sourceName)
			} else {
				report, err = processor.ProcessFile(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("upload %s: %w", args[0], err)
			}

			appInstance.Logger().Info("Upload finished",
				zap.String("file", args[0]),
				zap.Int("processed", report.Processed),
				zap.Int("errors", report.Errors),
				zap.Int("skipped", report.Skipped),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "force a source profile instead of auto-detecting")

	return cmd
}
