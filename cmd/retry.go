package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRetryCmd creates the 'retry' subcommand, which re-runs exactly the
// files recorded as failed in the processed log.
func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Re-ingest the files that failed on a previous run",
		Long: `Reads the failed list from the processed log, clears it, and runs the
listed files again. Files that were never attempted or already succeeded are
left alone.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			driver, err := buildDriver(appInstance, appInstance.Config())
			if err != nil {
				return err
			}
			summary, err := driver.Retry(cmd.Context())
			if err != nil {
				return fmt.Errorf("run retry: %w", err)
			}
			if summary.FailedCount > 0 {
				return fmt.Errorf("%d of %d files failed again", summary.FailedCount,
					summary.FailedCount+summary.ProcessedCount)
			}
			return nil
		},
	}
}
