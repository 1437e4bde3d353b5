package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LukSky123/Prices.ai/internal/batch"
)

// newClearLogCmd creates the 'clear-log' subcommand, which resets the
// processed log so the next batch run re-ingests everything.
func newClearLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-log",
		Short: "Reset the processed log",

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			store := batch.NewLogStore(appInstance.Config().Batch.ProcessedLog, appInstance.Logger())
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear processed log: %w", err)
			}
			appInstance.Logger().Info("Processed log cleared")
			return nil
		},
	}
}
