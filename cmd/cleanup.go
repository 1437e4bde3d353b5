package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/cleanup"
)

// newCleanupCmd creates the 'cleanup' subcommand, which repairs catalog
// drift: duplicate (name, unit) items and items without any price history.
func newCleanupCmd() *cobra.Command {
	var (
		analyze          bool
		removeDuplicates bool
		removeOrphans    bool
		full             bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Analyze and repair catalog consistency",
		Long: `Inspects the catalog for duplicate items and price-less orphans and,
when asked, repairs them. Duplicate groups are merged onto the earliest
created item with all price history re-pointed; orphans are deleted in small
paced batches. With no flags it behaves like --analyze.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			store, err := appInstance.Store(cmd.Context())
			if err != nil {
				return err
			}

			cfg := appInstance.Config()
			repairer := cleanup.NewRepairer(store, cleanup.Config{
				BatchSize:  cfg.Cleanup.BatchSize,
				BatchDelay: cfg.CleanupDelay(),
			}, appInstance.Logger())

			if full {
				removeDuplicates = true
				removeOrphans = true
			}
			if !removeDuplicates && !removeOrphans {
				analyze = true
			}

			if analyze {
				if _, err := repairer.Analyze(cmd.Context()); err != nil {
					return fmt.Errorf("analyze catalog: %w", err)
				}
			}
			if removeDuplicates {
				merged, err := repairer.MergeDuplicates(cmd.Context())
				if err != nil {
					return fmt.Errorf("merge duplicates: %w", err)
				}
				appInstance.Logger().Info("Duplicate merge finished", zap.Int("items_removed", merged))
			}
			if removeOrphans {
				removed, err := repairer.RemoveOrphans(cmd.Context())
				if err != nil {
					return fmt.Errorf("remove orphans: %w", err)
				}
				appInstance.Logger().Info("Orphan removal finished", zap.Int("items_removed", removed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&analyze, "analyze", false, "report catalog stats, duplicates and orphans")
	cmd.Flags().BoolVar(&removeDuplicates, "remove-duplicates", false, "merge duplicate (name, unit) items")
	cmd.Flags().BoolVar(&removeOrphans, "remove-orphans", false, "delete items without price history")
	cmd.Flags().BoolVar(&full, "full", false, "run both repairs")

	return cmd
}
