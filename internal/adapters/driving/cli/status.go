package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireListings(); err != nil {
			return err
		}
		n, err := listingService.Count(commandContext(cmd))
		if err != nil {
			return err
		}
		cmd.Printf("Cached listings: %d\n", n)
		if n == 0 {
			cmd.Println("The cache is empty. Run 'listings search' or 'listings refresh' to fill it.")
		}
		cmd.Printf("Background refresh: %s\n", refreshSchedule())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// refreshSchedule describes when the cache is refreshed in the background.
func refreshSchedule() string {
	if scheduler == nil || !schedulerConfig.Enabled {
		return "disabled"
	}
	task := schedulerConfig.GetTaskConfig(domain.TaskIDListingsRefresh)
	if !task.Enabled || task.Interval <= 0 {
		return "disabled"
	}
	return "every " + task.Interval.String()
}
