package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/services"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the listings cache",
	Long: `Fetches company listings from the remote source and replaces the cache.

When the background scheduler is configured the refresh runs as the
listings-refresh task, so failed attempts are retried and the run is
recorded in the task history.`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	cmd.Println("Refreshing listings...")

	if scheduler != nil {
		result, err := scheduler.RunNow(ctx, domain.TaskIDListingsRefresh)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		cmd.Printf("Refreshed: %d listing%s cached.\n", result.ItemsProcessed, plural(result.ItemsProcessed))
		return nil
	}

	if err := requireListings(); err != nil {
		return err
	}
	res := services.Drain(listingService.CompanyListings(ctx, true, ""), nil)
	if res.Err != nil {
		return fmt.Errorf("refresh failed: %w", res.Err)
	}
	cmd.Printf("Refreshed: %d listing%s cached.\n", len(res.Listings), plural(len(res.Listings)))
	return nil
}
