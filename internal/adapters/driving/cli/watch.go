package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/listings-cli/internal/core/services"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the listings cache up to date",
	Long: `Runs in the foreground and keeps the cache current until interrupted.

The background scheduler refreshes the cache on its configured interval.
When the listing source is a local file, edits to the file trigger a
refresh straight away.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := requireListings(); err != nil {
		return err
	}
	if scheduler == nil && listingWatcher == nil {
		return errors.New("nothing to watch: scheduler disabled and source cannot announce changes")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch(ctx, cmd.OutOrStdout())
}

// watch runs the scheduler and the source watcher until ctx is done.
func watch(ctx context.Context, out io.Writer) error {
	var changes <-chan struct{}
	if listingWatcher != nil {
		ch, err := listingWatcher.Watch(ctx)
		if err != nil {
			return fmt.Errorf("failed to watch source: %w", err)
		}
		changes = ch
	}

	var lifecycle conc.WaitGroup

	if scheduler != nil {
		fmt.Fprintf(out, "Background refresh: %s\n", refreshSchedule())
		lifecycle.Go(func() {
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("scheduler stopped: %v", err)
			}
		})
	}

	if changes != nil {
		fmt.Fprintln(out, "Watching source for changes...")
		lifecycle.Go(func() {
			for range changes {
				refreshOnChange(ctx, out)
			}
		})
	}

	<-ctx.Done()
	fmt.Fprintln(out, "Stopping...")
	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("scheduler stop: %v", err)
		}
	}
	lifecycle.Wait()
	return nil
}

func refreshOnChange(ctx context.Context, out io.Writer) {
	logger.Info("Source changed, refreshing")
	res := services.Drain(listingService.CompanyListings(ctx, true, ""), nil)
	switch {
	case ctx.Err() != nil:
		return
	case res.Err != nil:
		fmt.Fprintf(out, "Refresh failed: %v\n", res.Err)
	default:
		fmt.Fprintf(out, "Source changed: %d listing%s cached.\n", len(res.Listings), plural(len(res.Listings)))
	}
}
