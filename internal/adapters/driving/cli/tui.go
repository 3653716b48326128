package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface.

Cached listings are shown straight away and the background scheduler keeps
the cache fresh while the UI is open.

Controls:
  Enter    - Search
  Ctrl+R   - Refresh from the remote source
  ↑/k, ↓/j - Navigate listings
  n        - New search
  Esc      - Back
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("tui panic stack:\n%s", debug.Stack())
			err = fmt.Errorf("panic in TUI: %v", r)
		}
	}()

	app, err := tui.NewApp(&tui.Ports{Listings: listingService})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	// The TUI is long-running, so background refresh runs alongside it.
	var lifecycle conc.WaitGroup
	if scheduler != nil && schedulerConfig.Enabled {
		lifecycle.Go(func() {
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "scheduler stopped: %v\n", err)
			}
		})
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("scheduler stop: %v", err)
			}
			cancel()
			lifecycle.Wait()
		}()
	}

	if err := app.WithContext(ctx).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
