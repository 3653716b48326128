// Package cli implements the listings command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driving"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Global flags.
var (
	configDir string
	verbose   bool
)

// Services wired by the entrypoint.
var (
	listingService  driving.ListingService
	scheduler       driving.Scheduler
	schedulerConfig domain.SchedulerConfig
	listingWatcher  driven.ListingWatcher
	configStore     driven.ConfigStore
)

// Options carries global flag values to the bootstrap functions.
type Options struct {
	ConfigDir string
	Verbose   bool
}

// Services is everything commands need from the application core.
type Services struct {
	Listings        driving.ListingService
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig

	// Watcher is set when the listing source can announce changes.
	Watcher driven.ListingWatcher

	// Close releases stores and flushes telemetry.
	Close func() error
}

// Bootstrap builds the services for a command run.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

// ConfigStoreFactory opens the settings store for the config commands.
type ConfigStoreFactory func(configDir string) (driven.ConfigStore, error)

var (
	bootstrap          Bootstrap
	configStoreFactory ConfigStoreFactory
	closeServices      func() error
)

// annotationSkipServices marks commands that run without the core services.
const annotationSkipServices = "listings/skip-services"

var rootCmd = &cobra.Command{
	Use:   "listings",
	Short: "Search company listings from a local cache",
	Long: `listings keeps a local cache of company listings and searches it.

Cached results are shown immediately. The cache is filled from the remote
source on first use and refreshed on demand or in the background.`,
	SilenceUsage:       true,
	PersistentPreRunE:  preRun,
	PersistentPostRunE: postRun,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.listings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output to stderr")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrap registers how services are built.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetConfigStoreFactory registers how the settings store is opened.
func SetConfigStoreFactory(f ConfigStoreFactory) {
	configStoreFactory = f
}

// SetServices installs services directly, bypassing bootstrap.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	listingService = s.Listings
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
	listingWatcher = s.Watcher
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx. Services opened for the
// command are closed even when it fails.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, postRun(rootCmd, nil))
}

func preRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if skipsServices(cmd) || bootstrap == nil || listingService != nil {
		return nil
	}

	svc, err := bootstrap(commandContext(cmd), Options{ConfigDir: configDir, Verbose: verbose})
	if err != nil {
		return err
	}
	SetServices(svc)
	closeServices = svc.Close
	return nil
}

func postRun(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	closeFn := closeServices
	closeServices = nil
	return closeFn()
}

func skipsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationSkipServices]; ok {
			return true
		}
	}
	return false
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func requireListings() error {
	if listingService == nil {
		return errors.New("listing service not configured")
	}
	return nil
}
