package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "listings", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config-dir")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)

	flag = rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"search", "refresh", "status", "watch", "config", "mcp", "tui", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestPreRun_BootstrapsAndCloses(t *testing.T) {
	booted := 0
	restore := setBootstrapForTest(func() { booted++ })
	defer restore()

	closed := 0
	inner := bootstrap
	bootstrap = func(ctx context.Context, opts Options) (*Services, error) {
		assert.Equal(t, "/tmp/listings-test", opts.ConfigDir)
		svc, err := inner(ctx, opts)
		svc.Close = func() error { closed++; return nil }
		return svc, err
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"--config-dir", "/tmp/listings-test", "search", "apple"})

	err := ExecuteContext(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, booted)
	assert.Equal(t, 1, closed)
	assert.Contains(t, buf.String(), "AAPL")
}

func TestPreRun_BootstrapError(t *testing.T) {
	restore := setBootstrapForTest(func() {})
	defer restore()
	bootstrap = func(context.Context, Options) (*Services, error) {
		return nil, errors.New("open store: disk full")
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestExecuteContext_ClosesServicesOnFailure(t *testing.T) {
	restore := setBootstrapForTest(func() {})
	defer restore()

	closed := false
	bootstrap = func(context.Context, Options) (*Services, error) {
		return &Services{
			Listings: &mockListingService{countErr: domain.ErrStore},
			Close:    func() error { closed = true; return nil },
		}, nil
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})

	err := ExecuteContext(context.Background())

	assert.ErrorIs(t, err, domain.ErrStore)
	assert.True(t, closed)
}

func TestSetServices(t *testing.T) {
	restore := saveGlobals()
	defer restore()

	svc := &mockListingService{}
	sched := newMockScheduler()
	watcher := &mockWatcher{}
	cfg := domain.DefaultSchedulerConfig()

	SetServices(&Services{Listings: svc, Scheduler: sched, SchedulerConfig: cfg, Watcher: watcher})

	assert.Equal(t, svc, listingService)
	assert.Equal(t, sched, scheduler)
	assert.Equal(t, cfg, schedulerConfig)
	assert.Equal(t, watcher, listingWatcher)

	SetServices(nil)
	assert.Equal(t, svc, listingService)
}

func TestRequireListings(t *testing.T) {
	restore := saveGlobals()
	defer restore()

	listingService = nil
	assert.EqualError(t, requireListings(), "listing service not configured")

	listingService = &mockListingService{}
	assert.NoError(t, requireListings())
}
