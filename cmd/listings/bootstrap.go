package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	csvdecoder "github.com/custodia-labs/listings-cli/internal/adapters/driven/decoder/csv"
	jsondecoder "github.com/custodia-labs/listings-cli/internal/adapters/driven/decoder/json"
	"github.com/custodia-labs/listings-cli/internal/adapters/driven/remote/alphavantage"
	filesource "github.com/custodia-labs/listings-cli/internal/adapters/driven/remote/file"
	"github.com/custodia-labs/listings-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/listings-cli/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/listings-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/listings-cli/internal/adapters/driven/telemetry"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/listings-cli/internal/config"
	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
	"github.com/custodia-labs/listings-cli/internal/core/services"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

// shutdownTimeout bounds the final metrics flush.
const shutdownTimeout = 5 * time.Second

// bootstrap builds the application services from configuration.
// Everything opened before a failure is closed again.
func bootstrap(ctx context.Context, opts cli.Options) (svc *cli.Services, err error) {
	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			_ = closeAll()
		}
	}()

	listingStore, schedulerStore, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeStore)

	source, watcher, err := openSource(cfg.Remote)
	if err != nil {
		return nil, err
	}
	if c, ok := source.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	decoder, err := newDecoder(cfg.Remote.Format)
	if err != nil {
		return nil, err
	}

	mp, shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Insecure: cfg.Telemetry.Insecure,
		Version:  version,
	})
	if err != nil {
		return nil, fmt.Errorf("initialising telemetry: %w", err)
	}
	closers = append(closers, func() error {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return shutdown(flushCtx)
	})

	metrics, err := telemetry.NewSyncMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	listings := services.NewListingRepository(
		listingStore, source, decoder,
		services.WithMetrics(metrics),
		services.WithSyncSettings(cfg.SyncSettings()),
	)

	schedulerConfig := cfg.SchedulerConfig()
	scheduler := services.NewScheduler(schedulerConfig, schedulerStore, listings)

	logger.Debug("bootstrap: store=%s remote=%s format=%s", cfg.Store.Driver, cfg.Remote.Kind, cfg.Remote.Format)

	return &cli.Services{
		Listings:        listings,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		Watcher:         watcher,
		Close:           closeAll,
	}, nil
}

// openStore opens the cache backend. Backends without task persistence keep
// scheduler state in memory.
func openStore(ctx context.Context, cfg config.StoreConfig) (driven.ListingStore, driven.SchedulerStore, func() error, error) {
	switch cfg.Driver {
	case domain.StoreDriverSQLite:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store.ListingStore(), store.SchedulerStore(), store.Close, nil
	case domain.StoreDriverPostgres:
		store, err := postgres.NewStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store.ListingStore(), memory.NewSchedulerStore(), store.Close, nil
	case domain.StoreDriverMemory:
		return memory.NewListingStore(), memory.NewSchedulerStore(), func() error { return nil }, nil
	default:
		return nil, nil, nil, fmt.Errorf("store driver %q: %w", cfg.Driver, domain.ErrUnsupportedType)
	}
}

// openSource creates the listing source. The watcher is nil unless the
// source can announce changes.
func openSource(cfg config.RemoteConfig) (driven.ListingSource, driven.ListingWatcher, error) {
	switch cfg.Kind {
	case domain.RemoteKindAlphaVantage:
		client, err := alphavantage.NewClient(alphavantage.Config{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Token:             cfg.Token,
			RequestsPerMinute: cfg.RequestsPerMinute,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating alphavantage client: %w", err)
		}
		return client, nil, nil
	case domain.RemoteKindFile:
		src := filesource.New(cfg.Path)
		return src, src, nil
	default:
		return nil, nil, fmt.Errorf("remote kind %q: %w", cfg.Kind, domain.ErrUnsupportedType)
	}
}

func newDecoder(format domain.RecordFormat) (driven.ListingDecoder, error) {
	switch format {
	case domain.RecordFormatCSV:
		return csvdecoder.New(), nil
	case domain.RecordFormatJSON:
		return jsondecoder.New(), nil
	default:
		return nil, fmt.Errorf("record format %q: %w", format, domain.ErrUnsupportedType)
	}
}
