package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driving"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

// Ensure ListingRepository implements the interface.
var _ driving.ListingService = (*ListingRepository)(nil)

// ListingRepository serves company listings cache-first and refreshes the
// cache from the remote source when it is empty or a refresh is forced.
type ListingRepository struct {
	store   driven.ListingStore
	source  driven.ListingSource
	decoder driven.ListingDecoder
	metrics driven.SyncMetrics

	retainQuery bool

	// refreshMu serialises reconcile and the read that follows it.
	refreshMu sync.Mutex
}

// ListingOption configures a ListingRepository.
type ListingOption func(*ListingRepository)

// WithMetrics records one observation per sync.
func WithMetrics(m driven.SyncMetrics) ListingOption {
	return func(r *ListingRepository) {
		r.metrics = m
	}
}

// WithRetainQuery makes the post-refresh snapshot honour the caller's query
// instead of returning every listing.
func WithRetainQuery(retain bool) ListingOption {
	return func(r *ListingRepository) {
		r.retainQuery = retain
	}
}

// WithSyncSettings applies persisted sync settings.
func WithSyncSettings(s domain.SyncSettings) ListingOption {
	return WithRetainQuery(s.RetainQuery)
}

// NewListingRepository creates a listings service over its three collaborators.
func NewListingRepository(
	store driven.ListingStore,
	source driven.ListingSource,
	decoder driven.ListingDecoder,
	opts ...ListingOption,
) *ListingRepository {
	r := &ListingRepository{
		store:   store,
		source:  source,
		decoder: decoder,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CompanyListings runs one sync and yields its events in order.
//
// The cached snapshot for query is always emitted first. The remote source is
// only consulted when the cache is empty for a blank query or forceRefresh is
// set. Every failure is reported as an Error event and the sequence always
// ends with a single Loading(false), unless the consumer stops early.
func (r *ListingRepository) CompanyListings(
	ctx context.Context,
	forceRefresh bool,
	query string,
) iter.Seq[domain.Event] {
	return func(yield func(domain.Event) bool) {
		runID := uuid.NewString()
		started := time.Now()

		logger.Debug("sync %s: start (force=%t, query=%q)", runID, forceRefresh, query)
		outcome, records := r.run(ctx, forceRefresh, query, yield)
		if ctx.Err() != nil && outcome != domain.SyncOutcomeRefreshed {
			outcome = domain.SyncOutcomeAbandoned
		}
		elapsed := time.Since(started)
		logger.Debug("sync %s: %s in %s (%d records)", runID, outcome, elapsed, records)

		if r.metrics != nil {
			r.metrics.RecordSync(context.WithoutCancel(ctx), outcome, elapsed, records)
		}
	}
}

// run executes the sync steps. It returns how the sync ended and how many
// listings were reconciled.
//
//nolint:gocyclo // Sequential steps with an early exit on every yield
func (r *ListingRepository) run(
	ctx context.Context,
	forceRefresh bool,
	query string,
	yield func(domain.Event) bool,
) (domain.SyncOutcome, int) {
	// 1. Announce activity
	if !yield(domain.LoadingEvent(true)) {
		return domain.SyncOutcomeAbandoned, 0
	}

	// 2. Serve the cached snapshot
	cached, err := r.store.Search(ctx, query)
	if err != nil {
		return r.fail(yield, domain.SyncOutcomeStoreError, storeError("search cache", err))
	}
	if !yield(domain.SuccessEvent(cached)) {
		return domain.SyncOutcomeAbandoned, 0
	}

	// 3. Decide whether the remote must be consulted
	storeIsEmpty := len(cached) == 0 && domain.IsBlankQuery(query)
	if !storeIsEmpty && !forceRefresh {
		yield(domain.LoadingEvent(false))
		return domain.SyncOutcomeCacheHit, 0
	}

	// 4. Fetch and decode
	listings, err := r.fetch(ctx)
	if err != nil {
		return r.fail(yield, domain.SyncOutcomeRemoteError, err)
	}

	// 5. Reconcile and re-read
	fresh, err := r.reconcile(ctx, listings, r.refreshQuery(query))
	if err != nil {
		return r.fail(yield, domain.SyncOutcomeStoreError, err)
	}
	if !yield(domain.SuccessEvent(fresh)) {
		return domain.SyncOutcomeRefreshed, len(listings)
	}

	// 6. Done
	yield(domain.LoadingEvent(false))
	return domain.SyncOutcomeRefreshed, len(listings)
}

// fail emits Error followed by Loading(false).
func (r *ListingRepository) fail(
	yield func(domain.Event) bool,
	outcome domain.SyncOutcome,
	err error,
) (domain.SyncOutcome, int) {
	logger.Warn("listings sync failed: %v", err)
	if !yield(domain.ErrorEvent(err)) {
		return domain.SyncOutcomeAbandoned, 0
	}
	yield(domain.LoadingEvent(false))
	return outcome, 0
}

// fetch opens the remote payload and decodes it. The body is closed before
// fetch returns.
func (r *ListingRepository) fetch(ctx context.Context) ([]domain.CompanyListing, error) {
	body, err := r.source.FetchListings(ctx)
	if err != nil {
		return nil, classify(domain.ErrTransport, "fetch listings", err)
	}
	defer body.Close()

	listings, err := r.decoder.Decode(body)
	if err != nil {
		return nil, classify(domain.ErrDecode, "decode listings", err)
	}
	return listings, nil
}

// reconcile replaces the cache with listings and reads it back.
func (r *ListingRepository) reconcile(
	ctx context.Context,
	listings []domain.CompanyListing,
	query string,
) ([]domain.CompanyListing, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	if replacer, ok := r.store.(driven.ListingReplacer); ok {
		if err := replacer.ReplaceAll(ctx, listings); err != nil {
			return nil, storeError("replace listings", err)
		}
	} else {
		if err := r.store.Clear(ctx); err != nil {
			return nil, storeError("clear listings", err)
		}
		if err := r.store.InsertAll(ctx, listings); err != nil {
			return nil, storeError("insert listings", err)
		}
	}

	fresh, err := r.store.Search(ctx, query)
	if err != nil {
		return nil, storeError("search refreshed cache", err)
	}
	logger.Info("Reconciled %d listings", len(listings))
	return fresh, nil
}

func (r *ListingRepository) refreshQuery(query string) string {
	if r.retainQuery {
		return query
	}
	return ""
}

// Stream delivers CompanyListings over an unbuffered channel.
// Cancelling ctx abandons the sync and closes the channel.
func (r *ListingRepository) Stream(ctx context.Context, forceRefresh bool, query string) <-chan domain.Event {
	out := make(chan domain.Event)
	go func() {
		defer close(out)
		for ev := range r.CompanyListings(ctx, forceRefresh, query) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Count returns the number of cached listings.
func (r *ListingRepository) Count(ctx context.Context) (int, error) {
	if counter, ok := r.store.(driven.ListingCounter); ok {
		n, err := counter.Count(ctx)
		if err != nil {
			return 0, storeError("count listings", err)
		}
		return n, nil
	}
	all, err := r.store.Search(ctx, "")
	if err != nil {
		return 0, storeError("count listings", err)
	}
	return len(all), nil
}

func storeError(op string, err error) error {
	return classify(domain.ErrStore, op, err)
}

// classify wraps err with kind unless it already carries it.
func classify(kind error, op string, err error) error {
	if errors.Is(err, kind) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
