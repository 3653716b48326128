package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

// --- Mock implementations for listings testing ---

// mockListingStore implements driven.ListingStore with an ordered slice.
type mockListingStore struct {
	mu       sync.Mutex
	rows     []domain.CompanyListing
	calls    []string
	searchFn func(call int) error
	clearErr error
	insErr   error
	searches int
}

func newMockListingStore(rows ...domain.CompanyListing) *mockListingStore {
	return &mockListingStore{rows: append([]domain.CompanyListing(nil), rows...)}
}

func (m *mockListingStore) Search(_ context.Context, query string) ([]domain.CompanyListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	m.calls = append(m.calls, "search")
	if m.searchFn != nil {
		if err := m.searchFn(m.searches); err != nil {
			return nil, err
		}
	}
	return domain.FilterListings(m.rows, query), nil
}

func (m *mockListingStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "clear")
	if m.clearErr != nil {
		return m.clearErr
	}
	m.rows = nil
	return nil
}

func (m *mockListingStore) InsertAll(_ context.Context, listings []domain.CompanyListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "insert")
	if m.insErr != nil {
		return m.insErr
	}
	m.rows = append(m.rows, listings...)
	return nil
}

func (m *mockListingStore) all() []domain.CompanyListing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CompanyListing(nil), m.rows...)
}

// replacingStore adds ReplaceAll to mockListingStore.
type replacingStore struct {
	*mockListingStore
	replaced int
}

func (r *replacingStore) ReplaceAll(_ context.Context, listings []domain.CompanyListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaced++
	r.calls = append(r.calls, "replace")
	r.rows = append([]domain.CompanyListing(nil), listings...)
	return nil
}

// trackingBody records whether it was closed.
type trackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

// mockListingSource implements driven.ListingSource.
type mockListingSource struct {
	mu      sync.Mutex
	payload string
	err     error
	calls   int
	bodies  []*trackingBody
}

func (m *mockListingSource) FetchListings(_ context.Context) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	body := &trackingBody{Reader: strings.NewReader(m.payload)}
	m.bodies = append(m.bodies, body)
	return body, nil
}

func (m *mockListingSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// lineDecoder decodes "SYMBOL,Name,EXCHANGE" lines.
type lineDecoder struct {
	err error
}

func (d lineDecoder) Decode(r io.Reader) ([]domain.CompanyListing, error) {
	if d.err != nil {
		return nil, d.err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	listings := []domain.CompanyListing{}
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}
		listings = append(listings, domain.CompanyListing{Symbol: parts[0], Name: parts[1], Exchange: parts[2]})
	}
	return listings, nil
}

// mockSyncMetrics implements driven.SyncMetrics.
type mockSyncMetrics struct {
	mu       sync.Mutex
	outcomes []domain.SyncOutcome
	records  []int
}

func (m *mockSyncMetrics) RecordSync(_ context.Context, outcome domain.SyncOutcome, _ time.Duration, records int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	m.records = append(m.records, records)
}

// Ensure mocks implement interfaces
var _ driven.ListingStore = (*mockListingStore)(nil)
var _ driven.ListingReplacer = (*replacingStore)(nil)
var _ driven.ListingSource = (*mockListingSource)(nil)
var _ driven.ListingDecoder = lineDecoder{}
var _ driven.SyncMetrics = (*mockSyncMetrics)(nil)

var (
	apple     = domain.CompanyListing{Symbol: "AAPL", Name: "Apple", Exchange: "NASDAQ"}
	microsoft = domain.CompanyListing{Symbol: "MSFT", Name: "Microsoft", Exchange: "NASDAQ"}
	ibm       = domain.CompanyListing{Symbol: "IBM", Name: "International Business Machines", Exchange: "NYSE"}
)

func collect(t *testing.T, svc *ListingRepository, force bool, query string) []domain.Event {
	t.Helper()
	var events []domain.Event
	for ev := range svc.CompanyListings(context.Background(), force, query) {
		events = append(events, ev)
	}
	return events
}

func kinds(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.String()
	}
	return out
}

func countDone(events []domain.Event) int {
	n := 0
	for _, ev := range events {
		if ev.IsDone() {
			n++
		}
	}
	return n
}

// ==================== Scenario Tests ====================

func TestCompanyListings_CachedStoreSkipsRemote(t *testing.T) {
	store := newMockListingStore(apple)
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
	svc := NewListingRepository(store, source, lineDecoder{})

	events := collect(t, svc, false, "")

	assert.Equal(t, []string{"Loading(true)", "Success(1)", "Loading(false)"}, kinds(events))
	assert.Equal(t, []domain.CompanyListing{apple}, events[1].Data)
	assert.Equal(t, 0, source.callCount())
}

func TestCompanyListings_EmptyStoreRefreshes(t *testing.T) {
	store := newMockListingStore()
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
	svc := NewListingRepository(store, source, lineDecoder{})

	events := collect(t, svc, false, "")

	require.Equal(t, []string{"Loading(true)", "Success(0)", "Success(1)", "Loading(false)"}, kinds(events))
	assert.Empty(t, events[1].Data)
	assert.Equal(t, []domain.CompanyListing{microsoft}, events[2].Data)
	assert.Equal(t, []domain.CompanyListing{microsoft}, store.all())
	assert.Equal(t, 1, source.callCount())
}

func TestCompanyListings_ForcedRefreshTransportError(t *testing.T) {
	store := newMockListingStore(apple, ibm)
	source := &mockListingSource{err: errors.New("dial tcp: connection refused")}
	svc := NewListingRepository(store, source, lineDecoder{})

	events := collect(t, svc, true, "")

	require.Equal(t, []string{"Loading(true)", "Success(2)", "Error(Couldn't load data)", "Loading(false)"}, kinds(events))
	assert.Equal(t, []domain.CompanyListing{apple, ibm}, events[1].Data)
	assert.ErrorIs(t, events[2].Err, domain.ErrTransport)
	assert.Equal(t, domain.LoadErrorMessage, events[2].Message)
	assert.Equal(t, []domain.CompanyListing{apple, ibm}, store.all())
	assert.NotContains(t, store.calls, "clear")
}

// ==================== Property Tests ====================

func TestCompanyListings_FirstSnapshotIsFilteredCache(t *testing.T) {
	queries := []string{"", "apple", "msft", "  IBM ", "zzz-no-match", "a"}
	for _, q := range queries {
		for _, force := range []bool{false, true} {
			store := newMockListingStore(apple, microsoft, ibm)
			source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
			svc := NewListingRepository(store, source, lineDecoder{})
			expected := domain.FilterListings(store.all(), q)

			var first *domain.Event
			for ev := range svc.CompanyListings(context.Background(), force, q) {
				if ev.Kind == domain.EventSuccess {
					first = &ev
					assert.Equal(t, 0, source.callCount(), "network call before first snapshot")
					break
				}
			}

			require.NotNil(t, first, "query %q", q)
			assert.Equal(t, expected, first.Data, "query %q force %t", q, force)
		}
	}
}

func TestCompanyListings_NonEmptyStoreNeverFetchesUnforced(t *testing.T) {
	for _, q := range []string{"", "apple", "zzz-no-match", " "} {
		store := newMockListingStore(apple, microsoft)
		source := &mockListingSource{payload: "IBM,IBM,NYSE"}
		svc := NewListingRepository(store, source, lineDecoder{})

		events := collect(t, svc, false, q)

		assert.Equal(t, 0, source.callCount(), "query %q", q)
		require.Len(t, events, 3, "query %q", q)
		assert.True(t, events[0].IsLoading())
		assert.Equal(t, domain.EventSuccess, events[1].Kind)
		assert.True(t, events[2].IsDone())
	}
}

func TestCompanyListings_ForcedRefreshAlwaysFetches(t *testing.T) {
	for _, rows := range [][]domain.CompanyListing{nil, {apple}, {apple, microsoft, ibm}} {
		for _, q := range []string{"", "apple", "zzz"} {
			store := newMockListingStore(rows...)
			source := &mockListingSource{payload: "IBM,IBM,NYSE"}
			svc := NewListingRepository(store, source, lineDecoder{})

			collect(t, svc, true, q)

			assert.Equal(t, 1, source.callCount(), "rows %d query %q", len(rows), q)
		}
	}
}

func TestCompanyListings_RefreshReplacesEverything(t *testing.T) {
	store := newMockListingStore(apple, microsoft)
	source := &mockListingSource{payload: "IBM,International Business Machines,NYSE\nMSFT,Microsoft,NASDAQ"}
	svc := NewListingRepository(store, source, lineDecoder{})

	events := collect(t, svc, true, "")

	expected := []domain.CompanyListing{ibm, microsoft}
	assert.Equal(t, expected, store.all())
	assert.Equal(t, expected, events[2].Data)
	assert.Equal(t, []string{"search", "clear", "insert", "search"}, store.calls)
}

func TestCompanyListings_RefreshUsesReplacer(t *testing.T) {
	store := &replacingStore{mockListingStore: newMockListingStore(apple)}
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
	svc := NewListingRepository(store, source, lineDecoder{})

	collect(t, svc, true, "")

	assert.Equal(t, 1, store.replaced)
	assert.Equal(t, []string{"search", "replace", "search"}, store.calls)
	assert.Equal(t, []domain.CompanyListing{microsoft}, store.all())
}

func TestCompanyListings_LoadingFalseExactlyOnce(t *testing.T) {
	tests := []struct {
		name    string
		rows    []domain.CompanyListing
		force   bool
		source  *mockListingSource
		decoder lineDecoder
	}{
		{"skip", []domain.CompanyListing{apple}, false, &mockListingSource{}, lineDecoder{}},
		{"success", nil, false, &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}, lineDecoder{}},
		{"transport error", nil, true, &mockListingSource{err: errors.New("timeout")}, lineDecoder{}},
		{"decode error", nil, true, &mockListingSource{payload: "x"}, lineDecoder{err: errors.New("bad csv")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewListingRepository(newMockListingStore(tt.rows...), tt.source, tt.decoder)

			events := collect(t, svc, tt.force, "")

			assert.Equal(t, 1, countDone(events))
			assert.True(t, events[len(events)-1].IsDone())
			assert.True(t, events[0].IsLoading())
		})
	}
}

func TestCompanyListings_BlankQueryEmptyStoreFetches(t *testing.T) {
	for _, q := range []string{"", "   ", "\t"} {
		source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
		svc := NewListingRepository(newMockListingStore(), source, lineDecoder{})

		collect(t, svc, false, q)

		assert.Equal(t, 1, source.callCount(), "query %q", q)
	}
}

func TestCompanyListings_NonBlankMissDoesNotFetch(t *testing.T) {
	store := newMockListingStore(apple)
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
	svc := NewListingRepository(store, source, lineDecoder{})

	events := collect(t, svc, false, "zzz-no-match")

	assert.Equal(t, []string{"Loading(true)", "Success(0)", "Loading(false)"}, kinds(events))
	assert.Equal(t, 0, source.callCount())
}

func TestCompanyListings_EmptyStoreNonBlankQueryDoesNotFetch(t *testing.T) {
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
	svc := NewListingRepository(newMockListingStore(), source, lineDecoder{})

	events := collect(t, svc, false, "apple")

	assert.Equal(t, []string{"Loading(true)", "Success(0)", "Loading(false)"}, kinds(events))
	assert.Equal(t, 0, source.callCount())
}

// ==================== Edge Cases ====================

func TestCompanyListings_DecodeErrorLeavesStoreUntouched(t *testing.T) {
	store := newMockListingStore(apple)
	source := &mockListingSource{payload: "garbage"}
	svc := NewListingRepository(store, source, lineDecoder{err: errors.New("record on line 1: wrong number of fields")})

	events := collect(t, svc, true, "")

	require.Equal(t, []string{"Loading(true)", "Success(1)", "Error(Couldn't load data)", "Loading(false)"}, kinds(events))
	assert.ErrorIs(t, events[2].Err, domain.ErrDecode)
	assert.Equal(t, []domain.CompanyListing{apple}, store.all())
	require.Len(t, source.bodies, 1)
	assert.True(t, source.bodies[0].closed.Load())
}

func TestCompanyListings_EmptyRemoteBatchEmptiesStore(t *testing.T) {
	store := newMockListingStore(apple, microsoft)
	source := &mockListingSource{payload: ""}
	svc := NewListingRepository(store, source, lineDecoder{})

	events := collect(t, svc, true, "")

	require.Equal(t, []string{"Loading(true)", "Success(2)", "Success(0)", "Loading(false)"}, kinds(events))
	assert.Empty(t, store.all())
}

func TestCompanyListings_PostRefreshSnapshotIsUnfiltered(t *testing.T) {
	store := newMockListingStore(apple)
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ\nIBM,International Business Machines,NYSE"}
	svc := NewListingRepository(store, source, lineDecoder{})

	events := collect(t, svc, true, "micro")

	require.Len(t, events, 4)
	assert.Empty(t, events[1].Data)
	assert.Equal(t, []domain.CompanyListing{microsoft, ibm}, events[2].Data)
}

func TestCompanyListings_RetainQueryFiltersPostRefreshSnapshot(t *testing.T) {
	store := newMockListingStore(apple)
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ\nIBM,International Business Machines,NYSE"}
	svc := NewListingRepository(store, source, lineDecoder{}, WithSyncSettings(domain.SyncSettings{RetainQuery: true}))

	events := collect(t, svc, true, "micro")

	require.Len(t, events, 4)
	assert.Equal(t, []domain.CompanyListing{microsoft}, events[2].Data)
	assert.Equal(t, []domain.CompanyListing{microsoft, ibm}, store.all())
}

func TestCompanyListings_InitialStoreErrorSkipsRemote(t *testing.T) {
	store := newMockListingStore(apple)
	store.searchFn = func(int) error { return errors.New("database is locked") }
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
	svc := NewListingRepository(store, source, lineDecoder{})

	events := collect(t, svc, true, "")

	require.Equal(t, []string{"Loading(true)", "Error(Couldn't load data)", "Loading(false)"}, kinds(events))
	assert.ErrorIs(t, events[1].Err, domain.ErrStore)
	assert.Equal(t, 0, source.callCount())
}

func TestCompanyListings_ReconcileErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockListingStore)
	}{
		{"clear fails", func(s *mockListingStore) { s.clearErr = errors.New("disk full") }},
		{"insert fails", func(s *mockListingStore) { s.insErr = errors.New("disk full") }},
		{"re-read fails", func(s *mockListingStore) {
			s.searchFn = func(call int) error {
				if call > 1 {
					return errors.New("disk I/O error")
				}
				return nil
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockListingStore(apple)
			tt.setup(store)
			source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
			svc := NewListingRepository(store, source, lineDecoder{})

			events := collect(t, svc, true, "")

			require.Equal(t, []string{"Loading(true)", "Success(1)", "Error(Couldn't load data)", "Loading(false)"}, kinds(events))
			assert.ErrorIs(t, events[2].Err, domain.ErrStore)
		})
	}
}

func TestCompanyListings_AbandonClosesBodyAndStops(t *testing.T) {
	store := newMockListingStore()
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
	metrics := &mockSyncMetrics{}
	svc := NewListingRepository(store, source, lineDecoder{}, WithMetrics(metrics))

	var seen []domain.Event
	for ev := range svc.CompanyListings(context.Background(), false, "") {
		seen = append(seen, ev)
		if ev.Kind == domain.EventSuccess {
			break
		}
	}

	assert.Equal(t, []string{"Loading(true)", "Success(0)"}, kinds(seen))
	assert.Equal(t, 0, source.callCount())
	assert.Equal(t, []domain.SyncOutcome{domain.SyncOutcomeAbandoned}, metrics.outcomes)
}

func TestCompanyListings_BodyClosedAfterRefresh(t *testing.T) {
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}
	svc := NewListingRepository(newMockListingStore(), source, lineDecoder{})

	collect(t, svc, false, "")

	require.Len(t, source.bodies, 1)
	assert.True(t, source.bodies[0].closed.Load())
}

func TestCompanyListings_RecordsMetrics(t *testing.T) {
	metrics := &mockSyncMetrics{}

	svc := NewListingRepository(newMockListingStore(apple), &mockListingSource{}, lineDecoder{}, WithMetrics(metrics))
	collect(t, svc, false, "")

	svc = NewListingRepository(newMockListingStore(), &mockListingSource{payload: "MSFT,Microsoft,NASDAQ\nIBM,IBM,NYSE"}, lineDecoder{}, WithMetrics(metrics))
	collect(t, svc, false, "")

	svc = NewListingRepository(newMockListingStore(), &mockListingSource{err: errors.New("boom")}, lineDecoder{}, WithMetrics(metrics))
	collect(t, svc, false, "")

	assert.Equal(t, []domain.SyncOutcome{
		domain.SyncOutcomeCacheHit,
		domain.SyncOutcomeRefreshed,
		domain.SyncOutcomeRemoteError,
	}, metrics.outcomes)
	assert.Equal(t, []int{0, 2, 0}, metrics.records)
}

func TestCompanyListings_ConcurrentRefreshesDoNotInterleave(t *testing.T) {
	store := newMockListingStore()
	source := &mockListingSource{payload: "MSFT,Microsoft,NASDAQ\nIBM,IBM,NYSE"}
	svc := NewListingRepository(store, source, lineDecoder{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range svc.CompanyListings(context.Background(), true, "") {
			}
		}()
	}
	wg.Wait()

	assert.Len(t, store.all(), 2)
}

// ==================== Stream Tests ====================

func TestStream_DeliversAllEventsAndCloses(t *testing.T) {
	svc := NewListingRepository(newMockListingStore(), &mockListingSource{payload: "MSFT,Microsoft,NASDAQ"}, lineDecoder{})

	var events []domain.Event
	for ev := range svc.Stream(context.Background(), false, "") {
		events = append(events, ev)
	}

	assert.Equal(t, []string{"Loading(true)", "Success(0)", "Success(1)", "Loading(false)"}, kinds(events))
}

func TestStream_CancelClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewListingRepository(newMockListingStore(apple), &mockListingSource{}, lineDecoder{})

	ch := svc.Stream(ctx, false, "")
	first := <-ch
	assert.True(t, first.IsLoading())
	cancel()

	// The producer may have one event in flight; the channel must close.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream not closed after cancel")
		}
	}
}

// ==================== Count / Drain ====================

func TestCount(t *testing.T) {
	svc := NewListingRepository(newMockListingStore(apple, microsoft), &mockListingSource{}, lineDecoder{})

	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	failing := newMockListingStore()
	failing.searchFn = func(int) error { return errors.New("locked") }
	svc = NewListingRepository(failing, &mockListingSource{}, lineDecoder{})
	_, err = svc.Count(context.Background())
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestDrain(t *testing.T) {
	svc := NewListingRepository(newMockListingStore(apple), &mockListingSource{err: errors.New("offline")}, lineDecoder{})

	var seen int
	res := Drain(svc.CompanyListings(context.Background(), true, ""), func(domain.Event) { seen++ })

	assert.Equal(t, 4, seen)
	assert.Equal(t, 1, res.Snapshots)
	assert.Equal(t, []domain.CompanyListing{apple}, res.Listings)
	assert.ErrorIs(t, res.Err, domain.ErrTransport)
	assert.True(t, res.Completed)
}

func TestDrain_ErrorWithoutCause(t *testing.T) {
	seq := func(yield func(domain.Event) bool) {
		_ = yield(domain.Event{Kind: domain.EventError, Message: domain.LoadErrorMessage}) &&
			yield(domain.LoadingEvent(false))
	}

	res := Drain(seq, nil)

	require.Error(t, res.Err)
	assert.Equal(t, domain.LoadErrorMessage, res.Err.Error())
	assert.True(t, res.Completed)
}
