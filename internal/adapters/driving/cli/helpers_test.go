package cli

import (
	"bytes"
	"context"
	"iter"
	"sync"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

var (
	apple = domain.CompanyListing{Name: "Apple Inc", Symbol: "AAPL", Exchange: "NASDAQ"}
	ibm   = domain.CompanyListing{Name: "International Business Machines", Symbol: "IBM", Exchange: "NYSE"}
)

// mockListingService replays scripted events and records each call.
type mockListingService struct {
	mu       sync.Mutex
	events   []domain.Event
	count    int
	countErr error
	calls    []listingCall
}

type listingCall struct {
	force bool
	query string
}

func (m *mockListingService) CompanyListings(_ context.Context, force bool, query string) iter.Seq[domain.Event] {
	m.mu.Lock()
	m.calls = append(m.calls, listingCall{force: force, query: query})
	events := m.events
	m.mu.Unlock()

	return func(yield func(domain.Event) bool) {
		for _, ev := range events {
			if !yield(ev) {
				return
			}
		}
	}
}

func (m *mockListingService) Stream(ctx context.Context, force bool, query string) <-chan domain.Event {
	out := make(chan domain.Event, len(m.events))
	for ev := range m.CompanyListings(ctx, force, query) {
		out <- ev
	}
	close(out)
	return out
}

func (m *mockListingService) Count(context.Context) (int, error) {
	return m.count, m.countErr
}

func (m *mockListingService) Calls() []listingCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]listingCall(nil), m.calls...)
}

// mockScheduler records runs and blocks in Start until stopped.
type mockScheduler struct {
	mu      sync.Mutex
	result  *domain.TaskResult
	err     error
	ran     []string
	started chan struct{}
	stopped bool
	stop    chan struct{}
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{
		started: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started <- struct{}{}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stop:
		return nil
	}
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.stopped = true
		close(m.stop)
	}
	return nil
}

func (m *mockScheduler) RunNow(_ context.Context, taskID string) (*domain.TaskResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ran = append(m.ran, taskID)
	return m.result, m.err
}

// mockWatcher hands out a channel the test controls.
type mockWatcher struct {
	changes chan struct{}
	err     error
}

func (m *mockWatcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-m.changes:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func refreshedEvents(listings ...domain.CompanyListing) []domain.Event {
	return []domain.Event{
		domain.LoadingEvent(true),
		domain.SuccessEvent([]domain.CompanyListing{}),
		domain.SuccessEvent(listings),
		domain.LoadingEvent(false),
	}
}

// saveGlobals snapshots package state touched by commands and returns a
// function restoring it.
func saveGlobals() func() {
	oldListings := listingService
	oldScheduler := scheduler
	oldSchedulerConfig := schedulerConfig
	oldWatcher := listingWatcher
	oldConfigStore := configStore
	oldBootstrap := bootstrap
	oldFactory := configStoreFactory
	oldClose := closeServices
	oldConfigDir := configDir
	oldVerbose := verbose

	return func() {
		listingService = oldListings
		scheduler = oldScheduler
		schedulerConfig = oldSchedulerConfig
		listingWatcher = oldWatcher
		configStore = oldConfigStore
		bootstrap = oldBootstrap
		configStoreFactory = oldFactory
		closeServices = oldClose
		configDir = oldConfigDir
		verbose = oldVerbose
		searchRefresh = false
		searchJSON = false
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}
}

// setupTestServices installs a listing service that refreshes into two
// listings and no scheduler.
func setupTestServices() (*mockListingService, func()) {
	restore := saveGlobals()
	svc := &mockListingService{events: refreshedEvents(apple, ibm), count: 2}
	listingService = svc
	scheduler = nil
	schedulerConfig = domain.SchedulerConfig{}
	listingWatcher = nil
	bootstrap = nil
	closeServices = nil
	return svc, restore
}

// setBootstrapForTest installs a bootstrap that calls onBoot and serves a
// scripted listing service. Services installed earlier are cleared so the
// bootstrap runs.
func setBootstrapForTest(onBoot func()) func() {
	restore := saveGlobals()
	listingService = nil
	scheduler = nil
	listingWatcher = nil
	closeServices = nil
	bootstrap = func(context.Context, Options) (*Services, error) {
		onBoot()
		return &Services{
			Listings: &mockListingService{events: refreshedEvents(apple)},
			Close:    func() error { return nil },
		}, nil
	}
	return restore
}

// setConfigStoreForTest routes config commands to store.
func setConfigStoreForTest(store driven.ConfigStore) func() {
	restore := saveGlobals()
	configStore = nil
	configStoreFactory = func(string) (driven.ConfigStore, error) {
		return store, nil
	}
	return restore
}
