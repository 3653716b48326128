package mcp

import (
	"context"
	"iter"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// mockListingService replays scripted events and records its calls.
type mockListingService struct {
	events []domain.Event

	calls    int
	force    bool
	query    string
	consumed int
}

func (m *mockListingService) CompanyListings(_ context.Context, force bool, query string) iter.Seq[domain.Event] {
	m.calls++
	m.force = force
	m.query = query
	return func(yield func(domain.Event) bool) {
		for _, ev := range m.events {
			m.consumed++
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

func (m *mockListingService) Count(_ context.Context) (int, error) {
	for _, ev := range m.events {
		if ev.Kind == domain.EventSuccess {
			return len(ev.Data), nil
		}
	}
	return 0, nil
}

var (
	apple = domain.CompanyListing{Name: "Apple Inc", Symbol: "AAPL", Exchange: "NASDAQ"}
	ibm   = domain.CompanyListing{Name: "International Business Machines", Symbol: "IBM", Exchange: "NYSE"}
)

func refreshedEvents() []domain.Event {
	return []domain.Event{
		domain.LoadingEvent(true),
		domain.SuccessEvent([]domain.CompanyListing{}),
		domain.SuccessEvent([]domain.CompanyListing{apple, ibm}),
		domain.LoadingEvent(false),
	}
}

func failedRefreshEvents() []domain.Event {
	return []domain.Event{
		domain.LoadingEvent(true),
		domain.SuccessEvent([]domain.CompanyListing{apple}),
		domain.ErrorEvent(domain.ErrTransport),
		domain.LoadingEvent(false),
	}
}
