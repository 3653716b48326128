package driving

import (
	"context"
	"iter"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// ListingService serves company listings from the local cache and refreshes
// the cache from the remote source when needed.
type ListingService interface {
	// CompanyListings runs one sync and yields its events in order.
	// The sequence always begins with Loading(true) and ends with exactly
	// one Loading(false). Breaking out of the range loop abandons the sync.
	CompanyListings(ctx context.Context, forceRefresh bool, query string) iter.Seq[domain.Event]

	// Stream is CompanyListings delivered over a channel. The channel is
	// closed after the last event or when ctx is cancelled.
	Stream(ctx context.Context, forceRefresh bool, query string) <-chan domain.Event

	// Count returns the number of cached listings.
	Count(ctx context.Context) (int, error)
}
