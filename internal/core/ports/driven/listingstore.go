package driven

import (
	"context"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// ListingStore is the local cache of company listings.
// Implementations must apply domain.CompanyListing.Matches semantics in Search
// and return rows in insertion order.
type ListingStore interface {
	// Search returns all listings matching query.
	// A blank query returns every listing.
	Search(ctx context.Context, query string) ([]domain.CompanyListing, error)

	// Clear removes every listing.
	Clear(ctx context.Context) error

	// InsertAll appends listings in the given order.
	InsertAll(ctx context.Context, listings []domain.CompanyListing) error
}

// ListingReplacer is implemented by stores that can swap their full contents
// atomically. When available it is used instead of Clear followed by InsertAll.
type ListingReplacer interface {
	// ReplaceAll discards every listing and inserts listings in one step.
	// On error the previous contents are kept.
	ReplaceAll(ctx context.Context, listings []domain.CompanyListing) error
}

// ListingCounter is implemented by stores that can count rows without
// materialising them.
type ListingCounter interface {
	// Count returns the number of cached listings.
	Count(ctx context.Context) (int, error)
}
