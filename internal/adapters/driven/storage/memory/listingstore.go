package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

// Ensure ListingStore implements the interfaces.
var (
	_ driven.ListingStore    = (*ListingStore)(nil)
	_ driven.ListingReplacer = (*ListingStore)(nil)
	_ driven.ListingCounter  = (*ListingStore)(nil)
)

// ListingStore is an in-memory implementation of driven.ListingStore.
// Rows are kept in insertion order.
type ListingStore struct {
	mu   sync.RWMutex
	rows []domain.CompanyListing
}

// NewListingStore creates a new in-memory listing store, optionally seeded.
func NewListingStore(seed ...domain.CompanyListing) *ListingStore {
	return &ListingStore{rows: append([]domain.CompanyListing(nil), seed...)}
}

// Search returns the listings matching query in insertion order.
func (s *ListingStore) Search(_ context.Context, query string) ([]domain.CompanyListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.FilterListings(s.rows, query), nil
}

// Clear removes every listing.
func (s *ListingStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	return nil
}

// InsertAll appends listings.
func (s *ListingStore) InsertAll(_ context.Context, listings []domain.CompanyListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, listings...)
	return nil
}

// ReplaceAll swaps the full contents in one step.
func (s *ListingStore) ReplaceAll(_ context.Context, listings []domain.CompanyListing) error {
	rows := append([]domain.CompanyListing(nil), listings...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	return nil
}

// Count returns the number of listings.
func (s *ListingStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}
