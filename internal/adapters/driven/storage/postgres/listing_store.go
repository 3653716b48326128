package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

// Same matching rule as the SQLite store. strpos avoids LIKE wildcards.
const searchListingsSQL = `
	SELECT name, symbol, exchange
	FROM company_listings
	WHERE $1 = ''
	   OR strpos(LOWER(name), LOWER($1)) > 0
	   OR UPPER(symbol) = UPPER($1)
	ORDER BY id
`

var listingColumns = []string{"symbol", "name", "exchange"}

type listingStore struct {
	store *Store
}

var (
	_ driven.ListingStore    = (*listingStore)(nil)
	_ driven.ListingReplacer = (*listingStore)(nil)
	_ driven.ListingCounter  = (*listingStore)(nil)
)

// Search returns all listings matching query in insertion order.
func (s *listingStore) Search(ctx context.Context, query string) ([]domain.CompanyListing, error) {
	if s.store.pool == nil {
		return nil, errNilPool
	}
	rows, err := s.store.pool.Query(ctx, searchListingsSQL, domain.NormaliseQuery(query))
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	listings := []domain.CompanyListing{}
	for rows.Next() {
		var l domain.CompanyListing
		if err := rows.Scan(&l.Name, &l.Symbol, &l.Exchange); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listings: %w", err)
	}
	return listings, nil
}

// Clear removes every listing.
func (s *listingStore) Clear(ctx context.Context) error {
	if s.store.pool == nil {
		return errNilPool
	}
	if _, err := s.store.pool.Exec(ctx, "DELETE FROM company_listings"); err != nil {
		return fmt.Errorf("clearing listings: %w", err)
	}
	return nil
}

// InsertAll appends listings with COPY.
func (s *listingStore) InsertAll(ctx context.Context, listings []domain.CompanyListing) error {
	if len(listings) == 0 {
		return nil
	}
	return s.store.withTx(ctx, func(tx pgx.Tx) error {
		return copyListings(ctx, tx, listings)
	})
}

// ReplaceAll swaps the table contents in one transaction.
func (s *listingStore) ReplaceAll(ctx context.Context, listings []domain.CompanyListing) error {
	return s.store.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM company_listings"); err != nil {
			return fmt.Errorf("clearing listings: %w", err)
		}
		return copyListings(ctx, tx, listings)
	})
}

// Count returns the number of cached listings.
func (s *listingStore) Count(ctx context.Context) (int, error) {
	if s.store.pool == nil {
		return 0, errNilPool
	}
	var n int
	if err := s.store.pool.QueryRow(ctx, "SELECT COUNT(*) FROM company_listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}
	return n, nil
}

func copyListings(ctx context.Context, tx pgx.Tx, listings []domain.CompanyListing) error {
	if len(listings) == 0 {
		return nil
	}
	rows := make([][]any, len(listings))
	for i, l := range listings {
		rows[i] = []any{l.Symbol, l.Name, l.Exchange}
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"company_listings"}, listingColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copying listings: %w", err)
	}
	if int(n) != len(listings) {
		return fmt.Errorf("copying listings: wrote %d of %d rows", n, len(listings))
	}
	return nil
}
