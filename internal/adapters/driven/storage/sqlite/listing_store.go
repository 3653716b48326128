package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	sqlitedriver "modernc.org/sqlite"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

// matchFunc applies domain.CompanyListing.Matches inside queries. SQLite's
// LOWER and UPPER only fold ASCII.
const matchFunc = "listing_matches"

func init() {
	sqlitedriver.MustRegisterDeterministicScalarFunction(matchFunc, 3, matchListing)
}

// matchListing takes (name, symbol, query) and returns 1 on a match.
func matchListing(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	l := domain.CompanyListing{Name: textArg(args[0]), Symbol: textArg(args[1])}
	if l.Matches(textArg(args[2])) {
		return int64(1), nil
	}
	return int64(0), nil
}

func textArg(v driver.Value) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Rows come back in insertion order.
const searchListingsSQL = `
	SELECT name, symbol, exchange
	FROM company_listings
	WHERE ` + matchFunc + `(name, symbol, ?1)
	ORDER BY id
`

const insertListingSQL = `INSERT INTO company_listings (symbol, name, exchange) VALUES (?, ?, ?)`

// listingStore implements driven.ListingStore.
type listingStore struct {
	store *Store
}

var (
	_ driven.ListingStore    = (*listingStore)(nil)
	_ driven.ListingReplacer = (*listingStore)(nil)
	_ driven.ListingCounter  = (*listingStore)(nil)
)

// Search returns all listings matching query.
func (s *listingStore) Search(ctx context.Context, query string) ([]domain.CompanyListing, error) {
	rows, err := s.store.db.QueryContext(ctx, searchListingsSQL, domain.NormaliseQuery(query))
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
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM company_listings"); err != nil {
		return fmt.Errorf("clearing listings: %w", err)
	}
	return nil
}

// InsertAll appends listings in one transaction.
func (s *listingStore) InsertAll(ctx context.Context, listings []domain.CompanyListing) error {
	if len(listings) == 0 {
		return nil
	}
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		return insertListings(ctx, tx, listings)
	})
}

// ReplaceAll deletes every listing and inserts listings in one transaction.
func (s *listingStore) ReplaceAll(ctx context.Context, listings []domain.CompanyListing) error {
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM company_listings"); err != nil {
			return fmt.Errorf("clearing listings: %w", err)
		}
		return insertListings(ctx, tx, listings)
	})
}

// Count returns the number of cached listings.
func (s *listingStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM company_listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}
	return n, nil
}

func insertListings(ctx context.Context, tx *sql.Tx, listings []domain.CompanyListing) error {
	if len(listings) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, insertListingSQL)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range listings {
		if _, err := stmt.ExecContext(ctx, l.Symbol, l.Name, l.Exchange); err != nil {
			return fmt.Errorf("inserting listing %s: %w", l.Symbol, err)
		}
	}
	return nil
}
