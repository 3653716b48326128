package domain

import "strings"

// CompanyListing is a single company record as published by the listings feed.
// It is an immutable value; two listings with equal fields are the same listing.
type CompanyListing struct {
	// Name is the company's display name.
	Name string `json:"name"`

	// Symbol is the ticker symbol. Uniqueness is not enforced.
	Symbol string `json:"symbol"`

	// Exchange is the venue the symbol trades on.
	Exchange string `json:"exchange"`
}

// NormaliseQuery trims surrounding whitespace from a search query.
func NormaliseQuery(query string) string {
	return strings.TrimSpace(query)
}

// IsBlankQuery reports whether a query matches every listing.
func IsBlankQuery(query string) bool {
	return NormaliseQuery(query) == ""
}

// Matches reports whether the listing satisfies a search query.
// A blank query matches everything. Otherwise the name must contain the
// query or the symbol must equal it, both compared case-insensitively.
// Every ListingStore implements this same rule.
func (l CompanyListing) Matches(query string) bool {
	q := NormaliseQuery(query)
	if q == "" {
		return true
	}
	if strings.EqualFold(l.Symbol, q) {
		return true
	}
	return strings.Contains(strings.ToLower(l.Name), strings.ToLower(q))
}

// FilterListings returns the listings matching query, preserving order.
func FilterListings(listings []CompanyListing, query string) []CompanyListing {
	out := make([]CompanyListing, 0, len(listings))
	for _, l := range listings {
		if l.Matches(query) {
			out = append(out, l)
		}
	}
	return out
}
