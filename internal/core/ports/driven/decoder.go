package driven

import (
	"io"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// ListingDecoder turns a raw payload into listings. It is pure.
type ListingDecoder interface {
	// Decode reads r to the end and returns the listings in payload order.
	// Failures wrap domain.ErrDecode.
	Decode(r io.Reader) ([]domain.CompanyListing, error)
}
