// Package json decodes JSON listings payloads.
//
// Two shapes are accepted: a bare array of listings, or an object whose
// "data" member holds that array.
package json

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

// Decoder decodes JSON listings.
type Decoder struct{}

var _ driven.ListingDecoder = (*Decoder)(nil)

// New creates a JSON decoder.
func New() *Decoder {
	return &Decoder{}
}

type envelope struct {
	Data *[]domain.CompanyListing `json:"data"`
}

// Decode parses r. Entries without a symbol are skipped.
func (d *Decoder) Decode(r io.Reader) ([]domain.CompanyListing, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json payload: %w: %w", domain.ErrDecode, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode json payload: %w: empty payload", domain.ErrDecode)
	}

	var decoded []domain.CompanyListing
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("decode json array: %w: %w", domain.ErrDecode, err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode json object: %w: %w", domain.ErrDecode, err)
		}
		if env.Data == nil {
			return nil, fmt.Errorf("decode json object: %w: missing data array", domain.ErrDecode)
		}
		decoded = *env.Data
	default:
		return nil, fmt.Errorf("decode json payload: %w: expected array or object", domain.ErrDecode)
	}

	listings := make([]domain.CompanyListing, 0, len(decoded))
	for _, l := range decoded {
		l.Symbol = strings.TrimSpace(l.Symbol)
		if l.Symbol == "" {
			continue
		}
		l.Name = strings.TrimSpace(l.Name)
		l.Exchange = strings.TrimSpace(l.Exchange)
		listings = append(listings, l)
	}
	return listings, nil
}
