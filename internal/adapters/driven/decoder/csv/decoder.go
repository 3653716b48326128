// Package csv decodes the listings CSV document into company listings.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

// Positional fallback when the header does not name the columns.
const (
	defaultSymbolCol   = 0
	defaultNameCol     = 1
	defaultExchangeCol = 2
)

const utf8BOM = "\ufeff"

// Decoder reads a header row followed by one listing per row.
type Decoder struct{}

var _ driven.ListingDecoder = (*Decoder)(nil)

// New creates a CSV decoder.
func New() *Decoder {
	return &Decoder{}
}

// columns holds the index of each field in a row.
type columns struct {
	symbol, name, exchange int
}

// Decode parses r. Rows without a symbol are skipped.
func (d *Decoder) Decode(r io.Reader) ([]domain.CompanyListing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: %w: empty payload", domain.ErrDecode)
		}
		return nil, fmt.Errorf("read csv header: %w: %w", domain.ErrDecode, err)
	}
	cols := locateColumns(header)

	listings := []domain.CompanyListing{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w: %w", domain.ErrDecode, err)
		}

		symbol := field(record, cols.symbol)
		if symbol == "" {
			continue
		}
		listings = append(listings, domain.CompanyListing{
			Name:     field(record, cols.name),
			Symbol:   symbol,
			Exchange: field(record, cols.exchange),
		})
	}

	return listings, nil
}

// locateColumns finds columns by header name and falls back to position
// when the header does not carry them.
func locateColumns(header []string) columns {
	cols := columns{symbol: -1, name: -1, exchange: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))) {
		case "symbol":
			cols.symbol = i
		case "name":
			cols.name = i
		case "exchange":
			cols.exchange = i
		}
	}
	if cols.symbol < 0 {
		return columns{symbol: defaultSymbolCol, name: defaultNameCol, exchange: defaultExchangeCol}
	}
	return cols
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
