// Package tui provides an interactive terminal user interface for searching
// company listings. It is a driving adapter over the listing service.
package tui

import (
	"github.com/custodia-labs/listings-cli/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Listings serves and refreshes company listings.
	Listings driving.ListingService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Listings == nil {
		return ErrMissingListingService
	}
	return nil
}
