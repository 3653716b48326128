package mcp

import (
	"github.com/custodia-labs/listings-cli/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server needs.
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
