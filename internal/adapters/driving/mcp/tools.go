package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/services"
)

// SearchInput is the input schema for the search_listings tool.
type SearchInput struct {
	Query   string `json:"query,omitempty" jsonschema:"company name fragment or exact ticker symbol; empty lists everything"`
	Refresh bool   `json:"refresh,omitempty" jsonschema:"fetch fresh listings from the remote source first"`
}

// SearchOutput is the output schema for the search_listings tool.
type SearchOutput struct {
	Listings []ListingOutput `json:"listings"`
	Count    int             `json:"count"`
	Errors   []string        `json:"errors,omitempty"`
}

// ListingOutput represents a single company listing.
type ListingOutput struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_listings",
		Description: "Search cached company listings by name or ticker symbol",
	}, s.handleSearch)
}

// handleSearch runs one sync and returns its final snapshot. Failed refreshes
// are reported in Errors alongside the cached listings.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	var errs []string
	res := services.Drain(
		s.ports.Listings.CompanyListings(ctx, input.Refresh, input.Query),
		func(ev domain.Event) {
			if ev.Kind == domain.EventError {
				errs = append(errs, ev.Message)
			}
		},
	)
	if err := ctx.Err(); err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Listings: toOutput(res.Listings),
		Count:    len(res.Listings),
		Errors:   errs,
	}, nil
}

func toOutput(listings []domain.CompanyListing) []ListingOutput {
	out := make([]ListingOutput, len(listings))
	for i, l := range listings {
		out[i] = ListingOutput{
			Symbol:   l.Symbol,
			Name:     l.Name,
			Exchange: l.Exchange,
		}
	}
	return out
}
