package mcp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

const (
	uriScheme = "listings://"

	// allListingsURI is the cached snapshot of every listing.
	allListingsURI = uriScheme + "all"

	searchPrefix = uriScheme + "search/"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         allListingsURI,
		Name:        "all-listings",
		Description: "Every cached company listing",
		MIMEType:    "application/json",
	}, s.handleAllResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: searchPrefix + "{query}",
		Name:        "search-listings",
		Description: "Cached company listings matching a name fragment or symbol",
		MIMEType:    "application/json",
	}, s.handleSearchResource)
}

// handleAllResource returns the cached snapshot without contacting the remote.
func (s *Server) handleAllResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return s.cachedResource(ctx, req.Params.URI, "")
}

func (s *Server) handleSearchResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	query, ok := extractQuery(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return s.cachedResource(ctx, req.Params.URI, query)
}

func (s *Server) cachedResource(ctx context.Context, uri, query string) (*mcp.ReadResourceResult, error) {
	listings, err := s.cachedSnapshot(ctx, query)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(toOutput(listings), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling listings: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// cachedSnapshot takes the first snapshot of a sync and abandons the rest,
// so reading a resource never triggers a remote fetch.
func (s *Server) cachedSnapshot(ctx context.Context, query string) ([]domain.CompanyListing, error) {
	for ev := range s.ports.Listings.CompanyListings(ctx, false, query) {
		switch ev.Kind {
		case domain.EventSuccess:
			return ev.Data, nil
		case domain.EventError:
			return nil, fmt.Errorf("reading cache: %w", ev.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []domain.CompanyListing{}, nil
}

// extractQuery extracts the query from a URI like listings://search/{query}.
func extractQuery(uri string) (string, bool) {
	if !strings.HasPrefix(uri, searchPrefix) {
		return "", false
	}
	query, err := url.PathUnescape(strings.TrimPrefix(uri, searchPrefix))
	if err != nil || strings.TrimSpace(query) == "" {
		return "", false
	}
	return query, true
}
