// Package mcp provides an MCP (Model Context Protocol) server adapter for
// the listings cache. It lets AI assistants search company listings.
package mcp

import "errors"

// ErrMissingListingService is returned when the listing service is not provided.
var ErrMissingListingService = errors.New("mcp: listing service is required")
