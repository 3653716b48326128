// Package domain defines the core business entities for the listings cache.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - CompanyListing: One company record (name, symbol, exchange)
//   - Event: A progressive state update emitted by a listings sync
//   - ScheduledTask: A recurring background refresh
//   - Settings: Typed application settings (store, remote, sync)
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
