package tui

import "errors"

// ErrMissingListingService is returned when the listing service is not provided.
var ErrMissingListingService = errors.New("tui: listing service is required")
