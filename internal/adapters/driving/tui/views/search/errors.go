package search

import "errors"

// ErrNoListingService indicates that no listing service was provided.
var ErrNoListingService = errors.New("listing service is required")
