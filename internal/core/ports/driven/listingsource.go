package driven

import (
	"context"
	"io"
)

// ListingSource fetches the raw listings payload from a remote system.
type ListingSource interface {
	// FetchListings opens the payload. The caller must close the returned body.
	// Failures wrap domain.ErrTransport.
	FetchListings(ctx context.Context) (io.ReadCloser, error)
}

// ListingWatcher is implemented by sources that can announce changes.
type ListingWatcher interface {
	// Watch sends on the returned channel whenever the source content changes.
	// The channel is closed when ctx is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
