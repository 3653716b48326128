package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown store driver, remote kind or record format.
	ErrUnsupportedType = errors.New("unsupported type")

	// Sync Errors.

	// ErrTransport indicates the remote source could not be reached
	// or answered with a non-success status.
	ErrTransport = errors.New("transport failure")

	// ErrDecode indicates the remote payload could not be decoded into listings.
	ErrDecode = errors.New("decode failure")

	// ErrStore indicates the local store failed to read or write.
	ErrStore = errors.New("store failure")

	// ErrRateLimited indicates the remote API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceClosed indicates the remote source has been closed.
	ErrSourceClosed = errors.New("source closed")
)
