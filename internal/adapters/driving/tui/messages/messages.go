// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// SearchRequested is a command to start a listings sync.
type SearchRequested struct {
	Query   string
	Refresh bool
}

// SyncEvent carries one event of a running sync.
// Generation identifies the sync so events from a superseded sync can be dropped.
type SyncEvent struct {
	Generation int
	Event      domain.Event
}

// SyncClosed signals that the event stream of a sync has ended.
type SyncClosed struct {
	Generation int
}

// ErrorOccurred signals that an error happened outside a sync.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
