package domain

import "fmt"

// LoadErrorMessage is the single user-visible text carried by every Error event.
const LoadErrorMessage = "Couldn't load data"

// EventKind discriminates the variants of Event.
type EventKind int

// Event variants, in the order a consumer normally observes them.
const (
	// EventLoading signals the start or end of activity.
	EventLoading EventKind = iota + 1

	// EventSuccess carries a snapshot of listings.
	EventSuccess

	// EventError reports a failed remote or store attempt.
	// It is not necessarily the last event of a stream.
	EventError
)

// String returns the string representation.
func (k EventKind) String() string {
	switch k {
	case EventLoading:
		return "loading"
	case EventSuccess:
		return "success"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one progressive state update produced by a listings sync.
// Only the fields belonging to Kind are meaningful.
type Event struct {
	Kind EventKind

	// Loading is set on EventLoading.
	Loading bool

	// Data is set on EventSuccess. It is a snapshot the consumer owns.
	Data []CompanyListing

	// Message is set on EventError.
	Message string

	// Err is the cause behind an EventError. It wraps ErrTransport,
	// ErrDecode or ErrStore.
	Err error
}

// LoadingEvent builds a Loading(isLoading) event.
func LoadingEvent(isLoading bool) Event {
	return Event{Kind: EventLoading, Loading: isLoading}
}

// SuccessEvent builds a Success(data) event.
func SuccessEvent(data []CompanyListing) Event {
	return Event{Kind: EventSuccess, Data: data}
}

// ErrorEvent builds an Error event for the given cause.
func ErrorEvent(cause error) Event {
	return Event{Kind: EventError, Message: LoadErrorMessage, Err: cause}
}

// IsLoading reports whether e is Loading(true).
func (e Event) IsLoading() bool {
	return e.Kind == EventLoading && e.Loading
}

// IsDone reports whether e is Loading(false), the last event of every stream.
func (e Event) IsDone() bool {
	return e.Kind == EventLoading && !e.Loading
}

// String renders the event as Loading(true), Success(3) or Error(msg).
func (e Event) String() string {
	switch e.Kind {
	case EventLoading:
		return fmt.Sprintf("Loading(%t)", e.Loading)
	case EventSuccess:
		return fmt.Sprintf("Success(%d)", len(e.Data))
	case EventError:
		return fmt.Sprintf("Error(%s)", e.Message)
	default:
		return "Event(unknown)"
	}
}

// SyncOutcome classifies how a listings sync ended, for metrics and logs.
type SyncOutcome string

// Sync outcomes.
const (
	// SyncOutcomeCacheHit means the cached snapshot was served with no remote call.
	SyncOutcomeCacheHit SyncOutcome = "cache_hit"

	// SyncOutcomeRefreshed means remote data was reconciled into the store.
	SyncOutcomeRefreshed SyncOutcome = "refreshed"

	// SyncOutcomeRemoteError means fetching or decoding remote data failed.
	SyncOutcomeRemoteError SyncOutcome = "remote_error"

	// SyncOutcomeStoreError means the local store failed.
	SyncOutcomeStoreError SyncOutcome = "store_error"

	// SyncOutcomeAbandoned means the consumer stopped listening early.
	SyncOutcomeAbandoned SyncOutcome = "abandoned"
)
