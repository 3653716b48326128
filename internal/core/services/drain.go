package services

import (
	"iter"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// SyncResult summarises a fully consumed event sequence.
type SyncResult struct {
	// Listings is the last snapshot emitted, nil if none was.
	Listings []domain.CompanyListing

	// Snapshots is the number of Success events observed.
	Snapshots int

	// Err is the cause of the first Error event, nil if none was emitted.
	Err error

	// Completed is true when the closing Loading(false) was observed.
	Completed bool
}

// Drain consumes seq to the end. If onEvent is non-nil it is called for
// every event before it is folded into the result.
func Drain(seq iter.Seq[domain.Event], onEvent func(domain.Event)) SyncResult {
	var res SyncResult
	for ev := range seq {
		if onEvent != nil {
			onEvent(ev)
		}
		switch ev.Kind {
		case domain.EventSuccess:
			res.Listings = ev.Data
			res.Snapshots++
		case domain.EventError:
			if res.Err == nil {
				res.Err = ev.Err
				if res.Err == nil {
					res.Err = errorMessage(ev.Message)
				}
			}
		case domain.EventLoading:
			if !ev.Loading {
				res.Completed = true
			}
		}
	}
	return res
}

type errorMessage string

func (e errorMessage) Error() string { return string(e) }
