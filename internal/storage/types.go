package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	// This is a caller bug and fails fast.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataUnavailable indicates that an upstream collaborator (event
	// fetch, embedding service) could not be reached. Callers degrade
	// gracefully: the affected signal is treated as absent rather than
	// aborting the whole prediction.
	ErrDataUnavailable = errors.New("data unavailable")
)

// EventQuery selects events for one owner within a lookback window.
type EventQuery struct {
	// OwnerID is the user whose events are fetched. Required.
	OwnerID string

	// Kinds restricts the result to the given event kinds.
	// Empty means all kinds.
	Kinds []string

	// Since is the inclusive lower bound on event timestamps.
	// Zero value means no lower bound.
	Since time.Time

	// Limit caps the number of returned events (default: no cap).
	Limit int
}

// Normalize applies defaults and validates the EventQuery.
func (q *EventQuery) Normalize() {
	if q.Limit < 0 {
		q.Limit = 0
	}
}
