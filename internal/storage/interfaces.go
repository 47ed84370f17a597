// Package storage provides the collaborator interfaces the drift engine
// consumes and their sentinel errors.
//
// The interfaces are small and focused so that backends can be
// implemented independently: the bundled SQLite backend serves local
// deployments, and tests substitute in-memory fakes.
package storage

import (
	"context"
	"time"

	"github.com/stridehq/driftwatch/pkg/types"
)

// EventSource fetches a user's behavioral events for analysis.
// Absence of data is represented as an empty slice, never an error;
// ErrDataUnavailable is reserved for an unreachable backend.
type EventSource interface {
	// FetchEvents returns the events matching the query, sorted by
	// timestamp ascending (oldest first).
	FetchEvents(ctx context.Context, q EventQuery) ([]types.Event, error)
}

// EventSink ingests new events. Events are immutable once stored.
type EventSink interface {
	// StoreEvent persists a single event. The event's ID is assigned
	// if empty. Returns ErrInvalidInput on validation failure.
	StoreEvent(ctx context.Context, event *types.Event) error
}

// EventStore combines read and write access to the event log.
type EventStore interface {
	EventSource
	EventSink
}

// AssessmentHistory is the append-only log of past risk assessments,
// consumed by the trend analyzer.
type AssessmentHistory interface {
	// AppendAssessment records one assessment. Assessments are never
	// updated in place.
	AppendAssessment(ctx context.Context, a *types.RiskAssessment) error

	// ReadAssessments returns assessments for the owner with
	// CreatedAt >= since, sorted by CreatedAt ascending.
	ReadAssessments(ctx context.Context, ownerID string, q AssessmentQuery) ([]types.RiskAssessment, error)
}

// AssessmentQuery selects historical assessments for one owner.
type AssessmentQuery struct {
	// Since is the inclusive lower bound on CreatedAt.
	// Zero value means no lower bound.
	Since time.Time

	// Limit caps the number of returned assessments (0 = no cap).
	Limit int
}
