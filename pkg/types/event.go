package types

import (
	"fmt"
	"time"
)

// EventKind classifies a behavioral event.
type EventKind string

// Event kind constants.
const (
	// EventBehavior is a generic activity record (app usage, workout,
	// journal entry, conversation turn).
	EventBehavior EventKind = "behavior"

	// EventCheckIn is a structured daily check-in carrying mood and
	// energy scores on a 1-5 scale.
	EventCheckIn EventKind = "checkin"

	// EventGoal is a goal record carrying title, progress and completion.
	EventGoal EventKind = "goal"
)

// IsValid reports whether k is a known event kind.
func (k EventKind) IsValid() bool {
	switch k {
	case EventBehavior, EventCheckIn, EventGoal:
		return true
	}
	return false
}

// Event is an immutable behavioral activity record for one user.
// Events are created by upstream ingestion and never mutated; the
// engine only reads them within a lookback window.
type Event struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// Check-in fields (1-5 scale, 0 means not recorded).
	Mood   float64 `json:"mood,omitempty"`
	Energy float64 `json:"energy,omitempty"`

	// Goal fields.
	Title     string  `json:"title,omitempty"`
	Progress  float64 `json:"progress,omitempty"` // percent complete, 0-100
	Completed bool    `json:"completed,omitempty"`

	// Label is a short free-text description of a behavior event
	// (e.g. "completed morning run"). Used when rendering the event
	// for embedding.
	Label string `json:"label,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks structural invariants on the event.
func (e *Event) Validate() error {
	if e.OwnerID == "" {
		return fmt.Errorf("event owner_id is required")
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event timestamp is required")
	}
	if e.Kind == EventCheckIn && (e.Mood < 0 || e.Mood > 5) {
		return fmt.Errorf("check-in mood %.1f outside 0-5", e.Mood)
	}
	if e.Kind == EventGoal && (e.Progress < 0 || e.Progress > 100) {
		return fmt.Errorf("goal progress %.1f outside 0-100", e.Progress)
	}
	return nil
}

// Summary renders the event as a short text line suitable for embedding.
// The similarity store indexes these renderings to detect deviations from
// a user's usual behavior pattern.
func (e *Event) Summary() string {
	ts := e.Timestamp.Format("Mon 15:04")
	switch e.Kind {
	case EventCheckIn:
		return fmt.Sprintf("check-in at %s: mood %.0f/5 energy %.0f/5", ts, e.Mood, e.Energy)
	case EventGoal:
		state := "active"
		if e.Completed {
			state = "completed"
		}
		return fmt.Sprintf("goal %q %s at %.0f%% progress", e.Title, state, e.Progress)
	default:
		if e.Label != "" {
			return fmt.Sprintf("activity at %s: %s", ts, e.Label)
		}
		return fmt.Sprintf("activity at %s", ts)
	}
}
