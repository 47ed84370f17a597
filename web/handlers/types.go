package handlers

import (
	"time"

	"github.com/stridehq/driftwatch/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// IngestRequest is the request format for POST /api/events.
type IngestRequest struct {
	OwnerID   string                 `json:"owner_id"`
	Kind      string                 `json:"kind"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Mood      float64                `json:"mood,omitempty"`
	Energy    float64                `json:"energy,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Progress  float64                `json:"progress,omitempty"`
	Completed bool                   `json:"completed,omitempty"`
	Label     string                 `json:"label,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ToEvent converts the request to an event, defaulting the timestamp
// to now.
func (r *IngestRequest) ToEvent() *types.Event {
	ts := time.Now()
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		ts = *r.Timestamp
	}
	return &types.Event{
		OwnerID:   r.OwnerID,
		Kind:      types.EventKind(r.Kind),
		Timestamp: ts,
		Mood:      r.Mood,
		Energy:    r.Energy,
		Title:     r.Title,
		Progress:  r.Progress,
		Completed: r.Completed,
		Label:     r.Label,
		Metadata:  r.Metadata,
	}
}

// IngestResponse is the response format for POST /api/events.
type IngestResponse struct {
	ID      string `json:"id"`
	Indexed bool   `json:"indexed"`
}

// DeleteVectorsResponse is the response format for DELETE /api/vectors/{owner}.
type DeleteVectorsResponse struct {
	OwnerID string `json:"owner_id"`
	Deleted int    `json:"deleted"`
}

// HealthResponse is the response format for GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Embedder  string `json:"embedder"`
	Breaker   string `json:"circuit_breaker,omitempty"`
	Timestamp string `json:"timestamp"`
}

// DriftAlert is the message broadcast to WebSocket clients when a
// realtime check or prediction crosses the alert bar.
type DriftAlert struct {
	Type        string    `json:"type"`
	OwnerID     string    `json:"owner_id"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	Probability float64   `json:"probability"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}
