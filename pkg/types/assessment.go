package types

import (
	"fmt"
	"time"
)

// DriftIndicator is one named, scored signal contributing to the drift
// probability. Indicators are recomputed fresh on every prediction call
// and never persisted as mutable state.
type DriftIndicator struct {
	Name        string         `json:"name"`
	Value       float64        `json:"value"`
	Threshold   float64        `json:"threshold"`
	Severity    float64        `json:"severity"` // normalized 0-1
	Description string         `json:"description"`
	Trend       TrendDirection `json:"trend"`
}

// Validate checks the indicator's range invariants.
func (d *DriftIndicator) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("indicator name is required")
	}
	if d.Severity < 0 || d.Severity > 1 {
		return fmt.Errorf("indicator %s severity %.3f outside 0-1", d.Name, d.Severity)
	}
	switch d.Trend {
	case TrendIncreasing, TrendDecreasing, TrendStable:
	default:
		return fmt.Errorf("indicator %s has unknown trend %q", d.Name, d.Trend)
	}
	return nil
}

// RiskAssessment is the result of one drift prediction. Assessments are
// created once per prediction call, appended to the assessment history,
// and never updated in place.
type RiskAssessment struct {
	ID            string           `json:"id"`
	OwnerID       string           `json:"owner_id"`
	Probability   float64          `json:"probability"` // 0-1
	Level         RiskLevel        `json:"level"`
	Indicators    []DriftIndicator `json:"indicators"`
	Confidence    float64          `json:"confidence"` // 0-1
	TimeframeDays int              `json:"timeframe_days"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Validate checks the assessment's range invariants.
func (a *RiskAssessment) Validate() error {
	if a.Probability < 0 || a.Probability > 1 {
		return fmt.Errorf("probability %.3f outside 0-1", a.Probability)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside 0-1", a.Confidence)
	}
	if !a.Level.IsValid() {
		return fmt.Errorf("unknown risk level %q", a.Level)
	}
	for i := range a.Indicators {
		if err := a.Indicators[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Intervention is a recommended proactive action. Interventions are value
// objects produced fresh per call and carry no identity.
type Intervention struct {
	Type     InterventionType       `json:"type"`
	Message  string                 `json:"message"`
	Urgency  string                 `json:"urgency"`
	Timing   string                 `json:"timing"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
