// Package engine implements the drift-prediction pipeline: indicator
// extraction, probability aggregation, risk classification, intervention
// generation, and trend analysis.
//
// Every stage is a pure function over an immutable snapshot of input
// data. Predictions for different users may run on arbitrarily many
// goroutines with no shared mutable state.
package engine

import (
	"sort"
	"time"

	"github.com/stridehq/driftwatch/pkg/types"
)

// Prediction status values.
const (
	// StatusOK indicates a prediction backed by sufficient data.
	StatusOK = "ok"

	// StatusInsufficientData indicates a valid low-confidence result
	// produced when the lookback window held no usable events. It is
	// not an error.
	StatusInsufficientData = "insufficient_data"

	// StatusSufficientData indicates a trend report backed by enough
	// assessments to split into comparison halves.
	StatusSufficientData = "sufficient_data"
)

// Prediction is the result of one full drift prediction call.
type Prediction struct {
	OwnerID       string                 `json:"owner_id"`
	Probability   float64                `json:"drift_probability"`
	Level         types.RiskLevel        `json:"risk_level"`
	Indicators    []types.DriftIndicator `json:"indicators"`
	Interventions []types.Intervention   `json:"interventions"`
	Confidence    float64                `json:"confidence"`
	TimeframeDays int                    `json:"timeframe_days"`
	Status        string                 `json:"status"`
	PredictedAt   time.Time              `json:"prediction_timestamp"`
}

// RealtimeReport is the result of the lightweight last-24-hour monitor.
type RealtimeReport struct {
	OwnerID       string                 `json:"owner_id"`
	ImmediateRisk float64                `json:"immediate_drift_risk"`
	Indicators    []types.DriftIndicator `json:"indicators"`
	Interventions []types.Intervention   `json:"immediate_interventions"`
	MonitoredAt   time.Time              `json:"monitoring_timestamp"`
}

// RiskPeriod marks one historical assessment whose probability crossed
// the high-risk threshold.
type RiskPeriod struct {
	Period      string  `json:"period"`
	Probability float64 `json:"drift_probability"`
	Severity    string  `json:"severity"`
}

// TrendReport is the result of analyzing a user's assessment history.
type TrendReport struct {
	OwnerID            string               `json:"owner_id"`
	Status             string               `json:"status"`
	Direction          types.TrendDirection `json:"trend_direction"`
	AverageProbability float64              `json:"average_probability"`
	RecentAverage      float64              `json:"recent_average"`
	HistoricalAverage  float64              `json:"historical_average"`
	RiskPeriods        []RiskPeriod         `json:"risk_periods"`
	Recommendations    []string             `json:"recommendations"`
	TotalAssessments   int                  `json:"total_assessments"`
	AnalyzedAt         time.Time            `json:"analysis_timestamp"`
}

// UserData is the immutable snapshot of one user's events for a
// prediction call, partitioned by kind. Slices are ordered oldest
// first within each kind.
type UserData struct {
	Behaviors []types.Event
	CheckIns  []types.Event
	Goals     []types.Event
}

// TotalPoints returns the number of data points across all kinds.
func (d *UserData) TotalPoints() int {
	return len(d.Behaviors) + len(d.CheckIns) + len(d.Goals)
}

// Activities returns behaviors and check-ins merged in chronological
// order. Goals are excluded because goal events carry progress state
// rather than activity timing.
func (d *UserData) Activities() []types.Event {
	merged := make([]types.Event, 0, len(d.Behaviors)+len(d.CheckIns))
	merged = append(merged, d.Behaviors...)
	merged = append(merged, d.CheckIns...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// SplitByKind partitions events into a UserData snapshot, preserving
// the input order within each kind.
func SplitByKind(events []types.Event) *UserData {
	data := &UserData{}
	for _, e := range events {
		switch e.Kind {
		case types.EventCheckIn:
			data.CheckIns = append(data.CheckIns, e)
		case types.EventGoal:
			data.Goals = append(data.Goals, e)
		default:
			data.Behaviors = append(data.Behaviors, e)
		}
	}
	return data
}

// clamp01 bounds v to the closed unit interval.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
