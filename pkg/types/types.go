// Package types defines the core data structures for the DriftWatch
// drift-prediction system: behavioral events, drift indicators, risk
// assessments, and interventions.
package types

// RiskLevel is the ordered risk category derived from a drift probability
// and its supporting indicators.
type RiskLevel string

// Risk level constants, ordered from least to most severe.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns the position of the level in the total order
// low < medium < high < critical. Unknown levels rank below low.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// IsValid reports whether l is one of the four defined risk levels.
func (l RiskLevel) IsValid() bool {
	return l.Rank() >= 0
}

// TrendDirection classifies the momentum of a signal over time.
type TrendDirection string

// Trend direction constants.
const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// InterventionType identifies the kind of proactive action recommended
// for a user at risk of drifting.
type InterventionType string

// Intervention type constants.
const (
	InterventionNotification    InterventionType = "notification"
	InterventionCoachMessage    InterventionType = "coach_message"
	InterventionGoalAdjustment  InterventionType = "goal_adjustment"
	InterventionSupportOutreach InterventionType = "support_outreach"
	InterventionHabitReminder   InterventionType = "habit_reminder"
)

// Urgency constants for interventions. These mirror the risk levels but
// are kept as plain strings since they label messages, not a total order.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// Timing constants describe how soon an intervention should be delivered.
const (
	TimingImmediate   = "immediate"
	TimingNextSession = "next_session"
	TimingWithin6h    = "within_6h"
	TimingWithin12h   = "within_12h"
	TimingWithin24h   = "within_24h"
	TimingWithin48h   = "within_48h"
)

// Indicator name constants. The full prediction pipeline emits the first
// six; the realtime monitor emits the last two.
const (
	IndicatorCheckinFrequency = "checkin_frequency"
	IndicatorMoodDecline      = "mood_decline"
	IndicatorEngagementDrop   = "engagement_drop"
	IndicatorGoalProgress     = "goal_progress"
	IndicatorResponseDelay    = "response_delay"
	IndicatorPatternDeviation = "pattern_deviation"
	IndicatorNoActivity24h    = "no_activity_24h"
	IndicatorMissedCheckin    = "missed_checkin"
)
