package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/stridehq/driftwatch/pkg/types"
)

// Extractor computes drift indicators from a user's event snapshot.
// It holds only configuration and is safe for concurrent use.
type Extractor struct {
	cfg Config
}

// NewExtractor returns an extractor with normalized configuration.
func NewExtractor(cfg Config) *Extractor {
	cfg.Normalize()
	return &Extractor{cfg: cfg}
}

// Extract computes every indicator the snapshot has data for. An
// indicator is present whenever its source data exists; a healthy
// reading simply clamps to severity 0 and still participates in the
// weighted aggregate and the confidence score. Only indicators whose
// inputs are entirely missing are omitted.
//
// consistency is the owner-scoped pattern consistency score from the
// similarity store; hasConsistency is false when no stored patterns
// were available, in which case the pattern indicator is skipped.
func (x *Extractor) Extract(data *UserData, now time.Time, timeframeDays int, consistency float64, hasConsistency bool) []types.DriftIndicator {
	indicators := make([]types.DriftIndicator, 0, 6)

	if ind, ok := x.checkinFrequency(data, timeframeDays); ok {
		indicators = append(indicators, ind)
	}
	if ind, ok := x.moodDecline(data); ok {
		indicators = append(indicators, ind)
	}
	if ind, ok := x.engagementDrop(data, timeframeDays); ok {
		indicators = append(indicators, ind)
	}
	if ind, ok := x.goalProgress(data, now); ok {
		indicators = append(indicators, ind)
	}
	if ind, ok := x.responseDelay(data, now); ok {
		indicators = append(indicators, ind)
	}
	if hasConsistency {
		indicators = append(indicators, x.patternDeviation(consistency))
	}
	return indicators
}

// checkinFrequency measures the check-in rate over the window.
// Severity scales linearly with the shortfall below the configured
// minimum, so zero check-ins yield severity 1.0 and anything at or
// above the minimum yields 0.
func (x *Extractor) checkinFrequency(data *UserData, timeframeDays int) (types.DriftIndicator, bool) {
	if data.TotalPoints() == 0 {
		return types.DriftIndicator{}, false
	}
	threshold := x.cfg.Thresholds.CheckinFrequency
	rate := float64(len(data.CheckIns)) / float64(timeframeDays)
	return types.DriftIndicator{
		Name:        types.IndicatorCheckinFrequency,
		Value:       rate,
		Threshold:   threshold,
		Severity:    clamp01((threshold - rate) / threshold),
		Description: fmt.Sprintf("Check-in frequency: %.2f per day", rate),
		Trend:       countTrend(data.CheckIns),
	}, true
}

// moodDecline measures the average reported mood on the 1-5 scale.
// Severity grows as the average sinks below the configured floor.
func (x *Extractor) moodDecline(data *UserData) (types.DriftIndicator, bool) {
	moods := moodValues(data.CheckIns)
	if len(moods) == 0 {
		return types.DriftIndicator{}, false
	}
	threshold := x.cfg.Thresholds.MoodDecline
	avg := mean(moods)
	return types.DriftIndicator{
		Name:        types.IndicatorMoodDecline,
		Value:       avg,
		Threshold:   threshold,
		Severity:    clamp01((threshold - avg) / threshold),
		Description: fmt.Sprintf("Average mood: %.1f/5", avg),
		Trend:       valueTrend(moods, 0.5),
	}, true
}

// engagementDrop compares behavior activity against the expected rate.
// The value is the fraction of expected behaviors actually observed.
func (x *Extractor) engagementDrop(data *UserData, timeframeDays int) (types.DriftIndicator, bool) {
	if data.TotalPoints() == 0 {
		return types.DriftIndicator{}, false
	}
	threshold := x.cfg.Thresholds.EngagementDrop
	expected := float64(timeframeDays) * x.cfg.ExpectedEventsPerDay
	if expected < 1 {
		expected = 1
	}
	engagement := float64(len(data.Behaviors)) / expected
	return types.DriftIndicator{
		Name:        types.IndicatorEngagementDrop,
		Value:       engagement,
		Threshold:   threshold,
		Severity:    clamp01((threshold - engagement) / threshold),
		Description: fmt.Sprintf("Activity engagement: %.2f", engagement),
		Trend:       countTrend(data.Behaviors),
	}, true
}

// goalProgress scores active goals against schedule: per goal the
// expected completion fraction is its age over the completion horizon
// (capped at 1, floored at 0.1 so brand-new goals are not divided by
// zero), and the value is the mean ratio of actual to expected
// progress. A ratio at or above the threshold clamps to severity 0.
func (x *Extractor) goalProgress(data *UserData, now time.Time) (types.DriftIndicator, bool) {
	var ratios []float64
	horizon := x.cfg.GoalCompletionDays
	for _, g := range data.Goals {
		if g.Completed {
			continue
		}
		ageDays := now.Sub(g.Timestamp).Hours() / 24
		expected := ageDays / horizon
		if expected > 1 {
			expected = 1
		}
		if expected < 0.1 {
			expected = 0.1
		}
		ratios = append(ratios, (g.Progress/100)/expected)
	}
	if len(ratios) == 0 {
		return types.DriftIndicator{}, false
	}
	threshold := x.cfg.Thresholds.GoalProgress
	avg := mean(ratios)
	return types.DriftIndicator{
		Name:        types.IndicatorGoalProgress,
		Value:       avg,
		Threshold:   threshold,
		Severity:    clamp01((threshold - avg) / threshold),
		Description: fmt.Sprintf("Goal progress rate: %.2f", avg),
		Trend:       types.TrendStable,
	}, true
}

// responseDelay measures the gap since the last activity of any kind.
// Severity is the gap as a fraction of the configured delay, saturating
// at 1.0 once the gap reaches the threshold.
func (x *Extractor) responseDelay(data *UserData, now time.Time) (types.DriftIndicator, bool) {
	last := lastTimestamp(data)
	if last.IsZero() {
		return types.DriftIndicator{}, false
	}
	threshold := x.cfg.Thresholds.ResponseDelay
	gap := now.Sub(last)
	trend := types.TrendStable
	if gap > 24*time.Hour {
		trend = types.TrendIncreasing
	}
	return types.DriftIndicator{
		Name:        types.IndicatorResponseDelay,
		Value:       gap.Hours(),
		Threshold:   threshold.Hours(),
		Severity:    clamp01(float64(gap) / float64(threshold)),
		Description: fmt.Sprintf("Hours since last activity: %.1f", gap.Hours()),
		Trend:       trend,
	}, true
}

// patternDeviation scores how far behavior drifts from the user's
// stored patterns. Deviation is one minus the consistency score from
// the similarity store and doubles as the severity.
func (x *Extractor) patternDeviation(consistency float64) types.DriftIndicator {
	deviation := clamp01(1 - consistency)
	return types.DriftIndicator{
		Name:        types.IndicatorPatternDeviation,
		Value:       deviation,
		Threshold:   x.cfg.Thresholds.PatternDeviation,
		Severity:    deviation,
		Description: fmt.Sprintf("Behavior pattern deviation: %.2f", deviation),
		Trend:       types.TrendStable,
	}
}

// countTrend classifies the momentum of an event series by comparing
// the counts of its older and recent halves. The series must be in
// chronological order. Fewer than four events is too noisy to call.
func countTrend(events []types.Event) types.TrendDirection {
	if len(events) < 4 {
		return types.TrendStable
	}
	mid := len(events) / 2
	older := float64(mid)
	recent := float64(len(events) - mid)
	span := events[len(events)-1].Timestamp.Sub(events[0].Timestamp)
	if span <= 0 {
		return types.TrendStable
	}
	olderSpan := events[mid-1].Timestamp.Sub(events[0].Timestamp)
	recentSpan := events[len(events)-1].Timestamp.Sub(events[mid].Timestamp)
	if olderSpan <= 0 || recentSpan <= 0 {
		return types.TrendStable
	}
	olderRate := older / olderSpan.Hours()
	recentRate := recent / recentSpan.Hours()
	switch {
	case recentRate > olderRate*1.2:
		return types.TrendIncreasing
	case recentRate < olderRate*0.8:
		return types.TrendDecreasing
	default:
		return types.TrendStable
	}
}

// valueTrend classifies the momentum of a numeric series by comparing
// half means against a hysteresis band. The series must be in
// chronological order.
func valueTrend(values []float64, band float64) types.TrendDirection {
	if len(values) < 4 {
		return types.TrendStable
	}
	mid := len(values) / 2
	older := mean(values[:mid])
	recent := mean(values[mid:])
	switch {
	case recent > older+band:
		return types.TrendIncreasing
	case recent < older-band:
		return types.TrendDecreasing
	default:
		return types.TrendStable
	}
}

// moodValues extracts recorded mood scores from check-ins in order.
func moodValues(checkins []types.Event) []float64 {
	var moods []float64
	for _, c := range checkins {
		if c.Mood > 0 {
			moods = append(moods, c.Mood)
		}
	}
	return moods
}

// lastTimestamp returns the most recent event time across all kinds,
// or the zero time if the snapshot is empty.
func lastTimestamp(data *UserData) time.Time {
	var last time.Time
	for _, group := range [][]types.Event{data.Behaviors, data.CheckIns, data.Goals} {
		for _, e := range group {
			if e.Timestamp.After(last) {
				last = e.Timestamp
			}
		}
	}
	return last
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev returns the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}
