package engine

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stridehq/driftwatch/pkg/types"
)

// Default indicator thresholds. A measured value crossing its threshold
// in the risky direction contributes non-zero severity.
const (
	DefaultCheckinFrequencyThreshold = 0.5 // check-ins per day
	DefaultGoalProgressThreshold     = 0.3 // expected completion fraction
	DefaultMoodDeclineThreshold      = 2.5 // average mood floor (1-5 scale)
	DefaultEngagementDropThreshold   = 0.4 // fraction of expected activity
	DefaultResponseDelayThreshold    = 72 * time.Hour
	DefaultPatternDeviationThreshold = 0.7 // deviation ceiling
)

// DefaultWeight applies to any indicator without an explicit weight.
const DefaultWeight = 0.10

// Thresholds holds the per-indicator trigger points. Zero values are
// replaced with defaults by Normalize.
type Thresholds struct {
	CheckinFrequency float64       `yaml:"checkin_frequency"`
	GoalProgress     float64       `yaml:"goal_progress"`
	MoodDecline      float64       `yaml:"mood_decline"`
	EngagementDrop   float64       `yaml:"engagement_drop"`
	ResponseDelay    time.Duration `yaml:"response_delay"`
	PatternDeviation float64       `yaml:"pattern_deviation"`
}

// UnmarshalYAML parses thresholds from YAML, accepting response_delay
// as a duration string ("72h", "30m").
func (t *Thresholds) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		CheckinFrequency float64 `yaml:"checkin_frequency"`
		GoalProgress     float64 `yaml:"goal_progress"`
		MoodDecline      float64 `yaml:"mood_decline"`
		EngagementDrop   float64 `yaml:"engagement_drop"`
		ResponseDelay    string  `yaml:"response_delay"`
		PatternDeviation float64 `yaml:"pattern_deviation"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	t.CheckinFrequency = raw.CheckinFrequency
	t.GoalProgress = raw.GoalProgress
	t.MoodDecline = raw.MoodDecline
	t.EngagementDrop = raw.EngagementDrop
	t.PatternDeviation = raw.PatternDeviation
	if raw.ResponseDelay != "" {
		d, err := time.ParseDuration(raw.ResponseDelay)
		if err != nil {
			return fmt.Errorf("parse response_delay: %w", err)
		}
		t.ResponseDelay = d
	}
	return nil
}

// Config controls the prediction pipeline.
type Config struct {
	Thresholds Thresholds `yaml:"thresholds"`

	// Weights maps indicator names to their share of the aggregate
	// probability. Indicators absent from the map use DefaultWeight.
	Weights map[string]float64 `yaml:"weights"`

	// DefaultTimeframeDays is the prediction window when the caller
	// passes zero.
	DefaultTimeframeDays int `yaml:"default_timeframe_days"`

	// ExpectedEventsPerDay calibrates the engagement indicator. A user
	// at or above this activity rate scores full engagement.
	ExpectedEventsPerDay float64 `yaml:"expected_events_per_day"`

	// GoalCompletionDays is the horizon against which expected goal
	// progress is measured.
	GoalCompletionDays float64 `yaml:"goal_completion_days"`

	// FetchTimeout bounds each call to an external collaborator
	// (event source, embedder, vector index) during a prediction.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// PatternNeighbors is how many stored patterns the consistency
	// lookup compares against.
	PatternNeighbors int `yaml:"pattern_neighbors"`
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			CheckinFrequency: DefaultCheckinFrequencyThreshold,
			GoalProgress:     DefaultGoalProgressThreshold,
			MoodDecline:      DefaultMoodDeclineThreshold,
			EngagementDrop:   DefaultEngagementDropThreshold,
			ResponseDelay:    DefaultResponseDelayThreshold,
			PatternDeviation: DefaultPatternDeviationThreshold,
		},
		Weights: map[string]float64{
			types.IndicatorCheckinFrequency: 0.25,
			types.IndicatorMoodDecline:      0.20,
			types.IndicatorEngagementDrop:   0.20,
			types.IndicatorGoalProgress:     0.15,
			types.IndicatorResponseDelay:    0.10,
			types.IndicatorPatternDeviation: 0.10,
		},
		DefaultTimeframeDays: 7,
		ExpectedEventsPerDay: 2,
		GoalCompletionDays:   30,
		FetchTimeout:         5 * time.Second,
		PatternNeighbors:     10,
	}
}

// Normalize fills zero-valued fields with defaults so a partially
// specified Config behaves sensibly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Thresholds.CheckinFrequency <= 0 {
		c.Thresholds.CheckinFrequency = def.Thresholds.CheckinFrequency
	}
	if c.Thresholds.GoalProgress <= 0 {
		c.Thresholds.GoalProgress = def.Thresholds.GoalProgress
	}
	if c.Thresholds.MoodDecline <= 0 {
		c.Thresholds.MoodDecline = def.Thresholds.MoodDecline
	}
	if c.Thresholds.EngagementDrop <= 0 {
		c.Thresholds.EngagementDrop = def.Thresholds.EngagementDrop
	}
	if c.Thresholds.ResponseDelay <= 0 {
		c.Thresholds.ResponseDelay = def.Thresholds.ResponseDelay
	}
	if c.Thresholds.PatternDeviation <= 0 {
		c.Thresholds.PatternDeviation = def.Thresholds.PatternDeviation
	}
	if c.Weights == nil {
		c.Weights = def.Weights
	}
	if c.DefaultTimeframeDays <= 0 {
		c.DefaultTimeframeDays = def.DefaultTimeframeDays
	}
	if c.ExpectedEventsPerDay <= 0 {
		c.ExpectedEventsPerDay = def.ExpectedEventsPerDay
	}
	if c.GoalCompletionDays <= 0 {
		c.GoalCompletionDays = def.GoalCompletionDays
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.PatternNeighbors <= 0 {
		c.PatternNeighbors = def.PatternNeighbors
	}
}

// weightFor returns the aggregation weight for an indicator name.
func (c *Config) weightFor(name string) float64 {
	if w, ok := c.Weights[name]; ok {
		return w
	}
	return DefaultWeight
}
