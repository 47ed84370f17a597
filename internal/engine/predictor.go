package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/stridehq/driftwatch/internal/storage"
	"github.com/stridehq/driftwatch/pkg/types"
)

// Realtime trigger severities. These are fixed rather than scaled:
// the triggers are binary observations, not measurements.
const (
	noActivitySeverity    = 0.8
	missedCheckinSeverity = 0.6
	realtimeRiskFloor     = 0.5
)

// Confidence model constants. Confidence grows with data volume and
// indicator variety and shrinks when critical signals are missing.
const (
	fullConfidencePoints   = 30
	indicatorVariety       = 6
	missingCriticalPenalty = 0.1
	minConfidence          = 0.1
)

// criticalIndicators are the signals whose absence most undermines a
// prediction.
var criticalIndicators = []string{
	types.IndicatorCheckinFrequency,
	types.IndicatorMoodDecline,
	types.IndicatorEngagementDrop,
}

// Predictor orchestrates the full drift-prediction pipeline. It is
// stateless between calls and safe for concurrent use; per-user
// isolation means a failure predicting one user never affects another.
type Predictor struct {
	events    storage.EventSource
	history   storage.AssessmentHistory
	patterns  *PatternAnalyzer
	extractor *Extractor
	cfg       Config
	logger    *log.Logger
	now       func() time.Time
}

// NewPredictor builds a predictor. history and patterns may be nil, in
// which case assessments are not recorded and the pattern deviation
// indicator is never emitted.
func NewPredictor(events storage.EventSource, history storage.AssessmentHistory, patterns *PatternAnalyzer, cfg Config) *Predictor {
	cfg.Normalize()
	return &Predictor{
		events:    events,
		history:   history,
		patterns:  patterns,
		extractor: NewExtractor(cfg),
		cfg:       cfg,
		logger:    log.New(log.Writer(), "engine: ", log.LstdFlags),
		now:       time.Now,
	}
}

// PredictDrift runs the full pipeline for one user: fetch events,
// extract indicators, aggregate probability, classify risk, generate
// interventions, score confidence, and append the assessment to
// history.
//
// An empty lookback window is not an error: it yields a valid
// low-confidence result with probability 0 and level low.
func (p *Predictor) PredictDrift(ctx context.Context, ownerID string, timeframeDays int) (*Prediction, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", storage.ErrInvalidInput)
	}
	if timeframeDays < 0 {
		return nil, fmt.Errorf("%w: timeframe days must be non-negative", storage.ErrInvalidInput)
	}
	if timeframeDays == 0 {
		timeframeDays = p.cfg.DefaultTimeframeDays
	}

	now := p.now()
	events, err := p.fetchEvents(ctx, ownerID, now.AddDate(0, 0, -timeframeDays))
	if err != nil {
		return nil, err
	}
	data := SplitByKind(events)

	pred := &Prediction{
		OwnerID:       ownerID,
		Level:         types.RiskLow,
		Indicators:    []types.DriftIndicator{},
		Interventions: []types.Intervention{},
		TimeframeDays: timeframeDays,
		Status:        StatusOK,
		PredictedAt:   now,
	}
	if data.TotalPoints() == 0 {
		pred.Status = StatusInsufficientData
		pred.Confidence = minConfidence
		return pred, nil
	}

	consistency, hasConsistency := p.consistencyScore(ctx, ownerID, data)
	indicators := p.extractor.Extract(data, now, timeframeDays, consistency, hasConsistency)

	pred.Indicators = indicators
	pred.Probability = p.extractor.AggregateProbability(indicators)
	pred.Level = ClassifyRisk(pred.Probability, indicators)
	pred.Interventions = GenerateInterventions(pred.Level, indicators, BuildUserContext(data))
	pred.Confidence = predictionConfidence(data.TotalPoints(), indicators)

	p.record(ctx, pred)
	return pred, nil
}

// MonitorRealtime is the lightweight last-24-hour check. It emits only
// the realtime trigger indicators and their immediate interventions.
func (p *Predictor) MonitorRealtime(ctx context.Context, ownerID string) (*RealtimeReport, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", storage.ErrInvalidInput)
	}

	now := p.now()
	recent, err := p.fetchEvents(ctx, ownerID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	data := SplitByKind(recent)

	report := &RealtimeReport{
		OwnerID:       ownerID,
		Indicators:    []types.DriftIndicator{},
		Interventions: []types.Intervention{},
		MonitoredAt:   now,
	}

	if len(data.Behaviors) == 0 && len(data.CheckIns) == 0 {
		report.Indicators = append(report.Indicators, types.DriftIndicator{
			Name:        types.IndicatorNoActivity24h,
			Value:       0,
			Threshold:   1,
			Severity:    noActivitySeverity,
			Description: "No activity recorded in the last 24 hours",
			Trend:       types.TrendStable,
		})
	}
	if len(data.CheckIns) == 0 {
		rate, rerr := p.historicalCheckinRate(ctx, ownerID, now)
		if rerr != nil {
			p.logger.Printf("historical check-in rate for %s unavailable: %v", ownerID, rerr)
		} else if rate > p.cfg.Thresholds.CheckinFrequency {
			report.Indicators = append(report.Indicators, types.DriftIndicator{
				Name:        types.IndicatorMissedCheckin,
				Value:       rate,
				Threshold:   p.cfg.Thresholds.CheckinFrequency,
				Severity:    missedCheckinSeverity,
				Description: "Missed today's check-in despite a regular habit",
				Trend:       types.TrendStable,
			})
		}
	}

	for _, ind := range report.Indicators {
		report.ImmediateRisk += ind.Severity
	}
	if n := len(report.Indicators); n > 0 {
		report.ImmediateRisk /= float64(n)
	}
	if report.ImmediateRisk > realtimeRiskFloor {
		report.Interventions = RealtimeInterventions(report.Indicators)
	}
	return report, nil
}

// AnalyzeTrends reads the user's assessment history over the given
// number of weeks (default 4) and reports the direction of change,
// high-risk periods, and recommendations.
func (p *Predictor) AnalyzeTrends(ctx context.Context, ownerID string, weeksBack int) (*TrendReport, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", storage.ErrInvalidInput)
	}
	if weeksBack <= 0 {
		weeksBack = 4
	}
	now := p.now()

	var assessments []types.RiskAssessment
	if p.history != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
		defer cancel()
		var err error
		assessments, err = p.history.ReadAssessments(fetchCtx, ownerID, storage.AssessmentQuery{
			Since: now.AddDate(0, 0, -7*weeksBack),
		})
		if err != nil {
			return nil, fmt.Errorf("read assessment history: %w", err)
		}
	}
	return AnalyzeAssessments(ownerID, assessments, now), nil
}

// BatchResult pairs one user's prediction with its error, if any.
type BatchResult struct {
	Prediction *Prediction
	Err        error
}

// PredictBatch runs predictions for many users concurrently. Each user
// is fully isolated: one failing prediction is reported in its own
// result and never affects the others.
func (p *Predictor) PredictBatch(ctx context.Context, ownerIDs []string, timeframeDays int) map[string]BatchResult {
	results := make(map[string]BatchResult, len(ownerIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range ownerIDs {
		wg.Add(1)
		go func(ownerID string) {
			defer wg.Done()
			pred, err := p.PredictDrift(ctx, ownerID, timeframeDays)
			mu.Lock()
			results[ownerID] = BatchResult{Prediction: pred, Err: err}
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return results
}

// fetchEvents loads a user's events since the given time under the
// configured collaborator timeout. Backend failures surface as
// ErrDataUnavailable.
func (p *Predictor) fetchEvents(ctx context.Context, ownerID string, since time.Time) ([]types.Event, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()
	events, err := p.events.FetchEvents(fetchCtx, storage.EventQuery{OwnerID: ownerID, Since: since})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch events for %s: %v", storage.ErrDataUnavailable, ownerID, err)
	}
	return events, nil
}

// consistencyScore looks up the owner's pattern consistency. Any
// failure degrades to "no pattern signal" so the prediction proceeds
// with the remaining indicators.
func (p *Predictor) consistencyScore(ctx context.Context, ownerID string, data *UserData) (float64, bool) {
	if p.patterns == nil {
		return 0, false
	}
	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()
	score, err := p.patterns.ConsistencyScore(lookupCtx, ownerID, data.Activities())
	if err != nil {
		if !errors.Is(err, ErrNoPattern) {
			p.logger.Printf("pattern consistency for %s unavailable: %v", ownerID, err)
		}
		return 0, false
	}
	return score, true
}

// historicalCheckinRate computes the user's check-in rate per day over
// the past week, excluding the current day.
func (p *Predictor) historicalCheckinRate(ctx context.Context, ownerID string, now time.Time) (float64, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()
	events, err := p.events.FetchEvents(fetchCtx, storage.EventQuery{
		OwnerID: ownerID,
		Kinds:   []string{string(types.EventCheckIn)},
		Since:   now.AddDate(0, 0, -8),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: fetch check-in history: %v", storage.ErrDataUnavailable, err)
	}
	count := 0
	cutoff := now.Add(-24 * time.Hour)
	for _, e := range events {
		if e.Timestamp.Before(cutoff) {
			count++
		}
	}
	return float64(count) / 7, nil
}

// record appends the prediction to the assessment history. A failed
// append is logged, not returned: the prediction itself is still valid
// and trend analysis simply misses one data point.
func (p *Predictor) record(ctx context.Context, pred *Prediction) {
	if p.history == nil {
		return
	}
	assessment := &types.RiskAssessment{
		OwnerID:       pred.OwnerID,
		Probability:   pred.Probability,
		Level:         pred.Level,
		Indicators:    pred.Indicators,
		Confidence:    pred.Confidence,
		TimeframeDays: pred.TimeframeDays,
		CreatedAt:     pred.PredictedAt,
	}
	if err := p.history.AppendAssessment(ctx, assessment); err != nil {
		p.logger.Printf("append assessment for %s: %v", pred.OwnerID, err)
	}
}

// predictionConfidence scores how much to trust a prediction: 70%
// from data volume (full credit at fullConfidencePoints events), 30%
// from indicator variety, minus a penalty per missing critical
// indicator. Bounded to [minConfidence, 1].
func predictionConfidence(totalPoints int, indicators []types.DriftIndicator) float64 {
	dataConf := float64(totalPoints) / fullConfidencePoints
	if dataConf > 1 {
		dataConf = 1
	}
	variety := float64(len(indicators)) / indicatorVariety
	if variety > 1 {
		variety = 1
	}

	present := make(map[string]bool, len(indicators))
	for _, ind := range indicators {
		present[ind.Name] = true
	}
	penalty := 0.0
	for _, name := range criticalIndicators {
		if !present[name] {
			penalty += missingCriticalPenalty
		}
	}

	conf := dataConf*0.7 + variety*0.3 - penalty
	if conf < minConfidence {
		return minConfidence
	}
	if conf > 1 {
		return 1
	}
	return conf
}
