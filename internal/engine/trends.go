package engine

import (
	"fmt"
	"time"

	"github.com/stridehq/driftwatch/pkg/types"
)

// High-risk thresholds for trend analysis.
const (
	riskPeriodThreshold = 0.7
	riskPeriodSevere    = 0.8
	trendBand           = 0.1
)

// AnalyzeAssessments builds a trend report from a user's assessment
// history, ordered oldest first. Fewer than three assessments cannot
// establish a direction and report insufficient data.
func AnalyzeAssessments(ownerID string, assessments []types.RiskAssessment, now time.Time) *TrendReport {
	report := &TrendReport{
		OwnerID:          ownerID,
		Direction:        types.TrendStable,
		RiskPeriods:      []RiskPeriod{},
		TotalAssessments: len(assessments),
		AnalyzedAt:       now,
	}
	if len(assessments) < 3 {
		report.Status = StatusInsufficientData
		report.Recommendations = []string{
			"Continue regular check-ins to build trend data.",
		}
		return report
	}

	probs := make([]float64, len(assessments))
	for i, a := range assessments {
		probs[i] = a.Probability
	}

	mid := len(probs) / 2
	older := mean(probs[:mid])
	recent := mean(probs[mid:])
	switch {
	case recent > older+trendBand:
		report.Direction = types.TrendIncreasing
	case recent < older-trendBand:
		report.Direction = types.TrendDecreasing
	}

	report.Status = StatusSufficientData
	report.AverageProbability = mean(probs)
	report.RecentAverage = recent
	report.HistoricalAverage = older

	for i, p := range probs {
		if p <= riskPeriodThreshold {
			continue
		}
		severity := "medium"
		if p > riskPeriodSevere {
			severity = "high"
		}
		report.RiskPeriods = append(report.RiskPeriods, RiskPeriod{
			Period:      fmt.Sprintf("Week %d", i+1),
			Probability: p,
			Severity:    severity,
		})
	}

	report.Recommendations = trendRecommendations(report.Direction, report.AverageProbability, len(report.RiskPeriods), len(probs))
	return report
}

// trendRecommendations selects guidance matching the trend direction,
// with an extra note when high-risk periods dominate the history. A
// stable trend reads differently depending on whether the average
// risk is elevated.
func trendRecommendations(direction types.TrendDirection, average float64, riskPeriods, total int) []string {
	var recs []string
	switch direction {
	case types.TrendIncreasing:
		recs = append(recs,
			"Your drift risk has been rising. Consider scheduling a session with your coach this week.",
			"Smaller, more frequent check-ins can help reverse the trend.",
		)
	case types.TrendDecreasing:
		recs = append(recs,
			"Great progress! Your drift risk is coming down. Keep up your current routine.",
		)
	default:
		if average > 0.5 {
			recs = append(recs,
				"Your drift risk is steady but elevated. Let's make some adjustments to your approach.",
			)
		} else {
			recs = append(recs,
				"You're maintaining good momentum. Consider gradually increasing your goals.",
			)
		}
	}
	if riskPeriods > total/2 {
		recs = append(recs,
			"You've had several high-risk periods. Let's identify the triggers and build a prevention plan.",
		)
	}
	return recs
}
