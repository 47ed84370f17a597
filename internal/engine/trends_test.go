package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stridehq/driftwatch/pkg/types"
)

func assessmentSeries(probs ...float64) []types.RiskAssessment {
	base := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	out := make([]types.RiskAssessment, len(probs))
	for i, p := range probs {
		out[i] = types.RiskAssessment{
			OwnerID:     "u1",
			Probability: p,
			Level:       types.RiskLow,
			CreatedAt:   base.AddDate(0, 0, 7*i),
		}
	}
	return out
}

func TestAnalyzeAssessmentsIncreasingTrend(t *testing.T) {
	report := AnalyzeAssessments("u1", assessmentSeries(0.1, 0.2, 0.6, 0.8), time.Now())
	if report.Status != StatusSufficientData {
		t.Fatalf("status = %s, want %s", report.Status, StatusSufficientData)
	}
	if report.Direction != types.TrendIncreasing {
		t.Errorf("direction = %s, want increasing", report.Direction)
	}
	if report.HistoricalAverage < 0.149 || report.HistoricalAverage > 0.151 {
		t.Errorf("historical average = %.3f, want 0.15", report.HistoricalAverage)
	}
	if report.RecentAverage < 0.699 || report.RecentAverage > 0.701 {
		t.Errorf("recent average = %.3f, want 0.7", report.RecentAverage)
	}
}

func TestAnalyzeAssessmentsStableWithinBand(t *testing.T) {
	report := AnalyzeAssessments("u1", assessmentSeries(0.4, 0.45, 0.42, 0.48), time.Now())
	if report.Direction != types.TrendStable {
		t.Errorf("direction = %s, want stable", report.Direction)
	}
}

func TestAnalyzeAssessmentsStableRecommendationTracksAverage(t *testing.T) {
	// Stable and low: encourage raising the bar.
	report := AnalyzeAssessments("u1", assessmentSeries(0.4, 0.45, 0.42, 0.48), time.Now())
	if report.Direction != types.TrendStable {
		t.Fatalf("direction = %s, want stable", report.Direction)
	}
	if !containsRec(report.Recommendations, "maintaining good momentum") {
		t.Errorf("expected good-momentum recommendation, got %v", report.Recommendations)
	}

	// Stable but elevated (average above 0.5): suggest adjustments.
	report = AnalyzeAssessments("u1", assessmentSeries(0.6, 0.65, 0.62, 0.68), time.Now())
	if report.Direction != types.TrendStable {
		t.Fatalf("direction = %s, want stable", report.Direction)
	}
	if !containsRec(report.Recommendations, "steady but elevated") {
		t.Errorf("expected elevated recommendation, got %v", report.Recommendations)
	}
}

func containsRec(recs []string, substr string) bool {
	for _, r := range recs {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

func TestAnalyzeAssessmentsDecreasingTrend(t *testing.T) {
	report := AnalyzeAssessments("u1", assessmentSeries(0.8, 0.7, 0.3, 0.2), time.Now())
	if report.Direction != types.TrendDecreasing {
		t.Errorf("direction = %s, want decreasing", report.Direction)
	}
}

func TestAnalyzeAssessmentsInsufficientData(t *testing.T) {
	report := AnalyzeAssessments("u1", assessmentSeries(0.5, 0.6), time.Now())
	if report.Status != StatusInsufficientData {
		t.Errorf("status = %s, want %s", report.Status, StatusInsufficientData)
	}
	if report.Direction != types.TrendStable {
		t.Errorf("direction = %s, want stable", report.Direction)
	}
	if len(report.Recommendations) == 0 {
		t.Error("expected a recommendation even with insufficient data")
	}
	if report.TotalAssessments != 2 {
		t.Errorf("total assessments = %d, want 2", report.TotalAssessments)
	}
}

func TestAnalyzeAssessmentsRiskPeriods(t *testing.T) {
	report := AnalyzeAssessments("u1", assessmentSeries(0.75, 0.85, 0.9, 0.2), time.Now())
	if len(report.RiskPeriods) != 3 {
		t.Fatalf("risk periods = %d, want 3", len(report.RiskPeriods))
	}
	if report.RiskPeriods[0].Severity != "medium" {
		t.Errorf("period 1 severity = %s, want medium", report.RiskPeriods[0].Severity)
	}
	if report.RiskPeriods[1].Severity != "high" {
		t.Errorf("period 2 severity = %s, want high", report.RiskPeriods[1].Severity)
	}
	if report.RiskPeriods[0].Period != "Week 1" {
		t.Errorf("period label = %s, want Week 1", report.RiskPeriods[0].Period)
	}
}

func TestAnalyzeAssessmentsHighRiskMajorityRecommendation(t *testing.T) {
	report := AnalyzeAssessments("u1", assessmentSeries(0.75, 0.8, 0.85, 0.2), time.Now())
	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "several high-risk periods") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected high-risk majority recommendation, got %v", report.Recommendations)
	}

	// A single high-risk period in four does not trigger it.
	report = AnalyzeAssessments("u1", assessmentSeries(0.75, 0.2, 0.3, 0.2), time.Now())
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "several high-risk periods") {
			t.Errorf("unexpected high-risk majority recommendation: %v", report.Recommendations)
		}
	}
}
