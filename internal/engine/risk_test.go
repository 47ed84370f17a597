package engine

import (
	"testing"

	"github.com/stridehq/driftwatch/pkg/types"
)

func withSeverities(severities ...float64) []types.DriftIndicator {
	out := make([]types.DriftIndicator, len(severities))
	for i, s := range severities {
		out[i] = types.DriftIndicator{
			Name:     types.IndicatorCheckinFrequency,
			Severity: s,
			Trend:    types.TrendStable,
		}
	}
	return out
}

func TestClassifyRisk(t *testing.T) {
	cases := []struct {
		name        string
		probability float64
		indicators  []types.DriftIndicator
		want        types.RiskLevel
	}{
		{"high probability alone is critical", 0.85, nil, types.RiskCritical},
		{"two severe indicators force critical", 0.3, withSeverities(0.85, 0.9), types.RiskCritical},
		{"probability above 0.6 is high", 0.65, nil, types.RiskHigh},
		{"three elevated indicators force high", 0.2, withSeverities(0.65, 0.7, 0.62), types.RiskHigh},
		{"moderate probability with one elevated indicator is medium", 0.5, withSeverities(0.65), types.RiskMedium},
		{"single elevated indicator alone is medium", 0.1, withSeverities(0.65), types.RiskMedium},
		{"probability above 0.4 is medium", 0.45, nil, types.RiskMedium},
		{"quiet signals are low", 0.3, withSeverities(0.2, 0.4), types.RiskLow},
		{"empty input is low", 0, nil, types.RiskLow},
		{"boundaries are exclusive", 0.8, withSeverities(0.8), types.RiskHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyRisk(tc.probability, tc.indicators); got != tc.want {
				t.Errorf("ClassifyRisk(%.2f, %d indicators) = %s, want %s",
					tc.probability, len(tc.indicators), got, tc.want)
			}
		})
	}
}

func TestClassifyRiskMonotonicInProbability(t *testing.T) {
	indicators := withSeverities(0.5)
	prev := types.RiskLow
	for p := 0.0; p <= 1.0; p += 0.05 {
		level := ClassifyRisk(p, indicators)
		if level.Rank() < prev.Rank() {
			t.Fatalf("risk level dropped from %s to %s as probability rose to %.2f", prev, level, p)
		}
		prev = level
	}
}
