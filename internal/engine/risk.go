package engine

import "github.com/stridehq/driftwatch/pkg/types"

// Severity cutoffs used by the risk classifier.
const (
	severeIndicator   = 0.8
	elevatedIndicator = 0.6
)

// ClassifyRisk maps a drift probability and its supporting indicators
// to a risk level. The rules are checked most severe first, so the
// probability rule and the indicator-count rule combine as an OR:
//
//	critical: probability > 0.8, or at least 2 indicators above 0.8
//	high:     probability > 0.6, or at least 3 indicators above 0.6
//	medium:   probability > 0.4, or at least 1 indicator above 0.6
//	low:      everything else
func ClassifyRisk(probability float64, indicators []types.DriftIndicator) types.RiskLevel {
	var severe, elevated int
	for _, ind := range indicators {
		if ind.Severity > severeIndicator {
			severe++
		}
		if ind.Severity > elevatedIndicator {
			elevated++
		}
	}
	switch {
	case probability > 0.8 || severe >= 2:
		return types.RiskCritical
	case probability > 0.6 || elevated >= 3:
		return types.RiskHigh
	case probability > 0.4 || elevated >= 1:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}
