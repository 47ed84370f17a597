package engine

import "github.com/stridehq/driftwatch/pkg/types"

// AggregateProbability combines indicator severities into a single
// drift probability as the weight-normalized average of severities.
// An empty indicator set yields 0.0. The result is always in [0, 1]
// because each severity is.
func (x *Extractor) AggregateProbability(indicators []types.DriftIndicator) float64 {
	if len(indicators) == 0 {
		return 0
	}
	var weighted, total float64
	for _, ind := range indicators {
		w := x.cfg.weightFor(ind.Name)
		weighted += ind.Severity * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return clamp01(weighted / total)
}
