package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stridehq/driftwatch/internal/embedding"
	"github.com/stridehq/driftwatch/internal/vector"
	"github.com/stridehq/driftwatch/pkg/types"
)

// ErrNoPattern indicates a user has no stored behavior patterns yet,
// so no consistency score can be computed. Callers omit the pattern
// deviation indicator rather than treating this as a failure.
var ErrNoPattern = errors.New("no stored behavior patterns")

// PatternAnalyzer indexes behavior summaries in the similarity store
// and scores how consistent recent behavior is with what is stored.
type PatternAnalyzer struct {
	index     vector.Index
	embedder  embedding.Embedder
	neighbors int
}

// NewPatternAnalyzer wires an analyzer to a vector index and an
// embedder. neighbors controls how many stored patterns each
// consistency lookup compares against.
func NewPatternAnalyzer(index vector.Index, embedder embedding.Embedder, neighbors int) *PatternAnalyzer {
	if neighbors <= 0 {
		neighbors = 10
	}
	return &PatternAnalyzer{index: index, embedder: embedder, neighbors: neighbors}
}

// IndexEvents embeds each event's summary and adds it to the owner's
// partition. The per-batch interval consistency is stored alongside so
// stored patterns carry their own regularity signal.
func (p *PatternAnalyzer) IndexEvents(ctx context.Context, events []types.Event) error {
	if len(events) == 0 {
		return nil
	}
	regularity := intervalConsistency(events)
	for i := range events {
		e := &events[i]
		emb, err := p.embedder.Embed(ctx, e.Summary())
		if err != nil {
			return fmt.Errorf("embed event %s: %w", e.ID, err)
		}
		_, err = p.index.Add(ctx, e.OwnerID, string(e.Kind), emb, map[string]interface{}{
			"event_id":             e.ID,
			"summary":              e.Summary(),
			"interval_consistency": regularity,
		})
		if err != nil {
			return fmt.Errorf("index event %s: %w", e.ID, err)
		}
	}
	return nil
}

// ConsistencyScore embeds a rendering of the user's recent behavior
// and averages its similarity against the nearest stored patterns in
// the owner's partition. Returns ErrNoPattern when nothing is stored
// or no recent events exist.
func (p *PatternAnalyzer) ConsistencyScore(ctx context.Context, ownerID string, recent []types.Event) (float64, error) {
	if len(recent) == 0 {
		return 0, ErrNoPattern
	}
	emb, err := p.embedder.Embed(ctx, renderPattern(recent))
	if err != nil {
		return 0, fmt.Errorf("embed recent pattern: %w", err)
	}
	results, err := p.index.Search(ctx, emb, p.neighbors, ownerID)
	if err != nil {
		return 0, fmt.Errorf("search patterns for %s: %w", ownerID, err)
	}
	if len(results) == 0 {
		return 0, ErrNoPattern
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Similarity
	}
	return clamp01(sum / float64(len(results))), nil
}

// renderPattern joins the most recent event summaries into one text
// block for embedding. At most ten summaries keep the rendering
// stable as history grows.
func renderPattern(events []types.Event) string {
	start := 0
	if len(events) > 10 {
		start = len(events) - 10
	}
	lines := make([]string, 0, len(events)-start)
	for _, e := range events[start:] {
		lines = append(lines, e.Summary())
	}
	return strings.Join(lines, "\n")
}

// intervalConsistency scores how regular the gaps between events are:
// one minus the coefficient of variation of inter-event intervals,
// floored at zero. A single gap scores perfectly regular.
func intervalConsistency(events []types.Event) float64 {
	if len(events) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		gaps = append(gaps, events[i].Timestamp.Sub(events[i-1].Timestamp).Hours())
	}
	m := mean(gaps)
	if m <= 0 {
		return 0
	}
	cv := stddev(gaps) / m
	if cv >= 1 {
		return 0
	}
	return 1 - cv
}
