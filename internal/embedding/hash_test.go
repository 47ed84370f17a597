package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "checkin Mon 07:00 mood 4")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "checkin Mon 07:00 mood 4")
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical text must produce identical vectors")
}

func TestHashEmbedder_DistinctTextsDiffer(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "morning run")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "late night snack")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	e := NewHashEmbedder(128)

	vec, err := e.Embed(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, vec, 128)

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestHashEmbedder_DimensionDefault(t *testing.T) {
	assert.Equal(t, 384, NewHashEmbedder(0).Dimension())
	assert.Equal(t, 384, NewHashEmbedder(-5).Dimension())
	assert.Equal(t, 32, NewHashEmbedder(32).Dimension())
}
