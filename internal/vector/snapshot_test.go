package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := OpenSnapshot(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = snap.Close() })
	return snap
}

func TestSnapshot_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	snap := newTestSnapshot(t)

	store, err := NewMemoryStore(4)
	require.NoError(t, err)

	query := []float64{1, 0, 0, 0}
	id1, err := store.Add(ctx, "u1", "behavior", query, map[string]interface{}{"label": "run"})
	require.NoError(t, err)
	_, err = store.Add(ctx, "u1", "checkin", []float64{0, 1, 0, 0}, nil)
	require.NoError(t, err)
	_, err = store.Add(ctx, "u2", "behavior", query, nil)
	require.NoError(t, err)

	// Tombstones survive the round trip too.
	_, err = store.Delete(ctx, "u2")
	require.NoError(t, err)

	require.NoError(t, snap.Save(ctx, store))

	restored, err := snap.Load(ctx, 4)
	require.NoError(t, err)

	origStats, err := store.Stats(ctx)
	require.NoError(t, err)
	restoredStats, err := restored.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, origStats, restoredStats)

	results, err := restored.Search(ctx, query, 10, "u1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, id1, results[0].Record.ID, "ids are preserved across restore")
	assert.Equal(t, "run", results[0].Record.Metadata["label"])

	// u2 stays tombstoned after restore.
	results, err = restored.Search(ctx, query, 10, "u2")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSnapshot_IDSequenceContinues(t *testing.T) {
	ctx := context.Background()
	snap := newTestSnapshot(t)

	store, err := NewMemoryStore(2)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = store.Add(ctx, "u1", "behavior", []float64{1, 0}, nil)
		require.NoError(t, err)
	}
	require.NoError(t, snap.Save(ctx, store))

	restored, err := snap.Load(ctx, 2)
	require.NoError(t, err)

	id, err := restored.Add(ctx, "u1", "behavior", []float64{0, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id, "id sequence resumes past restored records")
}

func TestSnapshot_SaveReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	snap := newTestSnapshot(t)

	first, err := NewMemoryStore(2)
	require.NoError(t, err)
	_, err = first.Add(ctx, "u1", "behavior", []float64{1, 0}, nil)
	require.NoError(t, err)
	require.NoError(t, snap.Save(ctx, first))

	second, err := NewMemoryStore(2)
	require.NoError(t, err)
	_, err = second.Add(ctx, "u2", "behavior", []float64{0, 1}, nil)
	require.NoError(t, err)
	require.NoError(t, snap.Save(ctx, second))

	restored, err := snap.Load(ctx, 2)
	require.NoError(t, err)

	stats, err := restored.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	results, err := restored.Search(ctx, []float64{0, 1}, 10, "u2")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSnapshot_EmptyLoad(t *testing.T) {
	ctx := context.Background()
	snap := newTestSnapshot(t)

	restored, err := snap.Load(ctx, 8)
	require.NoError(t, err)

	stats, err := restored.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}
