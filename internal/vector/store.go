package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is the in-memory Index implementation.
//
// Concurrency model: the partitions map is guarded by mu; each partition
// carries its own RWMutex so that writes to one owner's partition never
// block searches over other partitions. A search racing a write to its
// own partition observes either the pre-write or post-write record list,
// never a partially applied insert.
type MemoryStore struct {
	dimension int
	nextID    atomic.Int64

	mu         sync.RWMutex
	partitions map[string]*partition
}

type partition struct {
	mu      sync.RWMutex
	records []*Record
	active  int
}

// NewMemoryStore creates an in-memory store for vectors of the given
// dimension. The dimension is fixed for the store's lifetime.
func NewMemoryStore(dimension int) (*MemoryStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}
	return &MemoryStore{
		dimension:  dimension,
		partitions: make(map[string]*partition),
	}, nil
}

// Dimension returns the store's configured embedding dimension.
func (s *MemoryStore) Dimension() int {
	return s.dimension
}

// Add stores an embedding for the owner and returns its id. Ids are a
// monotonically increasing sequence, stable for the store's lifetime.
func (s *MemoryStore) Add(ctx context.Context, ownerID, kind string, embedding []float64, metadata map[string]interface{}) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(embedding) != s.dimension {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), s.dimension)
	}

	rec := &Record{
		ID:        s.nextID.Add(1),
		OwnerID:   ownerID,
		Kind:      kind,
		Embedding: append([]float64(nil), embedding...),
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	p := s.getOrCreatePartition(ownerID)
	p.mu.Lock()
	p.records = append(p.records, rec)
	p.active++
	p.mu.Unlock()

	return rec.ID, nil
}

// Search scans the scoped partitions and returns up to k records ranked
// by cosine similarity descending. Ties are broken by most recent
// CreatedAt, then by higher id, so results are deterministic.
func (s *MemoryStore) Search(ctx context.Context, query []float64, k int, ownerID string) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, ErrEmptyQuery
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), s.dimension)
	}
	if k <= 0 {
		return []SearchResult{}, nil
	}

	var scope []*partition
	s.mu.RLock()
	if ownerID != "" {
		if p, ok := s.partitions[ownerID]; ok {
			scope = []*partition{p}
		}
	} else {
		scope = make([]*partition, 0, len(s.partitions))
		for _, p := range s.partitions {
			scope = append(scope, p)
		}
	}
	s.mu.RUnlock()

	var results []SearchResult
	for _, p := range scope {
		p.mu.RLock()
		for _, rec := range p.records {
			if rec.Deleted {
				continue
			}
			results = append(results, SearchResult{
				Record:     rec,
				Similarity: CosineSimilarity(query, rec.Embedding),
			})
		}
		p.mu.RUnlock()
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if !results[i].Record.CreatedAt.Equal(results[j].Record.CreatedAt) {
			return results[i].Record.CreatedAt.After(results[j].Record.CreatedAt)
		}
		return results[i].Record.ID > results[j].Record.ID
	})

	if len(results) > k {
		results = results[:k]
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, nil
}

// Delete tombstones every record in the owner's partition. The records
// are retained so ids remain stable and Stats().Total is unchanged.
func (s *MemoryStore) Delete(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	p, ok := s.partitions[ownerID]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, rec := range p.records {
		if !rec.Deleted {
			rec.Deleted = true
			count++
		}
	}
	p.active -= count
	return count, nil
}

// Stats returns storage statistics. Partitions counts owners with at
// least one non-deleted record.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Dimension: s.dimension}

	s.mu.RLock()
	parts := make([]*partition, 0, len(s.partitions))
	for _, p := range s.partitions {
		parts = append(parts, p)
	}
	s.mu.RUnlock()

	for _, p := range parts {
		p.mu.RLock()
		stats.Total += len(p.records)
		stats.Active += p.active
		if p.active > 0 {
			stats.Partitions++
		}
		p.mu.RUnlock()
	}
	return stats, nil
}

// Snapshot returns a copy of every record in the store, including
// tombstoned ones, for persistence. The returned records share their
// embedding slices with the store; callers must treat them as read-only.
func (s *MemoryStore) Snapshot() []*Record {
	s.mu.RLock()
	parts := make([]*partition, 0, len(s.partitions))
	for _, p := range s.partitions {
		parts = append(parts, p)
	}
	s.mu.RUnlock()

	var records []*Record
	for _, p := range parts {
		p.mu.RLock()
		records = append(records, p.records...)
		p.mu.RUnlock()
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Restore loads records into an empty store, preserving their ids and
// tombstones. It is intended for snapshot recovery at startup and must
// not be mixed with concurrent Adds.
func (s *MemoryStore) Restore(records []*Record) error {
	var maxID int64
	for _, rec := range records {
		if len(rec.Embedding) != s.dimension {
			return fmt.Errorf("%w: record %d has dimension %d, want %d",
				ErrDimensionMismatch, rec.ID, len(rec.Embedding), s.dimension)
		}
		p := s.getOrCreatePartition(rec.OwnerID)
		p.mu.Lock()
		p.records = append(p.records, rec)
		if !rec.Deleted {
			p.active++
		}
		p.mu.Unlock()
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}
	if maxID > s.nextID.Load() {
		s.nextID.Store(maxID)
	}
	return nil
}

func (s *MemoryStore) getOrCreatePartition(ownerID string) *partition {
	s.mu.RLock()
	p, ok := s.partitions[ownerID]
	s.mu.RUnlock()
	if ok {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.partitions[ownerID]; ok {
		return p
	}
	p = &partition{}
	s.partitions[ownerID] = p
	return p
}

// CosineSimilarity computes the cosine similarity between two equal-length
// vectors. A zero-norm vector yields similarity 0.
func CosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
