// Package vector provides an owner-partitioned nearest-neighbor index
// over fixed-dimension embedding vectors, searched by cosine similarity.
//
// The in-memory MemoryStore is the reference implementation: a
// brute-force linear scan per partition, which is the sanctioned
// strategy at the scale this system targets (tens of thousands of
// records per partition). The postgres subpackage offers a
// pgvector-backed implementation of the same Index contract.
package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stridehq/driftwatch/internal/storage"
)

// ErrDimensionMismatch is returned when an embedding's length does not
// match the store's configured dimension. It wraps storage.ErrInvalidInput
// so callers can treat it as a validation failure.
var ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch", storage.ErrInvalidInput)

// ErrEmptyQuery is returned when Search is called with an empty query vector.
var ErrEmptyQuery = errors.New("query vector is empty")

// Record is a stored embedding with its metadata. Records are soft
// deleted: Deleted flips to true on a tombstone request, but the record
// is physically retained so ids stay stable and storage totals are
// auditable.
type Record struct {
	ID        int64                  `json:"id"`
	OwnerID   string                 `json:"owner_id"`
	Kind      string                 `json:"kind"`
	Embedding []float64              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Deleted   bool                   `json:"deleted"`
}

// SearchResult pairs a record with its cosine similarity to the query.
type SearchResult struct {
	Record     *Record `json:"record"`
	Similarity float64 `json:"similarity"`
}

// Stats summarizes the store's contents. Total counts every record ever
// inserted, including tombstoned ones; Active excludes them.
type Stats struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Partitions int `json:"partitions"`
	Dimension  int `json:"dimension"`
}

// Index is the standalone, reusable similarity-store contract.
type Index interface {
	// Add stores an embedding for the owner and returns its id.
	// Fails with ErrDimensionMismatch if the embedding length does not
	// match the configured dimension.
	Add(ctx context.Context, ownerID, kind string, embedding []float64, metadata map[string]interface{}) (int64, error)

	// Search returns up to k records ranked by cosine similarity,
	// descending, ties broken by most recent CreatedAt first. When
	// ownerID is non-empty the search is restricted to that partition.
	// An empty scope yields an empty slice, not an error.
	Search(ctx context.Context, query []float64, k int, ownerID string) ([]SearchResult, error)

	// Delete tombstones every record in the owner's partition and
	// returns the number of records affected.
	Delete(ctx context.Context, ownerID string) (int, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (Stats, error)
}
