// Package postgres provides a pgvector-backed implementation of the
// vector.Index contract for deployments that outgrow the in-memory store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/stridehq/driftwatch/internal/vector"
)

// Store implements vector.Index on PostgreSQL with the pgvector
// extension. Cosine ranking happens in the database via the <=>
// operator; the external contract (soft delete, stable ids, tie-break
// by most recent created_at) matches the in-memory store.
type Store struct {
	db        *sql.DB
	dimension int
}

// NewStore connects to PostgreSQL and prepares the vectors table.
// It fails if the pgvector extension cannot be enabled: unlike the
// memory-store fallback paths, a degraded similarity index here would
// silently change search semantics.
func NewStore(connStr string, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", vector.ErrDimensionMismatch, dimension)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: pgvector extension not available: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS vectors (
			id         BIGSERIAL PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			kind       TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			metadata   JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted    BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_vectors_owner ON vectors(owner_id);
	`, dimension)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to create schema: %w", err)
	}

	return &Store{db: db, dimension: dimension}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores an embedding for the owner and returns its database-assigned id.
func (s *Store) Add(ctx context.Context, ownerID, kind string, embedding []float64, metadata map[string]interface{}) (int64, error) {
	if len(embedding) != s.dimension {
		return 0, fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(embedding), s.dimension)
	}

	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("postgres: failed to marshal metadata: %w", err)
		}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO vectors (owner_id, kind, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, ownerID, kind, toPgVector(embedding), metadataJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to insert vector: %w", err)
	}
	return id, nil
}

// Search ranks non-deleted records by cosine similarity descending, ties
// broken by most recent created_at first, and returns at most k results.
func (s *Store) Search(ctx context.Context, query []float64, k int, ownerID string) ([]vector.SearchResult, error) {
	if len(query) == 0 {
		return nil, vector.ErrEmptyQuery
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(query), s.dimension)
	}
	if k <= 0 {
		return []vector.SearchResult{}, nil
	}

	// pgvector's <=> operator is cosine distance; similarity = 1 - distance.
	querySQL := `
		SELECT id, owner_id, kind, embedding, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM vectors
		WHERE NOT deleted
	`
	args := []interface{}{toPgVector(query)}
	if ownerID != "" {
		querySQL += " AND owner_id = $2"
		args = append(args, ownerID)
	}
	querySQL += fmt.Sprintf(" ORDER BY similarity DESC, created_at DESC, id DESC LIMIT $%d", len(args)+1)
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: vector search failed: %w", err)
	}
	defer rows.Close()

	results := []vector.SearchResult{}
	for rows.Next() {
		var (
			rec          vector.Record
			vec          pgvector.Vector
			metadataJSON []byte
			createdAt    time.Time
			similarity   float64
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Kind, &vec, &metadataJSON, &createdAt, &similarity); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan search row: %w", err)
		}
		rec.Embedding = fromPgVector(vec)
		rec.CreatedAt = createdAt
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: record %d has invalid metadata: %w", rec.ID, err)
			}
		}
		results = append(results, vector.SearchResult{Record: &rec, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search iteration failed: %w", err)
	}
	return results, nil
}

// Delete tombstones every record in the owner's partition.
func (s *Store) Delete(ctx context.Context, ownerID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE vectors SET deleted = TRUE
		WHERE owner_id = $1 AND NOT deleted
	`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to delete partition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	return int(affected), nil
}

// Stats returns storage statistics. Partitions counts owners with at
// least one non-deleted record.
func (s *Store) Stats(ctx context.Context) (vector.Stats, error) {
	stats := vector.Stats{Dimension: s.dimension}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT deleted),
		       COUNT(DISTINCT owner_id) FILTER (WHERE NOT deleted)
		FROM vectors
	`).Scan(&stats.Total, &stats.Active, &stats.Partitions)
	if err != nil {
		return vector.Stats{}, fmt.Errorf("postgres: failed to read stats: %w", err)
	}
	return stats, nil
}

// toPgVector converts a float64 slice to pgvector's float32 representation.
func toPgVector(v []float64) pgvector.Vector {
	f32 := make([]float32, len(v))
	for i, x := range v {
		f32[i] = float32(x)
	}
	return pgvector.NewVector(f32)
}

// fromPgVector converts back to the float64 representation used in the core.
func fromPgVector(v pgvector.Vector) []float64 {
	f32 := v.Slice()
	f64 := make([]float64, len(f32))
	for i, x := range f32 {
		f64[i] = float64(x)
	}
	return f64
}
