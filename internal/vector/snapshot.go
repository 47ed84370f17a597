package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// snapshotSchema holds the table layout for persisted vectors. Embeddings
// are stored as little-endian float64 BLOBs; tombstones are kept so a
// restored store preserves id stability and storage totals.
const snapshotSchema = `
CREATE TABLE IF NOT EXISTS vectors (
	id         INTEGER PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL,
	deleted    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_vectors_owner ON vectors(owner_id);
`

// Snapshot persists a MemoryStore to a SQLite file so the index survives
// restarts. It is a point-in-time dump, not a write-ahead log: callers
// Save periodically (or at shutdown) and Load at startup.
type Snapshot struct {
	db *sql.DB
}

// OpenSnapshot opens (creating if necessary) the snapshot database at path.
func OpenSnapshot(path string) (*Snapshot, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vector: failed to open snapshot database: %w", err)
	}

	// SQLite only supports one concurrent writer; a single connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("vector: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("vector: failed to create schema: %w", err)
	}

	return &Snapshot{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Snapshot) Close() error {
	return s.db.Close()
}

// Save writes the store's full contents to the snapshot database,
// replacing any previous snapshot. Runs in a single transaction so a
// crashed save never leaves a half-written snapshot behind.
func (s *Snapshot) Save(ctx context.Context, store *MemoryStore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vector: failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors"); err != nil {
		return fmt.Errorf("vector: failed to clear previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, owner_id, kind, embedding, metadata, created_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("vector: failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range store.Snapshot() {
		var metadata []byte
		if rec.Metadata != nil {
			metadata, err = json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("vector: failed to marshal metadata for record %d: %w", rec.ID, err)
			}
		}

		deleted := 0
		if rec.Deleted {
			deleted = 1
		}

		_, err = stmt.ExecContext(ctx, rec.ID, rec.OwnerID, rec.Kind,
			encodeEmbedding(rec.Embedding), string(metadata),
			rec.CreatedAt.Format(time.RFC3339Nano), deleted)
		if err != nil {
			return fmt.Errorf("vector: failed to insert record %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vector: failed to commit snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot into a fresh MemoryStore of the given dimension.
// An empty snapshot yields an empty store, not an error.
func (s *Snapshot) Load(ctx context.Context, dimension int) (*MemoryStore, error) {
	store, err := NewMemoryStore(dimension)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, embedding, metadata, created_at, deleted
		FROM vectors
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("vector: failed to read snapshot: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec       Record
			blob      []byte
			metadata  string
			createdAt string
			deleted   int
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Kind, &blob, &metadata, &createdAt, &deleted); err != nil {
			return nil, fmt.Errorf("vector: failed to scan snapshot row: %w", err)
		}

		rec.Embedding, err = decodeEmbedding(blob, dimension)
		if err != nil {
			return nil, fmt.Errorf("vector: record %d: %w", rec.ID, err)
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("vector: record %d has invalid metadata: %w", rec.ID, err)
			}
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("vector: record %d has invalid created_at: %w", rec.ID, err)
		}
		rec.Deleted = deleted != 0

		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector: snapshot iteration failed: %w", err)
	}

	if err := store.Restore(records); err != nil {
		return nil, err
	}
	return store, nil
}
