// Package sqlite implements the DriftWatch storage interfaces on SQLite
// via modernc.org/sqlite (no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/stridehq/driftwatch/internal/storage"
	"github.com/stridehq/driftwatch/pkg/types"
)

// Store implements storage.EventStore and storage.AssessmentHistory on a
// single SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if necessary) the database at dsn, enables WAL
// mode, and applies the schema.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open
	// connection serialises writes and avoids SQLITE_BUSY errors under
	// concurrent load; WAL mode lets readers proceed without blocking
	// the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetDB exposes the underlying database connection for stats queries.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreEvent persists a single immutable event. An empty ID is assigned
// a UUID. Returns storage.ErrInvalidInput on validation failure.
func (s *Store) StoreEvent(ctx context.Context, event *types.Event) error {
	if event == nil {
		return fmt.Errorf("%w: event is required", storage.ErrInvalidInput)
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: failed to marshal event metadata: %w", err)
		}
	}

	completed := 0
	if event.Completed {
		completed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, owner_id, kind, timestamp, mood, energy, title, progress, completed, label, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.OwnerID, string(event.Kind),
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Mood, event.Energy, event.Title, event.Progress, completed,
		event.Label, string(metadata))
	if err != nil {
		return fmt.Errorf("sqlite: failed to store event: %w", err)
	}
	return nil
}

// FetchEvents returns the owner's events matching the query, sorted by
// timestamp ascending. Absence of data yields an empty slice, not an error.
func (s *Store) FetchEvents(ctx context.Context, q storage.EventQuery) ([]types.Event, error) {
	if q.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner_id is required", storage.ErrInvalidInput)
	}
	q.Normalize()

	query := `
		SELECT id, owner_id, kind, timestamp, mood, energy, title, progress, completed, label, metadata
		FROM events
		WHERE owner_id = ?
	`
	args := []interface{}{q.OwnerID}

	if len(q.Kinds) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Kinds)), ",")
		query += " AND kind IN (" + placeholders + ")"
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	if !q.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, q.Since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY timestamp ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrDataUnavailable, err)
	}
	defer rows.Close()

	events := []types.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrDataUnavailable, err)
	}
	return events, nil
}

// AppendAssessment records one assessment in the append-only log.
func (s *Store) AppendAssessment(ctx context.Context, a *types.RiskAssessment) error {
	if a == nil {
		return fmt.Errorf("%w: assessment is required", storage.ErrInvalidInput)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	indicators, err := json.Marshal(a.Indicators)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal indicators: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, owner_id, probability, level, indicators, confidence, timeframe_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.OwnerID, a.Probability, string(a.Level), string(indicators),
		a.Confidence, a.TimeframeDays, a.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: failed to append assessment: %w", err)
	}
	return nil
}

// ReadAssessments returns the owner's assessments with CreatedAt >= Since,
// sorted by CreatedAt ascending (oldest first).
func (s *Store) ReadAssessments(ctx context.Context, ownerID string, q storage.AssessmentQuery) ([]types.RiskAssessment, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner_id is required", storage.ErrInvalidInput)
	}

	query := `
		SELECT id, owner_id, probability, level, indicators, confidence, timeframe_days, created_at
		FROM assessments
		WHERE owner_id = ?
	`
	args := []interface{}{ownerID}
	if !q.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, q.Since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY created_at ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrDataUnavailable, err)
	}
	defer rows.Close()

	assessments := []types.RiskAssessment{}
	for rows.Next() {
		var (
			a          types.RiskAssessment
			level      string
			indicators string
			createdAt  string
		)
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Probability, &level,
			&indicators, &a.Confidence, &a.TimeframeDays, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan assessment: %w", err)
		}
		a.Level = types.RiskLevel(level)
		if err := json.Unmarshal([]byte(indicators), &a.Indicators); err != nil {
			return nil, fmt.Errorf("sqlite: assessment %s has invalid indicators: %w", a.ID, err)
		}
		a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: assessment %s has invalid created_at: %w", a.ID, err)
		}
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrDataUnavailable, err)
	}
	return assessments, nil
}

// CountEvents returns the total number of stored events, for the stats
// endpoint.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count events: %w", err)
	}
	return count, nil
}

// CountAssessments returns the total number of recorded assessments.
func (s *Store) CountAssessments(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count assessments: %w", err)
	}
	return count, nil
}

// scanEvent reads one event row.
func scanEvent(rows *sql.Rows) (types.Event, error) {
	var (
		event     types.Event
		kind      string
		timestamp string
		completed int
		metadata  string
	)
	if err := rows.Scan(&event.ID, &event.OwnerID, &kind, &timestamp,
		&event.Mood, &event.Energy, &event.Title, &event.Progress,
		&completed, &event.Label, &metadata); err != nil {
		return types.Event{}, fmt.Errorf("sqlite: failed to scan event: %w", err)
	}

	event.Kind = types.EventKind(kind)
	event.Completed = completed != 0

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return types.Event{}, fmt.Errorf("sqlite: event %s has invalid timestamp: %w", event.ID, err)
	}
	event.Timestamp = ts

	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &event.Metadata); err != nil {
			return types.Event{}, fmt.Errorf("sqlite: event %s has invalid metadata: %w", event.ID, err)
		}
	}
	return event, nil
}
