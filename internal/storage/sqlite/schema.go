package sqlite

// Schema contains the complete database schema for the DriftWatch SQLite
// backend. Events are immutable once inserted; assessments form an
// append-only log consumed by the trend analyzer.
const Schema = `
-- Events table: immutable behavioral activity records
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	kind       TEXT NOT NULL CHECK (kind IN ('behavior', 'checkin', 'goal')),
	timestamp  TIMESTAMP NOT NULL,
	mood       REAL NOT NULL DEFAULT 0,
	energy     REAL NOT NULL DEFAULT 0,
	title      TEXT NOT NULL DEFAULT '',
	progress   REAL NOT NULL DEFAULT 0,
	completed  INTEGER NOT NULL DEFAULT 0,
	label      TEXT NOT NULL DEFAULT '',
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_owner_timestamp ON events(owner_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_owner_kind ON events(owner_id, kind);

-- Assessments table: append-only risk assessment history
CREATE TABLE IF NOT EXISTS assessments (
	id             TEXT PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	probability    REAL NOT NULL CHECK (probability >= 0 AND probability <= 1),
	level          TEXT NOT NULL CHECK (level IN ('low', 'medium', 'high', 'critical')),
	indicators     TEXT NOT NULL,
	confidence     REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
	timeframe_days INTEGER NOT NULL,
	created_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_owner_created ON assessments(owner_id, created_at);
`
