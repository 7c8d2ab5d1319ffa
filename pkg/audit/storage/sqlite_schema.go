package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the audit tables. Times and durations are stored as
// integer nanoseconds so both drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL DEFAULT '',

    action TEXT NOT NULL,
    verdict TEXT NOT NULL,
    connection_type TEXT NOT NULL DEFAULT '',
    permitted INTEGER NOT NULL,
    fallback INTEGER NOT NULL,

    shape_type TEXT NOT NULL DEFAULT '',
    source_type TEXT NOT NULL DEFAULT '',
    target_type TEXT NOT NULL DEFAULT '',
    hover_type TEXT NOT NULL DEFAULT '',
    connection_id TEXT NOT NULL DEFAULT '',
    context_hash TEXT NOT NULL DEFAULT '',

    evaluated_at INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL,

    error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_evaluated_at ON decisions(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_decisions_action ON decisions(action);
CREATE INDEX IF NOT EXISTS idx_decisions_verdict ON decisions(verdict);
CREATE INDEX IF NOT EXISTS idx_decisions_session_id ON decisions(session_id);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const recordColumns = `id, session_id,
	action, verdict, connection_type, permitted, fallback,
	shape_type, source_type, target_type, hover_type, connection_id, context_hash,
	evaluated_at, recorded_at, duration_ns,
	error`
