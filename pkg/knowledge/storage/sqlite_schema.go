package storage

// SchemaVersion is the current knowledge base schema version.
const SchemaVersion = 1

// Schema creates the knowledge base tables.
const Schema = `
CREATE TABLE IF NOT EXISTS kb_entries (
    action TEXT NOT NULL,
    reason TEXT NOT NULL,

    compliance_framework TEXT NOT NULL,
    obligation_id TEXT NOT NULL,
    description TEXT NOT NULL,
    category TEXT NOT NULL,
    severity TEXT NOT NULL,

    -- Unix nanoseconds
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    PRIMARY KEY (action, reason)
);

CREATE INDEX IF NOT EXISTS idx_kb_entries_updated_at ON kb_entries(updated_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// InsertSchemaVersion records a schema version once.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version`

const entryColumns = `action, reason, compliance_framework, obligation_id, description, category, severity, created_at, updated_at`
