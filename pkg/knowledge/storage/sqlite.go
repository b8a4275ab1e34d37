package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/verdict/pkg/compliance"
)

// SQLite drivers.
const (
	// DriverPure selects modernc.org/sqlite.
	DriverPure = "pure"

	// DriverCGO selects github.com/mattn/go-sqlite3.
	DriverCGO = "cgo"
)

// SQLiteConfig configures SQLiteStorage.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is DriverPure or DriverCGO. Default: DriverPure.
	Driver string

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/knowledge.db",
		Driver:      DriverPure,
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStorage is a Backend persisting entries in SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
	now    func() time.Time

	getStmt   *sql.Stmt
	putStmt   *sql.Stmt
	pruneStmt *sql.Stmt
}

// sqlDriverName maps a configured driver to its database/sql name.
func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverPure, "":
		return "sqlite", nil
	case DriverCGO:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unknown sqlite driver %q (expected %q or %q)", driver, DriverPure, DriverCGO)
	}
}

// NewSQLiteStorage opens the database, creates the schema when missing and
// verifies its version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, NewStorageError("sqlite", "open", errors.New("database path cannot be empty"))
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	driverName, err := sqlDriverName(config.Driver)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	logger := slog.Default().With("component", "knowledge.storage.sqlite")

	db, err := sql.Open(driverName, config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	// One connection keeps per-connection pragmas in effect and matches
	// SQLite's single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
		now:    time.Now,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite knowledge base initialized",
		"path", config.Path,
		"driver", driverName,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if !version.Valid || version.Int64 != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}
	return nil
}

func (s *SQLiteStorage) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`
		SELECT compliance_framework, obligation_id, description, category, severity
		FROM kb_entries
		WHERE action = ? AND reason = ?
	`)
	if err != nil {
		return NewStorageError("sqlite", "prepare_get", err)
	}

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO kb_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (action, reason) DO UPDATE SET
			compliance_framework = excluded.compliance_framework,
			obligation_id = excluded.obligation_id,
			description = excluded.description,
			category = excluded.category,
			severity = excluded.severity,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return NewStorageError("sqlite", "prepare_put", err)
	}

	s.pruneStmt, err = s.db.Prepare(`DELETE FROM kb_entries WHERE updated_at < ?`)
	if err != nil {
		return NewStorageError("sqlite", "prepare_prune", err)
	}
	return nil
}

// Get implements knowledge.Store.
func (s *SQLiteStorage) Get(ctx context.Context, key compliance.PairKey) (*compliance.Entry, error) {
	var e compliance.Entry
	err := s.getStmt.QueryRowContext(ctx, key.Action, key.Reason).Scan(
		&e.ComplianceFramework, &e.ObligationID, &e.Description, &e.Category, &e.Severity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "get", err)
	}
	return &e, nil
}

// Put implements knowledge.Store.
func (s *SQLiteStorage) Put(ctx context.Context, key compliance.PairKey, entry compliance.Entry) error {
	now := s.now().UnixNano()
	_, err := s.putStmt.ExecContext(ctx,
		key.Action, key.Reason,
		entry.ComplianceFramework, entry.ObligationID, entry.Description, entry.Category, entry.Severity,
		now, now,
	)
	if err != nil {
		return NewStorageError("sqlite", "put", err)
	}
	return nil
}

// List implements Backend.
func (s *SQLiteStorage) List(ctx context.Context, limit int) ([]StoredEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM kb_entries ORDER BY updated_at DESC, action, reason`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryEntries(ctx, "list", query, args...)
}

// Search implements Backend.
func (s *SQLiteStorage) Search(ctx context.Context, term string) ([]StoredEntry, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	query := `SELECT ` + entryColumns + ` FROM kb_entries
		WHERE action LIKE ? ESCAPE '\'
		   OR reason LIKE ? ESCAPE '\'
		   OR description LIKE ? ESCAPE '\'
		   OR compliance_framework LIKE ? ESCAPE '\'
		   OR obligation_id LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, action, reason`
	return s.queryEntries(ctx, "search", query, pattern, pattern, pattern, pattern, pattern)
}

// Stats implements Backend.
func (s *SQLiteStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := newStats()

	var oldest, newest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(updated_at), MAX(updated_at) FROM kb_entries`,
	).Scan(&stats.Entries, &oldest, &newest)
	if err != nil {
		return nil, NewStorageError("sqlite", "stats", err)
	}
	if oldest.Valid {
		stats.Oldest = time.Unix(0, oldest.Int64)
	}
	if newest.Valid {
		stats.Newest = time.Unix(0, newest.Int64)
	}

	groups := []struct {
		column string
		into   map[string]int
	}{
		{"compliance_framework", stats.Frameworks},
		{"category", stats.Categories},
		{"severity", stats.Severities},
	}
	for _, g := range groups {
		if err := s.countBy(ctx, g.column, g.into); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// countBy fills into with entry counts grouped by column. column must be a
// trusted identifier.
func (s *SQLiteStorage) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM kb_entries GROUP BY %s`, column, column))
	if err != nil {
		return NewStorageError("sqlite", "stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return NewStorageError("sqlite", "stats", err)
		}
		into[value] = count
	}
	if err := rows.Err(); err != nil {
		return NewStorageError("sqlite", "stats", err)
	}
	return nil
}

// Prune implements Backend.
func (s *SQLiteStorage) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.pruneStmt.ExecContext(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, NewStorageError("sqlite", "prune", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "prune", err)
	}
	return int(n), nil
}

// Close implements Backend.
func (s *SQLiteStorage) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.putStmt, s.pruneStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	return nil
}

func (s *SQLiteStorage) queryEntries(ctx context.Context, op, query string, args ...any) ([]StoredEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", op, err)
	}
	defer rows.Close()

	out := make([]StoredEntry, 0)
	for rows.Next() {
		var e StoredEntry
		var created, updated int64
		if err := rows.Scan(
			&e.Key.Action, &e.Key.Reason,
			&e.Entry.ComplianceFramework, &e.Entry.ObligationID, &e.Entry.Description,
			&e.Entry.Category, &e.Entry.Severity,
			&created, &updated,
		); err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		e.CreatedAt = time.Unix(0, created)
		e.UpdatedAt = time.Unix(0, updated)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", op, err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
