package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is the current audit schema version.
const SchemaVersion = 1

// Schema creates the audit tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit (
	id         TEXT PRIMARY KEY,
	time       TEXT NOT NULL,
	event      TEXT NOT NULL,
	entity     TEXT NOT NULL,
	operation  TEXT,
	principal  TEXT,
	persona    TEXT,
	outcome    TEXT NOT NULL,
	rule       TEXT,
	bypass     INTEGER NOT NULL DEFAULT 0,
	detail     TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_time      ON audit(time);
CREATE INDEX IF NOT EXISTS idx_audit_entity    ON audit(entity);
CREATE INDEX IF NOT EXISTS idx_audit_principal ON audit(principal);
CREATE INDEX IF NOT EXISTS idx_audit_event     ON audit(event);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

const insertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

const getSchemaVersion = `
SELECT MAX(version) FROM schema_version;
`

// SQLiteConfig contains configuration for the SQLite audit store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the connection pool size. Default: 10.
	MaxOpenConns int

	// MaxIdleConns is the idle connection count. Default: 5.
	MaxIdleConns int

	// WALMode enables write-ahead logging. Default: true.
	WALMode bool

	// BusyTimeout is how long to wait on a locked database. Default: 5s.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies pragmas, and creates the
// schema.
func NewSQLiteStorage(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "open", Cause: err}
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return &StorageError{Backend: "sqlite", Operation: "enable_wal", Cause: err}
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return &StorageError{Backend: "sqlite", Operation: "set_busy_timeout", Cause: err}
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return &StorageError{Backend: "sqlite", Operation: "create_schema", Cause: err}
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return &StorageError{Backend: "sqlite", Operation: "insert_schema_version", Cause: err}
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return &StorageError{Backend: "sqlite", Operation: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{
			Backend:   "sqlite",
			Operation: "schema_version_mismatch",
			Cause:     fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version),
		}
	}
	return nil
}

// Store persists one record.
func (s *SQLiteStorage) Store(ctx context.Context, record *Record) error {
	const query = `
		INSERT INTO audit (id, time, event, entity, operation, principal, persona, outcome, rule, bypass, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	bypass := 0
	if record.Bypass {
		bypass = 1
	}
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.Time.UTC().Format(time.RFC3339Nano),
		string(record.Event),
		record.Entity,
		record.Operation,
		record.Principal,
		record.Persona,
		record.Outcome,
		record.Rule,
		bypass,
		record.Detail,
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Operation: "store", Cause: err}
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, filter *Filter) ([]*Record, error) {
	if filter == nil {
		filter = &Filter{}
	}

	var conds []string
	var args []any
	if filter.Entity != "" {
		conds = append(conds, "entity = ?")
		args = append(args, filter.Entity)
	}
	if filter.Event != "" {
		conds = append(conds, "event = ?")
		args = append(args, string(filter.Event))
	}
	if filter.Principal != "" {
		conds = append(conds, "principal = ?")
		args = append(args, filter.Principal)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "time >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "time < ?")
		args = append(args, filter.Until.UTC().Format(time.RFC3339Nano))
	}

	query := "SELECT id, time, event, entity, operation, principal, persona, outcome, rule, bypass, detail FROM audit"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY time DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "query", Cause: err}
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		var ts string
		var bypass int
		if err := rows.Scan(&r.ID, &ts, &r.Event, &r.Entity, &r.Operation,
			&r.Principal, &r.Persona, &r.Outcome, &r.Rule, &bypass, &r.Detail); err != nil {
			return nil, &StorageError{Backend: "sqlite", Operation: "scan", Cause: err}
		}
		r.Time, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, &StorageError{Backend: "sqlite", Operation: "parse_time", Cause: err}
		}
		r.Bypass = bypass != 0
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "query", Cause: err}
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit").Scan(&n); err != nil {
		return 0, &StorageError{Backend: "sqlite", Operation: "count", Cause: err}
	}
	return n, nil
}

// DeleteBefore removes records older than cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit WHERE time < ?",
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Operation: "delete_before", Cause: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Operation: "rows_affected", Cause: err}
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
