package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteRecorder implements Recorder with a SQLite-backed trail. It is
// suitable for single-instance deployments where the trail must survive
// restarts.
//
// The database uses a write-ahead log (WAL) for better concurrent read
// performance. Writes are serialized through a single connection.
type SQLiteRecorder struct {
	db        *sql.DB
	path      string
	mu        sync.RWMutex
	closeOnce sync.Once

	// preparedStatements contains pre-compiled SQL statements for performance
	insertStmt  *sql.Stmt
	cleanupStmt *sql.Stmt
}

// SQLiteRecorderConfig configures the SQLite recorder.
type SQLiteRecorderConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteRecorder creates a SQLite recorder with default settings.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	return NewSQLiteRecorderWithConfig(SQLiteRecorderConfig{Path: path})
}

// NewSQLiteRecorderWithConfig creates a SQLite recorder with custom
// configuration.
func NewSQLiteRecorderWithConfig(cfg SQLiteRecorderConfig) (*SQLiteRecorder, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// Open database with WAL mode and busy timeout
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	rec := &SQLiteRecorder{
		db:   db,
		path: cfg.Path,
	}

	if err := rec.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := rec.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return rec, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteRecorder) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admission_log (
		id TEXT PRIMARY KEY,
		recorded_at INTEGER NOT NULL,
		event TEXT NOT NULL,
		request_id TEXT NOT NULL,
		priority TEXT NOT NULL,
		tokens INTEGER NOT NULL,
		tier TEXT NOT NULL,
		wait_ms INTEGER NOT NULL,
		detail TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_admission_recorded_at ON admission_log(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_admission_event ON admission_log(event);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteRecorder) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO admission_log (id, recorded_at, event, request_id, priority, tokens, tier, wait_ms, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`
		DELETE FROM admission_log
		WHERE recorded_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Record appends one entry to the trail.
func (s *SQLiteRecorder) Record(ctx context.Context, e Entry) error {
	normalize(&e)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.insertStmt.ExecContext(ctx,
		e.ID,
		e.Time.UnixMilli(),
		string(e.Event),
		e.RequestID,
		e.Priority,
		e.Tokens,
		e.Tier,
		e.Wait.Milliseconds(),
		e.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record entry: %w", err)
	}

	return nil
}

// Query returns entries matching the filter, newest first.
func (s *SQLiteRecorder) Query(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	if f.Event != "" {
		conds = append(conds, "event = ?")
		args = append(args, string(f.Event))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, f.Since.UnixMilli())
	}

	query := "SELECT id, recorded_at, event, request_id, priority, tokens, tier, wait_ms, detail FROM admission_log"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY recorded_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			recordedAt int64
			event      string
			waitMS     int64
		)
		if err := rows.Scan(&e.ID, &recordedAt, &event, &e.RequestID, &e.Priority, &e.Tokens, &e.Tier, &waitMS, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Time = time.UnixMilli(recordedAt)
		e.Event = Event(event)
		e.Wait = time.Duration(waitMS) * time.Millisecond
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// Cleanup removes entries recorded before the cutoff and reports how many
// were removed.
func (s *SQLiteRecorder) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(deleted), nil
}

// Close releases any resources held by the recorder.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteRecorder) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		if s.cleanupStmt != nil {
			s.cleanupStmt.Close()
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}
