// Package store persists the rotating session cookie string and comment job history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jmylchreest/instacomment/internal/crypto"
)

// ErrNoEncryptor is returned when cookies are saved or loaded without an encryption key.
var ErrNoEncryptor = errors.New("cookie persistence requires an encryption key")

const defaultSessionName = "default"

// timeLayout is fixed width so text order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore provides persistent storage for session cookies and run history.
type SQLiteStore struct {
	db       *sql.DB
	enc      *crypto.Encryptor
	logger   *slog.Logger
	isMemory bool // True if using in-memory database
}

// RunRecord is one comment job run.
type RunRecord struct {
	ID          string     `json:"id"`
	Job         string     `json:"job"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	ItemsTotal  int        `json:"items_total"`
	ItemsFailed int        `json:"items_failed"`
	Error       string     `json:"error,omitempty"`
}

// NewSQLiteStore opens (or creates) the database at dbPath. enc may be nil, in which
// case run history works but cookie persistence is refused.
func NewSQLiteStore(dbPath string, enc *crypto.Encryptor, logger *slog.Logger) (*SQLiteStore, error) {
	var connStr string
	isMemory := dbPath == ":memory:"

	if isMemory {
		connStr = "file::memory:?cache=shared&_pragma=busy_timeout(5000)"
		logger.Info("using in-memory SQLite database")
	} else {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		connStr = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:       db,
		enc:      enc,
		logger:   logger,
		isMemory: isMemory,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("SQLite store initialized", "path", dbPath, "in_memory", isMemory, "cookies_encrypted", enc != nil)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_cookies (
		name TEXT PRIMARY KEY,
		cookies_enc TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS job_runs (
		id TEXT PRIMARY KEY,
		job TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		items_total INTEGER NOT NULL DEFAULT 0,
		items_failed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_job_runs_job_started ON job_runs(job, started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CanPersistCookies reports whether SaveCookies will accept writes.
func (s *SQLiteStore) CanPersistCookies() bool {
	return s.enc != nil
}

// SaveCookies stores the raw cookie string encrypted.
func (s *SQLiteStore) SaveCookies(ctx context.Context, raw string) error {
	if s.enc == nil {
		return ErrNoEncryptor
	}
	sealed, err := s.enc.Seal(raw, defaultSessionName)
	if err != nil {
		return fmt.Errorf("failed to encrypt cookies: %w", err)
	}

	query := `
	INSERT INTO session_cookies (name, cookies_enc, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		cookies_enc = excluded.cookies_enc,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, defaultSessionName, sealed, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	s.logger.Debug("session cookies persisted")
	return nil
}

// LoadCookies returns the persisted raw cookie string and when it was written.
// An empty string means nothing has been stored yet.
func (s *SQLiteStore) LoadCookies(ctx context.Context) (string, time.Time, error) {
	if s.enc == nil {
		return "", time.Time{}, ErrNoEncryptor
	}

	var sealed, updatedAtStr string
	err := s.db.QueryRowContext(ctx,
		"SELECT cookies_enc, updated_at FROM session_cookies WHERE name = ?",
		defaultSessionName,
	).Scan(&sealed, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load cookies: %w", err)
	}

	raw, err := s.enc.Open(sealed, defaultSessionName)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decrypt cookies: %w", err)
	}
	updatedAt, _ := time.Parse(time.RFC3339, updatedAtStr)
	return raw, updatedAt, nil
}

// RecordRun inserts or updates a run record.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *RunRecord) error {
	var finishedAt sql.NullString
	if run.FinishedAt != nil {
		finishedAt = sql.NullString{String: run.FinishedAt.UTC().Format(timeLayout), Valid: true}
	}

	query := `
	INSERT INTO job_runs (id, job, status, started_at, finished_at, items_total, items_failed, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		finished_at = excluded.finished_at,
		items_total = excluded.items_total,
		items_failed = excluded.items_failed,
		error = excluded.error
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Job,
		run.Status,
		run.StartedAt.UTC().Format(timeLayout),
		finishedAt,
		run.ItemsTotal,
		run.ItemsFailed,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs of a job, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, job string, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT id, job, status, started_at, finished_at, items_total, items_failed, error
	FROM job_runs
	WHERE job = ?
	ORDER BY started_at DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, job, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		var run RunRecord
		var startedAtStr string
		var finishedAt sql.NullString

		if err := rows.Scan(
			&run.ID,
			&run.Job,
			&run.Status,
			&startedAtStr,
			&finishedAt,
			&run.ItemsTotal,
			&run.ItemsFailed,
			&run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt, _ = time.Parse(timeLayout, startedAtStr)
		if finishedAt.Valid {
			if t, err := time.Parse(timeLayout, finishedAt.String); err == nil {
				run.FinishedAt = &t
			}
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// CleanupRunsOlderThan removes run records started before threshold.
// If rows were deleted, also vacuums the database to reclaim space.
func (s *SQLiteStore) CleanupRunsOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM job_runs WHERE started_at < ?",
		threshold.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup runs: %w", err)
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		s.logger.Info("cleaned up old runs", "count", count)
		if err := s.Vacuum(); err != nil {
			s.logger.Warn("failed to vacuum after cleanup", "error", err)
		}
	}
	return count, nil
}

// Vacuum reclaims unused space in the database.
func (s *SQLiteStore) Vacuum() error {
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	s.logger.Debug("database vacuumed")
	return nil
}

// Close closes the database connection.
// Performs a WAL checkpoint first to ensure all data is flushed to the main DB file.
func (s *SQLiteStore) Close() error {
	if !s.isMemory {
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Warn("failed to checkpoint WAL before close", "error", err)
		}
	}
	s.logger.Debug("SQLite store closing", "in_memory", s.isMemory)
	return s.db.Close()
}
