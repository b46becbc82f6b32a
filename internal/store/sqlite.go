package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/coachpad/internal/domain"
	"github.com/ashureev/coachpad/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	maxWriteRetries = 3
	baseRetryDelay  = 100 * time.Millisecond
	maxListLimit    = 500
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writes to keep SQLITE_BUSY rare
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS call_records (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		suggestions_json TEXT NOT NULL,
		summary TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_call_records_session ON call_records(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_call_records_created ON call_records(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveCallRecord inserts a call record.
// Implements retry logic with exponential backoff to handle SQLITE_BUSY errors.
func (s *SQLiteStore) SaveCallRecord(ctx context.Context, rec *domain.CallRecord) error {
	suggestions := rec.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	suggestionsJSON, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}

	query := `
		INSERT INTO call_records (id, session_id, outcome, suggestions_json, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	return s.withRetry(ctx, "save call record", func() error {
		_, err := s.db.ExecContext(ctx, query,
			rec.ID, rec.SessionID, string(rec.Outcome),
			string(suggestionsJSON), rec.Summary, rec.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert call record: %w", err)
		}
		return nil
	})
}

// ListCallRecords returns the newest records of a session, newest first.
func (s *SQLiteStore) ListCallRecords(ctx context.Context, sessionID string, limit int) ([]*domain.CallRecord, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, session_id, outcome, suggestions_json, summary, created_at
		FROM call_records WHERE session_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query call records: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close call record rows", "error", closeErr)
		}
	}()

	records := []*domain.CallRecord{}
	for rows.Next() {
		var rec domain.CallRecord
		var outcome, suggestionsJSON string
		var createdAt int64

		if err := rows.Scan(&rec.ID, &rec.SessionID, &outcome, &suggestionsJSON, &rec.Summary, &createdAt); err != nil {
			return nil, fmt.Errorf("scan call record row: %w", err)
		}
		if err := json.Unmarshal([]byte(suggestionsJSON), &rec.Suggestions); err != nil {
			return nil, fmt.Errorf("decode suggestions of %s: %w", rec.ID, err)
		}
		rec.Outcome = domain.Outcome(outcome)
		rec.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call records: %w", err)
	}

	return records, nil
}

// DeleteCallRecordsBefore removes records created before t.
func (s *SQLiteStore) DeleteCallRecordsBefore(ctx context.Context, t time.Time) (int64, error) {
	var deleted int64
	err := s.withRetry(ctx, "delete call records", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM call_records WHERE created_at < ?`, t.UnixMilli())
		if err != nil {
			return fmt.Errorf("delete call records: %w", err)
		}
		deleted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	return deleted, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withRetry runs a write, retrying SQLite conflicts with exponential
// backoff: 100ms, 200ms.
func (s *SQLiteStore) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < maxWriteRetries; i++ {
		s.writeMu.Lock()
		err = fn()
		s.writeMu.Unlock()
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxWriteRetries-1 {
			break
		}

		delay := baseRetryDelay * time.Duration(1<<i)
		slog.Debug("SQLite write conflict, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after retries: %w", op, err)
}
