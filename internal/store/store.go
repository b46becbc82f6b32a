// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/coachpad/internal/domain"
)

// Repository archives finished calls. Nothing in it is read back into live
// session state.
type Repository interface {
	// SaveCallRecord inserts a call record.
	SaveCallRecord(ctx context.Context, rec *domain.CallRecord) error

	// ListCallRecords returns the newest records of a session, newest first.
	ListCallRecords(ctx context.Context, sessionID string, limit int) ([]*domain.CallRecord, error)

	// DeleteCallRecordsBefore removes records created before t.
	DeleteCallRecordsBefore(ctx context.Context, t time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
