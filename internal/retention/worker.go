// Package retention periodically drops idle sessions and expired call
// records.
package retention

import (
	"context"
	"log/slog"
	"time"
)

const defaultInterval = 5 * time.Minute

// SessionEvictor drops sessions idle longer than ttl.
type SessionEvictor interface {
	EvictIdle(now time.Time, ttl time.Duration) []string
}

// RecordPruner deletes archived records older than a cutoff.
type RecordPruner interface {
	DeleteCallRecordsBefore(ctx context.Context, t time.Time) (int64, error)
}

// Config configures the worker.
type Config struct {
	Interval        time.Duration
	SessionIdleTTL  time.Duration
	RecordRetention time.Duration
	Clock           func() time.Time
	Logger          *slog.Logger
}

// Worker sweeps idle sessions and old call records.
type Worker struct {
	sessions SessionEvictor
	records  RecordPruner
	cfg      Config
	logger   *slog.Logger
}

// NewWorker creates a worker. records may be nil when no archive is
// configured.
func NewWorker(sessions SessionEvictor, records RecordPruner, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Worker{sessions: sessions, records: records, cfg: cfg, logger: cfg.Logger}
}

// Start runs the sweep loop in a background goroutine until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	go func() {
		defer ticker.Stop()
		w.logger.Info("Retention worker started",
			"interval", w.cfg.Interval,
			"session_idle_ttl", w.cfg.SessionIdleTTL,
			"record_retention", w.cfg.RecordRetention)

		for {
			select {
			case <-ticker.C:
				w.Sweep(ctx)
			case <-ctx.Done():
				w.logger.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep runs one pass. A zero TTL or retention disables that half.
func (w *Worker) Sweep(ctx context.Context) {
	now := w.cfg.Clock()

	if w.cfg.SessionIdleTTL > 0 {
		if evicted := w.sessions.EvictIdle(now, w.cfg.SessionIdleTTL); len(evicted) > 0 {
			w.logger.Info("Retention worker evicted idle sessions", "count", len(evicted), "session_ids", evicted)
		}
	}

	if w.records == nil || w.cfg.RecordRetention <= 0 {
		return
	}
	deleted, err := w.records.DeleteCallRecordsBefore(ctx, now.Add(-w.cfg.RecordRetention))
	if err != nil {
		if ctx.Err() != nil {
			w.logger.Debug("Retention worker: context canceled during record cleanup", "error", err)
			return
		}
		w.logger.Error("Retention worker failed to delete old call records", "error", err)
		return
	}
	if deleted > 0 {
		w.logger.Info("Retention worker deleted old call records", "count", deleted)
	}
}
