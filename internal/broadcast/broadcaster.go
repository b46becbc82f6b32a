// Package broadcast periodically pushes the latest session snapshot to
// every registered observer.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/coachpad/internal/domain"
	"github.com/ashureev/coachpad/internal/telemetry"
)

const (
	defaultInterval    = time.Second
	defaultSendTimeout = 2 * time.Second
)

// Source provides the snapshot to publish.
type Source interface {
	ID() string
	Snapshot() domain.Snapshot
}

// Observer is one connected snapshot consumer.
type Observer interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Config configures a Broadcaster.
type Config struct {
	Interval    time.Duration
	SendTimeout time.Duration
	Recorder    telemetry.Recorder
	Logger      *slog.Logger
}

// Broadcaster fans snapshots of one session out to its observers. An
// observer whose delivery fails is removed; the others are unaffected.
type Broadcaster struct {
	source      Source
	interval    time.Duration
	sendTimeout time.Duration
	recorder    telemetry.Recorder
	logger      *slog.Logger

	mu        sync.RWMutex
	observers map[string]Observer
}

// New creates a broadcaster for source.
func New(source Source, cfg Config) *Broadcaster {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.Recorder == nil {
		cfg.Recorder = telemetry.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Broadcaster{
		source:      source,
		interval:    cfg.Interval,
		sendTimeout: cfg.SendTimeout,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger.With("session_id", source.ID()),
		observers:   make(map[string]Observer),
	}
}

// Register adds an observer. Registering the same observer twice is a no-op.
func (b *Broadcaster) Register(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.observers[o.ID()]; exists {
		return
	}
	b.observers[o.ID()] = o
	b.logger.Info("Observer registered", "observer_id", o.ID(), "observers", len(b.observers))
}

// Unregister removes an observer by id. Unknown ids are ignored.
func (b *Broadcaster) Unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.observers[id]; !exists {
		return
	}
	delete(b.observers, id)
	b.logger.Info("Observer unregistered", "observer_id", id, "observers", len(b.observers))
}

// Has reports whether an observer id is registered.
func (b *Broadcaster) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.observers[id]
	return ok
}

// Count returns the number of registered observers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Run pushes a snapshot every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	b.logger.Debug("Broadcast loop started", "interval", b.interval)

	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("Broadcast loop shutting down", "reason", ctx.Err())
			return
		case <-ticker.C:
			b.Tick(ctx)
		}
	}
}

// Tick reads the snapshot once, serializes it once and delivers it to every
// observer concurrently. Failed observers are closed and removed. It
// returns the number of successful deliveries.
func (b *Broadcaster) Tick(ctx context.Context) int {
	// Snapshot observers to avoid holding the lock during writes.
	b.mu.RLock()
	if len(b.observers) == 0 {
		b.mu.RUnlock()
		return 0
	}
	targets := make([]Observer, 0, len(b.observers))
	for _, o := range b.observers {
		targets = append(targets, o)
	}
	b.mu.RUnlock()

	payload, err := json.Marshal(b.source.Snapshot())
	if err != nil {
		b.logger.Error("Failed to marshal snapshot", "error", err)
		return 0
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []Observer
	)
	for _, o := range targets {
		wg.Add(1)
		go func(o Observer) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
			defer cancel()
			if err := o.Send(sendCtx, payload); err != nil {
				b.logger.Debug("Snapshot delivery failed", "observer_id", o.ID(), "error", err)
				mu.Lock()
				failed = append(failed, o)
				mu.Unlock()
			}
		}(o)
	}
	wg.Wait()

	for _, o := range failed {
		b.Unregister(o.ID())
		if err := o.Close(); err != nil {
			b.logger.Debug("Failed to close pruned observer", "observer_id", o.ID(), "error", err)
		}
	}

	delivered := len(targets) - len(failed)
	b.recorder.BroadcastTick(ctx, b.source.ID(), delivered, len(failed))
	return delivered
}

// CloseAll closes and removes every observer.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	observers := b.observers
	b.observers = make(map[string]Observer)
	b.mu.Unlock()

	for id, o := range observers {
		if err := o.Close(); err != nil {
			b.logger.Debug("Failed to close observer", "observer_id", id, "error", err)
		}
	}
}
