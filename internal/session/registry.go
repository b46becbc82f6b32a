package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/coachpad/internal/broadcast"
	"github.com/ashureev/coachpad/internal/domain"
	"github.com/ashureev/coachpad/internal/telemetry"
)

// Entry pairs a session's state with its broadcaster.
type Entry struct {
	Coordinator *Coordinator
	Broadcaster *broadcast.Broadcaster

	cancel context.CancelFunc
	conns  int // attached connections, guarded by Registry.mu
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Session      Options
	PushInterval time.Duration
	SendTimeout  time.Duration
	Recorder     telemetry.Recorder
	Logger       *slog.Logger
}

// Registry maps session ids to their live state. Sessions are created on
// first use; each gets its own broadcast loop bound to the registry context.
type Registry struct {
	ctx    context.Context
	cfg    RegistryConfig
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Entry
	closed   bool
}

// NewRegistry creates an empty registry. Broadcast loops stop when ctx is
// done or Close is called.
func NewRegistry(ctx context.Context, cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = telemetry.NewNoop()
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = cfg.Logger
	}
	if cfg.Session.Recorder == nil {
		cfg.Session.Recorder = cfg.Recorder
	}
	return &Registry{
		ctx:      ctx,
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[string]*Entry),
	}
}

// Acquire returns the session for id, creating it if needed.
func (r *Registry) Acquire(id string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquireLocked(id)
}

// Attach acquires the session for id and holds it until release is called.
// A held session is never evicted, so long-lived connections keep feeding
// the entry that observers and HTTP requests see.
func (r *Registry) Attach(id string) (entry *Entry, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.acquireLocked(id)
	e.conns++

	var once sync.Once
	return e, func() {
		once.Do(func() {
			r.mu.Lock()
			e.conns--
			r.mu.Unlock()
		})
	}
}

func (r *Registry) acquireLocked(id string) *Entry {
	if e, ok := r.sessions[id]; ok {
		return e
	}

	coord := NewCoordinator(id, r.cfg.Session)
	b := broadcast.New(coord, broadcast.Config{
		Interval:    r.cfg.PushInterval,
		SendTimeout: r.cfg.SendTimeout,
		Recorder:    r.cfg.Recorder,
		Logger:      r.logger,
	})
	loopCtx, cancel := context.WithCancel(r.ctx)
	e := &Entry{Coordinator: coord, Broadcaster: b, cancel: cancel}
	r.sessions[id] = e
	if !r.closed {
		go b.Run(loopCtx)
	}

	r.logger.Info("Session created", "session_id", id, "sessions", len(r.sessions))
	return e
}

// Get returns the session for id without creating it.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	return e, ok
}

// Summary returns the summary of session id without creating it. Unknown
// ids get the summary of a fresh session.
func (r *Registry) Summary(id string) string {
	if e, ok := r.Get(id); ok {
		return e.Coordinator.Summary()
	}
	return renderSummary(domain.SeedSnapshot(0), nil)
}

// IDs returns the live session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle removes sessions with no input since before now-ttl, no
// attached connections and no observers. It returns the evicted ids.
func (r *Registry) EvictIdle(now time.Time, ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-ttl)
	var evicted []string
	for id, e := range r.sessions {
		if e.conns > 0 || e.Broadcaster.Count() > 0 {
			continue
		}
		if e.Coordinator.LastActive().After(cutoff) {
			continue
		}
		e.cancel()
		delete(r.sessions, id)
		evicted = append(evicted, id)
	}
	sort.Strings(evicted)
	if len(evicted) > 0 {
		r.logger.Info("Evicted idle sessions", "count", len(evicted), "sessions", len(r.sessions))
	}
	return evicted
}

// Close stops every broadcast loop and closes all observers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, e := range r.sessions {
		e.cancel()
		e.Broadcaster.CloseAll()
	}
}
