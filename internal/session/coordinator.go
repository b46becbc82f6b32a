// Package session owns per-conversation state: it folds transcript, audio,
// vision and outcome input into one consistent state and publishes
// immutable metric snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/coachpad/internal/collab"
	"github.com/ashureev/coachpad/internal/domain"
	"github.com/ashureev/coachpad/internal/perception"
	"github.com/ashureev/coachpad/internal/ranking"
	"github.com/ashureev/coachpad/internal/suggest"
	"github.com/ashureev/coachpad/internal/telemetry"
)

const (
	maxSuggestions = 3

	initialVisionEngagement = 0.5
	perceptionWeight        = 0.7
	visionWeight            = 0.3
)

// Suggester produces ranked candidate lines for a context.
type Suggester interface {
	Query(ctx context.Context, req suggest.Request) []string
}

// Options configure a Coordinator.
type Options struct {
	MaxHistory    int
	RankCapacity  int
	Suggester     Suggester
	Vision        collab.FaceAnalyzer
	VisionTimeout time.Duration
	Recorder      telemetry.Recorder
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Coordinator owns the state of one session. Every mutation runs under mu
// from start to snapshot publication; Snapshot reads the last published
// value without locking.
type Coordinator struct {
	id string

	mu               sync.Mutex
	perception       *perception.Engine
	learner          *ranking.Learner
	visionEngagement float64
	lastSuggestions  []string

	snapshot   atomic.Pointer[domain.Snapshot]
	lastActive atomic.Int64 // unix nanos

	suggester     Suggester
	vision        collab.FaceAnalyzer
	visionTimeout time.Duration
	recorder      telemetry.Recorder
	logger        *slog.Logger
	now           func() time.Time
}

// NewCoordinator creates the state of session id with the seed snapshot.
func NewCoordinator(id string, opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = telemetry.NewNoop()
	}
	if opts.Vision == nil {
		opts.Vision = collab.FrameProbe{}
	}
	if opts.VisionTimeout <= 0 {
		opts.VisionTimeout = 3 * time.Second
	}

	engine := perception.NewEngine(opts.MaxHistory)
	engine.SetClock(opts.Clock)

	c := &Coordinator{
		id:               id,
		perception:       engine,
		learner:          ranking.NewLearner(opts.RankCapacity),
		visionEngagement: initialVisionEngagement,
		lastSuggestions:  []string{},
		suggester:        opts.Suggester,
		vision:           opts.Vision,
		visionTimeout:    opts.VisionTimeout,
		recorder:         opts.Recorder,
		logger:           opts.Logger.With("session_id", id),
		now:              opts.Clock,
	}
	seed := domain.SeedSnapshot(c.now().UnixMilli())
	c.snapshot.Store(&seed)
	c.touch()
	return c
}

// ID returns the session identifier.
func (c *Coordinator) ID() string {
	return c.id
}

// Snapshot returns a copy of the last published snapshot.
func (c *Coordinator) Snapshot() domain.Snapshot {
	return c.snapshot.Load().Clone()
}

// LastActive returns the time of the last input.
func (c *Coordinator) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// IngestTranscript folds one conversation event into the session and
// publishes the resulting snapshot.
func (c *Coordinator) IngestTranscript(ctx context.Context, ev domain.ConversationEvent) (domain.Snapshot, error) {
	if err := ev.Validate(); err != nil {
		return domain.Snapshot{}, err
	}
	return c.ingest(ctx, ev, "transcript"), nil
}

func (c *Coordinator) ingest(ctx context.Context, ev domain.ConversationEvent, channel string) domain.Snapshot {
	start := time.Now()
	c.touch()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.perception.Ingest(ev)
	stage := c.perception.Stage()
	sentiment := c.perception.Sentiment()
	recent := strings.Join(c.perception.RecentContext(perception.ContextWindow), " ")

	var candidates []string
	if c.suggester != nil {
		candidates = c.suggester.Query(ctx, suggest.Request{
			Context:   recent,
			Stage:     stage,
			Sentiment: sentiment,
		})
	}
	ranked := c.learner.Rank(candidates)
	top := ranked[:min(maxSuggestions, len(ranked))]
	c.learner.RegisterShown(top)
	c.lastSuggestions = append([]string(nil), top...)

	snap := domain.Snapshot{
		TalkListenRatio:    c.perception.TalkListenRatio(),
		QuestionsPerMinute: c.perception.QuestionsPerMinute(),
		Sentiment:          sentiment,
		Engagement:         c.blendedEngagement(),
		Stage:              stage,
		Suggestions:        append([]string(nil), top...),
		LastUpdateMs:       c.now().UnixMilli(),
	}
	c.publish(snap)

	c.recorder.IngestCompleted(ctx, c.id, channel, time.Since(start))
	c.recorder.SuggestionsShown(ctx, c.id, len(top))
	return snap.Clone()
}

// IngestAudioFrame feeds one PCM frame to the session's recognition stream.
// Recognized text (final or partial) is ingested as a rep utterance. The
// boolean reports whether a new snapshot was published.
func (c *Coordinator) IngestAudioFrame(ctx context.Context, stream collab.SpeechStream, pcm []byte) (domain.Snapshot, bool, error) {
	if stream == nil {
		return domain.Snapshot{}, false, collab.ErrNotConfigured
	}
	res, err := stream.Accept(ctx, pcm)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("speech recognition: %w", err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return domain.Snapshot{}, false, nil
	}

	ev := domain.ConversationEvent{
		Speaker:     domain.SpeakerRep,
		Text:        text,
		TimestampMs: c.now().UnixMilli(),
	}
	return c.ingest(ctx, ev, "audio"), true, nil
}

// IngestVisionFrame updates the vision engagement from one camera frame and
// republishes the snapshot with a new blended engagement. Suggestions are
// not recomputed. An undecodable frame counts as no face; any other
// analyzer failure leaves the session unchanged.
func (c *Coordinator) IngestVisionFrame(ctx context.Context, frame []byte) (domain.Snapshot, error) {
	start := time.Now()
	c.touch()

	callCtx, cancel := context.WithTimeout(ctx, c.visionTimeout)
	res, err := c.vision.Analyze(callCtx, frame)
	cancel()
	if err != nil && !errors.Is(err, collab.ErrUndecodableFrame) {
		return c.Snapshot(), fmt.Errorf("face analysis: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil && res.FacePresent {
		c.visionEngagement = res.GazeScore
	} else {
		c.visionEngagement = collab.NoFaceEngagement
	}

	snap := c.snapshot.Load().Clone()
	snap.Engagement = c.blendedEngagement()
	snap.LastUpdateMs = c.now().UnixMilli()
	c.publish(snap)

	c.recorder.IngestCompleted(ctx, c.id, "vision", time.Since(start))
	return snap.Clone(), nil
}

// ReportOutcome credits the last shown suggestions with the outcome. Values
// outside the accepted set are rejected without touching the rank table.
// It returns the suggestions that were credited.
func (c *Coordinator) ReportOutcome(ctx context.Context, raw string) ([]string, error) {
	outcome, err := domain.ParseOutcome(raw)
	if err != nil {
		return nil, err
	}
	c.touch()

	c.mu.Lock()
	lines := append([]string(nil), c.lastSuggestions...)
	c.learner.ApplyOutcome(lines, outcome)
	c.mu.Unlock()

	c.recorder.OutcomeReported(ctx, c.id, string(outcome))
	c.logger.Info("Outcome reported", "outcome", outcome, "suggestions", len(lines))
	return lines, nil
}

// RankEntries returns the current rank table, least recently shown first.
func (c *Coordinator) RankEntries() []ranking.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.learner.Entries()
}

// LastSuggestions returns the suggestions most recently shown.
func (c *Coordinator) LastSuggestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lastSuggestions...)
}

func (c *Coordinator) blendedEngagement() float64 {
	return c.perception.Engagement()*perceptionWeight + c.visionEngagement*visionWeight
}

// publish replaces the snapshot. Callers hold mu.
func (c *Coordinator) publish(s domain.Snapshot) {
	s = s.Clone()
	c.snapshot.Store(&s)
}

func (c *Coordinator) touch() {
	c.lastActive.Store(c.now().UnixNano())
}
