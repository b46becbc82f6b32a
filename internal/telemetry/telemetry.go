// Package telemetry records coaching service metrics.
package telemetry

import (
	"context"
	"time"
)

// Recorder receives service measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IngestCompleted(ctx context.Context, sessionID, channel string, took time.Duration)
	SuggestionsShown(ctx context.Context, sessionID string, n int)
	OutcomeReported(ctx context.Context, sessionID, outcome string)
	BroadcastTick(ctx context.Context, sessionID string, delivered, pruned int)
	Close(ctx context.Context) error
}

// Config holds OTLP exporter configuration.
type Config struct {
	Endpoint string
	Enabled  bool
	Insecure bool
}

// Noop is a Recorder that does nothing.
type Noop struct{}

// NewNoop creates a no-op recorder for graceful degradation.
func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) IngestCompleted(context.Context, string, string, time.Duration) {}
func (Noop) SuggestionsShown(context.Context, string, int)                  {}
func (Noop) OutcomeReported(context.Context, string, string)                {}
func (Noop) BroadcastTick(context.Context, string, int, int)                {}
func (Noop) Close(context.Context) error                                    { return nil }
