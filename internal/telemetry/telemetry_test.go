package telemetry

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewOTLPRequiresEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := NewOTLP(context.Background(), Config{Enabled: true}); err == nil {
		t.Fatal("expected error without endpoint")
	}
	if _, err := NewOTLP(context.Background(), Config{Endpoint: "localhost:4317"}); err == nil {
		t.Fatal("expected error when disabled")
	}
}

func TestOTLPRecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec, err := newOTLPWithProvider(provider)
	if err != nil {
		t.Fatalf("newOTLPWithProvider failed: %v", err)
	}
	defer func() { _ = rec.Close(context.Background()) }()

	ctx := context.Background()
	rec.IngestCompleted(ctx, "s1", "transcript", 10*time.Millisecond)
	rec.OutcomeReported(ctx, "s1", "lost")
	rec.BroadcastTick(ctx, "s1", 2, 1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{"coachpad_ingest_total", "coachpad_outcomes_total", "coachpad_observers_pruned_total"} {
		if !names[want] {
			t.Fatalf("expected metric %q, got %v", want, names)
		}
	}
}

func TestNoopSatisfiesRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IngestCompleted(context.Background(), "s", "vision", time.Second)
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
