package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "coachpad"
	serviceVersion = "0.1.0"
)

// OTLP exports metrics to an OpenTelemetry collector over gRPC.
type OTLP struct {
	provider        *sdkmetric.MeterProvider
	ingestTotal     metric.Int64Counter
	ingestDuration  metric.Float64Histogram
	suggestionsHist metric.Int64Histogram
	outcomesTotal   metric.Int64Counter
	deliveredTotal  metric.Int64Counter
	prunedTotal     metric.Int64Counter
}

// NewOTLP creates an exporter. It fails when disabled or unconfigured so
// callers can fall back to Noop.
func NewOTLP(ctx context.Context, cfg Config) (*OTLP, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return newOTLPWithProvider(provider)
}

func newOTLPWithProvider(provider *sdkmetric.MeterProvider) (*OTLP, error) {
	meter := provider.Meter(serviceName)

	ingestTotal, err := meter.Int64Counter(
		"coachpad_ingest_total",
		metric.WithDescription("Completed ingest calls by channel"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ingest counter: %w", err)
	}

	ingestDuration, err := meter.Float64Histogram(
		"coachpad_ingest_duration_seconds",
		metric.WithDescription("Ingest-to-snapshot latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ingest duration histogram: %w", err)
	}

	suggestionsHist, err := meter.Int64Histogram(
		"coachpad_suggestions_shown",
		metric.WithDescription("Suggestions published per snapshot"),
		metric.WithUnit("{suggestion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating suggestions histogram: %w", err)
	}

	outcomesTotal, err := meter.Int64Counter(
		"coachpad_outcomes_total",
		metric.WithDescription("Reported conversation outcomes"),
		metric.WithUnit("{outcome}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating outcomes counter: %w", err)
	}

	deliveredTotal, err := meter.Int64Counter(
		"coachpad_snapshots_delivered_total",
		metric.WithDescription("Snapshots delivered to observers"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating delivered counter: %w", err)
	}

	prunedTotal, err := meter.Int64Counter(
		"coachpad_observers_pruned_total",
		metric.WithDescription("Observers dropped after a failed delivery"),
		metric.WithUnit("{observer}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pruned counter: %w", err)
	}

	return &OTLP{
		provider:        provider,
		ingestTotal:     ingestTotal,
		ingestDuration:  ingestDuration,
		suggestionsHist: suggestionsHist,
		outcomesTotal:   outcomesTotal,
		deliveredTotal:  deliveredTotal,
		prunedTotal:     prunedTotal,
	}, nil
}

// IngestCompleted records one completed ingest call.
func (o *OTLP) IngestCompleted(ctx context.Context, sessionID, channel string, took time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("channel", channel),
	)
	o.ingestTotal.Add(ctx, 1, opt)
	o.ingestDuration.Record(ctx, took.Seconds(), opt)
}

// SuggestionsShown records the size of a published suggestion list.
func (o *OTLP) SuggestionsShown(ctx context.Context, sessionID string, n int) {
	o.suggestionsHist.Record(ctx, int64(n), metric.WithAttributes(attribute.String("session_id", sessionID)))
}

// OutcomeReported counts an accepted outcome.
func (o *OTLP) OutcomeReported(ctx context.Context, sessionID, outcome string) {
	o.outcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("outcome", outcome),
	))
}

// BroadcastTick records the result of one broadcast tick.
func (o *OTLP) BroadcastTick(ctx context.Context, sessionID string, delivered, pruned int) {
	opt := metric.WithAttributes(attribute.String("session_id", sessionID))
	if delivered > 0 {
		o.deliveredTotal.Add(ctx, int64(delivered), opt)
	}
	if pruned > 0 {
		o.prunedTotal.Add(ctx, int64(pruned), opt)
	}
}

// Close shuts down the exporter and flushes any pending metrics.
func (o *OTLP) Close(ctx context.Context) error {
	return o.provider.Shutdown(ctx)
}
