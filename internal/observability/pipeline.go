package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records recommendation run metrics.
type PipelineMetrics interface {
	RecordRun(ctx context.Context, outcome string)
	RecordStageDuration(ctx context.Context, stage string, duration time.Duration, ok bool)
	RecordMatchOutcome(ctx context.Context, outcome string)
}

type pipelineMetrics struct {
	runs          metric.Int64Counter
	stageDuration metric.Float64Histogram
	matchOutcomes metric.Int64Counter
}

// NewPipelineMetrics creates PipelineMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewPipelineMetrics(meter metric.Meter) (PipelineMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	runs, err := meter.Int64Counter(
		MetricNameRecommendationRuns,
		metric.WithDescription("Total recommendation runs by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create recommendation runs counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram(
		MetricNameStageDuration,
		metric.WithDescription("Duration of each recommendation pipeline stage (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stage duration histogram: %w", err)
	}

	matchOutcomes, err := meter.Int64Counter(
		MetricNameMatchOutcomes,
		metric.WithDescription("Total similarity searches by outcome (found, absent, error)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create match outcomes counter: %w", err)
	}

	return &pipelineMetrics{
		runs:          runs,
		stageDuration: stageDuration,
		matchOutcomes: matchOutcomes,
	}, nil
}

func (p *pipelineMetrics) RecordRun(ctx context.Context, outcome string) {
	outcome = NormalizeReason(outcome, AllowedRunOutcomes)
	p.runs.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}

func (p *pipelineMetrics) RecordStageDuration(ctx context.Context, stage string, duration time.Duration, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}

	p.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStage, NormalizeReason(stage, AllowedStages)),
		attribute.String(AttrStatus, status),
	))
}

func (p *pipelineMetrics) RecordMatchOutcome(ctx context.Context, outcome string) {
	outcome = NormalizeReason(outcome, AllowedMatchOutcomes)
	p.matchOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}

// Metrics holds all metric collectors. When metrics are disabled, all fields are nil.
type Metrics struct {
	Pipeline PipelineMetrics
	Ingest   IngestMetrics
}

// NewMetrics creates every collector from meter. Returns (nil, nil) when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	pipeline, err := NewPipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("pipeline metrics: %w", err)
	}

	ingest, err := NewIngestMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("ingest metrics: %w", err)
	}

	return &Metrics{Pipeline: pipeline, Ingest: ingest}, nil
}
