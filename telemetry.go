package neotraverse

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for traversal execution.
var (
	tracer = otel.Tracer("neotraverse")
	meter  = otel.Meter("neotraverse")
)

var (
	executeLatency    metric.Float64Histogram
	executeTotal      metric.Int64Counter
	resultsReturned   metric.Int64Histogram
	hydrationFailures metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		executeLatency, err = meter.Float64Histogram(
			"neotraverse_execute_duration_seconds",
			metric.WithDescription("Duration of traversal executions, from request to end of stream"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		executeTotal, err = meter.Int64Counter(
			"neotraverse_execute_total",
			metric.WithDescription("Total number of traversal executions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resultsReturned, err = meter.Int64Histogram(
			"neotraverse_results",
			metric.WithDescription("Number of result elements read per execution"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		hydrationFailures, err = meter.Int64Counter(
			"neotraverse_hydration_failures_total",
			metric.WithDescription("Result elements that could not be hydrated"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startExecuteSpan(ctx context.Context, id string, req *CompiledRequest) (context.Context, trace.Span) {
	return tracer.Start(ctx, "neotraverse.Execute",
		trace.WithAttributes(
			attribute.String("neotraverse.request_id", id),
			attribute.String("neotraverse.shape", req.Shape.String()),
			attribute.Bool("neotraverse.mutating", req.Mutating),
			attribute.String("db.statement", req.Query),
		),
	)
}

func recordExecuteMetrics(ctx context.Context, duration time.Duration, count int, mutating, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Bool("mutating", mutating),
	)
	executeLatency.Record(ctx, duration.Seconds(), attrs)
	executeTotal.Add(ctx, 1, attrs)
	resultsReturned.Record(ctx, int64(count))
}

func recordHydrationFailure(ctx context.Context, shape ShapeKind) {
	if err := initMetrics(); err != nil {
		return
	}
	hydrationFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("shape", shape.String()),
	))
}
