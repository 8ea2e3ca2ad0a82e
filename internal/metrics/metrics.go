// Package metrics exposes OpenTelemetry counters for the decision pipeline.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	initOnce sync.Once

	signalsIngested metric.Int64Counter
	decisions       metric.Int64Counter
	gatingActions   metric.Int64Counter
	fallbacks       metric.Int64Counter
)

func ensureInit() {
	initOnce.Do(func() {
		meter := otel.Meter("github.com/thebtf/tailor")
		signalsIngested, _ = meter.Int64Counter("tailor.signals.ingested",
			metric.WithDescription("Signals ingested into session profiles"))
		decisions, _ = meter.Int64Counter("tailor.decisions.total",
			metric.WithDescription("Block list decisions finalized"))
		gatingActions, _ = meter.Int64Counter("tailor.gating.actions",
			metric.WithDescription("Confidence-gating substitutions applied"))
		fallbacks, _ = meter.Int64Counter("tailor.decisions.fallbacks",
			metric.WithDescription("Decisions served from the static fallback"))
	})
}

// RecordSignal counts one ingested signal by category.
func RecordSignal(category string) {
	ensureInit()
	signalsIngested.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("category", category)))
}

// RecordDecision counts one finalized decision.
func RecordDecision(fallback bool) {
	ensureInit()
	decisions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("fallback", fallback)))
}

// RecordGatingAction counts one audited gating substitution.
func RecordGatingAction(action string) {
	ensureInit()
	gatingActions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("action", action)))
}

// RecordFallback counts one static fallback by intent type.
func RecordFallback(intentType string) {
	ensureInit()
	fallbacks.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("intent", intentType)))
}
