package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the engine's OTel instruments. Instruments are created once
// at engine construction; on error the OTel API returns noop instruments,
// so metrics degrade gracefully when no MeterProvider is configured.
type metrics struct {
	offersCreated    metric.Int64Counter
	responses        metric.Int64Counter
	conflicts        metric.Int64Counter
	dispatchDuration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) *metrics {
	offersCreated, err := meter.Int64Counter(
		"handoff.offers.created",
		metric.WithDescription("Total offers created, by service category"),
		metric.WithUnit("{offer}"),
	)
	_ = err // noop fallback guaranteed by OTel API contract

	responses, err := meter.Int64Counter(
		"handoff.offers.responses",
		metric.WithDescription("Terminal offer transitions, by outcome"),
		metric.WithUnit("{offer}"),
	)
	_ = err

	conflicts, err := meter.Int64Counter(
		"handoff.conflicts",
		metric.WithDescription("Lost races and SLA-expired accepts"),
		metric.WithUnit("{conflict}"),
	)
	_ = err

	dispatchDuration, err := meter.Float64Histogram(
		"handoff.dispatch.duration",
		metric.WithDescription("Duration of a dispatch cycle in seconds"),
		metric.WithUnit("s"),
	)
	_ = err

	return &metrics{
		offersCreated:    offersCreated,
		responses:        responses,
		conflicts:        conflicts,
		dispatchDuration: dispatchDuration,
	}
}

func (m *metrics) recordWave(ctx context.Context, category string, size int, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("category", category))
	m.offersCreated.Add(ctx, int64(size), attrs)
	m.dispatchDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *metrics) recordResponse(ctx context.Context, outcome string) {
	m.responses.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) recordConflict(ctx context.Context, op string) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
