// Package observe provides application-wide observability primitives for
// digitspan: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all digitspan metrics.
const meterName = "github.com/MrWong99/digitspan"

// Metrics holds the digitspan instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// ParseDuration is normalizer latency by language and strategy.
	ParseDuration metric.Float64Histogram

	// ASRDuration is recognition latency by provider.
	ASRDuration metric.Float64Histogram

	// HTTPRequestDuration is request latency by method, route and status.
	HTTPRequestDuration metric.Float64Histogram

	// ParseResults counts normalizer runs by language and strategy.
	ParseResults metric.Int64Counter

	// GradeResults counts graded answers by outcome.
	GradeResults metric.Int64Counter

	// ProviderRequests counts provider calls by provider, kind and status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts failed provider calls by provider and kind.
	ProviderErrors metric.Int64Counter

	// CircuitState is the breaker state per provider: 0 closed, 1 open,
	// 2 half-open.
	CircuitState metric.Int64Gauge
}

// parseBuckets are sized for an in-process text pass.
var parseBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05,
}

// latencyBuckets are sized for remote speech recognition and HTTP calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates every instrument on mp. It fails if any instrument
// cannot be created.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var errs []error

	seconds := func(name, desc string, buckets []float64) metric.Float64Histogram {
		h, err := m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...),
		)
		errs = append(errs, err)
		return h
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}

	met := &Metrics{
		ParseDuration:       seconds("digitspan.parse.duration", "Latency of transcript normalization.", parseBuckets),
		ASRDuration:         seconds("digitspan.asr.duration", "Latency of speech recognition by provider.", latencyBuckets),
		HTTPRequestDuration: seconds("digitspan.http.request.duration", "HTTP request latency by method, route and status.", latencyBuckets),
		ParseResults:        counter("digitspan.parse.results", "Normalizer results by language and extraction strategy."),
		GradeResults:        counter("digitspan.grade.results", "Graded answers by outcome."),
		ProviderRequests:    counter("digitspan.provider.requests", "Provider requests by provider, kind and status."),
		ProviderErrors:      counter("digitspan.provider.errors", "Provider errors by provider and kind."),
	}
	var err error
	met.CircuitState, err = m.Int64Gauge("digitspan.asr.circuit.state",
		metric.WithDescription("Circuit breaker state per ASR provider: 0 closed, 1 open, 2 half-open."),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("observe: create instruments: %w", err)
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a shared [Metrics] built on the global meter
// provider at first use. It panics if the instruments cannot be created.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordParse records one normalizer run.
func (m *Metrics) RecordParse(ctx context.Context, language, strategy string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.String("strategy", strategy),
	)
	m.ParseDuration.Record(ctx, d.Seconds(), attrs)
	m.ParseResults.Add(ctx, 1, attrs)
}

// RecordGrade records one graded answer.
func (m *Metrics) RecordGrade(ctx context.Context, outcome string) {
	m.GradeResults.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordASR records the latency and outcome of one recognition call.
func (m *Metrics) RecordASR(ctx context.Context, provider string, d time.Duration, err error) {
	m.ASRDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("provider", provider)))
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, provider, "asr")
	}
	m.RecordProviderRequest(ctx, provider, "asr", status)
}

// RecordCircuitState records the breaker state of an ASR provider.
func (m *Metrics) RecordCircuitState(ctx context.Context, provider string, state int64) {
	m.CircuitState.Record(ctx, state, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordProviderRequest counts one provider call.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError counts one failed provider call.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
