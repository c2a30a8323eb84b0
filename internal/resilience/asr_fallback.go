package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/digitspan/internal/observe"
	"github.com/MrWong99/digitspan/pkg/provider/asr"
)

// ASRFallback implements [asr.Transcriber] over an ordered list of backends,
// each guarded by its own [CircuitBreaker]. Every attempt is traced and
// recorded in [observe.Metrics].
type ASRFallback struct {
	group   *FallbackGroup[asr.Transcriber]
	metrics *observe.Metrics
}

var _ asr.Transcriber = (*ASRFallback)(nil)

// NewASRFallback returns an empty fallback. Register backends with
// [ASRFallback.Add], primary first. A nil metrics uses
// [observe.DefaultMetrics].
func NewASRFallback(cfg FallbackConfig, metrics *observe.Metrics) *ASRFallback {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	if cfg.Permanent == nil {
		cfg.Permanent = func(err error) bool { return errors.Is(err, asr.ErrEmptyAudio) }
	}
	next := cfg.CircuitBreaker.OnStateChange
	cfg.CircuitBreaker.OnStateChange = func(name string, from, to State) {
		metrics.RecordCircuitState(context.Background(), name, int64(to))
		if next != nil {
			next(name, from, to)
		}
	}
	return &ASRFallback{
		group:   NewFallbackGroup[asr.Transcriber](cfg),
		metrics: metrics,
	}
}

// Add registers a backend after those already added.
func (f *ASRFallback) Add(name string, t asr.Transcriber) {
	f.group.Add(name, t)
	f.metrics.RecordCircuitState(context.Background(), name, int64(StateClosed))
}

// Backends returns the backend names in try order.
func (f *ASRFallback) Backends() []string { return f.group.Names() }

// Transcribe returns the text from the first backend that answers.
func (f *ASRFallback) Transcribe(ctx context.Context, req asr.Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", asr.ErrEmptyAudio
	}
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, name string, t asr.Transcriber) (string, error) {
		ctx, span := observe.StartOperation(ctx, "asr.transcribe",
			observe.Attr("provider", name),
			observe.Attr("language", req.Language),
		)
		start := time.Now()
		text, err := t.Transcribe(ctx, req)
		f.metrics.RecordASR(ctx, name, time.Since(start), err)
		observe.EndSpan(span, err)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return text, nil
	})
}

// Ready reports an error when no backend can currently take a call. It is
// meant for a readiness check.
func (f *ASRFallback) Ready(_ context.Context) error {
	if f.group.Len() == 0 {
		return errors.New("no asr backends configured")
	}
	for _, st := range f.group.States() {
		if st != StateOpen {
			return nil
		}
	}
	return fmt.Errorf("%w: every asr backend", ErrCircuitOpen)
}
