package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry of a [FallbackGroup] failed or
// was rejected by its breaker. The last entry's error is wrapped with it.
var ErrAllFailed = errors.New("resilience: all backends failed")

// FallbackConfig configures a [FallbackGroup].
type FallbackConfig struct {
	// CircuitBreaker is the template for each entry's breaker. Name is
	// replaced by the entry name.
	CircuitBreaker CircuitBreakerConfig

	// Permanent reports errors that no other backend could fix, such as
	// malformed input. They end the attempt immediately and count as a
	// healthy response for the breaker. Nil treats every error as transient.
	Permanent func(error) bool
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds an ordered list of backends of one type. Entries are
// tried in registration order; the first entry is the primary.
//
// Entries must be added before the group is shared between goroutines.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup returns an empty group.
func NewFallbackGroup[T any](cfg FallbackConfig) *FallbackGroup[T] {
	return &FallbackGroup[T]{cfg: cfg}
}

// Add appends a backend.
func (fg *FallbackGroup[T]) Add(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of registered backends.
func (fg *FallbackGroup[T]) Len() int { return len(fg.entries) }

// Names returns the backend names in try order.
func (fg *FallbackGroup[T]) Names() []string {
	names := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		names[i] = e.name
	}
	return names
}

// States returns each backend's breaker state keyed by name.
func (fg *FallbackGroup[T]) States() map[string]State {
	out := make(map[string]State, len(fg.entries))
	for _, e := range fg.entries {
		out[e.name] = e.breaker.State()
	}
	return out
}

// ExecuteWithResult calls fn on each entry in order until one succeeds and
// returns its result. fn also receives the entry name. It is a function
// rather than a method because methods cannot declare type parameters.
func ExecuteWithResult[T, R any](ctx context.Context, fg *FallbackGroup[T], fn func(ctx context.Context, name string, v T) (R, error)) (R, error) {
	var zero R
	if len(fg.entries) == 0 {
		return zero, fmt.Errorf("%w: no backends configured", ErrAllFailed)
	}

	var lastErr error
	for i := range fg.entries {
		e := &fg.entries[i]

		var (
			res       R
			permanent error
		)
		err := e.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
			r, err := fn(ctx, e.name, e.value)
			if err != nil && fg.cfg.Permanent != nil && fg.cfg.Permanent(err) {
				permanent = err
				return nil
			}
			res = r
			return err
		})
		if permanent != nil {
			return zero, permanent
		}
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, err
		}

		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping asr backend, circuit open", "backend", e.name)
			continue
		}
		slog.Warn("asr backend failed, trying next", "backend", e.name, "err", err)
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
