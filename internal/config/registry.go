package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/MrWong99/digitspan/pkg/provider/asr"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// ASRFactory builds a transcriber from its config entry.
type ASRFactory func(ProviderEntry) (asr.Transcriber, error)

// Registry maps provider names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	asr map[string]ASRFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr: make(map[string]ASRFactory),
	}
}

// RegisterASR registers an ASR provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory ASRFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// ASRNames returns the registered ASR provider names, sorted.
func (r *Registry) ASRNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.asr))
	for n := range r.asr {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// CreateASR instantiates an ASR provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// OptionDuration reads a duration from entry.Options[key]. Strings are
// parsed with [time.ParseDuration]; bare numbers are seconds. ok is false
// when the key is absent or unparseable.
func (e ProviderEntry) OptionDuration(key string) (time.Duration, bool) {
	v, present := e.Options[key]
	if !present {
		return 0, false
	}
	switch x := v.(type) {
	case string:
		d, err := time.ParseDuration(x)
		return d, err == nil
	case int:
		return time.Duration(x) * time.Second, true
	case float64:
		return time.Duration(x * float64(time.Second)), true
	}
	return 0, false
}

// OptionString reads a string from entry.Options[key].
func (e ProviderEntry) OptionString(key string) (string, bool) {
	v, present := e.Options[key]
	if !present {
		return "", false
	}
	return optionString(v), true
}

// OptionInt reads an integer from entry.Options[key]. Whole floats and
// numeric strings are accepted.
func (e ProviderEntry) OptionInt(key string) (int, bool) {
	v, present := e.Options[key]
	if !present {
		return 0, false
	}
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	}
	return 0, false
}

func optionString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
