// Package mock provides a test double for the asr.Transcriber interface.
//
// Example:
//
//	m := &mock.Transcriber{Text: "four nine"}
//	text, _ := m.Transcribe(ctx, asr.Request{Audio: wav})
//	_ = m.Calls() // inspect what was sent
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/digitspan/pkg/provider/asr"
)

var _ asr.Transcriber = (*Transcriber)(nil)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	Ctx context.Context
	Req asr.Request
}

// Transcriber is a mock implementation of asr.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Text is returned by Transcribe when Err is nil.
	Text string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeFunc, if set, overrides Text and Err.
	TranscribeFunc func(ctx context.Context, req asr.Request) (string, error)

	calls []TranscribeCall
}

// Transcribe records the call and returns the configured response.
func (m *Transcriber) Transcribe(ctx context.Context, req asr.Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, TranscribeCall{Ctx: ctx, Req: req})
	fn, text, err := m.TranscribeFunc, m.Text, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// Calls returns a copy of every recorded call.
func (m *Transcriber) Calls() []TranscribeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TranscribeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls.
func (m *Transcriber) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
