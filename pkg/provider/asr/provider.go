// Package asr defines the Transcriber interface for batch speech recognition
// backends.
//
// A Transcriber turns one recorded answer into text. The audio bytes are
// forwarded untouched; callers are responsible for sending a format the
// backend accepts (whisper.cpp and the OpenAI API both take WAV).
//
// Implementations must be safe for concurrent use.
package asr

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a request carries no audio.
var ErrEmptyAudio = errors.New("asr: empty audio")

// DefaultFilename is sent when a [Request] has no Filename.
const DefaultFilename = "audio.wav"

// Request is a single transcription request.
type Request struct {
	// Audio is the encoded recording.
	Audio []byte

	// Filename is forwarded to the backend, which may use the extension to
	// detect the container format.
	Filename string

	// Language is a BCP-47 tag hint ("en", "hi", "kn"). Empty lets the
	// backend auto-detect.
	Language string
}

// FilenameOrDefault returns r.Filename, or [DefaultFilename] when empty.
func (r Request) FilenameOrDefault() string {
	if r.Filename == "" {
		return DefaultFilename
	}
	return r.Filename
}

// Transcriber is the abstraction over any batch ASR backend.
type Transcriber interface {
	// Transcribe returns the recognised text for req. An empty string with a
	// nil error means the backend heard nothing.
	Transcribe(ctx context.Context, req Request) (string, error)
}
