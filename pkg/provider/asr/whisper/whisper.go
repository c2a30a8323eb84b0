// Package whisper provides an ASR backend that talks to a whisper.cpp
// server over its REST API (POST /inference).
//
// Usage:
//
//	t, err := whisper.New("http://localhost:8081", whisper.WithModel("base"))
//	text, err := t.Transcribe(ctx, asr.Request{Audio: wav, Language: "hi"})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/digitspan/pkg/provider/asr"
)

const defaultTimeout = 30 * time.Second

// Compile-time assertion that Transcriber implements asr.Transcriber.
var _ asr.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithModel sets the model identifier forwarded to the server (e.g.,
// "base", "small"). When empty the server uses whichever model it was
// started with. This is the default.
func WithModel(model string) Option {
	return func(t *Transcriber) {
		t.model = model
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s. Ignored
// when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) {
		t.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) {
		t.httpClient = c
	}
}

// Transcriber implements asr.Transcriber backed by a whisper.cpp HTTP server.
type Transcriber struct {
	serverURL  string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a Transcriber for the whisper.cpp server at serverURL (e.g.,
// "http://localhost:8081"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Transcriber, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	t := &Transcriber{
		serverURL: strings.TrimRight(serverURL, "/"),
		timeout:   defaultTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: t.timeout}
	}
	return t, nil
}

// Transcribe POSTs req.Audio to the /inference endpoint as
// multipart/form-data and returns the recognised text.
func (t *Transcriber) Transcribe(ctx context.Context, req asr.Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", asr.ErrEmptyAudio
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", req.FilenameOrDefault())
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return "", fmt.Errorf("whisper: write audio: %w", err)
	}

	// Optional hint fields.
	if req.Language != "" {
		if err := mw.WriteField("language", req.Language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if t.model != "" {
		if err := mw.WriteField("model", t.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("whisper: write response_format field: %w", err)
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}
