// Package server exposes the digit normalizer over HTTP.
//
// Routes:
//
//	POST /v1/parse      {"transcript","language"}             → digits + strategy
//	POST /v1/grade      {"transcript","language","expected"}  → digits + verdict
//	POST /v1/recognize  multipart audio, language, expected   → transcript + digits (+ verdict)
//	GET  /healthz, /readyz, /metrics
//
// Errors are JSON objects with a single "error" field.
package server

import (
	"net/http"
	"time"

	"github.com/MrWong99/digitspan/internal/digits"
	"github.com/MrWong99/digitspan/internal/grade"
	"github.com/MrWong99/digitspan/internal/health"
	"github.com/MrWong99/digitspan/internal/observe"
	"github.com/MrWong99/digitspan/pkg/provider/asr"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 10 << 20

// Analyzer turns a transcript into digits. [*digits.Normalizer] satisfies it.
type Analyzer interface {
	Analyze(transcript, language string) digits.Result
}

var _ Analyzer = (*digits.Normalizer)(nil)

// LanguageResolver is implemented by analyzers that substitute a default for
// an empty language tag. /v1/recognize uses it so the recogniser receives
// the same language hint the transcript is parsed with.
type LanguageResolver interface {
	ResolveLanguage(language string) string
}

// Answer is one graded answer, as handed to an [AnswerLog].
type Answer struct {
	Time       time.Time
	Route      string
	Language   string
	Transcript string
	Expected   []int
	Digits     []int
	Verdict    grade.Result
}

// AnswerLog persists graded answers. Save errors are logged and never fail
// the request.
type AnswerLog interface {
	SaveAnswer(Answer) error
}

// Server holds the dependencies of the HTTP handlers. It is safe for
// concurrent use once built.
type Server struct {
	analyzer    Analyzer
	transcriber asr.Transcriber
	metrics     *observe.Metrics
	health      *health.Handler
	metricsH    http.Handler
	answers     AnswerLog
	maxBody     int64
}

// Option configures a [Server].
type Option func(*Server)

// WithTranscriber enables POST /v1/recognize. Without it the route answers
// 503.
func WithTranscriber(t asr.Transcriber) Option {
	return func(s *Server) { s.transcriber = t }
}

// WithMetrics sets the instruments used by the handlers and the request
// middleware. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth mounts h on /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsH = h }
}

// WithAnswerLog records every graded answer to l.
func WithAnswerLog(l AnswerLog) Option {
	return func(s *Server) { s.answers = l }
}

// WithMaxBodyBytes overrides [DefaultMaxBodyBytes]. Non-positive values are
// ignored.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New returns a Server backed by a.
func New(a Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer: a,
		maxBody:  DefaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New(nil)
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/parse", s.handleParse)
	mux.HandleFunc("POST /v1/grade", s.handleGrade)
	mux.HandleFunc("POST /v1/recognize", s.handleRecognize)
	s.health.Register(mux)
	if s.metricsH != nil {
		mux.Handle("GET /metrics", s.metricsH)
	}
	return observe.Middleware(s.metrics)(mux)
}
