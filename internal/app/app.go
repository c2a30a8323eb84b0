// Package app wires the digitspan subsystems into a running service.
//
// The App owns the full lifecycle: New builds telemetry, the normalizer, the
// ASR failover chain and the HTTP server; Run serves until the context is
// cancelled; Shutdown drains the server and flushes telemetry.
//
// For testing, inject telemetry and a log level via functional options.
// When an option is not provided, New creates real implementations.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/digitspan/internal/answerlog"
	"github.com/MrWong99/digitspan/internal/config"
	"github.com/MrWong99/digitspan/internal/digits"
	"github.com/MrWong99/digitspan/internal/digits/phonetic"
	"github.com/MrWong99/digitspan/internal/health"
	"github.com/MrWong99/digitspan/internal/observe"
	"github.com/MrWong99/digitspan/internal/resilience"
	"github.com/MrWong99/digitspan/internal/server"
	"github.com/MrWong99/digitspan/pkg/provider/asr"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// NamedTranscriber is one configured ASR backend.
type NamedTranscriber struct {
	Name        string
	Transcriber asr.Transcriber
}

// Providers holds the ASR backends in failover order. An empty list disables
// POST /v1/recognize. Populated by main.go via the config registry.
type Providers struct {
	ASR []NamedTranscriber
}

// parser is the hot-swappable normalizer state.
type parser struct {
	normalizer      *digits.Normalizer
	defaultLanguage string
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	level     *slog.LevelVar
	telemetry *observe.Telemetry
	parser    atomic.Pointer[parser]
	asr       *resilience.ASRFallback
	server    *server.Server
	httpSrv   *http.Server

	// closers are called in order during Shutdown.
	closers []func(context.Context) error

	stopOnce sync.Once
}

var (
	_ server.Analyzer         = (*App)(nil)
	_ server.LanguageResolver = (*App)(nil)
)

// Option is a functional option for New.
type Option func(*App)

// WithLevelVar lets config reloads change the level of the process logger.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithTelemetry injects telemetry instead of calling [observe.InitProvider].
// The caller keeps ownership and shuts it down.
func WithTelemetry(t *observe.Telemetry) Option {
	return func(a *App) { a.telemetry = t }
}

// New creates an App from cfg. providers may be nil.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
		a.level.Set(SlogLevel(cfg.Server.LogLevel))
	}

	// 1. Telemetry.
	if a.telemetry == nil {
		tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("app: init telemetry: %w", err)
		}
		a.telemetry = tel
		a.closers = append(a.closers, tel.Shutdown)
	}

	// 2. Normalizer.
	a.parser.Store(a.buildParser(cfg.Normalizer))

	// 3. ASR failover chain.
	if len(providers.ASR) > 0 {
		a.asr = resilience.NewASRFallback(resilience.FallbackConfig{
			CircuitBreaker: resilience.CircuitBreakerConfig{
				MaxFailures:  cfg.Resilience.MaxFailures,
				ResetTimeout: cfg.Resilience.ResetTimeout,
			},
		}, a.telemetry.Metrics)
		for _, p := range providers.ASR {
			a.asr.Add(p.Name, p.Transcriber)
		}
	}

	// 4. HTTP server.
	checkers := []health.Checker{{Name: "normalizer", Check: a.checkNormalizer}}
	srvOpts := []server.Option{
		server.WithMetrics(a.telemetry.Metrics),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if a.asr != nil {
		checkers = append(checkers, health.Checker{Name: "asr", Check: a.asr.Ready})
		srvOpts = append(srvOpts, server.WithTranscriber(a.asr))
	}
	if path := cfg.Server.AnswerLog; path != "" {
		srvOpts = append(srvOpts, server.WithAnswerLog(answerlog.NewFileStore(path)))
		slog.Info("answer log enabled", "path", path)
	}
	if a.telemetry.Registry != nil {
		srvOpts = append(srvOpts, server.WithMetricsHandler(observe.MetricsHandler(a.telemetry.Registry)))
	}
	srvOpts = append(srvOpts, server.WithHealth(health.New(checkers)))
	a.server = server.New(a, srvOpts...)

	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return a, nil
}

// NewNormalizer builds a normalizer from cfg. The phonetic recovery stage is
// added only when enabled.
func NewNormalizer(cfg config.NormalizerConfig, opts ...digits.Option) *digits.Normalizer {
	if cfg.PhoneticRecovery {
		var popts []phonetic.Option
		if cfg.PhoneticThreshold > 0 {
			popts = append(popts, phonetic.WithThreshold(cfg.PhoneticThreshold))
		}
		opts = append(opts, digits.WithRecovery(phonetic.New(popts...)))
	}
	return digits.New(opts...)
}

func (a *App) buildParser(cfg config.NormalizerConfig) *parser {
	return &parser{
		normalizer:      NewNormalizer(cfg, digits.WithObserver(a.observeParse)),
		defaultLanguage: cfg.DefaultLanguage,
	}
}

// observeParse records every normalizer pass.
func (a *App) observeParse(res digits.Result, took time.Duration) {
	a.telemetry.Metrics.RecordParse(context.Background(), string(res.Language), string(res.Strategy), took)
	slog.Debug("transcript parsed",
		"language", res.Language,
		"strategy", res.Strategy,
		"digits", len(res.Digits),
		"took", took,
	)
}

// ResolveLanguage returns language, or the configured default when it is
// empty.
func (a *App) ResolveLanguage(language string) string {
	if language == "" {
		return a.parser.Load().defaultLanguage
	}
	return language
}

// Analyze parses transcript with the current normalizer. An empty language
// selects the configured default.
func (a *App) Analyze(transcript, language string) digits.Result {
	p := a.parser.Load()
	if language == "" {
		language = p.defaultLanguage
	}
	return p.normalizer.Analyze(transcript, language)
}

// checkNormalizer runs a known transcript through the live normalizer.
func (a *App) checkNormalizer(_ context.Context) error {
	p := a.parser.Load()
	if got := p.normalizer.Parse("four nine", "en"); !slices.Equal(got, []int{4, 9}) {
		return fmt.Errorf("self-test parsed %v, want [4 9]", got)
	}
	return nil
}

// Handler returns the instrumented HTTP handler.
func (a *App) Handler() http.Handler { return a.httpSrv.Handler }

// ApplyConfig applies the hot-reloadable parts of next. It is meant to be
// passed to [config.NewWatcher].
func (a *App) ApplyConfig(prev, next *config.Config) {
	d := config.Diff(prev, next)

	if d.LogLevelChanged {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.NormalizerChanged {
		a.parser.Store(a.buildParser(next.Normalizer))
		slog.Info("normalizer reloaded",
			"default_language", next.Normalizer.DefaultLanguage,
			"phonetic_recovery", next.Normalizer.PhoneticRecovery,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config sections changed that need a restart", "sections", d.RestartRequired)
	}
}

// Run serves HTTP on the configured address and blocks until ctx is
// cancelled or the server fails. On cancellation it returns ctx.Err().
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %q: %w", a.httpSrv.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is like [App.Run] on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.httpSrv.Serve(ln)
	}()

	slog.Info("app running",
		"addr", ln.Addr().String(),
		"asr_backends", len(a.providers.ASR),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// Shutdown stops accepting requests, waits for in-flight ones and then runs
// the closers. It respects the context deadline: if ctx expires, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.httpSrv.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			shutdownErr = err
		}

		for i, closer := range a.closers {
			if err := ctx.Err(); err != nil {
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = err
				return
			}
			if err := closer(ctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// SlogLevel maps a config log level to its slog equivalent. Unknown values
// map to info.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
