package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MrWong99/digitspan/internal/app"
	"github.com/MrWong99/digitspan/internal/config"
	"github.com/MrWong99/digitspan/pkg/provider/asr"
	"github.com/MrWong99/digitspan/pkg/provider/asr/openai"
	"github.com/MrWong99/digitspan/pkg/provider/asr/whisper"
)

// shutdownTimeout bounds graceful shutdown after a signal.
const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var watchInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long: "Serve POST /v1/parse, /v1/grade and /v1/recognize plus health and metrics endpoints. " +
			"The config file is polled and re-read on SIGHUP; log level and normalizer settings reload without a restart.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts, watchInterval)
		},
	}
	cmd.Flags().DurationVar(&watchInterval, "watch-interval", 5*time.Second, "config file polling interval")
	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions, watchInterval time.Duration) error {
	ctx := cmd.Context()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") {
		opts.level.Set(app.SlogLevel(cfg.Server.LogLevel))
	}

	slog.Info("digitspan starting",
		"version", version,
		"config", opts.configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	printStartupSummary(cmd.OutOrStdout(), cfg)

	application, err := app.New(ctx, cfg, providers, app.WithLevelVar(opts.level))
	if err != nil {
		return err
	}

	watcher, err := config.NewWatcher(opts.configPath, application.ApplyConfig, config.WithInterval(watchInterval))
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
		go reloadOnHangup(ctx, watcher)
	}

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutdown signal received, stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return errSilent
	}
	slog.Info("goodbye")
	return nil
}

// reloadOnHangup re-reads the config file whenever the process gets SIGHUP.
func reloadOnHangup(ctx context.Context, w *config.Watcher) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if !w.Reload() {
				slog.Info("SIGHUP: config unchanged")
			}
		}
	}
}

// registerBuiltinProviders wires the ASR factories that ship with digitspan.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterASR("whisper", func(entry config.ProviderEntry) (asr.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if d, ok := entry.OptionDuration("timeout"); ok {
			opts = append(opts, whisper.WithTimeout(d))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterASR("openai", func(entry config.ProviderEntry) (asr.Transcriber, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org, ok := entry.OptionString("organization"); ok {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d, ok := entry.OptionDuration("timeout"); ok {
			opts = append(opts, openai.WithTimeout(d))
		}
		if n, ok := entry.OptionInt("max_retries"); ok {
			opts = append(opts, openai.WithMaxRetries(n))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, name := range reg.ASRNames() {
		slog.Debug("registered provider", "kind", "asr", "name", name)
	}
}

// buildProviders instantiates the configured ASR backends in failover order.
// Entries naming an unregistered provider are skipped with a warning.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	for _, entry := range cfg.Providers.ASR {
		t, err := reg.CreateASR(entry)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("provider not registered, skipping", "kind", "asr", "name", entry.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create asr provider %q: %w", entry.Name, err)
		}
		ps.ASR = append(ps.ASR, app.NamedTranscriber{Name: entry.Name, Transcriber: t})
		slog.Info("provider created", "kind", "asr", "name", entry.Name, "model", entry.Model)
	}
	return ps, nil
}

var (
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	summaryTitle = lipgloss.NewStyle().Bold(true)
	summaryKey   = lipgloss.NewStyle().Width(18).Faint(true)
)

func printStartupSummary(w io.Writer, cfg *config.Config) {
	row := func(k, v string) string { return summaryKey.Render(k) + v }

	asrValue := "(not configured)"
	if n := len(cfg.Providers.ASR); n > 0 {
		asrValue = cfg.Providers.ASR[0].Name
		if n > 1 {
			asrValue += fmt.Sprintf(" (+%d fallback)", n-1)
		}
	}
	phonetic := "off"
	if cfg.Normalizer.PhoneticRecovery {
		phonetic = fmt.Sprintf("on (%.2f)", cfg.Normalizer.PhoneticThreshold)
	}

	answers := "off"
	if cfg.Server.AnswerLog != "" {
		answers = cfg.Server.AnswerLog
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		summaryTitle.Render("digitspan "+version),
		"",
		row("Listen addr", cfg.Server.ListenAddr),
		row("Default language", cfg.Normalizer.DefaultLanguage),
		row("Phonetic recovery", phonetic),
		row("ASR", asrValue),
		row("Answer log", answers),
	)
	fmt.Fprintln(w, summaryBox.Render(body))
}
