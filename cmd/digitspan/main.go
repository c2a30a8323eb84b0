// Command digitspan normalizes spoken digit-span answers. It runs the HTTP
// service and offers one-shot parse, grade and eval commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/digitspan/internal/app"
	"github.com/MrWong99/digitspan/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "digitspan: %v\n", err)
		}
		return 1
	}
	return 0
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	level      *slog.LevelVar
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:           "digitspan",
		Short:         "Spoken digit-span transcript normalizer",
		Long:          "Turn speech-to-text transcripts of spoken digits (English, Hindi, Kannada) into digit sequences.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			slog.SetDefault(newLogger(opts.level))
			if opts.logLevel != "" {
				lvl := config.LogLevel(opts.logLevel)
				if !lvl.IsValid() {
					return fmt.Errorf("invalid --log-level %q", opts.logLevel)
				}
				opts.level.Set(app.SlogLevel(lvl))
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newParseCmd(opts))
	root.AddCommand(newGradeCmd(opts))
	root.AddCommand(newEvalCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}

// errSilent signals a failure whose details were already reported.
var errSilent = errors.New("silent failure")

// loadConfig reads the config file. When the path is the default and no such
// file exists, a defaulted config is returned so one-shot commands work
// without any setup.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file %q not found (copy configs/example.yaml to get started)", opts.configPath)
	}
	return nil, err
}

// newLogger builds the process logger. lv may be changed later, for example
// by a config reload.
func newLogger(lv *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}
