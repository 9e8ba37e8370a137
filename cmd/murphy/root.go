package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/murphy/internal/config"
)

var (
	cfgFile   string
	activeCfg *config.Config

	// logLevel backs the default logger so config reloads can change
	// verbosity without rebuilding handlers.
	logLevel = new(slog.LevelVar)
)

// NewRootCmd builds the murphy command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "murphy",
		Short:         "Podcast script generation and multi-voice rendering",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("murphy: config file %q not found, copy configs/example.yaml to get started", cfgFile)
				}
				return fmt.Errorf("murphy: %w", err)
			}
			activeCfg = cfg
			setupLogger(cfg.Server.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to the YAML configuration file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newDoctorCmd())
	return cmd
}

// setupLogger installs the process-wide text logger at level.
func setupLogger(level config.LogLevel) {
	logLevel.Set(slogLevel(level))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
}

func slogLevel(level config.LogLevel) slog.Level {
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

func requireConfig() (*config.Config, error) {
	if activeCfg == nil {
		return nil, errors.New("murphy: configuration not loaded")
	}
	return activeCfg, nil
}
