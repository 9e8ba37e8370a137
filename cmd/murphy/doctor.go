package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/MrWong99/murphy/internal/concat"
	"github.com/MrWong99/murphy/internal/config"
	"github.com/MrWong99/murphy/internal/health"
)

// PassMark and FailMark prefix each doctor line. WarnMark marks optional
// checks that failed.
const (
	PassMark = "✓"
	FailMark = "✗"
	WarnMark = "!"
)

const doctorTimeout = 10 * time.Second

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check ffmpeg, provider configuration and storage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
			defer cancel()
			return doctor(ctx, cfg, cmd.OutOrStdout())
		},
	}
}

// doctor runs every check and prints one line per outcome. It fails when a
// required check fails.
func doctor(ctx context.Context, cfg *config.Config, w io.Writer) error {
	var ffmpegVersion string
	outcomes := health.Run(ctx, doctorCheckers(cfg, &ffmpegVersion))
	for _, o := range outcomes {
		switch {
		case o.OK() && o.Name == "ffmpeg":
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", PassMark, o.Name, ffmpegVersion)
		case o.OK():
			_, _ = fmt.Fprintf(w, "%s %s: ok\n", PassMark, o.Name)
		case o.Optional:
			_, _ = fmt.Fprintf(w, "%s %s: %v\n", WarnMark, o.Name, o.Err)
		default:
			_, _ = fmt.Fprintf(w, "%s %s: %v\n", FailMark, o.Name, o.Err)
		}
	}
	if !health.Healthy(outcomes) {
		return errors.New("doctor checks failed")
	}
	_, _ = fmt.Fprintln(w, "doctor checks passed")
	return nil
}

// doctorCheckers builds the checks for cfg. The ffmpeg check stores the
// probed version line in version.
func doctorCheckers(cfg *config.Config, version *string) []health.Checker {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	cs := []health.Checker{
		{Name: "ffmpeg", Check: func(ctx context.Context) error {
			ff, err := concat.NewFFmpeg(cfg.Audio.FFmpegPath)
			if err != nil {
				return err
			}
			*version, err = ff.Version(ctx)
			return err
		}},
		{Name: "tts provider", Check: func(context.Context) error {
			return providerConfigured(reg, "tts", cfg.Providers.TTS, cfg.Providers.TTSFallbacks)
		}},
		{Name: "llm provider", Optional: true, Check: func(context.Context) error {
			return providerConfigured(reg, "llm", cfg.Providers.LLM, cfg.Providers.LLMFallbacks)
		}},
		{Name: "temp dir", Check: func(context.Context) error {
			dir := cfg.Audio.TempDir
			if dir == "" {
				dir = os.TempDir()
			}
			return writable(dir)
		}},
		{Name: "media dir", Optional: true, Check: func(context.Context) error {
			if cfg.Storage.MediaDir == "" {
				return errors.New("not configured, /api/podcasts is disabled")
			}
			return writable(cfg.Storage.MediaDir)
		}},
	}
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		cs = append(cs, health.Checker{Name: "postgres", Check: func(ctx context.Context) error {
			pool, err := pgxpool.New(ctx, dsn)
			if err != nil {
				return err
			}
			defer pool.Close()
			return pool.Ping(ctx)
		}})
	}
	return cs
}

// providerConfigured checks that the primary and every fallback name a
// registered provider.
func providerConfigured(reg *config.Registry, kind string, primary config.ProviderEntry, fallbacks []config.ProviderEntry) error {
	if primary.Name == "" {
		return errors.New("not configured")
	}
	known := reg.Names(kind)
	for _, e := range append([]config.ProviderEntry{primary}, fallbacks...) {
		if !slices.Contains(known, e.Name) {
			return fmt.Errorf("%q is not a known %s provider (known: %v)", e.Name, kind, known)
		}
	}
	return nil
}

// writable creates dir if needed and probes it with a temp file.
func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".murphy-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
