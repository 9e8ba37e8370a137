package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/murphy/internal/config"
	"github.com/MrWong99/murphy/internal/health"
	"github.com/MrWong99/murphy/internal/httpapi"
	"github.com/MrWong99/murphy/internal/observe"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the murphy HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "murphy"})
	if err != nil {
		return fmt.Errorf("murphy: init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	rt, err := newRuntime(ctx, cfg, metrics, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	watcher, err := config.NewWatcher(cfgFile, applyConfigChange)
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	opts := []httpapi.Option{
		httpapi.WithVoices(rt.providers.TTS),
		httpapi.WithHealth(health.New(rt.checkers()...)),
		httpapi.WithMetrics(metrics),
		httpapi.WithMetricsHandler(tel.MetricsHandler),
	}
	if rt.generator != nil {
		opts = append(opts, httpapi.WithGenerator(rt.generator))
	}
	if rt.publisher != nil {
		opts = append(opts, httpapi.WithCatalogue(rt.publisher, rt.store))
	} else {
		slog.Warn("no media_dir configured, /api/podcasts is disabled")
	}
	api := httpapi.New(rt.pipeline, opts...)

	printStartupSummary(cfg)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.Server.ListenAddr, "public_base_url", cfg.Server.PublicBaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("murphy: http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping…")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("murphy: shutdown: %w", err)
	}
	slog.Info("goodbye")
	return nil
}

// applyConfigChange applies the live-reloadable parts of a config edit and
// warns about the rest.
func applyConfigChange(old, next *config.Config) {
	d := config.Diff(old, next)
	if d.LogLevelChanged {
		logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if len(d.Restart) > 0 {
		slog.Warn("config changes require a restart", "sections", d.Restart)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         murphy — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("LLM", providerLabel(cfg.Providers.LLM))
	printRow("TTS", providerLabel(cfg.Providers.TTS))
	printRow("TTS fallbacks", fmt.Sprint(len(cfg.Providers.TTSFallbacks)))
	printRow("ffmpeg", orNone(cfg.Audio.FFmpegPath))
	if cfg.Storage.PostgresDSN != "" {
		printRow("Store", "postgres")
	} else {
		printRow("Store", "memory")
	}
	printRow("Media dir", orNone(cfg.Storage.MediaDir))
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func providerLabel(e config.ProviderEntry) string {
	switch {
	case e.Name == "":
		return ""
	case e.Model != "":
		return e.Name + " / " + e.Model
	default:
		return e.Name
	}
}

func orNone(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}

func printRow(label, value string) {
	value = orNone(value)
	if len([]rune(value)) > 19 {
		value = string([]rune(value)[:16]) + "…"
	}
	fmt.Printf("║  %-13s   : %-19s ║\n", label, value)
}
