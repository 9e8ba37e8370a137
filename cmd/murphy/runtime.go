package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/murphy/internal/concat"
	"github.com/MrWong99/murphy/internal/config"
	"github.com/MrWong99/murphy/internal/health"
	"github.com/MrWong99/murphy/internal/observe"
	"github.com/MrWong99/murphy/internal/pipeline"
	"github.com/MrWong99/murphy/internal/podcast"
	"github.com/MrWong99/murphy/internal/podcaststore"
	"github.com/MrWong99/murphy/internal/publish"
	"github.com/MrWong99/murphy/internal/synth"
	"github.com/MrWong99/murphy/internal/tempstore"
)

// runtime is the assembled object graph shared by serve and render.
type runtime struct {
	providers *providers
	ffmpeg    *concat.FFmpeg
	pipeline  *pipeline.Orchestrator
	generator *podcast.Generator
	publisher *publish.Publisher
	store     podcaststore.Store
	pool      *pgxpool.Pool
}

// newRuntime builds providers, the render pipeline and, when withCatalogue
// is set, the publisher and metadata store.
func newRuntime(ctx context.Context, cfg *config.Config, metrics *observe.Metrics, withCatalogue bool) (*runtime, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		return nil, err
	}
	if ps.TTS == nil {
		return nil, errors.New("murphy: no tts provider configured")
	}

	rt := &runtime{providers: ps}

	rt.ffmpeg, err = concat.NewFFmpeg(cfg.Audio.FFmpegPath,
		concat.WithBitrate(cfg.Audio.Bitrate),
		concat.WithFormat(cfg.Audio.OutputFormat),
		concat.WithReencode(cfg.Audio.Reencode),
	)
	if err != nil {
		return nil, err
	}

	temp, err := tempstore.New(cfg.Audio.TempDir)
	if err != nil {
		return nil, err
	}

	synthOpts := []synth.Option{
		synth.WithTimeout(cfg.Pipeline.UtteranceTimeout),
		synth.WithConcurrency(cfg.Pipeline.MaxConcurrency),
		synth.WithStyle(cfg.Pipeline.Style),
		synth.WithProviderName(ps.TTSName),
		synth.WithMetrics(metrics),
	}
	if cfg.Pipeline.FetchTimeout > 0 {
		synthOpts = append(synthOpts, synth.WithHTTPClient(&http.Client{Timeout: cfg.Pipeline.FetchTimeout}))
	}

	rt.pipeline, err = pipeline.New(temp, synth.New(ps.TTS, synthOpts...), rt.ffmpeg, pipeline.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	if ps.LLM != nil {
		rt.generator = podcast.NewGenerator(ps.LLM,
			podcast.WithProviderName(ps.LLMName),
			podcast.WithMetrics(metrics),
		)
	}

	if !withCatalogue {
		return rt, nil
	}

	if cfg.Storage.MediaDir != "" {
		rt.publisher, err = publish.New(cfg.Storage.MediaDir, cfg.Storage.MediaBaseURL)
		if err != nil {
			return nil, err
		}
	}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		rt.pool, err = pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("murphy: connect postgres: %w", err)
		}
		pg := podcaststore.NewPostgresStore(rt.pool)
		if err := pg.Migrate(ctx); err != nil {
			rt.pool.Close()
			return nil, err
		}
		rt.store = pg
		slog.Info("podcast store ready", "backend", "postgres")
	} else {
		rt.store = podcaststore.NewMemStore()
		slog.Warn("no postgres_dsn configured, podcast records are kept in memory")
	}
	return rt, nil
}

// checkers returns the readiness checks for rt.
func (rt *runtime) checkers() []health.Checker {
	cs := []health.Checker{health.Binary("ffmpeg", rt.ffmpeg.Check)}
	if rt.store != nil {
		cs = append(cs, health.Ping("store", rt.store.Ping))
	}
	if rt.providers.Breakers != nil {
		cs = append(cs, health.Breakers("providers", rt.providers.Breakers))
	}
	return cs
}

func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}
