// Package httpapi exposes podcast generation, rendering and the podcast
// catalogue over HTTP/JSON.
//
// Routes:
//
//	POST /api/generate-podcast  draft title, description and script from an idea
//	POST /api/generate-audio    render one track and return it inline as base64
//	POST /api/podcasts          render several languages, publish them and store a record
//	GET  /api/podcasts          list a user's podcasts (?userId=)
//	GET  /api/podcasts/{id}     fetch one podcast record
//	GET  /api/voices            list voices of the TTS provider
//	GET  /api/themes            list content themes
//	GET  /healthz, /readyz      liveness and readiness
//	GET  /metrics               Prometheus scrape endpoint
//
// Routes whose backing component is not configured are not registered.
package httpapi

import (
	"context"
	"net/http"

	"github.com/MrWong99/murphy/internal/health"
	"github.com/MrWong99/murphy/internal/observe"
	"github.com/MrWong99/murphy/internal/pipeline"
	"github.com/MrWong99/murphy/internal/podcast"
	"github.com/MrWong99/murphy/internal/podcaststore"
	"github.com/MrWong99/murphy/pkg/provider/tts"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Pipeline renders scripts into audio tracks.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	RunLanguages(ctx context.Context, req pipeline.MultiRequest) (*pipeline.MultiResult, error)
}

// Generator drafts podcast content.
type Generator interface {
	Generate(ctx context.Context, idea podcast.Idea) (*podcast.Content, error)
}

// Publisher makes a rendered track publicly reachable.
type Publisher interface {
	Publish(ctx context.Context, jobID, language, localPath string) (string, error)
}

// VoiceLister lists available voices. Every [tts.Provider] satisfies it.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]tts.Voice, error)
}

var (
	_ Pipeline    = (*pipeline.Orchestrator)(nil)
	_ Generator   = (*podcast.Generator)(nil)
	_ VoiceLister = (tts.Provider)(nil)
)

// Server holds the handler dependencies.
type Server struct {
	pipeline       Pipeline
	generator      Generator
	publisher      Publisher
	store          podcaststore.Store
	voices         VoiceLister
	health         *health.Handler
	metrics        *observe.Metrics
	metricsHandler http.Handler
	maxBodyBytes   int64
}

// Option configures a Server.
type Option func(*Server)

// WithGenerator enables POST /api/generate-podcast.
func WithGenerator(g Generator) Option {
	return func(s *Server) { s.generator = g }
}

// WithCatalogue enables the /api/podcasts routes. Both arguments are
// required.
func WithCatalogue(p Publisher, store podcaststore.Store) Option {
	return func(s *Server) {
		s.publisher = p
		s.store = store
	}
}

// WithVoices enables GET /api/voices.
func WithVoices(v VoiceLister) Option {
	return func(s *Server) { s.voices = v }
}

// WithHealth registers /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics sets the metrics used by the request middleware. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithMaxBodyBytes overrides [DefaultMaxBodyBytes].
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New returns a Server rendering through p.
func New(p Pipeline, opts ...Option) *Server {
	s := &Server{pipeline: p, maxBodyBytes: DefaultMaxBodyBytes}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the routed and instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-audio", s.handleGenerateAudio)
	mux.HandleFunc("GET /api/themes", s.handleThemes)
	if s.generator != nil {
		mux.HandleFunc("POST /api/generate-podcast", s.handleGeneratePodcast)
	}
	if s.publisher != nil && s.store != nil {
		mux.HandleFunc("POST /api/podcasts", s.handleCreatePodcast)
		mux.HandleFunc("GET /api/podcasts", s.handleListPodcasts)
		mux.HandleFunc("GET /api/podcasts/{id}", s.handleGetPodcast)
	}
	if s.voices != nil {
		mux.HandleFunc("GET /api/voices", s.handleVoices)
	}
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return observe.Middleware(s.metrics, mux)(mux)
}
