// Package synth renders parsed utterances into audio clip files.
//
// Every utterance of a job is sent to the TTS provider concurrently. A
// failure affects only that utterance: it is logged and reported as a clip
// without a path so the job can still be assembled from the survivors.
package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/murphy/internal/observe"
	"github.com/MrWong99/murphy/internal/script"
	"github.com/MrWong99/murphy/internal/tempstore"
	"github.com/MrWong99/murphy/pkg/provider/tts"
)

const (
	// DefaultTimeout bounds the render and download of a single utterance.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxClipBytes caps the size of a single rendered clip.
	DefaultMaxClipBytes = 64 << 20
)

var (
	// ErrNoAudio is recorded on a clip when the provider answered with
	// neither an audio URL nor inline audio, or the download was empty.
	ErrNoAudio = errors.New("synth: provider returned no audio")

	// ErrClipTooLarge is recorded on a clip whose audio exceeds the
	// configured size cap.
	ErrClipTooLarge = errors.New("synth: clip exceeds size limit")
)

// Clip is the outcome of one utterance. Path is empty when the utterance
// failed; Err then holds the reason. Format is the provider's audio format,
// lowercased, e.g. "mp3" or "wav_24000".
type Clip struct {
	Sequence int
	Path     string
	Format   string
	Err      error
}

// OK reports whether the clip was rendered to a file.
func (c Clip) OK() bool { return c.Path != "" }

// Synthesizer fans utterances out to a TTS provider.
type Synthesizer struct {
	provider     tts.Provider
	providerName string
	client       *http.Client
	timeout      time.Duration
	limit        int
	maxBytes     int64
	style        string
	metrics      *observe.Metrics
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithHTTPClient sets the client used to download rendered audio URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Synthesizer) { s.client = c }
}

// WithTimeout overrides [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConcurrency caps the number of utterances in flight. n <= 0 means no
// cap.
func WithConcurrency(n int) Option {
	return func(s *Synthesizer) { s.limit = n }
}

// WithMaxClipBytes overrides [DefaultMaxClipBytes]. Larger clips fail with
// [ErrClipTooLarge].
func WithMaxClipBytes(n int64) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithStyle overrides the speaking style sent with every request.
func WithStyle(style string) Option {
	return func(s *Synthesizer) {
		if style != "" {
			s.style = style
		}
	}
}

// WithProviderName sets the provider label used in metrics and logs.
func WithProviderName(name string) Option {
	return func(s *Synthesizer) { s.providerName = name }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Synthesizer) { s.metrics = m }
}

// New returns a Synthesizer rendering through p.
func New(p tts.Provider, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		provider:     p,
		providerName: "tts",
		client:       &http.Client{},
		timeout:      DefaultTimeout,
		maxBytes:     DefaultMaxClipBytes,
		style:        tts.DefaultStyle,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Synthesize renders every utterance into ws and returns one clip per
// utterance, in input order. It returns after all utterances have finished or
// timed out. Cancelling ctx aborts the utterances still running.
func (s *Synthesizer) Synthesize(ctx context.Context, ws *tempstore.Workspace, utterances []script.Utterance) []Clip {
	clips := make([]Clip, len(utterances))

	var g errgroup.Group
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for i, u := range utterances {
		g.Go(func() error {
			clips[i] = s.one(ctx, ws, u)
			return nil
		})
	}
	_ = g.Wait()
	return clips
}

// one renders a single utterance. Errors never escape; they are folded into
// the returned clip.
func (s *Synthesizer) one(ctx context.Context, ws *tempstore.Workspace, u script.Utterance) Clip {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := observe.StartSpan(ctx, "synth.utterance", trace.WithAttributes(
		attribute.String("job_id", ws.JobID()),
		attribute.Int("sequence", u.Sequence),
		attribute.String("voice_id", u.VoiceID),
	))

	path, format, err := s.render(ctx, ws, u)
	observe.EndSpan(span, err)

	if err != nil {
		s.metrics.RecordUtterance(ctx, observe.StatusFailed)
		observe.Logger(ctx).Warn("utterance dropped",
			"job_id", ws.JobID(),
			"sequence", u.Sequence,
			"speaker", u.Speaker,
			"voice_id", u.VoiceID,
			"err", err,
		)
		return Clip{Sequence: u.Sequence, Err: err}
	}
	s.metrics.RecordUtterance(ctx, observe.StatusOK)
	return Clip{Sequence: u.Sequence, Path: path, Format: format}
}

// render asks the provider for u and stores the audio in a clip file named
// after the returned format.
func (s *Synthesizer) render(ctx context.Context, ws *tempstore.Workspace, u script.Utterance) (path, format string, err error) {
	start := time.Now()
	r, err := s.provider.Synthesize(ctx, tts.Request{Text: u.Text, VoiceID: u.VoiceID, Style: s.style})
	s.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", s.providerName)))
	if err != nil {
		s.metrics.RecordProviderRequest(ctx, s.providerName, "tts", observe.StatusFailed)
		s.metrics.RecordProviderError(ctx, s.providerName, "tts")
		return "", "", fmt.Errorf("synth: render: %w", err)
	}
	s.metrics.RecordProviderRequest(ctx, s.providerName, "tts", observe.StatusOK)
	if r == nil {
		return "", "", ErrNoAudio
	}

	format = strings.ToLower(strings.TrimSpace(r.Format))
	if format == "" {
		format = "mp3"
	}

	switch {
	case len(r.Audio) > 0:
		if int64(len(r.Audio)) > s.maxBytes {
			return "", "", fmt.Errorf("%w: %d bytes", ErrClipTooLarge, len(r.Audio))
		}
		path = ws.ClipPath(u.Sequence, tts.Container(format))
		if err := os.WriteFile(path, r.Audio, 0o644); err != nil {
			return "", "", fmt.Errorf("synth: write clip: %w", err)
		}
		return path, format, nil
	case r.AudioURL != "":
		path = ws.ClipPath(u.Sequence, tts.Container(format))
		start := time.Now()
		err := s.fetch(ctx, r.AudioURL, path)
		s.metrics.FetchDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			return "", "", err
		}
		return path, format, nil
	default:
		return "", "", ErrNoAudio
	}
}

// fetch downloads url into path. A partially written file is removed on
// failure.
func (s *Synthesizer) fetch(ctx context.Context, url, path string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("synth: fetch: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("synth: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("synth: fetch: unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("synth: create clip: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("synth: close clip: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	n, err := io.Copy(f, io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return fmt.Errorf("synth: download: %w", err)
	}
	if n == 0 {
		return ErrNoAudio
	}
	if n > s.maxBytes {
		return fmt.Errorf("%w: download larger than %d bytes", ErrClipTooLarge, s.maxBytes)
	}
	return nil
}
