// Package pipeline turns a speaker-labelled script into one finished audio
// file.
//
// A job runs in four stages: the script is parsed into utterances, every
// utterance is rendered concurrently, the surviving clips are joined in
// script order and the job's temporary files are removed. Utterance failures
// shrink the output but never fail the job; only input errors, a job with no
// audio at all, and assembly failures do.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/murphy/internal/concat"
	"github.com/MrWong99/murphy/internal/observe"
	"github.com/MrWong99/murphy/internal/script"
	"github.com/MrWong99/murphy/internal/synth"
	"github.com/MrWong99/murphy/internal/tempstore"
)

var (
	// ErrInvalidInput is returned when a request is rejected before any
	// external call is made.
	ErrInvalidInput = errors.New("pipeline: invalid input")

	// ErrNoAudio is returned when a job yields no clip to assemble, either
	// because no line matched a speaker or because every utterance failed.
	ErrNoAudio = errors.New("pipeline: no audio produced")

	// ErrAssembly is returned when joining the clips failed. The underlying
	// *concat.ExitError or concat.ErrBinaryNotFound stays reachable through
	// errors.As / errors.Is.
	ErrAssembly = errors.New("pipeline: audio assembly failed")
)

// Renderer renders utterances into clip files inside a job workspace.
// *synth.Synthesizer is the production implementation.
type Renderer interface {
	Synthesize(ctx context.Context, ws *tempstore.Workspace, utterances []script.Utterance) []synth.Clip
}

// NewJobID returns a fresh job identifier, usable as a file-name prefix and
// as the key of the job's metadata record.
func NewJobID() string {
	return uuid.NewString()
}

// Request describes a single-language render.
type Request struct {
	// JobID namespaces the job's files. A new ID is generated when empty.
	JobID string

	// Script holds one "Name: text" line per utterance.
	Script string

	// Names and VoiceIDs are parallel lists mapping speakers to voices.
	Names    []string
	VoiceIDs []string

	// Language labels logs and metrics. Optional.
	Language string
}

// Result describes a finished single-language job.
type Result struct {
	JobID    string
	Language string

	// Path is the assembled artifact. The caller owns it and should call
	// Release once its bytes have been consumed.
	Path string

	// Utterances is the number of utterances parsed from the script.
	Utterances int

	// Failed lists the sequences of utterances missing from the artifact.
	Failed []int

	// Report describes lines that were dropped during parsing.
	Report script.Report
}

// Rendered returns the number of utterances present in the artifact.
func (r *Result) Rendered() int { return r.Utterances - len(r.Failed) }

// Release deletes the artifact. It is safe to call more than once.
func (r *Result) Release() error {
	if r == nil || r.Path == "" {
		return nil
	}
	if err := os.Remove(r.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pipeline: release %s: %w", r.Path, err)
	}
	return nil
}

// Orchestrator wires the parser, renderer and joiner together.
type Orchestrator struct {
	store    *tempstore.Store
	renderer Renderer
	joiner   concat.Joiner
	metrics  *observe.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an Orchestrator. All three collaborators are required.
func New(store *tempstore.Store, renderer Renderer, joiner concat.Joiner, opts ...Option) (*Orchestrator, error) {
	switch {
	case store == nil:
		return nil, errors.New("pipeline: temp store must not be nil")
	case renderer == nil:
		return nil, errors.New("pipeline: renderer must not be nil")
	case joiner == nil:
		return nil, errors.New("pipeline: joiner must not be nil")
	}
	o := &Orchestrator{store: store, renderer: renderer, joiner: joiner}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o, nil
}

// Run executes one job and returns the assembled artifact. Temporary clip
// and manifest files are removed before Run returns, whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, req Request) (res *Result, err error) {
	vm, err := validate(req.Script, req.Names, req.VoiceIDs)
	if err != nil {
		return nil, err
	}
	if req.JobID == "" {
		req.JobID = NewJobID()
	}
	ws, err := o.store.NewJob(req.JobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("job_id", req.JobID),
		attribute.String("language", req.Language),
	))
	o.metrics.ActiveJobs.Add(ctx, 1)
	start := time.Now()
	defer func() {
		o.metrics.ActiveJobs.Add(ctx, -1)
		o.metrics.JobDuration.Record(ctx, time.Since(start).Seconds())
		o.metrics.RecordJob(ctx, req.Language, jobStatus(err))
		observe.EndSpan(span, err)
	}()
	defer ws.Cleanup()

	log := observe.Logger(ctx).With("job_id", req.JobID, "language", req.Language)

	for _, sh := range vm.Shadowed() {
		log.Warn("speaker can never be matched, an earlier name claims its lines",
			"speaker", sh.Name, "shadowed_by", sh.By)
	}
	report := script.Inspect(req.Script, vm)
	for _, d := range report.Dropped {
		attrs := []any{"line", d.Line}
		if d.Suggestion != "" {
			attrs = append(attrs, "label", d.Label, "did_you_mean", d.Suggestion)
		}
		log.Info("script line has no known speaker, skipped", attrs...)
	}

	utterances := script.Parse(req.Script, vm)
	if len(utterances) == 0 {
		return nil, fmt.Errorf("%w: no script line matched a speaker", ErrNoAudio)
	}
	span.SetAttributes(attribute.Int("utterances", len(utterances)))

	clips := o.renderer.Synthesize(ctx, ws, utterances)
	rendered, failed := survivors(clips)
	if len(rendered) == 0 {
		return nil, fmt.Errorf("%w: all %d utterances failed", ErrNoAudio, len(utterances))
	}
	if len(failed) > 0 {
		log.Warn("assembling partial audio", "rendered", len(rendered), "failed_sequences", failed)
	}

	out, err := o.join(ctx, ws, rendered)
	if err != nil {
		return nil, err
	}
	log.Info("job finished", "path", out, "rendered", len(rendered), "utterances", len(utterances))

	return &Result{
		JobID:      req.JobID,
		Language:   req.Language,
		Path:       out,
		Utterances: len(utterances),
		Failed:     failed,
		Report:     report,
	}, nil
}

// validate checks the request-level inputs shared by single and
// multi-language jobs and builds the speaker map.
func validate(scriptText string, names, voiceIDs []string) (*script.VoiceMap, error) {
	if strings.TrimSpace(scriptText) == "" {
		return nil, fmt.Errorf("%w: script is empty", ErrInvalidInput)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one speaker is required", ErrInvalidInput)
	}
	vm, err := script.NewVoiceMap(names, voiceIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return vm, nil
}

func (o *Orchestrator) join(ctx context.Context, ws *tempstore.Workspace, clips []concat.Clip) (out string, err error) {
	ctx, span := observe.StartSpan(ctx, "concat.Join", trace.WithAttributes(attribute.Int("clips", len(clips))))
	start := time.Now()
	defer func() {
		o.metrics.ConcatDuration.Record(ctx, time.Since(start).Seconds())
		observe.EndSpan(span, err)
	}()

	out, err = o.joiner.Join(ctx, ws, clips)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssembly, err)
	}
	return out, nil
}

// survivors returns the rendered clips ordered by sequence, and the
// sequences of failed ones.
func survivors(clips []synth.Clip) (rendered []concat.Clip, failed []int) {
	sorted := slices.Clone(clips)
	slices.SortStableFunc(sorted, func(a, b synth.Clip) int { return a.Sequence - b.Sequence })
	for _, c := range sorted {
		if c.OK() {
			rendered = append(rendered, concat.Clip{Path: c.Path, Format: c.Format})
		} else {
			failed = append(failed, c.Sequence)
		}
	}
	return rendered, failed
}

// jobStatus maps a job error onto the short label used by the jobs counter.
func jobStatus(err error) string {
	switch {
	case err == nil:
		return observe.StatusOK
	case errors.Is(err, ErrNoAudio):
		return "no_audio"
	case errors.Is(err, ErrAssembly):
		return "assembly"
	default:
		return observe.StatusFailed
	}
}
