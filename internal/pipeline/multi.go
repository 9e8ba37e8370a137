package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/murphy/internal/observe"
)

// MultiRequest renders one script in several languages. Each language uses
// its own voice list, parallel to Names.
type MultiRequest struct {
	JobID     string
	Script    string
	Names     []string
	Languages map[string][]string
}

// LanguageError is the failure of one language's sub-job.
type LanguageError struct {
	Language string
	Err      error
}

func (e *LanguageError) Error() string {
	return fmt.Sprintf("pipeline: language %s: %v", e.Language, e.Err)
}

func (e *LanguageError) Unwrap() error { return e.Err }

// MultiResult holds the outcome of every requested language. A language
// appears in exactly one of Results and Errors.
type MultiResult struct {
	JobID   string
	Results map[string]*Result
	Errors  map[string]*LanguageError
}

// Err joins the per-language errors, or returns nil when every language
// succeeded.
func (m *MultiResult) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(m.Errors))
	for _, lang := range slices.Sorted(maps.Keys(m.Errors)) {
		errs = append(errs, m.Errors[lang])
	}
	return errors.Join(errs...)
}

// Release deletes every successful language's artifact.
func (m *MultiResult) Release() error {
	var errs []error
	for _, r := range m.Results {
		errs = append(errs, r.Release())
	}
	return errors.Join(errs...)
}

// SubJobID returns the job ID used for one language of a multi-language job.
func SubJobID(jobID, language string) string {
	return jobID + "-" + language
}

// RunLanguages renders every language concurrently. A failing language never
// aborts its siblings; its error is reported in the result instead. The
// returned error is non-nil only when the request as a whole is invalid: an
// empty script, no speakers, no languages, or a language whose voice list
// does not line up with Names. Nothing is rendered in that case.
func (o *Orchestrator) RunLanguages(ctx context.Context, req MultiRequest) (*MultiResult, error) {
	if len(req.Languages) == 0 {
		return nil, fmt.Errorf("%w: at least one language is required", ErrInvalidInput)
	}
	for _, lang := range slices.Sorted(maps.Keys(req.Languages)) {
		if _, err := validate(req.Script, req.Names, req.Languages[lang]); err != nil {
			return nil, fmt.Errorf("pipeline: language %s: %w", lang, err)
		}
	}
	if req.JobID == "" {
		req.JobID = NewJobID()
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.RunLanguages")
	defer span.End()

	res := &MultiResult{
		JobID:   req.JobID,
		Results: make(map[string]*Result, len(req.Languages)),
		Errors:  make(map[string]*LanguageError),
	}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, lang := range slices.Sorted(maps.Keys(req.Languages)) {
		voices := req.Languages[lang]
		g.Go(func() error {
			r, err := o.Run(ctx, Request{
				JobID:    SubJobID(req.JobID, lang),
				Script:   req.Script,
				Names:    req.Names,
				VoiceIDs: voices,
				Language: lang,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				observe.Logger(ctx).Error("language failed", "job_id", req.JobID, "language", lang, "err", err)
				res.Errors[lang] = &LanguageError{Language: lang, Err: err}
				return nil
			}
			res.Results[lang] = r
			return nil
		})
	}
	_ = g.Wait()
	return res, nil
}
