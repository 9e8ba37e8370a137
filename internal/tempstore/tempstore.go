// Package tempstore allocates job-scoped temporary files for the audio
// pipeline and removes them once the job is done.
//
// Every path handed out by a Workspace is prefixed with the job ID, so
// concurrent jobs sharing one directory never touch each other's files.
package tempstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidJobID is returned by NewJob for IDs that are empty or contain
// path separators.
var ErrInvalidJobID = errors.New("tempstore: invalid job ID")

// Store hands out per-job workspaces inside a single directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for cleanup warnings. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a Store rooted at dir, creating it if needed. An empty dir
// selects "murphy" under the OS temp directory.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "murphy")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("tempstore: resolve %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("tempstore: create %q: %w", abs, err)
	}
	s := &Store{dir: abs, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Dir returns the absolute directory backing the store.
func (s *Store) Dir() string { return s.dir }

// NewJob returns the workspace for jobID. No files are created until the
// caller writes to the allocated paths.
func (s *Store) NewJob(jobID string) (*Workspace, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	return &Workspace{
		jobID:  jobID,
		dir:    s.dir,
		logger: s.logger.With("job_id", jobID),
	}, nil
}

// Workspace owns the temporary files of one job.
// Path allocation is safe for concurrent use.
type Workspace struct {
	jobID  string
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	owned []string
}

// JobID returns the job this workspace belongs to.
func (w *Workspace) JobID() string { return w.jobID }

// ClipPath returns the absolute path for the clip of utterance seq with file
// extension ext and registers it for cleanup. An empty ext means mp3.
func (w *Workspace) ClipPath(seq int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp3"
	}
	return w.track(filepath.Join(w.dir, fmt.Sprintf("%s_part%d.%s", w.jobID, seq, ext)))
}

// ManifestPath returns the absolute path of the concat manifest and
// registers it for cleanup.
func (w *Workspace) ManifestPath() string {
	return w.track(filepath.Join(w.dir, w.jobID+"_concat.txt"))
}

// OutputPath returns the absolute path of the job's final artifact. It is
// not registered for cleanup; the caller owns it after the job returns.
func (w *Workspace) OutputPath(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp3"
	}
	return filepath.Join(w.dir, fmt.Sprintf("%s_output.%s", w.jobID, ext))
}

func (w *Workspace) track(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.owned {
		if p == path {
			return path
		}
	}
	w.owned = append(w.owned, path)
	return path
}

// Cleanup removes every clip and manifest file handed out by the workspace.
// Missing files are ignored; other failures are logged and do not stop the
// remaining removals. It returns the number of files that could not be
// removed. Cleanup may be called more than once.
func (w *Workspace) Cleanup() int {
	w.mu.Lock()
	owned := w.owned
	w.owned = nil
	w.mu.Unlock()

	failed := 0
	for _, p := range owned {
		err := os.Remove(p)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		failed++
		w.logger.Warn("tempstore: failed to remove temp file", "path", p, "err", err)
	}
	return failed
}
