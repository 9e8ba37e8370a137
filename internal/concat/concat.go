// Package concat joins the per-utterance clips of a job into one audio file.
//
// The Joiner interface keeps the pipeline independent of the external media
// tool; FFmpeg is the production implementation.
package concat

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/murphy/internal/tempstore"
)

var (
	// ErrNoClips is returned when Join is called without any clip. The
	// external tool is never started in that case.
	ErrNoClips = errors.New("concat: no clips to join")

	// ErrBinaryNotFound is returned when the configured media tool does not
	// exist or is not executable.
	ErrBinaryNotFound = errors.New("concat: media binary not found")

	// ErrNoOutput is returned when the tool exits cleanly but the declared
	// output file is missing or empty.
	ErrNoOutput = errors.New("concat: tool produced no output")
)

// Clip is one rendered file handed to a Joiner.
type Clip struct {
	// Path is the clip file.
	Path string
	// Format is the provider's audio format, e.g. "mp3_44100_128". When
	// empty the file extension of Path is used.
	Format string
}

// Joiner concatenates ordered clip files into a single artifact.
type Joiner interface {
	// Join writes the manifest for clips into ws, joins them in the given
	// order and returns the path of the produced file. clips must already be
	// sorted by ascending sequence and contain only existing files.
	Join(ctx context.Context, ws *tempstore.Workspace, clips []Clip) (string, error)
}

// ExitError reports a non-zero exit of the media tool.
type ExitError struct {
	// Code is the process exit status.
	Code int
	// Stderr is the tail of the tool's diagnostic output.
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("concat: ffmpeg exited with status %d", e.Code)
	}
	return fmt.Sprintf("concat: ffmpeg exited with status %d: %s", e.Code, e.Stderr)
}
