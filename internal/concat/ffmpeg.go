package concat

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MrWong99/murphy/internal/tempstore"
	"github.com/MrWong99/murphy/pkg/provider/tts"
)

const (
	defaultBitrate = "128k"
	defaultFormat  = "mp3"

	// maxStderr bounds how much of ffmpeg's stderr is kept for ExitError.
	maxStderr = 2048
)

// FFmpeg joins clips with the ffmpeg concat demuxer.
//
// When every clip has the same format and that format's container is the
// output format, the streams are copied without re-encoding. Otherwise, or
// when re-encoding is forced, the output is encoded with libmp3lame at a
// fixed bitrate.
type FFmpeg struct {
	path     string
	bitrate  string
	format   string
	reencode bool
}

var _ Joiner = (*FFmpeg)(nil)

// Option configures FFmpeg.
type Option func(*FFmpeg)

// WithBitrate sets the encoder bitrate used when re-encoding (e.g. "192k").
func WithBitrate(b string) Option {
	return func(f *FFmpeg) {
		if b != "" {
			f.bitrate = b
		}
	}
}

// WithFormat sets the output container extension. Defaults to "mp3".
func WithFormat(ext string) Option {
	return func(f *FFmpeg) {
		if ext = strings.TrimPrefix(ext, "."); ext != "" {
			f.format = ext
		}
	}
}

// WithReencode forces a fixed-bitrate re-encode even when clips match.
func WithReencode(on bool) Option {
	return func(f *FFmpeg) { f.reencode = on }
}

// NewFFmpeg returns a Joiner that runs the ffmpeg binary at path. The path
// must be explicit; it is not looked up on $PATH.
func NewFFmpeg(path string, opts ...Option) (*FFmpeg, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no ffmpeg path configured", ErrBinaryNotFound)
	}
	f := &FFmpeg{path: path, bitrate: defaultBitrate, format: defaultFormat}
	for _, o := range opts {
		o(f)
	}
	return f, nil
}

// Path returns the configured binary path.
func (f *FFmpeg) Path() string { return f.path }

// Check verifies that the binary exists and is executable.
func (f *FFmpeg) Check() error {
	fi, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, f.path, err)
	}
	if fi.IsDir() || fi.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not an executable file", ErrBinaryNotFound, f.path)
	}
	return nil
}

// Version runs "ffmpeg -version" and returns the first output line.
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	if err := f.Check(); err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, f.path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("concat: %s -version: %w", f.path, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// Join implements Joiner.
func (f *FFmpeg) Join(ctx context.Context, ws *tempstore.Workspace, clips []Clip) (string, error) {
	if len(clips) == 0 {
		return "", ErrNoClips
	}
	if err := f.Check(); err != nil {
		return "", err
	}

	manifest := ws.ManifestPath()
	if err := writeManifest(manifest, clips); err != nil {
		return "", err
	}
	output := ws.OutputPath(f.format)

	cmd := exec.CommandContext(ctx, f.path, f.args(manifest, output, clips)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(output)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("concat: ffmpeg interrupted: %w", ctxErr)
		}
		return "", mapRunError(err, stderr.Bytes())
	}

	fi, err := os.Stat(output)
	if err != nil || fi.Size() == 0 {
		_ = os.Remove(output)
		return "", fmt.Errorf("%w: %s", ErrNoOutput, output)
	}
	return output, nil
}

// args builds the ffmpeg command line.
func (f *FFmpeg) args(manifest, output string, clips []Clip) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0", "-i", manifest,
	}
	if f.reencode || !copyable(clips, f.format) {
		args = append(args, "-c:a", "libmp3lame", "-b:a", f.bitrate)
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, output)
}

// copyable reports whether clips can be stream-copied into an ext file: all
// clips share one format and its container is ext.
func copyable(clips []Clip, ext string) bool {
	if len(clips) == 0 {
		return true
	}
	first := clipFormat(clips[0])
	for _, c := range clips[1:] {
		if clipFormat(c) != first {
			return false
		}
	}
	return tts.Container(first) == strings.ToLower(ext)
}

func clipFormat(c Clip) string {
	if c.Format != "" {
		return strings.ToLower(c.Format)
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(c.Path), "."))
}

// writeManifest writes a concat demuxer list with one absolute path per line.
func writeManifest(path string, clips []Clip) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("concat: create manifest: %w", err)
	}
	w := bufio.NewWriter(file)
	for _, c := range clips {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			file.Close()
			return fmt.Errorf("concat: resolve clip %q: %w", c.Path, err)
		}
		fmt.Fprintf(w, "file '%s'\n", escapeQuote(abs))
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("concat: write manifest: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("concat: close manifest: %w", err)
	}
	return nil
}

// escapeQuote escapes single quotes for the concat demuxer's quoting rules.
func escapeQuote(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

func mapRunError(err error, stderr []byte) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: tail(stderr)}
	}
	return fmt.Errorf("concat: run ffmpeg: %w", err)
}

func tail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxStderr {
		b = b[len(b)-maxStderr:]
	}
	return string(b)
}
