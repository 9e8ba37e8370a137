// Package publish moves finished podcast tracks into the media directory and
// hands out the URL they are served under.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrBadName is returned when the job ID or language would produce an unsafe
// file name.
var ErrBadName = errors.New("publish: invalid artifact name")

var safeName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Publisher copies artifacts into dir. When baseURL is empty the returned
// location is the absolute file path.
type Publisher struct {
	dir     string
	baseURL string
}

// New returns a Publisher writing to dir, creating it if needed.
func New(dir, baseURL string) (*Publisher, error) {
	if dir == "" {
		return nil, errors.New("publish: media dir must not be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("publish: resolve media dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("publish: create media dir: %w", err)
	}
	if baseURL != "" {
		if _, err := url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("publish: parse base url: %w", err)
		}
	}
	return &Publisher{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the absolute media directory.
func (p *Publisher) Dir() string { return p.dir }

// Name returns the published file name for a job and language.
func Name(jobID, language, ext string) (string, error) {
	if !safeName.MatchString(jobID) {
		return "", fmt.Errorf("%w: job id %q", ErrBadName, jobID)
	}
	base := jobID
	if language != "" {
		if !safeName.MatchString(language) {
			return "", fmt.Errorf("%w: language %q", ErrBadName, language)
		}
		base += "-" + language
	}
	return base + ext, nil
}

// Publish copies localPath into the media directory and returns its public
// location. localPath itself is left alone; the caller releases it.
func (p *Publisher) Publish(ctx context.Context, jobID, language, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := Name(jobID, language, filepath.Ext(localPath))
	if err != nil {
		return "", err
	}
	dst := filepath.Join(p.dir, name)
	if err := copyFile(localPath, dst); err != nil {
		return "", err
	}
	if p.baseURL == "" {
		return dst, nil
	}
	return p.baseURL + "/" + url.PathEscape(name), nil
}

// copyFile writes src to a temporary file next to dst and renames it into
// place so readers never see a partial track.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("publish: open artifact: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".publish-*")
	if err != nil {
		return fmt.Errorf("publish: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return fmt.Errorf("publish: copy: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("publish: close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("publish: chmod: %w", err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("publish: rename: %w", err)
	}
	return nil
}
