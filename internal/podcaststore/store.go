// Package podcaststore persists metadata about published podcasts: the idea
// they came from, the generated text and the public URL of every rendered
// language.
package podcaststore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Known language keys. Every stored record carries all of them in URLs, with
// an empty string for languages that were not rendered.
const (
	Bengali = "bengali"
	English = "english"
	French  = "french"
	German  = "german"
	Hindi   = "hindi"
	Italian = "italian"
	Tamil   = "tamil"
)

// Languages lists the known language keys in sorted order.
var Languages = []string{Bengali, English, French, German, Hindi, Italian, Tamil}

var (
	// ErrNotFound is returned by [Store.Get] for an unknown ID.
	ErrNotFound = errors.New("podcaststore: podcast not found")

	// ErrDuplicateID is returned by [Store.Create] when the ID is taken.
	ErrDuplicateID = errors.New("podcaststore: duplicate podcast id")
)

// Record is one published podcast.
type Record struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Idea        string            `json:"idea"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Script      string            `json:"podcastTextContent"`
	URLs        map[string]string `json:"urls"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Validate reports the first problem with r that prevents storing it.
func (r *Record) Validate() error {
	var errs []string
	if strings.TrimSpace(r.UserID) == "" {
		errs = append(errs, "user id must not be empty")
	}
	if strings.TrimSpace(r.Script) == "" {
		errs = append(errs, "script must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("podcaststore: invalid record: %s", strings.Join(errs, "; "))
	}
	return nil
}

// prepare assigns an ID when missing and fills URLs with every known
// language key.
func (r *Record) prepare() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.URLs = normalizeURLs(r.URLs)
}

func normalizeURLs(in map[string]string) map[string]string {
	out := make(map[string]string, len(Languages)+len(in))
	for _, l := range Languages {
		out[l] = ""
	}
	maps.Copy(out, in)
	return out
}

// IsKnownLanguage reports whether lang is one of [Languages].
func IsKnownLanguage(lang string) bool {
	_, ok := slices.BinarySearch(Languages, lang)
	return ok
}

// Store persists podcast records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Create inserts r, assigning r.ID when empty and r.CreatedAt from the
	// store clock.
	Create(ctx context.Context, r *Record) error

	// Get returns the record with the given ID or [ErrNotFound].
	Get(ctx context.Context, id string) (*Record, error)

	// ListByUser returns a user's records, newest first.
	ListByUser(ctx context.Context, userID string) ([]Record, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
