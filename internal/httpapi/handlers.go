package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MrWong99/murphy/internal/observe"
	"github.com/MrWong99/murphy/internal/pipeline"
	"github.com/MrWong99/murphy/internal/podcast"
	"github.com/MrWong99/murphy/internal/podcaststore"
	"github.com/MrWong99/murphy/pkg/provider/tts"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps a domain error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput),
		errors.Is(err, podcast.ErrEmptyIdea),
		errors.Is(err, podcast.ErrUnknownTheme):
		return http.StatusBadRequest
	case errors.Is(err, podcaststore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoAudio):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail logs server-side failures and writes the error reply.
func fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observe.Logger(r.Context()).Error(msg, "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, msg, err)
}

// decode reads a JSON body into v, rejecting unknown trailing data and
// oversized bodies.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body", errors.New("unexpected data after JSON object"))
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// POST /api/generate-audio
// ---------------------------------------------------------------------------

type generateAudioRequest struct {
	Content  string   `json:"content"`
	Names    []string `json:"names"`
	Speakers []string `json:"speakers"`
	Language string   `json:"language,omitempty"`
}

type generateAudioResponse struct {
	Success  bool   `json:"success"`
	Audio    string `json:"audio"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
	Failed   []int  `json:"failed,omitempty"`
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	var req generateAudioRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" || len(req.Names) == 0 || len(req.Speakers) == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields: content, names, speakers", nil)
		return
	}
	if len(req.Names) != len(req.Speakers) {
		writeError(w, http.StatusBadRequest, "Names and speakers arrays must have the same length", nil)
		return
	}

	res, err := s.pipeline.Run(r.Context(), pipeline.Request{
		Script:   req.Content,
		Names:    req.Names,
		VoiceIDs: req.Speakers,
		Language: req.Language,
	})
	if err != nil {
		fail(w, r, "Failed to generate audio", err)
		return
	}
	defer func() {
		if err := res.Release(); err != nil {
			observe.Logger(r.Context()).Warn("release artifact", "job_id", res.JobID, "err", err)
		}
	}()

	data, err := os.ReadFile(res.Path)
	if err != nil {
		fail(w, r, "Failed to generate audio", fmt.Errorf("read artifact: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, generateAudioResponse{
		Success:  true,
		Audio:    base64.StdEncoding.EncodeToString(data),
		MimeType: "audio/mpeg",
		FileName: filepath.Base(res.Path),
		Failed:   res.Failed,
	})
}

// ---------------------------------------------------------------------------
// POST /api/generate-podcast
// ---------------------------------------------------------------------------

type generatePodcastRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Theme       string   `json:"theme"`
	Speakers    []string `json:"speakers"`
}

type generatePodcastResponse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Names       []string `json:"names"`
	Duration    string   `json:"duration"`
}

func (s *Server) handleGeneratePodcast(w http.ResponseWriter, r *http.Request) {
	var req generatePodcastRequest
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.generator.Generate(r.Context(), podcast.Idea{
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
		Theme:        req.Theme,
		SpeakerNames: req.Speakers,
	})
	if err != nil {
		fail(w, r, "Failed to generate podcast content", err)
		return
	}
	writeJSON(w, http.StatusOK, generatePodcastResponse{
		Title:       c.Title,
		Description: c.Description,
		Content:     c.Content,
		Names:       c.Names,
		Duration:    podcast.EstimateDuration(podcast.TTSContent(c)),
	})
}

// ---------------------------------------------------------------------------
// /api/podcasts
// ---------------------------------------------------------------------------

type createPodcastRequest struct {
	UserID      string              `json:"userId"`
	Idea        string              `json:"idea"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Content     string              `json:"content"`
	Names       []string            `json:"names"`
	Languages   map[string][]string `json:"languages"`
}

type createPodcastResponse struct {
	ID     string            `json:"id"`
	URLs   map[string]string `json:"urls"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) handleCreatePodcast(w http.ResponseWriter, r *http.Request) {
	var req createPodcastRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "userId is required", nil)
		return
	}
	for lang := range req.Languages {
		if !podcaststore.IsKnownLanguage(lang) {
			writeError(w, http.StatusBadRequest, "unknown language",
				fmt.Errorf("%q is not one of %s", lang, strings.Join(podcaststore.Languages, ", ")))
			return
		}
	}

	ctx := r.Context()
	mr, err := s.pipeline.RunLanguages(ctx, pipeline.MultiRequest{
		Script:    req.Content,
		Names:     req.Names,
		Languages: req.Languages,
	})
	if err != nil {
		fail(w, r, "Failed to generate audio", err)
		return
	}
	defer func() {
		if err := mr.Release(); err != nil {
			observe.Logger(ctx).Warn("release artifacts", "job_id", mr.JobID, "err", err)
		}
	}()

	urls := make(map[string]string, len(mr.Results))
	errs := make(map[string]string, len(mr.Errors))
	for lang, le := range mr.Errors {
		errs[lang] = le.Err.Error()
	}
	for _, lang := range slices.Sorted(maps.Keys(mr.Results)) {
		url, err := s.publisher.Publish(ctx, mr.JobID, lang, mr.Results[lang].Path)
		if err != nil {
			observe.Logger(ctx).Error("publish failed", "job_id", mr.JobID, "language", lang, "err", err)
			errs[lang] = err.Error()
			continue
		}
		urls[lang] = url
	}
	if len(urls) == 0 {
		writeJSON(w, http.StatusBadGateway, createPodcastResponse{ID: mr.JobID, URLs: urls, Errors: errs})
		return
	}

	rec := &podcaststore.Record{
		ID:          mr.JobID,
		UserID:      req.UserID,
		Idea:        req.Idea,
		Title:       req.Title,
		Description: req.Description,
		Script:      req.Content,
		URLs:        urls,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		fail(w, r, "Failed to save podcast", err)
		return
	}
	observe.Logger(ctx).Info("podcast published",
		"id", rec.ID, "user_id", rec.UserID, "languages", len(urls), "failed_languages", len(errs))
	writeJSON(w, http.StatusCreated, createPodcastResponse{ID: rec.ID, URLs: rec.URLs, Errors: errs})
}

func (s *Server) handleGetPodcast(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "Failed to load podcast", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListPodcasts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId query parameter is required", nil)
		return
	}
	recs, err := s.store.ListByUser(r.Context(), userID)
	if err != nil {
		fail(w, r, "Failed to list podcasts", err)
		return
	}
	if recs == nil {
		recs = []podcaststore.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// ---------------------------------------------------------------------------
// Catalogue endpoints
// ---------------------------------------------------------------------------

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.voices.ListVoices(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("list voices", "err", err)
		writeError(w, http.StatusBadGateway, "Failed to list voices", err)
		return
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	writeJSON(w, http.StatusOK, voices)
}

func (s *Server) handleThemes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, podcast.ThemeList())
}
