// Package murf provides a Murf-backed TTS provider using the Murf REST API.
// It implements the tts.Provider interface.
//
// Murf renders each request server-side and answers with a URL to the
// finished audio file; the caller fetches the bytes separately.
//
// Typical usage:
//
//	p, err := murf.New(apiKey, murf.WithTimeout(30*time.Second))
//	r, err := p.Synthesize(ctx, tts.Request{Text: "Hello", VoiceID: "en-US-terrell"})
//	// r.AudioURL points at the rendered mp3.
package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/murphy/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultBaseURL  = "https://api.murf.ai"
	defaultTimeout  = 30 * time.Second
	generatePath    = "/v1/speech/generate"
	voicesPath      = "/v1/speech/voices"
	defaultFormat   = "mp3"
	requestFormat   = "MP3"
	maxErrorPayload = 4 << 10
)

// Option is a functional option for configuring the Murf Provider.
type Option func(*Provider)

// WithBaseURL overrides the Murf API base URL. Used by tests to point the
// provider at an httptest server.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the Murf speech API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Murf Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("murf: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// generateRequest is the JSON body sent to POST /v1/speech/generate.
type generateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Style   string `json:"style,omitempty"`
	Format  string `json:"format"`
}

// generateResponse is the subset of the Murf response we care about.
type generateResponse struct {
	AudioFile string `json:"audioFile"`
}

// errorResponse is the error body Murf sends on non-2xx responses.
type errorResponse struct {
	Message      string `json:"message"`
	ErrorMessage string `json:"errorMessage"`
}

// StatusError is returned when Murf answers with a non-2xx status code.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	return fmt.Sprintf("murf: API error: %d - %s", e.StatusCode, msg)
}

// Synthesize sends one generate request and returns the URL of the rendered
// audio file.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Rendered, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, tts.ErrEmptyText
	}
	if req.VoiceID == "" {
		return nil, errors.New("murf: voiceId must not be empty")
	}

	body, err := json.Marshal(generateRequest{Text: req.Text, VoiceID: req.VoiceID, Style: req.Style, Format: requestFormat})
	if err != nil {
		return nil, fmt.Errorf("murf: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("murf: build request: %w", err)
	}
	p.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("murf: generate HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("murf: decode response: %w", err)
	}
	if gr.AudioFile == "" {
		return nil, errors.New("murf: invalid response: audioFile missing")
	}
	return &tts.Rendered{AudioURL: gr.AudioFile, Format: defaultFormat}, nil
}

// voiceEntry is a single voice from GET /v1/speech/voices.
type voiceEntry struct {
	VoiceID     string `json:"voiceId"`
	DisplayName string `json:"displayName"`
	Accent      string `json:"accent"`
	Gender      string `json:"gender"`
	Locale      string `json:"locale"`
}

// ListVoices returns the voices available to the configured API key.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+voicesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("murf: list voices: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("murf: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var entries []voiceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("murf: list voices decode: %w", err)
	}

	voices := make([]tts.Voice, 0, len(entries))
	for _, e := range entries {
		meta := map[string]string{}
		if e.Gender != "" {
			meta["gender"] = e.Gender
		}
		if e.Locale != "" {
			meta["locale"] = e.Locale
		}
		voices = append(voices, tts.Voice{
			ID:       e.VoiceID,
			Name:     e.DisplayName,
			Provider: "murf",
			Accent:   e.Accent,
			Metadata: meta,
		})
	}
	return voices, nil
}

func (p *Provider) setHeaders(r *http.Request) {
	r.Header.Set("Accept", "application/json")
	r.Header.Set("api-key", p.apiKey)
}

// statusError builds a *StatusError from a non-2xx response, extracting the
// upstream message when the body is JSON.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorPayload))
	var er errorResponse
	msg := ""
	if json.Unmarshal(raw, &er) == nil {
		msg = er.Message
		if msg == "" {
			msg = er.ErrorMessage
		}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
