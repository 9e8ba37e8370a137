package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/murphy/internal/concat"
	"github.com/MrWong99/murphy/internal/health"
	"github.com/MrWong99/murphy/internal/observe"
	"github.com/MrWong99/murphy/internal/pipeline"
	"github.com/MrWong99/murphy/internal/podcast"
	"github.com/MrWong99/murphy/internal/podcaststore"
	"github.com/MrWong99/murphy/internal/publish"
	"github.com/MrWong99/murphy/internal/synth"
	"github.com/MrWong99/murphy/internal/tempstore"
	"github.com/MrWong99/murphy/pkg/provider/llm"
	llmmock "github.com/MrWong99/murphy/pkg/provider/llm/mock"
	"github.com/MrWong99/murphy/pkg/provider/tts"
	ttsmock "github.com/MrWong99/murphy/pkg/provider/tts/mock"
)

// catJoiner concatenates clip bytes into the workspace output.
type catJoiner struct{}

func (catJoiner) Join(_ context.Context, ws *tempstore.Workspace, clips []concat.Clip) (string, error) {
	var buf bytes.Buffer
	for _, c := range clips {
		data, err := os.ReadFile(c.Path)
		if err != nil {
			return "", err
		}
		buf.Write(data)
	}
	out := ws.OutputPath("mp3")
	return out, os.WriteFile(out, buf.Bytes(), 0o644)
}

type env struct {
	tmp     string
	media   string
	tts     *ttsmock.Provider
	llm     *llmmock.Provider
	store   *podcaststore.MemStore
	handler http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	m, err := observe.NewMetrics(metric.NewMeterProvider(metric.WithReader(metric.NewManualReader())))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	e := &env{
		tmp:   t.TempDir(),
		media: t.TempDir(),
		tts:   &ttsmock.Provider{ListVoicesResult: []tts.Voice{{ID: "en-US-natalie", Name: "Natalie", Provider: "murf"}}},
		llm:   &llmmock.Provider{},
		store: podcaststore.NewMemStore(),
	}
	ts, err := tempstore.New(e.tmp)
	if err != nil {
		t.Fatalf("tempstore.New: %v", err)
	}
	orch, err := pipeline.New(ts, synth.New(e.tts, synth.WithMetrics(m)), catJoiner{}, pipeline.WithMetrics(m))
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	pub, err := publish.New(e.media, "https://cdn.example.com")
	if err != nil {
		t.Fatalf("publish.New: %v", err)
	}
	srv := New(orch,
		WithGenerator(podcast.NewGenerator(e.llm, podcast.WithMetrics(m))),
		WithCatalogue(pub, e.store),
		WithVoices(e.tts),
		WithHealth(health.New()),
		WithMetrics(m),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		})),
	)
	e.handler = srv.Handler()
	return e
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestGenerateAudio(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/generate-audio", map[string]any{
		"content":  "Sarah: Hello there.\nKen: Hi Sarah.",
		"names":    []string{"Sarah", "Ken"},
		"speakers": []string{"v-sarah", "v-ken"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody[generateAudioResponse](t, rec)
	if !resp.Success || resp.MimeType != "audio/mpeg" {
		t.Errorf("resp = %+v", resp)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		t.Fatalf("decode audio: %v", err)
	}
	if string(audio) != "Hello there.Hi Sarah." {
		t.Errorf("audio = %q", audio)
	}
	if !strings.HasSuffix(resp.FileName, ".mp3") {
		t.Errorf("fileName = %q", resp.FileName)
	}
	if _, err := os.Stat(filepath.Join(e.tmp, resp.FileName)); !os.IsNotExist(err) {
		t.Errorf("artifact should be deleted after the response, stat err = %v", err)
	}
}

func TestGenerateAudio_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
		errMsg string
	}{
		{"missing fields", map[string]any{"content": "Sarah: hi"}, http.StatusBadRequest, "Missing required fields"},
		{"length mismatch", map[string]any{"content": "Sarah: hi", "names": []string{"Sarah"}, "speakers": []string{"a", "b"}}, http.StatusBadRequest, "same length"},
		{"bad json", "{", http.StatusBadRequest, "invalid JSON"},
		{"trailing data", `{"content":"x"} {}`, http.StatusBadRequest, "invalid JSON"},
		{"no speaker lines", map[string]any{"content": "nobody talks", "names": []string{"Sarah"}, "speakers": []string{"a"}}, http.StatusBadGateway, "Failed to generate audio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			rec := e.do(t, http.MethodPost, "/api/generate-audio", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			resp := decodeBody[errorResponse](t, rec)
			if !strings.Contains(resp.Error, tt.errMsg) {
				t.Errorf("error = %q, want substring %q", resp.Error, tt.errMsg)
			}
		})
	}
}

func TestGenerateAudio_BodyLimit(t *testing.T) {
	e := newEnv(t)
	srv := New(nil, WithMaxBodyBytes(16), WithMetrics(observe.DefaultMetrics()))
	e.handler = srv.Handler()
	rec := e.do(t, http.MethodPost, "/api/generate-audio", map[string]any{"content": strings.Repeat("x", 64)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestGeneratePodcast(t *testing.T) {
	e := newEnv(t)
	e.llm.CompleteResponse = &llm.CompletionResponse{
		Content: `{"title":"Coffee","description":"Beans","content":"Sarah: one two three","names":["Sarah"]}`,
	}
	rec := e.do(t, http.MethodPost, "/api/generate-podcast", map[string]any{
		"content": "coffee", "theme": "news", "speakers": []string{"Sarah"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody[generatePodcastResponse](t, rec)
	if resp.Title != "Coffee" || resp.Duration != "1 minute" {
		t.Errorf("resp = %+v", resp)
	}

	rec = e.do(t, http.MethodPost, "/api/generate-podcast", map[string]any{"content": "coffee", "theme": "opera"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown theme status = %d, want 400", rec.Code)
	}

	e.llm.CompleteErr = errors.New("upstream down")
	rec = e.do(t, http.MethodPost, "/api/generate-podcast", map[string]any{"content": "coffee"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("provider failure status = %d, want 500", rec.Code)
	}
}

func TestCreatePodcast(t *testing.T) {
	e := newEnv(t)
	e.tts.VoiceErrors = map[string]error{"fr-broken": errors.New("voice unavailable")}

	rec := e.do(t, http.MethodPost, "/api/podcasts", map[string]any{
		"userId":  "user-1",
		"idea":    "coffee",
		"title":   "Coffee",
		"content": "Sarah: Bonjour.\nKen: Salut.",
		"names":   []string{"Sarah", "Ken"},
		"languages": map[string][]string{
			"english": {"en-a", "en-b"},
			"french":  {"fr-broken", "fr-broken"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody[createPodcastResponse](t, rec)
	if resp.ID == "" {
		t.Fatal("empty id")
	}
	wantURL := "https://cdn.example.com/" + resp.ID + "-english.mp3"
	if resp.URLs["english"] != wantURL {
		t.Errorf("english url = %q, want %q", resp.URLs["english"], wantURL)
	}
	if resp.URLs["french"] != "" {
		t.Errorf("french url = %q, want empty", resp.URLs["french"])
	}
	if resp.Errors["french"] == "" {
		t.Error("french failure not reported")
	}
	if _, err := os.Stat(filepath.Join(e.media, resp.ID+"-english.mp3")); err != nil {
		t.Errorf("published file missing: %v", err)
	}

	got := e.do(t, http.MethodGet, "/api/podcasts/"+resp.ID, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("get status = %d", got.Code)
	}
	stored := decodeBody[podcaststore.Record](t, got)
	if stored.UserID != "user-1" || stored.URLs["english"] != wantURL {
		t.Errorf("stored = %+v", stored)
	}

	list := e.do(t, http.MethodGet, "/api/podcasts?userId=user-1", nil)
	if recs := decodeBody[[]podcaststore.Record](t, list); len(recs) != 1 {
		t.Errorf("list returned %d records", len(recs))
	}

	entries, _ := os.ReadDir(e.tmp)
	if len(entries) != 0 {
		t.Errorf("temp dir not empty after publish: %d entries", len(entries))
	}
}

func TestCreatePodcast_Errors(t *testing.T) {
	e := newEnv(t)
	e.tts.VoiceErrors = map[string]error{"bad": errors.New("voice unavailable")}

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing user", map[string]any{"content": "Sarah: hi", "names": []string{"Sarah"}, "languages": map[string][]string{"english": {"a"}}}, http.StatusBadRequest},
		{"unknown language", map[string]any{"userId": "u", "content": "Sarah: hi", "names": []string{"Sarah"}, "languages": map[string][]string{"klingon": {"a"}}}, http.StatusBadRequest},
		{"no languages", map[string]any{"userId": "u", "content": "Sarah: hi", "names": []string{"Sarah"}}, http.StatusBadRequest},
		{"empty content", map[string]any{"userId": "u", "content": "  ", "names": []string{"Sarah"}, "languages": map[string][]string{"english": {"a"}}}, http.StatusBadRequest},
		{"no names", map[string]any{"userId": "u", "content": "Sarah: hi", "languages": map[string][]string{"english": {"a"}}}, http.StatusBadRequest},
		{"voice list mismatch", map[string]any{"userId": "u", "content": "Sarah: hi", "names": []string{"Sarah"}, "languages": map[string][]string{"english": {"a"}, "french": {"b", "c"}}}, http.StatusBadRequest},
		{"every language fails", map[string]any{"userId": "u", "content": "Sarah: hi", "names": []string{"Sarah"}, "languages": map[string][]string{"english": {"bad"}}}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/podcasts", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
		})
	}

	if rec := e.do(t, http.MethodGet, "/api/podcasts/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/api/podcasts", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("list without user status = %d, want 400", rec.Code)
	}
}

func TestCatalogueAndOps(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/voices", nil)
	if voices := decodeBody[[]tts.Voice](t, rec); len(voices) != 1 || voices[0].ID != "en-US-natalie" {
		t.Errorf("voices = %+v", voices)
	}
	e.tts.ListVoicesErr = errors.New("boom")
	if rec := e.do(t, http.MethodGet, "/api/voices", nil); rec.Code != http.StatusBadGateway {
		t.Errorf("voices error status = %d, want 502", rec.Code)
	}

	if themes := decodeBody[[]podcast.Theme](t, e.do(t, http.MethodGet, "/api/themes", nil)); len(themes) != 8 {
		t.Errorf("got %d themes", len(themes))
	}
	if rec := e.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/metrics", nil); !strings.Contains(rec.Body.String(), "# metrics") {
		t.Errorf("metrics body = %q", rec.Body)
	}
	if rec := e.do(t, http.MethodGet, "/api/generate-audio", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET generate-audio status = %d, want 405", rec.Code)
	}
}

func TestOptionalRoutesAbsent(t *testing.T) {
	h := New(nil, WithMetrics(observe.DefaultMetrics())).Handler()
	for _, path := range []string{"/api/voices", "/api/podcasts/x", "/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}
