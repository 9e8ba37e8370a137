package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/murphy/pkg/provider/llm"
	llmmock "github.com/MrWong99/murphy/pkg/provider/llm/mock"
	"github.com/MrWong99/murphy/pkg/provider/tts"
	ttsmock "github.com/MrWong99/murphy/pkg/provider/tts/mock"
)

func TestTTSFallback_Synthesize(t *testing.T) {
	primary := &ttsmock.Provider{Errors: map[string]error{"Hello": errors.New("murf: status 503")}}
	secondary := &ttsmock.Provider{Default: &tts.Rendered{Audio: []byte("ID3"), Format: "mp3"}}

	fb := NewTTSFallback(primary, "murf", FallbackConfig{})
	fb.AddFallback("elevenlabs", secondary)

	req := tts.Request{Text: "Hello", VoiceID: "en-US-natalie", Style: tts.DefaultStyle}
	r, err := fb.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(r.Audio) != "ID3" {
		t.Errorf("Audio = %q, want fallback audio", r.Audio)
	}
	calls := secondary.Calls()
	if len(calls) != 1 || calls[0].Req != req {
		t.Errorf("secondary calls = %+v, want the original request", calls)
	}
}

func TestTTSFallback_EmptyTextIsPermanent(t *testing.T) {
	primary := &ttsmock.Provider{Errors: map[string]error{"": tts.ErrEmptyText}}
	secondary := &ttsmock.Provider{}

	fb := NewTTSFallback(primary, "murf", FallbackConfig{})
	fb.AddFallback("elevenlabs", secondary)

	_, err := fb.Synthesize(context.Background(), tts.Request{VoiceID: "v1"})
	if !errors.Is(err, tts.ErrEmptyText) {
		t.Fatalf("err = %v, want ErrEmptyText", err)
	}
	if n := len(secondary.Calls()); n != 0 {
		t.Errorf("secondary called %d times, want 0", n)
	}
}

func TestTTSFallback_ListVoicesUsesPrimary(t *testing.T) {
	primary := &ttsmock.Provider{ListVoicesResult: []tts.Voice{{ID: "en-US-natalie", Provider: "murf"}}}
	secondary := &ttsmock.Provider{ListVoicesResult: []tts.Voice{{ID: "abc", Provider: "elevenlabs"}}}

	fb := NewTTSFallback(primary, "murf", FallbackConfig{})
	fb.AddFallback("elevenlabs", secondary)

	voices, err := fb.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 1 || voices[0].Provider != "murf" {
		t.Errorf("voices = %+v, want the primary catalogue", voices)
	}
	if got := fb.Status(); len(got) != 2 || got[0].Name != "murf" {
		t.Errorf("Status() = %+v", got)
	}
}

func TestLLMFallback_Complete(t *testing.T) {
	primary := &llmmock.Provider{
		CompleteErr:       errors.New("openai: 500"),
		ModelCapabilities: llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 4096},
	}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: `{"title":"T"}`}}

	fb := NewLLMFallback(primary, "openai", FallbackConfig{})
	fb.AddFallback("gemini", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{SystemPrompt: "sys"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"title":"T"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if len(primary.CompleteCalls) != 1 || len(secondary.CompleteCalls) != 1 {
		t.Errorf("calls = %d/%d, want 1/1", len(primary.CompleteCalls), len(secondary.CompleteCalls))
	}
	if fb.Capabilities().MaxOutputTokens != 4096 {
		t.Errorf("Capabilities() = %+v, want the primary's", fb.Capabilities())
	}
}

func TestLLMFallback_AllFail(t *testing.T) {
	fb := NewLLMFallback(&llmmock.Provider{CompleteErr: errTest}, "openai", FallbackConfig{})
	fb.AddFallback("gemini", &llmmock.Provider{CompleteErr: errTest})

	if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
