// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to return controlled renders per text and to verify which
// requests reached the TTS backend.
//
// Example:
//
//	p := &mock.Provider{
//	    Results: map[string]*tts.Rendered{"Hello": {Audio: []byte("A"), Format: "mp3"}},
//	    Errors:  map[string]error{"Boom": errors.New("upstream 500")},
//	}
//	r, err := p.Synthesize(ctx, tts.Request{Text: "Hello", VoiceID: "v1"})
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/murphy/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Req is the request passed to Synthesize.
	Req tts.Request
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Results maps request text to the render returned for it. Texts with no
	// entry fall back to Default.
	Results map[string]*tts.Rendered

	// Errors maps request text to an error returned instead of a render.
	Errors map[string]error

	// VoiceErrors maps a voice ID to an error returned for every request
	// using that voice. Checked after Errors.
	VoiceErrors map[string]error

	// Default is returned for texts with neither a result nor an error. When
	// nil, the request text is echoed back as inline mp3 "audio".
	Default *tts.Rendered

	// Delays maps request text to an artificial latency applied before
	// answering. The delay honours ctx cancellation.
	Delays map[string]time.Duration

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []tts.Voice

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// --- Call records ---

	// SynthesizeCalls records every call to Synthesize in arrival order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns the configured result for req.Text.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Rendered, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Req: req})
	delay := p.Delays[req.Text]
	err := p.Errors[req.Text]
	if err == nil {
		err = p.VoiceErrors[req.VoiceID]
	}
	res, ok := p.Results[req.Text]
	def := p.Default
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if ok {
		return res, nil
	}
	if def != nil {
		return def, nil
	}
	return &tts.Rendered{Audio: []byte(req.Text), Format: "mp3"}, nil
}

// ListVoices returns ListVoicesResult, ListVoicesErr.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ListVoicesResult, p.ListVoicesErr
}

// Calls returns a copy of the recorded Synthesize calls. Thread-safe.
func (p *Provider) Calls() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SynthesizeCall, len(p.SynthesizeCalls))
	copy(out, p.SynthesizeCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
