package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/murphy/pkg/provider/tts"
)

// TTSFallback is a [tts.Provider] that renders each utterance with the first
// healthy backend. Voice IDs are passed through unchanged, so fallbacks must
// accept the same voice identifiers as the primary or map them themselves.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] preferring primary. Blank-text
// rejections are treated as permanent and never fail over.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	if cfg.Permanent == nil {
		cfg.Permanent = func(err error) bool { return errors.Is(err, tts.ErrEmptyText) }
	}
	return &TTSFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another TTS backend.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize implements [tts.Provider].
func (f *TTSFallback) Synthesize(ctx context.Context, req tts.Request) (*tts.Rendered, error) {
	return ExecuteWithResult(ctx, f.group, func(p tts.Provider) (*tts.Rendered, error) {
		return p.Synthesize(ctx, req)
	})
}

// ListVoices returns the primary's catalogue. Fallback voices are not merged
// because their IDs are not interchangeable.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return f.group.Primary().ListVoices(ctx)
}

// Status reports the breaker state of every backend.
func (f *TTSFallback) Status() []BreakerStatus { return f.group.Status() }
