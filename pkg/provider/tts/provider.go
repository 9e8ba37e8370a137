// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., Murf or ElevenLabs)
// and renders one utterance per call. Some services answer with a URL to a
// rendered audio file that must be fetched separately, others stream the
// encoded audio back inline; [Rendered] carries either form so that callers
// can treat both the same way.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
)

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use. The synthesizer issues one
// Synthesize call per utterance and runs all utterances of a job in parallel.
type Provider interface {
	// Synthesize renders req.Text with the voice identified by req.VoiceID.
	//
	// Returns a non-nil error for network failures, non-2xx responses and
	// malformed payloads. A successful result has either AudioURL or Audio set.
	Synthesize(ctx context.Context, req Request) (*Rendered, error)

	// ListVoices returns all voices available from this provider. The list
	// reflects the provider's current catalogue and may change between calls.
	ListVoices(ctx context.Context) ([]Voice, error)
}
