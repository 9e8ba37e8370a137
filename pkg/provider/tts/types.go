package tts

import (
	"errors"
	"strings"
)

// DefaultStyle is the speaking style requested for every utterance.
const DefaultStyle = "Conversational"

// ErrEmptyText is returned by providers when asked to render blank text.
var ErrEmptyText = errors.New("tts: text must not be empty")

// Request is a single utterance render request.
type Request struct {
	// Text is the utterance to speak.
	Text string

	// VoiceID is the provider-specific voice identifier. It is opaque to the
	// rest of the system.
	VoiceID string

	// Style is the speaking style (e.g., "Conversational"). Providers that do
	// not support styles ignore it.
	Style string
}

// Rendered is the result of a successful Synthesize call.
type Rendered struct {
	// AudioURL points at a rendered audio file that still has to be fetched.
	// Empty when the provider returned the audio inline.
	AudioURL string

	// Audio holds the encoded audio bytes when the provider returned them
	// inline.
	Audio []byte

	// Format is the provider's name for the audio encoding, e.g. "mp3" or
	// "mp3_44100_128". Its leading token is the container; see [Container].
	Format string
}

// Container returns the file container of a provider format: the lowercase
// token before the first "_" ("mp3_44100_128" gives "mp3"). An empty format
// is taken to be mp3.
func Container(format string) string {
	c, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(format)), "_")
	if c == "" {
		return "mp3"
	}
	return c
}

// Voice describes a TTS voice offered by a provider.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string `json:"id"`

	// Name is the human-readable voice name.
	Name string `json:"name"`

	// Provider identifies which TTS provider this voice belongs to.
	Provider string `json:"provider"`

	// Accent is a coarse accent label such as "American" or "British".
	Accent string `json:"accent,omitempty"`

	// Metadata holds provider-specific voice attributes (gender, age, etc.).
	Metadata map[string]string `json:"metadata,omitempty"`
}
