package murf

import "github.com/MrWong99/murphy/pkg/provider/tts"

// VoiceOptions is the built-in catalogue of commonly used Murf voices. It is
// served when the live catalogue cannot be fetched.
var VoiceOptions = []tts.Voice{
	{ID: "en-US-terrell", Name: "Terrell (US Male)", Provider: "murf", Accent: "American"},
	{ID: "en-US-lisa", Name: "Lisa (US Female)", Provider: "murf", Accent: "American"},
	{ID: "en-US-marcus", Name: "Marcus (US Male)", Provider: "murf", Accent: "American"},
	{ID: "en-US-sarah", Name: "Sarah (US Female)", Provider: "murf", Accent: "American"},
	{ID: "en-GB-oliver", Name: "Oliver (UK Male)", Provider: "murf", Accent: "British"},
	{ID: "en-GB-emma", Name: "Emma (UK Female)", Provider: "murf", Accent: "British"},
	{ID: "en-AU-jack", Name: "Jack (AU Male)", Provider: "murf", Accent: "Australian"},
	{ID: "en-AU-sophie", Name: "Sophie (AU Female)", Provider: "murf", Accent: "Australian"},
}

// VoicesByAccent returns the built-in voices with the given accent label.
func VoicesByAccent(accent string) []tts.Voice {
	var out []tts.Voice
	for _, v := range VoiceOptions {
		if v.Accent == accent {
			out = append(out, v)
		}
	}
	return out
}
