// Package script turns a raw multi-speaker podcast script into the ordered
// list of utterances that the synthesizer renders.
//
// A line belongs to a speaker when it begins with the exact speaker name
// followed by a colon. Speaker names are tried in VoiceMap insertion order
// and the first match wins. Lines that match no speaker are dropped.
package script

import (
	"regexp"
	"strings"
)

// Utterance is one speaker line extracted from a script.
type Utterance struct {
	// Sequence is the 0-based position among emitted utterances. It is the
	// only ordering key used during assembly.
	Sequence int
	// Speaker is the display name that matched the line.
	Speaker string
	// VoiceID is the TTS voice mapped to Speaker.
	VoiceID string
	// Text is the spoken content with the "Speaker:" prefix removed.
	Text string
}

var horizontalSpace = regexp.MustCompile(`[ \t]+`)

// Parse extracts utterances from script using vm for speaker attribution.
// It never fails; a script without attributable lines yields an empty slice.
// Parsing the same input twice produces identical output.
func Parse(script string, vm *VoiceMap) []Utterance {
	var out []Utterance
	for _, line := range lines(script) {
		speaker, text, ok := attribute(line, vm)
		if !ok {
			continue
		}
		voice, _ := vm.VoiceID(speaker)
		out = append(out, Utterance{
			Sequence: len(out),
			Speaker:  speaker,
			VoiceID:  voice,
			Text:     text,
		})
	}
	return out
}

// lines normalises script and returns its non-empty trimmed lines.
func lines(script string) []string {
	collapsed := horizontalSpace.ReplaceAllString(script, " ")
	raw := strings.Split(collapsed, "\n")
	out := raw[:0]
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func attribute(line string, vm *VoiceMap) (speaker, text string, ok bool) {
	if vm == nil {
		return "", "", false
	}
	for _, name := range vm.names {
		if rest, found := strings.CutPrefix(line, name+":"); found {
			return name, strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}
