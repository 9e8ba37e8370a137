package script

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLengthMismatch is returned by NewVoiceMap when the name and voice lists
// differ in length.
var ErrLengthMismatch = errors.New("script: names and voice IDs differ in length")

// ErrEmptyName is returned by NewVoiceMap when a speaker name is blank.
var ErrEmptyName = errors.New("script: speaker name must not be empty")

// VoiceMap maps speaker display names to TTS voice identifiers. Iteration
// follows insertion order, which is also the order in which Parse tests
// speaker prefixes against each line.
//
// A VoiceMap is read-only after construction and safe for concurrent use.
type VoiceMap struct {
	names  []string
	voices map[string]string
}

// NewVoiceMap builds a VoiceMap from parallel name and voice ID lists. When a
// name occurs more than once the first occurrence wins and later ones are
// ignored.
func NewVoiceMap(names, voiceIDs []string) (*VoiceMap, error) {
	if len(names) != len(voiceIDs) {
		return nil, fmt.Errorf("%w: %d names, %d voice IDs", ErrLengthMismatch, len(names), len(voiceIDs))
	}
	vm := &VoiceMap{
		names:  make([]string, 0, len(names)),
		voices: make(map[string]string, len(names)),
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w (position %d)", ErrEmptyName, i)
		}
		if _, dup := vm.voices[name]; dup {
			continue
		}
		vm.names = append(vm.names, name)
		vm.voices[name] = voiceIDs[i]
	}
	return vm, nil
}

// Names returns the speaker names in insertion order.
func (vm *VoiceMap) Names() []string {
	out := make([]string, len(vm.names))
	copy(out, vm.names)
	return out
}

// VoiceID returns the voice mapped to name.
func (vm *VoiceMap) VoiceID(name string) (string, bool) {
	v, ok := vm.voices[name]
	return v, ok
}

// Len reports the number of distinct speakers.
func (vm *VoiceMap) Len() int { return len(vm.names) }

// Shadow describes a speaker whose lines can never be attributed to them
// because an earlier speaker's prefix always matches first.
type Shadow struct {
	// Name is the unreachable speaker.
	Name string
	// By is the earlier speaker that captures Name's lines.
	By string
}

// Shadowed lists speakers hidden by an earlier speaker's "Name:" prefix. This
// only happens when a later name itself starts with an earlier name followed
// by a colon (e.g. "Dr" and "Dr: Who").
func (vm *VoiceMap) Shadowed() []Shadow {
	var out []Shadow
	for i, later := range vm.names {
		for _, earlier := range vm.names[:i] {
			if strings.HasPrefix(later, earlier+":") {
				out = append(out, Shadow{Name: later, By: earlier})
				break
			}
		}
	}
	return out
}
