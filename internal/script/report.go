package script

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// suggestThreshold is the minimum Jaro-Winkler score for a dropped line's
// label to be reported as a likely misspelling of a known speaker.
const suggestThreshold = 0.85

// DroppedLine is a non-empty script line that no speaker claimed.
type DroppedLine struct {
	// Line is the 0-based index among non-empty lines.
	Line int
	// Label is the text before the first colon, if the line has one.
	Label string
	// Suggestion is the known speaker the label most likely refers to, or ""
	// when nothing is close.
	Suggestion string
}

// Report summarises how a script was attributed. It is diagnostic only and
// never changes what Parse emits.
type Report struct {
	// Lines is the number of non-empty lines.
	Lines int
	// Emitted is the number of utterances Parse produces.
	Emitted int
	// Dropped lists every line that was skipped.
	Dropped []DroppedLine
	// Shadowed lists speakers that can never be matched.
	Shadowed []Shadow
}

// Inspect reports on how Parse would treat script. Dropped lines that look
// like "Label: text" get a near-miss speaker suggestion based on phonetic
// codes and Jaro-Winkler similarity.
func Inspect(script string, vm *VoiceMap) Report {
	var r Report
	if vm != nil {
		r.Shadowed = vm.Shadowed()
	}
	for i, line := range lines(script) {
		r.Lines++
		if _, _, ok := attribute(line, vm); ok {
			r.Emitted++
			continue
		}
		d := DroppedLine{Line: i}
		if label, _, found := strings.Cut(line, ":"); found {
			d.Label = strings.TrimSpace(label)
			if vm != nil {
				d.Suggestion = suggest(d.Label, vm.names)
			}
		}
		r.Dropped = append(r.Dropped, d)
	}
	return r
}

// suggest returns the name closest to label, or "" when none is close enough.
func suggest(label string, names []string) string {
	if label == "" {
		return ""
	}
	lower := strings.ToLower(label)
	lp, ls := matchr.DoubleMetaphone(lower)

	best, bestScore := "", 0.0
	for _, name := range names {
		nl := strings.ToLower(name)
		score := matchr.JaroWinkler(lower, nl, false)
		np, ns := matchr.DoubleMetaphone(nl)
		phonetic := lp != "" && (lp == np || lp == ns || (ls != "" && (ls == np || ls == ns)))
		if score < suggestThreshold && !phonetic {
			continue
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	return best
}
