package podcast

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownTheme is returned for a theme name not in [Themes].
var ErrUnknownTheme = errors.New("podcast: unknown theme")

// Theme shapes the tone of generated content.
type Theme struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	System string `json:"-"`
	Style  string `json:"style"`
}

// Themes lists every supported theme keyed by name.
var Themes = map[string]Theme{
	"casual": {
		Name:   "casual",
		Label:  "Casual",
		System: "You are a friendly, conversational podcast writer. Make the content feel like a chat between friends.",
		Style:  "conversational, approachable, use 'we' and 'you', add casual transitions",
	},
	"professional": {
		Name:   "professional",
		Label:  "Professional",
		System: "You are a podcast writer for business shows. Keep a formal, authoritative tone.",
		Style:  "formal, structured, authoritative, use industry terminology appropriately",
	},
	"educational": {
		Name:   "educational",
		Label:  "Educational",
		System: "You are an educational podcast writer. Focus on clarity, learning objectives and step-by-step explanations.",
		Style:  "clear, informative, structured with learning points, use examples and analogies",
	},
	"entertaining": {
		Name:   "entertaining",
		Label:  "Entertaining",
		System: "You are an entertainment-focused podcast writer. Make the content engaging, fun and memorable.",
		Style:  "engaging, humorous where appropriate, use storytelling elements, add hooks",
	},
	"storytelling": {
		Name:   "storytelling",
		Label:  "Storytelling",
		System: "You are a narrative podcast writer. Structure content with compelling story arcs and dramatic moments.",
		Style:  "narrative-driven, use story structure, create tension and resolution, vivid descriptions",
	},
	"interview": {
		Name:   "interview",
		Label:  "Interview",
		System: "You are an interview-style podcast writer. Structure content as engaging questions and detailed answers.",
		Style:  "question-answer format, natural conversation flow, follow-up questions",
	},
	"news": {
		Name:   "news",
		Label:  "News",
		System: "You are a journalistic podcast writer. Focus on facts, objectivity and timely information.",
		Style:  "factual, objective, structured like news reports, include relevant context",
	},
	"motivational": {
		Name:   "motivational",
		Label:  "Motivational",
		System: "You are a motivational podcast writer. Inspire and energize the audience with uplifting content.",
		Style:  "inspiring, energetic, use action-oriented language, include calls to action",
	},
}

// LookupTheme returns the theme called name, case-insensitively.
func LookupTheme(name string) (Theme, error) {
	t, ok := Themes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	return t, nil
}

// ThemeList returns all themes sorted by name.
func ThemeList() []Theme {
	out := make([]Theme, 0, len(Themes))
	for _, t := range Themes {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Theme) int { return strings.Compare(a.Name, b.Name) })
	return out
}
