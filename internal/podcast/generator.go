// Package podcast drafts podcast content from a rough idea using a
// generative text model.
//
// A [Generator] rewrites an idea in one of the [Themes] and returns a title,
// a description and a speaker-labelled script that the pipeline can render
// directly.
package podcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/murphy/internal/observe"
	"github.com/MrWong99/murphy/pkg/provider/llm"
)

const (
	// DefaultTheme is used when an idea names no theme.
	DefaultTheme = "casual"

	// DefaultMaxTokens is requested from the model before clamping to its
	// output limit.
	DefaultMaxTokens = 4096

	defaultTemperature = 0.8
)

// ErrEmptyIdea is returned when an idea has no content to work from.
var ErrEmptyIdea = errors.New("podcast: idea content is empty")

// Idea is the user's raw input.
type Idea struct {
	Title        string
	Description  string
	Content      string
	Theme        string
	SpeakerNames []string
}

// Content is the drafted podcast.
type Content struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Names       []string `json:"names"`
}

// Generator turns ideas into podcast content.
type Generator struct {
	provider     llm.Provider
	providerName string
	maxTokens    int
	temperature  float64
	metrics      *observe.Metrics
}

// Option configures a Generator.
type Option func(*Generator)

// WithProviderName sets the provider label used in metrics.
func WithProviderName(name string) Option {
	return func(g *Generator) { g.providerName = name }
}

// WithMaxTokens overrides [DefaultMaxTokens].
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) { g.temperature = t }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator returns a Generator backed by p.
func NewGenerator(p llm.Provider, opts ...Option) *Generator {
	g := &Generator{
		provider:     p,
		providerName: "llm",
		maxTokens:    DefaultMaxTokens,
		temperature:  defaultTemperature,
	}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = observe.DefaultMetrics()
	}
	return g
}

// Generate drafts content for idea. Fields the model leaves out fall back to
// the matching field of idea.
func (g *Generator) Generate(ctx context.Context, idea Idea) (_ *Content, err error) {
	if strings.TrimSpace(idea.Content) == "" {
		return nil, ErrEmptyIdea
	}
	themeName := idea.Theme
	if strings.TrimSpace(themeName) == "" {
		themeName = DefaultTheme
	}
	theme, err := LookupTheme(themeName)
	if err != nil {
		return nil, err
	}

	ctx, span := observe.StartSpan(ctx, "podcast.Generate", trace.WithAttributes(
		attribute.String("theme", theme.Name),
		attribute.Int("speakers", len(idea.SpeakerNames)),
	))
	defer func() { observe.EndSpan(span, err) }()

	req := llm.CompletionRequest{
		SystemPrompt: theme.System,
		Messages:     []llm.Message{{Role: "user", Content: buildPrompt(theme, idea)}},
		MaxTokens:    g.provider.Capabilities().ClampMaxTokens(g.maxTokens),
		Temperature:  g.temperature,
		JSON:         true,
	}

	start := time.Now()
	resp, err := g.provider.Complete(ctx, req)
	g.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", g.providerName)))
	if err != nil {
		g.metrics.RecordProviderRequest(ctx, g.providerName, "llm", observe.StatusFailed)
		g.metrics.RecordProviderError(ctx, g.providerName, "llm")
		return nil, fmt.Errorf("podcast: generate: %w", err)
	}
	g.metrics.RecordProviderRequest(ctx, g.providerName, "llm", observe.StatusOK)
	if resp == nil {
		return nil, errors.New("podcast: generate: empty response")
	}

	out, err := parseContent(resp.Content)
	if err != nil {
		return nil, err
	}
	fillFromIdea(out, idea)

	observe.Logger(ctx).Info("podcast content generated",
		"theme", theme.Name,
		"title", out.Title,
		"words", WordCount(out.Content),
		"tokens", resp.Usage.TotalTokens,
	)
	return out, nil
}

func buildPrompt(theme Theme, idea Idea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: Write a podcast episode from the following idea in the %s theme.\n", theme.Name)
	fmt.Fprintf(&b, "Style guidelines: %s\n\n", theme.Style)

	b.WriteString("Original Content:\n")
	if idea.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", idea.Title)
	}
	if idea.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", idea.Description)
	}
	fmt.Fprintf(&b, "Main Content: %s\n\n", idea.Content)

	if len(idea.SpeakerNames) > 0 {
		fmt.Fprintf(&b, "Speakers: %s\n", strings.Join(idea.SpeakerNames, ", "))
		b.WriteString("Use only these speakers.\n")
	} else {
		b.WriteString("Choose two speaker names.\n")
	}
	b.WriteString("Write the script as dialogue. Start every line with the speaker name followed by a colon, for example \"Sarah: Welcome back.\" ")
	b.WriteString("Do not add stage directions, sound cues or markdown.\n\n")
	b.WriteString("Format your response as JSON with \"title\", \"description\", \"content\" and \"names\" fields, ")
	b.WriteString("where \"content\" is the script and \"names\" lists the speakers in order of first appearance.")
	return b.String()
}

// parseContent extracts the JSON object from a model reply. Markdown code
// fences and chatter around the object are ignored.
func parseContent(raw string) (*Content, error) {
	s := strings.TrimSpace(raw)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("podcast: no JSON object in model reply")
	}
	var c Content
	if err := json.Unmarshal([]byte(s[start:end+1]), &c); err != nil {
		return nil, fmt.Errorf("podcast: decode model reply: %w", err)
	}
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Content = strings.TrimSpace(c.Content)
	return &c, nil
}

func fillFromIdea(c *Content, idea Idea) {
	if c.Title == "" {
		c.Title = idea.Title
	}
	if c.Description == "" {
		c.Description = idea.Description
	}
	if c.Content == "" {
		c.Content = idea.Content
	}
	names := c.Names[:0]
	for _, n := range c.Names {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	c.Names = names
	if len(c.Names) == 0 {
		c.Names = append([]string(nil), idea.SpeakerNames...)
	}
}

// TTSContent joins the title, description and script of c into a single
// narration text, skipping empty parts.
func TTSContent(c *Content) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Title, c.Description, c.Content} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}
