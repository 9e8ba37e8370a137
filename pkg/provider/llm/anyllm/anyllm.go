// Package anyllm serves every non-OpenAI LLM vendor murphy supports through
// github.com/mozilla-ai/any-llm-go.
//
//	p, err := anyllm.New("gemini", "gemini-2.0-flash", anyllmlib.WithAPIKey("..."))
package anyllm

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/murphy/pkg/provider/llm"
)

// jsonInstruction is appended to the system prompt for JSON requests.
const jsonInstruction = "Respond with exactly one JSON object. Do not wrap it in markdown and do not add any text before or after it."

type backendFunc func(...anyllmlib.Option) (anyllmlib.Provider, error)

// backends maps a vendor name to its any-llm constructor.
var backends = map[string]backendFunc{
	"anthropic": func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return anthropic.New(o...) },
	"deepseek":  func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return deepseek.New(o...) },
	"gemini":    func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return gemini.New(o...) },
	"groq":      func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return groq.New(o...) },
	"llamacpp":  func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return llamacpp.New(o...) },
	"llamafile": func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return llamafile.New(o...) },
	"mistral":   func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return mistral.New(o...) },
	"ollama":    func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return ollama.New(o...) },
	"openai":    func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return anyllmoai.New(o...) },
}

// Vendors returns the supported vendor names in sorted order.
func Vendors() []string {
	return slices.Sorted(maps.Keys(backends))
}

var _ llm.Provider = (*Provider)(nil)

// Provider implements llm.Provider on top of an any-llm backend.
type Provider struct {
	vendor  string
	backend anyllmlib.Provider
	model   string
}

// New creates a Provider for vendor (see [Vendors]) and model.
//
// opts are passed to the any-llm backend, typically anyllmlib.WithAPIKey and
// anyllmlib.WithBaseURL. Without an API key the backend reads its usual
// environment variable, such as GEMINI_API_KEY.
func New(vendor, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if vendor == "" {
		return nil, fmt.Errorf("anyllm: vendor must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	vendor = strings.ToLower(vendor)
	create, ok := backends[vendor]
	if !ok {
		return nil, fmt.Errorf("anyllm: unsupported vendor %q (supported: %s)", vendor, strings.Join(Vendors(), ", "))
	}
	backend, err := create(opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %s backend: %w", vendor, err)
	}
	return &Provider{vendor: vendor, backend: backend, model: model}, nil
}

// Vendor returns the backend vendor name.
func (p *Provider) Vendor() string { return p.vendor }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.backend.Completion(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anyllm: %s completion: %w", p.vendor, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm: %s returned no choices", p.vendor)
	}

	out := &llm.CompletionResponse{Content: resp.Choices[0].Message.ContentString()}
	if u := resp.Usage; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return modelCapabilities(p.model)
}

func (p *Provider) buildParams(req llm.CompletionRequest) anyllmlib.CompletionParams {
	system := req.SystemPrompt
	if req.JSON {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}

	messages := make([]anyllmlib.Message, 0, len(req.Messages)+1)
	if system != "" {
		messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: system})
	}
	for _, m := range req.Messages {
		messages = append(messages, anyllmlib.Message{Role: m.Role, Content: m.Content, Name: m.Name})
	}

	params := anyllmlib.CompletionParams{Model: p.model, Messages: messages}
	if t := req.Temperature; t != 0 {
		params.Temperature = &t
	}
	if n := req.MaxTokens; n > 0 {
		params.MaxTokens = &n
	}
	return params
}

// modelCapabilities returns limits for model families murphy is commonly
// run with. Unknown models get a 128k window and 4k output tokens, which is
// enough for a long episode script.
func modelCapabilities(model string) llm.ModelCapabilities {
	caps := llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 4_096}

	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "gemini-2.5"):
		caps.ContextWindow, caps.MaxOutputTokens = 1_048_576, 65_536
	case strings.HasPrefix(m, "gemini-2.0"), strings.HasPrefix(m, "gemini-1.5-flash"):
		caps.ContextWindow, caps.MaxOutputTokens = 1_048_576, 8_192
	case strings.HasPrefix(m, "gemini-1.5-pro"):
		caps.ContextWindow, caps.MaxOutputTokens = 2_097_152, 8_192
	case strings.HasPrefix(m, "gemini"):
		caps.MaxOutputTokens = 8_192

	case strings.HasPrefix(m, "claude-3-opus"), strings.HasPrefix(m, "claude-3-haiku"):
		caps.ContextWindow = 200_000
	case strings.HasPrefix(m, "claude"):
		caps.ContextWindow, caps.MaxOutputTokens = 200_000, 8_192

	case strings.HasPrefix(m, "gpt-4o"):
		caps.MaxOutputTokens = 16_384

	case strings.HasPrefix(m, "deepseek"):
		caps.ContextWindow, caps.MaxOutputTokens = 64_000, 8_192
	case strings.HasPrefix(m, "mistral-large"):
		caps.MaxOutputTokens = 8_192
	case strings.HasPrefix(m, "llama"):
		caps.ContextWindow = 8_192
	}
	return caps
}
