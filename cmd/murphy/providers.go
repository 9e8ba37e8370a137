package main

import (
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/murphy/internal/config"
	"github.com/MrWong99/murphy/internal/resilience"
	"github.com/MrWong99/murphy/pkg/provider/llm"
	"github.com/MrWong99/murphy/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/murphy/pkg/provider/llm/openai"
	"github.com/MrWong99/murphy/pkg/provider/tts"
	"github.com/MrWong99/murphy/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/murphy/pkg/provider/tts/murf"
)

// providers are the backends built from the config.
type providers struct {
	LLM llm.Provider
	TTS tts.Provider

	// TTSName labels TTS metrics. It names the primary provider.
	TTSName string
	LLMName string

	// Breakers reports circuit state for every provider behind a fallback
	// group. Nil when no fallbacks are configured.
	Breakers func() []resilience.BreakerStatus
}

// registerBuiltinProviders wires every provider shipped with murphy into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// The OpenAI API goes through the official SDK; the rest share the
	// any-llm pattern of an optional API key and base URL.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaillm.WithOrganization(org))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, oaillm.WithTimeout(d))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range anyllm.Vendors() {
		if providerName == "openai" {
			continue
		}
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("murf", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []murf.Option
		if entry.BaseURL != "" {
			opts = append(opts, murf.WithBaseURL(entry.BaseURL))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, murf.WithTimeout(d))
		}
		return murf.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURLs(entry.BaseURL, optString(entry.Options, "api_base_url")))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	for _, kind := range []string{"llm", "tts"} {
		for _, name := range reg.Names(kind) {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates the providers named in cfg. Fallback entries
// are chained behind the primary in a [resilience] group.
func buildProviders(cfg *config.Config, reg *config.Registry) (*providers, error) {
	ps := &providers{}
	var statusFns []func() []resilience.BreakerStatus

	if entry := cfg.Providers.TTS; entry.Name != "" {
		p, err := reg.CreateTTS(entry)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", entry.Name, err)
		}
		ps.TTS, ps.TTSName = p, entry.Name
		slog.Info("provider created", "kind", "tts", "name", entry.Name)

		if len(cfg.Providers.TTSFallbacks) > 0 {
			group := resilience.NewTTSFallback(p, entry.Name, resilience.FallbackConfig{})
			for _, fb := range cfg.Providers.TTSFallbacks {
				fp, err := reg.CreateTTS(fb)
				if err != nil {
					return nil, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
				}
				group.AddFallback(fb.Name, fp)
				slog.Info("fallback provider created", "kind", "tts", "name", fb.Name)
			}
			ps.TTS = group
			statusFns = append(statusFns, group.Status)
		}
	}

	if entry := cfg.Providers.LLM; entry.Name != "" {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
		}
		ps.LLM, ps.LLMName = p, entry.Name
		slog.Info("provider created", "kind", "llm", "name", entry.Name, "model", entry.Model)

		if len(cfg.Providers.LLMFallbacks) > 0 {
			group := resilience.NewLLMFallback(p, entry.Name, resilience.FallbackConfig{})
			for _, fb := range cfg.Providers.LLMFallbacks {
				fp, err := reg.CreateLLM(fb)
				if err != nil {
					return nil, fmt.Errorf("create llm fallback %q: %w", fb.Name, err)
				}
				group.AddFallback(fb.Name, fp)
				slog.Info("fallback provider created", "kind", "llm", "name", fb.Name)
			}
			ps.LLM = group
			statusFns = append(statusFns, group.Status)
		}
	}

	if len(statusFns) > 0 {
		ps.Breakers = func() []resilience.BreakerStatus {
			var out []resilience.BreakerStatus
			for _, fn := range statusFns {
				out = append(out, fn()...)
			}
			return out
		}
	}
	return ps, nil
}

// optString extracts a string value from a provider Options map. Returns ""
// if the map is nil, the key is absent or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optDuration parses a duration string such as "45s" from a provider
// Options map. Invalid or missing values yield zero.
func optDuration(opts map[string]any, key string) time.Duration {
	d, err := time.ParseDuration(optString(opts, key))
	if err != nil {
		return 0
	}
	return d
}
