package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts": {"murf", "elevenlabs"},
}

var bitratePattern = regexp.MustCompile(`^[1-9][0-9]*k$`)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references from
// the environment, applies defaults and validates the result. Unknown keys
// are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all failures. Settings that only matter for some
// commands, such as the ffmpeg path, produce warnings instead.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for i, e := range cfg.Providers.LLMFallbacks {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
		}
		validateProviderName("llm", e.Name)
	}
	for i, e := range cfg.Providers.TTSFallbacks {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("providers.tts_fallbacks[%d].name is required", i))
		}
		validateProviderName("tts", e.Name)
	}
	if cfg.Providers.TTS.Name == "" {
		if len(cfg.Providers.TTSFallbacks) > 0 {
			errs = append(errs, errors.New("providers.tts_fallbacks requires providers.tts"))
		} else {
			slog.Warn("no TTS provider configured; audio rendering is unavailable")
		}
	}
	if cfg.Providers.LLM.Name == "" && len(cfg.Providers.LLMFallbacks) > 0 {
		errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm"))
	}

	if cfg.Audio.FFmpegPath == "" {
		slog.Warn("audio.ffmpeg_path is empty; audio assembly will fail until it is set")
	}
	if cfg.Audio.Bitrate != "" && !bitratePattern.MatchString(cfg.Audio.Bitrate) {
		errs = append(errs, fmt.Errorf("audio.bitrate %q is invalid; expected a value like 128k", cfg.Audio.Bitrate))
	}
	if cfg.Audio.OutputFormat != "" && cfg.Audio.OutputFormat != "mp3" {
		errs = append(errs, fmt.Errorf("audio.output_format %q is not supported; valid values: mp3", cfg.Audio.OutputFormat))
	}

	if cfg.Pipeline.UtteranceTimeout < 0 {
		errs = append(errs, fmt.Errorf("pipeline.utterance_timeout %v must not be negative", cfg.Pipeline.UtteranceTimeout))
	}
	if cfg.Pipeline.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("pipeline.fetch_timeout %v must not be negative", cfg.Pipeline.FetchTimeout))
	}
	if cfg.Pipeline.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_concurrency %d must not be negative", cfg.Pipeline.MaxConcurrency))
	}

	if cfg.Storage.MediaBaseURL != "" && cfg.Storage.MediaDir == "" {
		errs = append(errs, errors.New("storage.media_base_url requires storage.media_dir"))
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Debug("storage.postgres_dsn is empty; podcast records are kept in memory")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	if slices.Contains(ValidProviderNames[kind], name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", ValidProviderNames[kind],
	)
}
