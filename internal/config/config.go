// Package config provides the configuration schema, loader, and provider
// registry for the murphy podcast renderer.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr       = ":8080"
	DefaultBitrate          = "128k"
	DefaultOutputFormat     = "mp3"
	DefaultUtteranceTimeout = 30 * time.Second
	DefaultStyle            = "Conversational"
)

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Audio     AudioConfig     `yaml:"audio"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. It is applied live on config reload.
	LogLevel LogLevel `yaml:"log_level"`

	// PublicBaseURL is the externally visible base URL of the API, used in
	// log output only.
	PublicBaseURL string `yaml:"public_base_url"`
}

// ProvidersConfig selects the generative-text and speech backends. Each
// entry's Name is looked up in the [Registry].
type ProvidersConfig struct {
	LLM          ProviderEntry   `yaml:"llm"`
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`
	TTS          ProviderEntry   `yaml:"tts"`
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider
// types.
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "murf").
	Name string `yaml:"name"`

	// APIKey authenticates against the provider. ${VAR} references are
	// expanded from the environment when the file is loaded.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider (e.g., "gemini-1.5-flash").
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// AudioConfig configures clip assembly.
type AudioConfig struct {
	// FFmpegPath is the absolute path of the ffmpeg executable. It is never
	// looked up on PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// TempDir holds per-job clip and manifest files. Empty uses the system
	// temp directory.
	TempDir string `yaml:"temp_dir"`

	// Bitrate is used when clips have to be re-encoded. Default: 128k.
	Bitrate string `yaml:"bitrate"`

	// Reencode forces a libmp3lame re-encode instead of stream copy.
	Reencode bool `yaml:"reencode"`

	// OutputFormat is the artifact container. Only "mp3" is supported.
	OutputFormat string `yaml:"output_format"`
}

// PipelineConfig tunes utterance rendering.
type PipelineConfig struct {
	// UtteranceTimeout bounds one utterance's render and download.
	UtteranceTimeout time.Duration `yaml:"utterance_timeout"`

	// FetchTimeout bounds the HTTP client used to download rendered audio.
	// Zero leaves only UtteranceTimeout in effect.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// MaxConcurrency caps utterances rendered in parallel per job. 0 means
	// unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Style is the speaking style sent to the TTS provider.
	Style string `yaml:"style"`
}

// StorageConfig configures where podcast records and artifacts end up.
type StorageConfig struct {
	// PostgresDSN selects the PostgreSQL metadata store. Empty keeps
	// records in memory.
	PostgresDSN string `yaml:"postgres_dsn"`

	// MediaDir receives published artifacts.
	MediaDir string `yaml:"media_dir"`

	// MediaBaseURL is prefixed to published file names to form their URL.
	MediaBaseURL string `yaml:"media_base_url"`
}

// ApplyDefaults fills zero-value fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.Bitrate == "" {
		cfg.Audio.Bitrate = DefaultBitrate
	}
	if cfg.Audio.OutputFormat == "" {
		cfg.Audio.OutputFormat = DefaultOutputFormat
	}
	if cfg.Pipeline.UtteranceTimeout == 0 {
		cfg.Pipeline.UtteranceTimeout = DefaultUtteranceTimeout
	}
	if cfg.Pipeline.Style == "" {
		cfg.Pipeline.Style = DefaultStyle
	}
}
