package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/murphy/internal/config"
	"github.com/MrWong99/murphy/pkg/provider/llm"
	llmmock "github.com/MrWong99/murphy/pkg/provider/llm/mock"
	"github.com/MrWong99/murphy/pkg/provider/tts"
	ttsmock "github.com/MrWong99/murphy/pkg/provider/tts/mock"
)

const fullYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  llm:
    name: gemini
    api_key: ${MURPHY_TEST_GEMINI_KEY}
    model: gemini-1.5-flash
  tts:
    name: murf
    api_key: ${MURPHY_TEST_MURF_KEY}
  tts_fallbacks:
    - name: elevenlabs
      api_key: el-key
      options:
        model: eleven_multilingual_v2
audio:
  ffmpeg_path: /usr/bin/ffmpeg
  temp_dir: /var/tmp/murphy
  reencode: true
pipeline:
  utterance_timeout: 45s
  max_concurrency: 8
storage:
  postgres_dsn: postgres://localhost/murphy
  media_dir: /srv/media
  media_base_url: https://cdn.example.com/podcasts
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Setenv("MURPHY_TEST_GEMINI_KEY", "g-secret")
	t.Setenv("MURPHY_TEST_MURF_KEY", "m-secret")

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Providers.LLM.APIKey != "g-secret" || cfg.Providers.TTS.APIKey != "m-secret" {
		t.Errorf("env expansion failed: llm=%q tts=%q", cfg.Providers.LLM.APIKey, cfg.Providers.TTS.APIKey)
	}
	if len(cfg.Providers.TTSFallbacks) != 1 || cfg.Providers.TTSFallbacks[0].Options["model"] != "eleven_multilingual_v2" {
		t.Errorf("tts_fallbacks = %+v", cfg.Providers.TTSFallbacks)
	}
	if !cfg.Audio.Reencode || cfg.Audio.Bitrate != config.DefaultBitrate || cfg.Audio.OutputFormat != "mp3" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Pipeline.UtteranceTimeout != 45*time.Second || cfg.Pipeline.MaxConcurrency != 8 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.Style != config.DefaultStyle {
		t.Errorf("style = %q, want default", cfg.Pipeline.Style)
	}
	if cfg.Storage.MediaBaseURL != "https://cdn.example.com/podcasts" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadFromReader_EmptyUsesDefaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr || cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Pipeline.UtteranceTimeout != config.DefaultUtteranceTimeout {
		t.Errorf("timeout = %v", cfg.Pipeline.UtteranceTimeout)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("audio:\n  ffmpeg: /usr/bin/ffmpeg\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/murphy.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad log level", "server:\n  log_level: loud\n", "server.log_level"},
		{"bad bitrate", "audio:\n  bitrate: fast\n", "audio.bitrate"},
		{"bad format", "audio:\n  output_format: wav\n", "audio.output_format"},
		{"negative timeout", "pipeline:\n  utterance_timeout: -1s\n", "pipeline.utterance_timeout"},
		{"negative concurrency", "pipeline:\n  max_concurrency: -2\n", "pipeline.max_concurrency"},
		{"fallback without primary", "providers:\n  tts_fallbacks:\n    - name: elevenlabs\n", "requires providers.tts"},
		{"nameless fallback", "providers:\n  tts:\n    name: murf\n  tts_fallbacks:\n    - api_key: x\n", "tts_fallbacks[0].name"},
		{"media url without dir", "storage:\n  media_base_url: https://x\n", "storage.media_base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{LogLevel: "loud"},
		Audio:    config.AudioConfig{Bitrate: "x"},
		Pipeline: config.PipelineConfig{MaxConcurrency: -1},
	}
	err := config.Validate(cfg)
	for _, want := range []string{"log_level", "bitrate", "max_concurrency"} {
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("err = %v, missing %q", err, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := config.NewRegistry()
	reg.RegisterTTS("murf", func(e config.ProviderEntry) (tts.Provider, error) {
		if e.APIKey == "" {
			return nil, errors.New("murf: apiKey must not be empty")
		}
		return &ttsmock.Provider{}, nil
	})
	reg.RegisterLLM("gemini", func(config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{}, nil
	})

	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "murf", APIKey: "k"}); err != nil {
		t.Errorf("CreateTTS: %v", err)
	}
	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "murf"}); err == nil {
		t.Error("factory error not propagated")
	}
	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "gemini"}); err != nil {
		t.Errorf("CreateLLM: %v", err)
	}
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "murf"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("kinds must not share names: %v", err)
	}
	if got := reg.Names("tts"); len(got) != 1 || got[0] != "murf" {
		t.Errorf("Names(tts) = %v", got)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("MURF_API_KEY", "murf-key")
	cfg, err := config.Load("../../configs/example.yaml")
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if cfg.Providers.TTS.Name != "murf" || cfg.Providers.TTS.APIKey != "murf-key" {
		t.Errorf("tts = %+v", cfg.Providers.TTS)
	}
	if cfg.Pipeline.UtteranceTimeout != time.Minute {
		t.Errorf("UtteranceTimeout = %v, want 1m", cfg.Pipeline.UtteranceTimeout)
	}
}
