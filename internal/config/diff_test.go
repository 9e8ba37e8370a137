package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/murphy/internal/config"
)

func TestDiff(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Server:    config.ServerConfig{LogLevel: config.LogInfo, ListenAddr: ":8080"},
			Providers: config.ProvidersConfig{TTS: config.ProviderEntry{Name: "murf", Options: map[string]any{"a": 1}}},
			Audio:     config.AudioConfig{FFmpegPath: "/usr/bin/ffmpeg"},
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *config.Config)
		wantLevel   bool
		wantRestart []string
	}{
		{"identical", func(*config.Config) {}, false, nil},
		{"log level", func(c *config.Config) { c.Server.LogLevel = config.LogDebug }, true, nil},
		{"tts options", func(c *config.Config) { c.Providers.TTS.Options["a"] = 2 }, false, []string{"providers.tts"}},
		{"ffmpeg and addr", func(c *config.Config) {
			c.Audio.FFmpegPath = "/opt/ffmpeg"
			c.Server.ListenAddr = ":9"
		}, false, []string{"server.listen_addr", "audio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old, new := base(), base()
			tt.mutate(new)
			d := config.Diff(old, new)
			if d.LogLevelChanged != tt.wantLevel {
				t.Errorf("LogLevelChanged = %v, want %v", d.LogLevelChanged, tt.wantLevel)
			}
			if tt.wantLevel && d.NewLogLevel != new.Server.LogLevel {
				t.Errorf("NewLogLevel = %q", d.NewLogLevel)
			}
			if !slices.Equal(d.Restart, tt.wantRestart) {
				t.Errorf("Restart = %v, want %v", d.Restart, tt.wantRestart)
			}
			if d.Empty() != (!tt.wantLevel && len(tt.wantRestart) == 0) {
				t.Errorf("Empty() = %v", d.Empty())
			}
		})
	}
}
