package config

import "reflect"

// ConfigDiff describes what changed between two configs. Only the log level
// is applied live; every other changed section is listed in Restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// Restart names the changed sections that take effect only after a
	// restart, e.g. "providers.tts" or "audio".
	Restart []string
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && len(d.Restart) == 0
}

// Diff compares old and new configs.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	sections := []struct {
		name     string
		old, new any
	}{
		{"server.listen_addr", old.Server.ListenAddr, new.Server.ListenAddr},
		{"server.public_base_url", old.Server.PublicBaseURL, new.Server.PublicBaseURL},
		{"providers.llm", old.Providers.LLM, new.Providers.LLM},
		{"providers.llm_fallbacks", old.Providers.LLMFallbacks, new.Providers.LLMFallbacks},
		{"providers.tts", old.Providers.TTS, new.Providers.TTS},
		{"providers.tts_fallbacks", old.Providers.TTSFallbacks, new.Providers.TTSFallbacks},
		{"audio", old.Audio, new.Audio},
		{"pipeline", old.Pipeline, new.Pipeline},
		{"storage", old.Storage, new.Storage},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			d.Restart = append(d.Restart, s.name)
		}
	}
	return d
}
