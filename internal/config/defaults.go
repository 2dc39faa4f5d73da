package config

import (
	"github.com/knadh/koanf/providers/confmap"

	"github.com/julianstephens/daybell/internal/constants"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"store":    constants.DefaultStorePath,
		"language": constants.DefaultLanguage,
		"debug":    false,
		"alarm": map[string]interface{}{
			"sound_url":     constants.DefaultAlarmURL,
			"player":        constants.DefaultPlayerCommand,
			"tray":          false,
			"briefing_cron": constants.DefaultBriefingCron,
		},
		"speech": map[string]interface{}{
			"mode":           string(constants.DefaultSpeechMode),
			"device_command": "",
			"endpoint":       "",
			"stream_url":     "",
			"tts_command":    constants.DefaultTTSCommand,
		},
		"recorder": map[string]interface{}{
			"command": constants.DefaultRecorderCommand,
			"mime":    constants.DefaultMemoMime,
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

// Default returns the defaults as a typed Config, used to seed the config file.
func Default() *Config {
	cfg := &Config{
		Store:    constants.DefaultStorePath,
		Language: constants.DefaultLanguage,
		Speech:   SpeechConfig{Mode: constants.DefaultSpeechMode},
	}
	cfg.Normalize()
	// Keep the "~" form in the written file.
	cfg.Store = constants.DefaultStorePath
	return cfg
}
