package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/julianstephens/daybell/internal/constants"
)

const envPrefix = "DAYBELL_"

type Config struct {
	Store    string         `koanf:"store" yaml:"store"`
	Language string         `koanf:"language" yaml:"language"`
	Debug    bool           `koanf:"debug" yaml:"debug"`
	Alarm    AlarmConfig    `koanf:"alarm" yaml:"alarm"`
	Speech   SpeechConfig   `koanf:"speech" yaml:"speech"`
	Recorder RecorderConfig `koanf:"recorder" yaml:"recorder"`
}

type AlarmConfig struct {
	SoundURL string `koanf:"sound_url" yaml:"sound_url"`
	// Player is the command used to play the cue; the sound URL is appended.
	Player string `koanf:"player" yaml:"player"`
	// Tray forwards alarms to the desktop tray app when it is running.
	Tray bool `koanf:"tray" yaml:"tray"`
	// BriefingCron speaks today's schedule on a cron schedule. Empty disables it.
	BriefingCron string `koanf:"briefing_cron" yaml:"briefing_cron"`
}

type SpeechConfig struct {
	Mode          constants.SpeechMode `koanf:"mode" yaml:"mode"`
	DeviceCommand string               `koanf:"device_command" yaml:"device_command"`
	Endpoint      string               `koanf:"endpoint" yaml:"endpoint"`
	StreamURL     string               `koanf:"stream_url" yaml:"stream_url"`
	APIKey        string               `koanf:"api_key" yaml:"-"`
	TTSCommand    string               `koanf:"tts_command" yaml:"tts_command"`
}

type RecorderConfig struct {
	Command string `koanf:"command" yaml:"command"`
	Mime    string `koanf:"mime" yaml:"mime"`
}

// Load layers defaults, the YAML file at path, and DAYBELL_ environment
// variables. A missing file is created from defaults on first run.
//
// Environment keys use a double underscore between sections, e.g.
// DAYBELL_SPEECH__MODE=batch or DAYBELL_ALARM__SOUND_URL=...
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		path = ExpandPath(path)
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		} else if errors.Is(err, os.ErrNotExist) {
			if err := Save(path, Default()); err != nil {
				// Defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "Warning: could not write default config: %v\n", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Normalize()

	return &cfg, cfg.Validate()
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Normalize fills empty fields with defaults and expands paths.
func (c *Config) Normalize() {
	if c.Store != "" && !isConnString(c.Store) {
		c.Store = ExpandPath(c.Store)
	}
	if c.Language == "" {
		c.Language = constants.DefaultLanguage
	}
	if c.Alarm.SoundURL == "" {
		c.Alarm.SoundURL = constants.DefaultAlarmURL
	}
	if c.Alarm.Player == "" {
		c.Alarm.Player = constants.DefaultPlayerCommand
	}
	if c.Speech.Mode == "" {
		c.Speech.Mode = constants.DefaultSpeechMode
	}
	if c.Speech.TTSCommand == "" {
		c.Speech.TTSCommand = constants.DefaultTTSCommand
	}
	if c.Recorder.Command == "" {
		c.Recorder.Command = constants.DefaultRecorderCommand
	}
	if c.Recorder.Mime == "" {
		c.Recorder.Mime = constants.DefaultMemoMime
	}
}

func (c *Config) Validate() error {
	switch c.Speech.Mode {
	case constants.SpeechNone, constants.SpeechDevice, constants.SpeechBatch, constants.SpeechStream:
	default:
		return fmt.Errorf("unknown speech mode: %s (supported: none, device, batch, stream)", c.Speech.Mode)
	}
	if c.Speech.Mode == constants.SpeechBatch && c.Speech.Endpoint == "" {
		return fmt.Errorf("speech.endpoint is required for batch transcription")
	}
	if c.Speech.Mode == constants.SpeechStream && c.Speech.StreamURL == "" {
		return fmt.Errorf("speech.stream_url is required for streaming transcription")
	}
	return nil
}

// Dir returns the directory holding the config file, used for logs and backups.
func Dir(path string) string {
	if path == "" {
		return ExpandPath(constants.DefaultConfigDir)
	}
	return filepath.Dir(ExpandPath(path))
}

// Save writes cfg as YAML via a temp file and rename, with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".daybell-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func ExpandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func isConnString(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}
