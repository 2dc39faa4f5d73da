package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/daybell/internal/constants"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daybell", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Language != constants.DefaultLanguage {
		t.Errorf("Language = %q, want %q", cfg.Language, constants.DefaultLanguage)
	}
	if cfg.Speech.Mode != constants.SpeechNone {
		t.Errorf("Speech.Mode = %q, want none", cfg.Speech.Mode)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config perms = %v, want 0600", info.Mode().Perm())
	}

	// Second load reads the file that was just written.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if again.Alarm.SoundURL != constants.DefaultAlarmURL {
		t.Errorf("SoundURL = %q", again.Alarm.SoundURL)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
language: en-US
alarm:
  tray: true
  sound_url: file:///tmp/bell.ogg
speech:
  mode: batch
  endpoint: http://localhost:9000/transcribe
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DAYBELL_LANGUAGE", "ja-JP")
	t.Setenv("DAYBELL_RECORDER__MIME", "audio/wav")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Language != "ja-JP" {
		t.Errorf("Language = %q, want env override ja-JP", cfg.Language)
	}
	if !cfg.Alarm.Tray {
		t.Error("Alarm.Tray should be true from file")
	}
	if cfg.Alarm.SoundURL != "file:///tmp/bell.ogg" {
		t.Errorf("SoundURL = %q", cfg.Alarm.SoundURL)
	}
	if cfg.Speech.Mode != constants.SpeechBatch {
		t.Errorf("Speech.Mode = %q", cfg.Speech.Mode)
	}
	if cfg.Recorder.Mime != "audio/wav" {
		t.Errorf("Recorder.Mime = %q", cfg.Recorder.Mime)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		speech  SpeechConfig
		wantErr bool
	}{
		{name: "none", speech: SpeechConfig{Mode: constants.SpeechNone}},
		{name: "device", speech: SpeechConfig{Mode: constants.SpeechDevice}},
		{name: "batch without endpoint", speech: SpeechConfig{Mode: constants.SpeechBatch}, wantErr: true},
		{name: "stream without url", speech: SpeechConfig{Mode: constants.SpeechStream}, wantErr: true},
		{name: "stream with url", speech: SpeechConfig{Mode: constants.SpeechStream, StreamURL: "ws://x"}},
		{name: "unknown", speech: SpeechConfig{Mode: "cloud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Speech: tt.speech}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("DAYBELL_ALARM__SOUND_URL"); got != "alarm.sound_url" {
		t.Errorf("envKey() = %q", got)
	}
}
