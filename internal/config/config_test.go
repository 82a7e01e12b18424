package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsFromEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_API_KEY", "test-key")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":4000" {
		t.Fatalf("unexpected address %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.Audio.UploadDir != "uploads" || cfg.Audio.FormField != "audioFile" {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	for _, ext := range []string{".m4a", ".mp3", ".flac"} {
		if got := cfg.Audio.Conversions[ext]; got != ".wav" {
			t.Fatalf("expected %s -> .wav conversion, got %q", ext, got)
		}
	}
	for _, mimeType := range []string{"audio/mp4", "audio/mpeg", "audio/flac"} {
		if got := cfg.Audio.MimeConversions[mimeType]; got != ".wav" {
			t.Fatalf("expected %s -> .wav conversion, got %q", mimeType, got)
		}
	}
	if _, ok := cfg.Audio.Conversions[".wav"]; ok {
		t.Fatalf("wav is already canonical")
	}
	if cfg.Audio.SampleRateHertz != 16000 || cfg.Audio.LanguageCode != "en-US" || cfg.Audio.Encoding != "LINEAR16" {
		t.Fatalf("unexpected canonical format: %+v", cfg.Audio)
	}
	if cfg.Providers[ProviderGemini].Model != "gemini-1.5-flash" {
		t.Fatalf("unexpected model %q", cfg.Providers[ProviderGemini].Model)
	}
	if cfg.Providers[ProviderGemini].APIKey != "test-key" || cfg.Providers[ProviderGoogleSpeech].APIKey != "test-key" {
		t.Fatalf("api key not propagated: %+v", cfg.Providers)
	}
	if cfg.Databases["sqlite3"].DSN != ":memory:" {
		t.Fatalf("expected in-memory registry, got %+v", cfg.Databases)
	}
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_API_KEY", "")
	t.Chdir(t.TempDir())

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error without GOOGLE_CLOUD_API_KEY")
	} else if !strings.Contains(err.Error(), "GOOGLE_CLOUD_API_KEY") {
		t.Fatalf("error should name the variable: %v", err)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_API_KEY", "test-key")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadFileAndEnvironmentOverlay(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_API_KEY", "env-key")
	t.Setenv("PODCASTRELAY_UPLOAD_DIR", "/var/lib/relay")
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"basic_config": {"server_address": ":9000"},
		"audio": {"conversions": {}, "allowed_mime_types": ["audio/wav"]},
		"providers": {"gemini": {"model": "gemini-2.0-flash", "api_key": "file-key"}}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":9000" {
		t.Fatalf("file value lost: %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.Audio.UploadDir != "/var/lib/relay" {
		t.Fatalf("environment override lost: %q", cfg.Audio.UploadDir)
	}
	if len(cfg.Audio.Conversions) != 0 {
		t.Fatalf("explicit empty conversions should disable conversion: %+v", cfg.Audio.Conversions)
	}
	if cfg.Providers[ProviderGemini].APIKey != "file-key" {
		t.Fatalf("file api key should win, got %q", cfg.Providers[ProviderGemini].APIKey)
	}
	if cfg.Providers[ProviderGemini].Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected model %q", cfg.Providers[ProviderGemini].Model)
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.BasicConfig.SpeechBackend = "carrier-pigeon"
	cfg.Audio.Conversions = map[string]string{"m4a": "wav"}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"gemini api key", "carrier-pigeon", "must start with a dot"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing %q in %v", want, msg)
		}
	}
}

func TestWhisperBackendRequiresKey(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_API_KEY", "test-key")
	t.Setenv("PODCASTRELAY_SPEECH_BACKEND", SpeechBackendWhisper)
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(t.TempDir())

	if _, err := Load(""); err == nil {
		t.Fatalf("expected whisper backend without key to fail")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers[ProviderWhisper].APIKey != "sk-test" {
		t.Fatalf("whisper key not applied")
	}
}
