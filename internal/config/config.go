package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/hashicorp/go-multierror"
)

// Provider keys used in Config.Providers.
const (
	ProviderGemini       = "gemini"
	ProviderGoogleSpeech = "google_speech"
	ProviderWhisper      = "whisper"
)

const (
	SpeechBackendGoogle  = "google"
	SpeechBackendWhisper = "whisper"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Audio       AudioConfig               `json:"audio"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	ServerAddress     string   `json:"server_address"`
	DBType            string   `json:"db_type"`
	SpeechBackend     string   `json:"speech_backend"`
	FFmpegPath        string   `json:"ffmpeg_path"`
	MinWorkers        int      `json:"min_workers"`
	MaxWorkers        int      `json:"max_workers"`
	QueueSize         int      `json:"queue_size"`
	WorkerIdleTimeout int      `json:"worker_idle_timeout_minutes"`
	TranscriptTTL     int      `json:"transcript_cache_ttl_minutes"`
	CORSOrigins       []string `json:"cors_origins"`
}

// AudioConfig describes the upload root, the accepted formats and the
// canonical format handed to the recognizer.
type AudioConfig struct {
	UploadDir        string            `json:"upload_dir"`
	FormField        string            `json:"form_field"`
	MaxUploadBytes   int64             `json:"max_upload_bytes"`
	AllowedMimeTypes []string          `json:"allowed_mime_types"`
	Conversions      map[string]string `json:"conversions"`
	MimeConversions  map[string]string `json:"mime_conversions"`
	Encoding         string            `json:"encoding"`
	SampleRateHertz  int32             `json:"sample_rate_hertz"`
	Channels         int               `json:"channels"`
	LanguageCode     string            `json:"language_code"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

// RedisConfig leaves the cache disabled when Host is empty.
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type environment struct {
	GoogleAPIKey  string `env:"GOOGLE_CLOUD_API_KEY,required,notEmpty"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	ServerAddress string `env:"PODCASTRELAY_ADDR"`
	UploadDir     string `env:"PODCASTRELAY_UPLOAD_DIR"`
	DBType        string `env:"PODCASTRELAY_DB"`
	SpeechBackend string `env:"PODCASTRELAY_SPEECH_BACKEND"`
	RedisHost     string `env:"PODCASTRELAY_REDIS_HOST"`
	RedisPort     int    `env:"PODCASTRELAY_REDIS_PORT"`
}

// Load reads configuration from the provided path (defaults to config.json),
// overlays the environment and validates the result. A missing default file
// is tolerated so the service can run from the environment alone.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg := &Config{}
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyDefaults()

	var e environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyEnvironment(e)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	b := &c.BasicConfig
	if b.ServerAddress == "" {
		b.ServerAddress = ":4000"
	}
	if b.DBType == "" {
		b.DBType = "sqlite3"
	}
	if b.SpeechBackend == "" {
		b.SpeechBackend = SpeechBackendGoogle
	}
	if b.FFmpegPath == "" {
		b.FFmpegPath = "ffmpeg"
	}
	if b.MinWorkers <= 0 {
		b.MinWorkers = 1
	}
	if b.MaxWorkers <= 0 {
		b.MaxWorkers = 4
	}
	if b.QueueSize <= 0 {
		b.QueueSize = 32
	}
	if b.WorkerIdleTimeout <= 0 {
		b.WorkerIdleTimeout = 5
	}
	if len(b.CORSOrigins) == 0 {
		b.CORSOrigins = []string{"*"}
	}

	a := &c.Audio
	if a.UploadDir == "" {
		a.UploadDir = "uploads"
	}
	if a.FormField == "" {
		a.FormField = "audioFile"
	}
	if a.MaxUploadBytes <= 0 {
		a.MaxUploadBytes = 50 << 20
	}
	if len(a.AllowedMimeTypes) == 0 {
		a.AllowedMimeTypes = []string{"audio/wav", "audio/mpeg", "audio/flac", "audio/mp4"}
	}
	// nil means unset; an explicit empty object disables conversion.
	// every allowed non-WAV format is brought to LINEAR16
	if a.Conversions == nil {
		a.Conversions = map[string]string{".m4a": ".wav", ".mp3": ".wav", ".flac": ".wav"}
	}
	if a.MimeConversions == nil {
		a.MimeConversions = map[string]string{"audio/mp4": ".wav", "audio/mpeg": ".wav", "audio/flac": ".wav"}
	}
	if a.Encoding == "" {
		a.Encoding = "LINEAR16"
	}
	if a.SampleRateHertz <= 0 {
		a.SampleRateHertz = 16000
	}
	if a.Channels <= 0 {
		a.Channels = 1
	}
	if a.LanguageCode == "" {
		a.LanguageCode = "en-US"
	}

	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	gemini := c.Providers[ProviderGemini]
	if gemini.Model == "" {
		gemini.Model = "gemini-1.5-flash"
	}
	c.Providers[ProviderGemini] = gemini
	whisper := c.Providers[ProviderWhisper]
	if whisper.Model == "" {
		whisper.Model = "whisper-1"
	}
	c.Providers[ProviderWhisper] = whisper

	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
	if _, ok := c.Databases["sqlite3"]; !ok {
		c.Databases["sqlite3"] = DatabaseConfig{DSN: ":memory:"}
	}

	if c.Redis.Host != "" && c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
}

func (c *Config) applyEnvironment(e environment) {
	for _, name := range []string{ProviderGemini, ProviderGoogleSpeech} {
		p := c.Providers[name]
		if p.APIKey == "" {
			p.APIKey = e.GoogleAPIKey
		}
		c.Providers[name] = p
	}
	if e.OpenAIAPIKey != "" {
		p := c.Providers[ProviderWhisper]
		p.APIKey = e.OpenAIAPIKey
		c.Providers[ProviderWhisper] = p
	}
	if e.ServerAddress != "" {
		c.BasicConfig.ServerAddress = e.ServerAddress
	}
	if e.UploadDir != "" {
		c.Audio.UploadDir = e.UploadDir
	}
	if e.DBType != "" {
		c.BasicConfig.DBType = e.DBType
	}
	if e.SpeechBackend != "" {
		c.BasicConfig.SpeechBackend = e.SpeechBackend
	}
	if e.RedisHost != "" {
		c.Redis.Host = e.RedisHost
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
	}
	if e.RedisPort != 0 {
		c.Redis.Port = e.RedisPort
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	a := c.Audio
	if strings.TrimSpace(a.UploadDir) == "" {
		result = multierror.Append(result, errors.New("audio.upload_dir must be configured"))
	}
	if len(a.AllowedMimeTypes) == 0 {
		result = multierror.Append(result, errors.New("audio.allowed_mime_types must not be empty"))
	}
	for from, to := range a.Conversions {
		if !strings.HasPrefix(from, ".") || !strings.HasPrefix(to, ".") {
			result = multierror.Append(result, fmt.Errorf("audio.conversions %q -> %q: extensions must start with a dot", from, to))
		}
	}
	for mimeType, to := range a.MimeConversions {
		if !strings.HasPrefix(to, ".") {
			result = multierror.Append(result, fmt.Errorf("audio.mime_conversions %q -> %q: extension must start with a dot", mimeType, to))
		}
	}
	if a.SampleRateHertz <= 0 {
		result = multierror.Append(result, errors.New("audio.sample_rate_hertz must be positive"))
	}
	if c.Providers[ProviderGemini].APIKey == "" {
		result = multierror.Append(result, errors.New("gemini api key must be configured"))
	}
	switch c.BasicConfig.SpeechBackend {
	case SpeechBackendGoogle:
		if c.Providers[ProviderGoogleSpeech].APIKey == "" {
			result = multierror.Append(result, errors.New("google speech api key must be configured"))
		}
	case SpeechBackendWhisper:
		if c.Providers[ProviderWhisper].APIKey == "" {
			result = multierror.Append(result, errors.New("OPENAI_API_KEY is required for the whisper backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unsupported speech backend %q", c.BasicConfig.SpeechBackend))
	}
	if _, ok := c.Databases[c.BasicConfig.DBType]; !ok {
		result = multierror.Append(result, fmt.Errorf("database config for %s not found", c.BasicConfig.DBType))
	}
	if c.BasicConfig.MaxWorkers < c.BasicConfig.MinWorkers {
		result = multierror.Append(result, errors.New("basic_config.max_workers must be >= min_workers"))
	}
	return result.ErrorOrNil()
}
