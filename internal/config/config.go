// Package config resolves learnshell settings from defaults, an optional
// YAML file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for the shell and learnctl.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Serper   SerperConfig   `yaml:"serper"`
	Deepgram DeepgramConfig `yaml:"deepgram"`
	Audio    AudioConfig    `yaml:"audio"`
	Rules    RulesConfig    `yaml:"rules"`
	Session  SessionConfig  `yaml:"session"`
	Speech   SpeechConfig   `yaml:"speech"`
	UI       UIConfig       `yaml:"ui"`
	Log      LogConfig      `yaml:"log"`

	// Source is the config file that was read, if any.
	Source string `yaml:"-"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

type SerperConfig struct {
	APIKey  string        `yaml:"apiKey"`
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

type DeepgramConfig struct {
	APIKey        string        `yaml:"apiKey"`
	APIBaseURL    string        `yaml:"apiBaseURL"`
	Model         string        `yaml:"model"`
	Language      string        `yaml:"language"`
	SmartFormat   bool          `yaml:"smartFormat"`
	Punctuate     bool          `yaml:"punctuate"`
	Keywords      []string      `yaml:"keywords"`
	EndpointingMS int           `yaml:"endpointingMs"`
	KeepAlive     time.Duration `yaml:"keepAlive"`
}

type AudioConfig struct {
	RecorderCommand string        `yaml:"recorderCommand"`
	InputFormat     string        `yaml:"inputFormat"`
	InputDevice     string        `yaml:"inputDevice"`
	SampleRate      int           `yaml:"sampleRate"`
	Channels        int           `yaml:"channels"`
	MaxDuration     time.Duration `yaml:"maxDuration"`
}

type RulesConfig struct {
	Path           string `yaml:"path"`
	IterationLimit int    `yaml:"iterationLimit"`
}

type SessionConfig struct {
	ChunkSize      int           `yaml:"chunkSize"`
	StreamingGrace time.Duration `yaml:"streamingGrace"`
}

type SpeechConfig struct {
	Voice string  `yaml:"voice"`
	Speed float64 `yaml:"speed"`
}

type UIConfig struct {
	ThumbnailWidth int `yaml:"thumbnailWidth"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the built-in configuration.
func Defaults(home string) Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 90 * time.Second,
		},
		Serper: SerperConfig{
			BaseURL: "https://google.serper.dev",
			Timeout: 20 * time.Second,
		},
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			SmartFormat: true,
			Punctuate:   true,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			SampleRate:      16000,
			Channels:        1,
			MaxDuration:     2 * time.Minute,
		},
		Rules: RulesConfig{
			Path:           filepath.Join(home, ".config", "learnshell", "query-rules.yaml"),
			IterationLimit: 30,
		},
		Session: SessionConfig{
			ChunkSize:      4096,
			StreamingGrace: time.Second,
		},
		Speech: SpeechConfig{
			Voice: "en-US-Standard-A",
			Speed: 1.0,
		},
		UI:  UIConfig{ThumbnailWidth: 160},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath is the config file read when LEARNSHELL_CONFIG is unset.
func DefaultPath(home string) string {
	return filepath.Join(home, ".config", "learnshell", "config.yaml")
}

// Load resolves configuration from the file named by LEARNSHELL_CONFIG (or
// the default path when it exists) and environment variables.
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("LEARNSHELL_CONFIG")))
}

// LoadFile is Load with an explicit config file. An empty path falls back
// to the default location, which may be absent; an explicit path must exist.
func LoadFile(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Defaults(home)
	explicit := path != ""
	if !explicit {
		path = DefaultPath(home)
	}

	contents, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	applyEnv(&cfg)
	cfg.normalize(home)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Backend.BaseURL = envOrDefault("BACKEND_BASE_URL", cfg.Backend.BaseURL)
	cfg.Backend.Timeout = envOrDefaultDuration("LEARNSHELL_BACKEND_TIMEOUT", cfg.Backend.Timeout)

	cfg.Serper.APIKey = envOrDefault("SERPER_API_KEY", cfg.Serper.APIKey)
	cfg.Serper.BaseURL = envOrDefault("SERPER_BASE_URL", cfg.Serper.BaseURL)

	cfg.Deepgram.APIKey = envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.Language = envOrDefault("DEEPGRAM_LANGUAGE", cfg.Deepgram.Language)
	cfg.Deepgram.SmartFormat = envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)
	cfg.Deepgram.EndpointingMS = envOrDefaultInt("DEEPGRAM_ENDPOINTING_MS", cfg.Deepgram.EndpointingMS)
	cfg.Deepgram.KeepAlive = envOrDefaultDuration("DEEPGRAM_KEEPALIVE", cfg.Deepgram.KeepAlive)
	if keywords := splitList(os.Getenv("DEEPGRAM_KEYWORDS")); len(keywords) > 0 {
		cfg.Deepgram.Keywords = keywords
	}

	cfg.Audio.RecorderCommand = envOrDefault("LEARNSHELL_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = envOrDefault("LEARNSHELL_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = firstNonEmpty(
		os.Getenv("LEARNSHELL_AUDIO_INPUT_DEVICE"),
		os.Getenv("DEEPGRAM_PULSE_SOURCE"),
		cfg.Audio.InputDevice,
	)
	cfg.Audio.SampleRate = envOrDefaultInt("LEARNSHELL_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("LEARNSHELL_CHANNELS", cfg.Audio.Channels)

	cfg.Rules.Path = envOrDefault("LEARNSHELL_RULES_FILE", cfg.Rules.Path)
	cfg.Rules.IterationLimit = envOrDefaultInt("LEARNSHELL_RULE_ITERATION_LIMIT", cfg.Rules.IterationLimit)

	cfg.Session.ChunkSize = envOrDefaultInt("LEARNSHELL_AUDIO_CHUNK_SIZE", cfg.Session.ChunkSize)
	if ms := envOrDefaultInt("LEARNSHELL_STREAMING_GRACE_MS", -1); ms >= 0 {
		cfg.Session.StreamingGrace = time.Duration(ms) * time.Millisecond
	}

	cfg.Speech.Voice = envOrDefault("LEARNSHELL_TTS_VOICE", cfg.Speech.Voice)
	cfg.Log.Level = envOrDefault("LEARNSHELL_LOG_LEVEL", cfg.Log.Level)
}

func (c *Config) normalize(home string) {
	defaults := Defaults(home)
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaults.Audio.SampleRate
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = defaults.Audio.Channels
	}
	if c.Rules.IterationLimit <= 0 {
		c.Rules.IterationLimit = defaults.Rules.IterationLimit
	}
	if c.Session.ChunkSize < 256 {
		c.Session.ChunkSize = defaults.Session.ChunkSize
	}
	if c.Speech.Speed <= 0 {
		c.Speech.Speed = defaults.Speech.Speed
	}
	if c.UI.ThumbnailWidth <= 0 {
		c.UI.ThumbnailWidth = defaults.UI.ThumbnailWidth
	}
	c.Rules.Path = expandHome(c.Rules.Path, home)
}

// LogLevel parses Log.Level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func expandHome(path string, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
