package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LEARNSHELL_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Source != "" {
		t.Fatalf("expected no config source, got %q", cfg.Source)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" || cfg.Serper.BaseURL != "https://google.serper.dev" {
		t.Fatalf("unexpected endpoints: %+v %+v", cfg.Backend, cfg.Serper)
	}
	if cfg.Rules.Path != filepath.Join(home, ".config", "learnshell", "query-rules.yaml") {
		t.Fatalf("unexpected rules path %q", cfg.Rules.Path)
	}
	if cfg.Audio.InputFormat != "" || cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected platform input defaults, got %+v", cfg.Audio)
	}
	if cfg.LogLevel() != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.LogLevel())
	}
}

func TestLoadReadsDefaultFileAndEnvWins(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LEARNSHELL_CONFIG", "")

	path := DefaultPath(home)
	writeFile(t, path, `
backend:
  baseURL: http://tutor.local:9000
  timeout: 45s
serper:
  apiKey: from-file
deepgram:
  keywords: [photosynthesis, chlorophyll]
rules:
  path: ~/rules.yaml
ui:
  thumbnailWidth: 240
log:
  level: debug
`)
	t.Setenv("SERPER_API_KEY", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("expected source %q, got %q", path, cfg.Source)
	}
	if cfg.Backend.BaseURL != "http://tutor.local:9000" || cfg.Backend.Timeout != 45*time.Second {
		t.Fatalf("file values not applied: %+v", cfg.Backend)
	}
	if cfg.Serper.APIKey != "from-env" {
		t.Fatalf("env should override file, got %q", cfg.Serper.APIKey)
	}
	if !slices.Equal(cfg.Deepgram.Keywords, []string{"photosynthesis", "chlorophyll"}) {
		t.Fatalf("unexpected keywords %v", cfg.Deepgram.Keywords)
	}
	if cfg.Deepgram.Model != "nova-2" {
		t.Fatalf("unset file keys should keep defaults, got %q", cfg.Deepgram.Model)
	}
	if cfg.Rules.Path != filepath.Join(home, "rules.yaml") {
		t.Fatalf("expected home expansion, got %q", cfg.Rules.Path)
	}
	if cfg.UI.ThumbnailWidth != 240 || cfg.LogLevel() != slog.LevelDebug {
		t.Fatalf("unexpected ui/log config: %+v %+v", cfg.UI, cfg.Log)
	}
}

func TestLoadFileRequiresExplicitPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadFileRejectsInvalidYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "broken.yaml")
	writeFile(t, path, "backend: [\n")

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadRespectsEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LEARNSHELL_CONFIG", "")
	t.Setenv("BACKEND_BASE_URL", "http://backend:8000")
	t.Setenv("LEARNSHELL_BACKEND_TIMEOUT", "5s")
	t.Setenv("SERPER_BASE_URL", "http://serper.test")
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	t.Setenv("DEEPGRAM_API_BASE", "https://example.com/v1")
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("DEEPGRAM_LANGUAGE", "en")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "false")
	t.Setenv("DEEPGRAM_KEYWORDS", "osmosis, , mitosis")
	t.Setenv("DEEPGRAM_ENDPOINTING_MS", "300")
	t.Setenv("LEARNSHELL_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("LEARNSHELL_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("LEARNSHELL_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("LEARNSHELL_SAMPLE_RATE", "22050")
	t.Setenv("LEARNSHELL_CHANNELS", "2")
	t.Setenv("LEARNSHELL_RULES_FILE", "/etc/learnshell/rules.yaml")
	t.Setenv("LEARNSHELL_RULE_ITERATION_LIMIT", "42")
	t.Setenv("LEARNSHELL_AUDIO_CHUNK_SIZE", "512")
	t.Setenv("LEARNSHELL_STREAMING_GRACE_MS", "25")
	t.Setenv("LEARNSHELL_TTS_VOICE", "en-GB-Standard-B")
	t.Setenv("LEARNSHELL_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend.BaseURL != "http://backend:8000" || cfg.Backend.Timeout != 5*time.Second {
		t.Fatalf("unexpected backend config: %+v", cfg.Backend)
	}
	if cfg.Serper.BaseURL != "http://serper.test" {
		t.Fatalf("unexpected serper config: %+v", cfg.Serper)
	}
	if cfg.Deepgram.APIKey != "test-key" || cfg.Deepgram.APIBaseURL != "https://example.com/v1" {
		t.Fatalf("unexpected deepgram config: %+v", cfg.Deepgram)
	}
	if cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.Language != "en" || cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram model/language/smart format: %+v", cfg.Deepgram)
	}
	if !slices.Equal(cfg.Deepgram.Keywords, []string{"osmosis", "mitosis"}) || cfg.Deepgram.EndpointingMS != 300 {
		t.Fatalf("unexpected deepgram vocabulary: %+v", cfg.Deepgram)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 22050 || cfg.Audio.Channels != 2 {
		t.Fatalf("unexpected sample/channels: %+v", cfg.Audio)
	}
	if cfg.Rules.Path != "/etc/learnshell/rules.yaml" || cfg.Rules.IterationLimit != 42 {
		t.Fatalf("unexpected rules config: %+v", cfg.Rules)
	}
	if cfg.Session.ChunkSize != 512 || cfg.Session.StreamingGrace != 25*time.Millisecond {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Speech.Voice != "en-GB-Standard-B" || cfg.LogLevel() != slog.LevelWarn {
		t.Fatalf("unexpected speech/log config: %+v %+v", cfg.Speech, cfg.Log)
	}
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LEARNSHELL_CONFIG", "")
	t.Setenv("LEARNSHELL_SAMPLE_RATE", "bad")
	t.Setenv("LEARNSHELL_CHANNELS", "-1")
	t.Setenv("LEARNSHELL_RULE_ITERATION_LIMIT", "0")
	t.Setenv("LEARNSHELL_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("LEARNSHELL_STREAMING_GRACE_MS", "bad")
	t.Setenv("LEARNSHELL_BACKEND_TIMEOUT", "soon")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "not-bool")
	t.Setenv("LEARNSHELL_LOG_LEVEL", "chatty")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Fatalf("expected default channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Rules.IterationLimit != 30 {
		t.Fatalf("expected default iteration limit, got %d", cfg.Rules.IterationLimit)
	}
	if cfg.Session.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Session.ChunkSize)
	}
	if cfg.Session.StreamingGrace != time.Second {
		t.Fatalf("expected default grace, got %s", cfg.Session.StreamingGrace)
	}
	if cfg.Backend.Timeout != 90*time.Second {
		t.Fatalf("expected default backend timeout, got %s", cfg.Backend.Timeout)
	}
	if !cfg.Deepgram.SmartFormat {
		t.Fatalf("expected default smart format true")
	}
	if cfg.LogLevel() != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", cfg.LogLevel())
	}
}

func writeFile(t *testing.T, path string, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
