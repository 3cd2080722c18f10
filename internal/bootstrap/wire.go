package bootstrap

import (
	"io"
	"log/slog"

	"learnshell/internal/audio"
	"learnshell/internal/config"
	"learnshell/internal/ports"
	"learnshell/internal/providers/backend"
	"learnshell/internal/providers/deepgram"
	"learnshell/internal/providers/serper"
	"learnshell/internal/rules"
	"learnshell/internal/usecase"
	"learnshell/internal/windows"
)

// Options selects how the runtime graph is assembled.
type Options struct {
	// ConfigPath overrides LEARNSHELL_CONFIG when set.
	ConfigPath string
	Events     ports.EventSink
	Clipboard  ports.Clipboard
	Logger     *slog.Logger
	// DisableScholar skips academic searches after answers.
	DisableScholar bool
}

// Services is the assembled runtime graph.
type Services struct {
	Windows   *windows.Manager
	Assistant *usecase.Assistant
	Voice     *usecase.VoiceController
	Config    config.Config
	Logger    *slog.Logger
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Build wires all backend dependencies for the current runtime.
func Build(opts Options) (Services, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return Services{}, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rulesEngine, err := rules.Load(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	api := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Voice:   cfg.Speech.Voice,
		Speed:   cfg.Speech.Speed,
	})
	search := serper.NewClient(serper.Config{
		APIKey:  cfg.Serper.APIKey,
		BaseURL: cfg.Serper.BaseURL,
		Timeout: cfg.Serper.Timeout,
	})

	deps := usecase.AssistantDeps{
		Answerer:   api,
		Summarizer: api,
		Analyzer:   api,
		Uploader:   api,
		Emotions:   api,
		Speech:     api,
		Images:     search,
		Clipboard:  opts.Clipboard,
	}
	if !opts.DisableScholar {
		deps.Scholar = search
	}

	manager := windows.NewManager()
	assistant := usecase.NewAssistant(manager, deps, opts.Events, logger.With("component", "assistant"), usecase.AssistantConfig{
		ThumbnailWidth: cfg.UI.ThumbnailWidth,
	})

	voice := usecase.NewVoiceController(
		audio.NewMicrophone(cfg.Audio.RecorderCommand),
		deepgram.NewProvider(deepgram.Config{
			APIKey:        cfg.Deepgram.APIKey,
			APIBaseURL:    cfg.Deepgram.APIBaseURL,
			Model:         cfg.Deepgram.Model,
			Language:      cfg.Deepgram.Language,
			SmartFormat:   cfg.Deepgram.SmartFormat,
			Punctuate:     cfg.Deepgram.Punctuate,
			Keywords:      cfg.Deepgram.Keywords,
			EndpointingMS: cfg.Deepgram.EndpointingMS,
			KeepAlive:     cfg.Deepgram.KeepAlive,
		}),
		rulesEngine,
		assistant,
		opts.Events,
		usecase.VoiceConfig{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
				MaxDuration: cfg.Audio.MaxDuration,
			},
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
			},
			ChunkSize:      cfg.Session.ChunkSize,
			StreamingGrace: cfg.Session.StreamingGrace,
		},
	)

	logger.Debug("services built", "config", cfg.Source, "backend", cfg.Backend.BaseURL, "rules", cfg.Rules.Path)
	return Services{
		Windows:   manager,
		Assistant: assistant,
		Voice:     voice,
		Config:    cfg,
		Logger:    logger,
	}, nil
}
