package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"learnshell/internal/domain"
	"learnshell/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrNoTranscript    = errors.New("no transcript captured")
)

// VoiceConfig controls push-to-talk capture and streaming.
type VoiceConfig struct {
	Audio          ports.AudioConfig
	Streaming      ports.StreamingConfig
	ChunkSize      int
	StreamingGrace time.Duration
	StreamTimeout  time.Duration
}

// VoiceController records a spoken question and hands it to the search flow.
type VoiceController struct {
	audio     ports.AudioCapture
	provider  ports.TranscriptionProvider
	events    ports.EventSink
	finalizer queryFinalizer
	cfg       VoiceConfig

	mu      sync.Mutex
	current *recording
}

func NewVoiceController(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	rules ports.QueryRules,
	sink ports.QuerySink,
	events ports.EventSink,
	cfg VoiceConfig,
) *VoiceController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 4 * time.Second
	}
	return &VoiceController{
		audio:     audio,
		provider:  provider,
		events:    events,
		finalizer: newQueryFinalizer(rules, sink, events),
		cfg:       cfg,
	}
}

// Start opens the microphone and a transcription stream. A session already
// in progress is discarded.
func (c *VoiceController) Start(ctx context.Context) error {
	c.mu.Lock()
	previous := c.current
	c.current = nil
	c.mu.Unlock()

	if previous != nil {
		previous.discard()
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	stream, err := c.provider.StartStreaming(sessionCtx, c.cfg.Streaming)
	if err != nil {
		cancel()
		return err
	}

	audioSession, err := c.audio.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return err
	}

	active := newRecording(cancel, audioSession, stream)
	c.mu.Lock()
	c.current = active
	c.mu.Unlock()
	active.start(c.cfg.ChunkSize, c.events)

	reason := domain.SessionReasonRecordingStarted
	if previous != nil {
		reason = domain.SessionReasonRecordingRestarted
	}
	c.events.SessionStateChanged(domain.SessionStateRecording, reason)
	return nil
}

// Stop ends recording, waits for the final transcript and submits it as a query.
func (c *VoiceController) Stop(ctx context.Context) (domain.VoiceResult, error) {
	active, err := c.getCurrent()
	if err != nil {
		return domain.VoiceResult{}, err
	}

	active.setState(domain.SessionStateStopping)
	c.events.SessionStateChanged(domain.SessionStateStopping, domain.SessionReasonTranscribing)

	if err := active.mic.Stop(); err != nil {
		c.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}

	if c.cfg.StreamingGrace > 0 {
		timer := time.NewTimer(c.cfg.StreamingGrace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	streamErr := active.finish(c.cfg.StreamTimeout)

	raw := active.question.Text()
	if raw == "" && streamErr != nil {
		c.events.SessionError(domain.ErrorCodeTranscription, streamErr.Error())
		c.finishSession(active, domain.SessionStateError, domain.SessionReasonTranscriptionFailed)
		return domain.VoiceResult{}, streamErr
	}
	if raw == "" {
		if !active.heardAudio() {
			c.events.SessionError(domain.ErrorCodeAudioStream, "microphone produced no audio")
		}
		c.finishSession(active, domain.SessionStateIdle, domain.SessionReasonNoTranscript)
		return domain.VoiceResult{}, ErrNoTranscript
	}

	result, reason, err := c.finalizer.Finalize(raw)
	if err != nil {
		state := domain.SessionStateError
		if reason == domain.SessionReasonNoTranscript {
			state = domain.SessionStateIdle
		}
		c.finishSession(active, state, reason)
		return domain.VoiceResult{}, err
	}

	c.events.FinalTranscript(result.RawTranscript, result.Query)
	c.finishSession(active, domain.SessionStateIdle, reason)
	return result, nil
}

// Abort cancels and discards an active session without transcription.
func (c *VoiceController) Abort() error {
	active, err := c.getCurrent()
	if err != nil {
		return err
	}

	active.discard()
	c.finishSession(active, domain.SessionStateIdle, domain.SessionReasonRecordingDiscarded)
	return nil
}

// Status returns the current voice session status.
func (c *VoiceController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.SessionStateIdle}
	}
	state := c.current.getState()
	return domain.Status{State: state, Active: state != domain.SessionStateIdle}
}

func (c *VoiceController) getCurrent() (*recording, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	return c.current, nil
}

func (c *VoiceController) finishSession(active *recording, state domain.SessionState, reason domain.SessionStateReason) {
	active.cancel()
	active.setState(state)

	c.mu.Lock()
	if c.current == active {
		c.current = nil
	}
	c.mu.Unlock()

	c.events.SessionStateChanged(state, reason)
}
