package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"learnshell/internal/bootstrap"
	"learnshell/internal/config"
	"learnshell/internal/domain"
	"learnshell/internal/usecase"
	"learnshell/internal/windows"
)

const (
	eventWorkspace = "learnshell:workspace"
	eventSession   = "learnshell:session"
	eventPartial   = "learnshell:partial"
	eventFinal     = "learnshell:final"
	eventError     = "learnshell:error"
)

type emitFunc func(ctx context.Context, name string, data ...any)

// App is the Wails application root.
type App struct {
	ctx  context.Context
	emit emitFunc

	assistant *usecase.Assistant
	voice     *usecase.VoiceController
	manager   *windows.Manager
	cfg       config.Config
	logger    *slog.Logger
	bootErr   error

	emitMu      sync.Mutex
	lastVersion uint64
	unsubscribe func()
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load()
	level := slog.LevelInfo
	if err == nil {
		level = cfg.LogLevel()
	}
	a.logger = bootstrap.NewLogger(os.Stderr, level)

	services, err := bootstrap.Build(bootstrap.Options{
		Events:    a,
		Clipboard: &wailsClipboard{},
		Logger:    a.logger,
	})
	if err != nil {
		a.bootErr = err
		a.logger.Error("startup failed", "err", err)
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.attach(services)
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonMicCold)
}

func (a *App) shutdown(_ context.Context) {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.voice != nil {
		if err := a.voice.Abort(); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
			a.logger.Warn("abort voice on shutdown", "err", err)
		}
	}
}

func (a *App) attach(services bootstrap.Services) {
	a.cfg = services.Config
	a.assistant = services.Assistant
	a.voice = services.Voice
	a.manager = services.Windows
	a.unsubscribe = a.manager.Subscribe(a.workspaceChanged)
	a.workspaceChanged(a.manager.Snapshot())
}

// workspaceChanged forwards registry snapshots to the renderer. Listeners
// run outside the registry lock, so an older snapshot can arrive after a
// newer one; those are dropped.
func (a *App) workspaceChanged(snapshot windows.Snapshot) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()
	if snapshot.Version < a.lastVersion {
		return
	}
	a.lastVersion = snapshot.Version
	a.emitEvent(eventWorkspace, snapshot)
}

// GetWorkspace returns the current window registry.
func (a *App) GetWorkspace() (windows.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return windows.Snapshot{}, err
	}
	return a.manager.Snapshot(), nil
}

// MaximizeWindow focuses a window, restoring it from the tray.
func (a *App) MaximizeWindow(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.manager.Maximize(id)
}

// MinimizeWindow docks a window in the tray.
func (a *App) MinimizeWindow(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.manager.Minimize(id)
}

// CloseWindow removes a window.
func (a *App) CloseWindow(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.manager.Close(id)
}

// SubmitQuery stores a typed question until a search mode is picked.
func (a *App) SubmitQuery(query string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.assistant.SubmitQuery(query)
}

// Search answers the pending question with the local or global model.
func (a *App) Search(mode string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.assistant.Search(a.ctx, domain.SearchMode(mode))
}

// OpenCamera opens or focuses the camera window.
func (a *App) OpenCamera() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.assistant.OpenCamera()
}

// CaptureImage analyzes a camera frame given as a data URL.
func (a *App) CaptureImage(dataURL string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.assistant.CaptureImage(a.ctx, dataURL)
}

// UploadFile hosts a file picked in the upload window. The renderer sends
// data base64 encoded.
func (a *App) UploadFile(name string, data []byte) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.assistant.UploadFile(a.ctx, name, data)
}

// OpenScholar opens a paper viewer for an academic result.
func (a *App) OpenScholar(result domain.ScholarResult) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.assistant.OpenScholar(result)
}

// SummarizeScholar condenses the paper shown in a viewer window.
func (a *App) SummarizeScholar(id string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.assistant.SummarizeScholar(a.ctx, id)
}

// Speak reads a window's answer or summary aloud.
func (a *App) Speak(id string) (domain.SpeechResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.SpeechResult{}, err
	}
	return a.assistant.Speak(a.ctx, id)
}

// CopyAnswer copies a window's answer or summary to the clipboard.
func (a *App) CopyAnswer(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.assistant.CopyAnswer(a.ctx, id)
}

// StartVoice starts recording a spoken question.
func (a *App) StartVoice() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.voice.Start(a.ctx); err != nil {
		a.SessionError(domain.ErrorCodeTranscription, err.Error())
		return domain.Status{}, err
	}
	return a.voice.Status(), nil
}

// StopVoice stops recording and submits the spoken question.
func (a *App) StopVoice() (domain.VoiceResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.VoiceResult{}, err
	}
	result, err := a.voice.Stop(a.ctx)
	if err != nil {
		a.SessionError(domain.ErrorCodeTranscription, err.Error())
		return domain.VoiceResult{}, err
	}
	return result, nil
}

// AbortVoice discards an in-progress recording.
func (a *App) AbortVoice() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.voice.Abort(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		a.SessionError(domain.ErrorCodeTranscription, err.Error())
		return err
	}
	return nil
}

// GetStatus returns the current voice session status.
func (a *App) GetStatus() domain.Status {
	if a.voice == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.voice.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"backend":          a.cfg.Backend.BaseURL,
		"provider":         "Deepgram",
		"model":            a.cfg.Deepgram.Model,
		"language":         a.cfg.Deepgram.Language,
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"voice":            a.cfg.Speech.Voice,
		"scholarSearch":    fmt.Sprint(a.cfg.Serper.APIKey != ""),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.assistant == nil || a.voice == nil || a.manager == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.emitEvent(eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// PartialTranscript emits live partial transcript text.
func (a *App) PartialTranscript(text string) {
	a.emitEvent(eventPartial, map[string]string{"text": text})
}

// FinalTranscript emits the spoken question once it is submitted.
func (a *App) FinalTranscript(raw string, query string) {
	a.emitEvent(eventFinal, map[string]string{
		"raw":   raw,
		"query": query,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emitEvent(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) emitEvent(name string, data any) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, data)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonMicCold:
		return "Mic cold"
	case domain.SessionReasonRecordingStarted:
		return "Listening..."
	case domain.SessionReasonRecordingRestarted:
		return "Recording restarted; previous capture discarded"
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonQueryReady:
		return "Question ready"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonNoTranscript:
		return "No speech captured"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	case domain.SessionReasonRulesFailed:
		return "Rules processing failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodeRules:
		return "Rules processing failed"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	case domain.ErrorCodeAnswer:
		return "Answer failed"
	case domain.ErrorCodeScholar:
		return "Failed to load academic results"
	case domain.ErrorCodeImageSearch:
		return "Failed to load similar images"
	case domain.ErrorCodeCamera:
		return "Camera capture failed"
	case domain.ErrorCodeUpload:
		return "Upload failed"
	case domain.ErrorCodeSpeech:
		return "Speech playback failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
