package bootstrap

import (
	"log/slog"

	"learnshell/internal/domain"
	"learnshell/internal/ports"
)

// LogEvents returns an event sink that writes session events to logger.
// Headless frontends use it in place of a renderer.
func LogEvents(logger *slog.Logger) ports.EventSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logEvents{logger: logger}
}

type logEvents struct {
	logger *slog.Logger
}

func (e logEvents) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	e.logger.Debug("session state", "state", state, "reason", reason)
}

func (e logEvents) PartialTranscript(text string) {
	e.logger.Debug("partial transcript", "text", text)
}

func (e logEvents) FinalTranscript(raw string, query string) {
	e.logger.Info("final transcript", "raw", raw, "query", query)
}

func (e logEvents) SessionError(code domain.ErrorCode, detail string) {
	e.logger.Warn("session error", "code", code, "detail", detail)
}
