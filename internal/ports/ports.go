package ports

import (
	"context"
	"io"
	"time"

	"learnshell/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
	MaxDuration time.Duration
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// QueryRules normalizes spoken queries.
type QueryRules interface {
	Apply(text string) (string, error)
}

// QuerySink receives queries ready for a search.
type QuerySink interface {
	SubmitQuery(query string) error
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// Answerer answers a learner's question with the given model.
type Answerer interface {
	Answer(ctx context.Context, mode domain.SearchMode, question string, emotion string) (string, error)
}

// Summarizer condenses a passage, e.g. a paper snippet.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ImageAnalyzer describes what a captured image shows.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte) (string, error)
}

// ImageUploader hosts an image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, name string, image []byte) (string, error)
}

// EmotionDetector reads the dominant facial expression from an image.
type EmotionDetector interface {
	DetectEmotion(ctx context.Context, image []byte) (domain.Emotion, error)
}

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ScholarSearcher runs academic searches.
type ScholarSearcher interface {
	SearchScholar(ctx context.Context, query string) ([]domain.ScholarResult, error)
}

// ImageSearcher runs reverse image searches on a hosted image.
type ImageSearcher interface {
	SearchImage(ctx context.Context, imageURL string) ([]domain.ImageMatch, error)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	PartialTranscript(text string)
	FinalTranscript(raw string, query string)
	SessionError(code domain.ErrorCode, detail string)
}
