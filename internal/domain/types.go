package domain

// WindowKind selects which renderer owns a window's content.
type WindowKind string

const (
	KindSearch        WindowKind = "search"
	KindResponse      WindowKind = "response"
	KindImageResponse WindowKind = "image-response"
	KindUpload        WindowKind = "upload"
	KindCamera        WindowKind = "camera"
	KindScholarWeb    WindowKind = "scholar-web"
	KindScholarPDF    WindowKind = "scholar-pdf"
)

// Valid reports whether k is one of the known window kinds.
func (k WindowKind) Valid() bool {
	switch k {
	case KindSearch, KindResponse, KindImageResponse, KindUpload, KindCamera, KindScholarWeb, KindScholarPDF:
		return true
	default:
		return false
	}
}

// SearchMode picks the answering model for a text query.
type SearchMode string

const (
	SearchModeLocal  SearchMode = "local"
	SearchModeGlobal SearchMode = "global"
)

// Well-known window ids reused across queries.
const (
	WindowIDSearch        = "search"
	WindowIDLocalResponse = "local-response"
	WindowIDTextResponse  = "text-response"
	WindowIDImageResponse = "image-response"
	WindowIDCamera        = "camera-window"
	WindowIDUpload        = "upload-window"
)

// ResponseWindowID returns the window reused for answers in the given mode.
func ResponseWindowID(mode SearchMode) string {
	if mode == SearchModeLocal {
		return WindowIDLocalResponse
	}
	return WindowIDTextResponse
}

// ScholarResult is one academic search hit.
type ScholarResult struct {
	ID              string `json:"id,omitempty" yaml:"id,omitempty"`
	Title           string `json:"title" yaml:"title"`
	Link            string `json:"link,omitempty" yaml:"link,omitempty"`
	PublicationInfo string `json:"publicationInfo,omitempty" yaml:"publicationInfo,omitempty"`
	Snippet         string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	Year            int    `json:"year,omitempty" yaml:"year,omitempty"`
	CitedBy         int    `json:"citedBy,omitempty" yaml:"citedBy,omitempty"`
	PDFURL          string `json:"pdfUrl,omitempty" yaml:"pdfUrl,omitempty"`
}

// ImageMatch is one reverse image search hit.
type ImageMatch struct {
	Title        string `json:"title" yaml:"title"`
	Source       string `json:"source,omitempty" yaml:"source,omitempty"`
	Link         string `json:"link,omitempty" yaml:"link,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" yaml:"thumbnailUrl,omitempty"`
}

// Emotion is the dominant facial expression detected in a capture.
type Emotion struct {
	Label string  `json:"emotion"`
	Score float64 `json:"score"`
}

// DefaultEmotion is sent when no capture is available or detection fails.
const DefaultEmotion = "neutral"

// WordTiming marks when a spoken word starts, relative to playback start.
type WordTiming struct {
	Index   int     `json:"index"`
	Word    string  `json:"word"`
	StartMS float64 `json:"startMs"`
}

// SpeechResult is synthesized audio plus highlight timings.
type SpeechResult struct {
	Audio      []byte       `json:"audio"`
	MIMEType   string       `json:"mimeType"`
	DurationMS float64      `json:"durationMs"`
	Words      []WordTiming `json:"words"`
}

// SessionState models the push-to-talk lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateRecording SessionState = "recording"
	SessionStateStopping  SessionState = "stopping"
	SessionStateError     SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonMicCold             SessionStateReason = "mic_cold"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted  SessionStateReason = "recording_restarted"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonQueryReady          SessionStateReason = "query_ready"
	SessionReasonRecordingDiscarded  SessionStateReason = "recording_discarded"
	SessionReasonNoTranscript        SessionStateReason = "no_transcript"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonRulesFailed         SessionStateReason = "rules_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeAudioStop     ErrorCode = "audio_stop"
	ErrorCodeAudioStream   ErrorCode = "audio_stream"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeRules         ErrorCode = "rules"
	ErrorCodeClipboard     ErrorCode = "clipboard"
	ErrorCodeAnswer        ErrorCode = "answer"
	ErrorCodeScholar       ErrorCode = "scholar"
	ErrorCodeImageSearch   ErrorCode = "image_search"
	ErrorCodeCamera        ErrorCode = "camera"
	ErrorCodeUpload        ErrorCode = "upload"
	ErrorCodeSpeech        ErrorCode = "speech"
)

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// VoiceResult is returned once recording stops and the spoken query is ready.
type VoiceResult struct {
	RawTranscript string `json:"rawTranscript"`
	Query         string `json:"query"`
}

// Status summarizes the current voice session status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Message string       `json:"message,omitempty"`
}
