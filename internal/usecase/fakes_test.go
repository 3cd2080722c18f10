package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"learnshell/internal/domain"
	"learnshell/internal/ports"
)

type fakeAudioCapture struct {
	sessions []ports.AudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	stopCalls int
	stopErr   error
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index >= len(f.chunks) {
		return 0, io.EOF
	}
	n := copy(p, f.chunks[f.index])
	f.index++
	return n, nil
}

func (f *fakeAudioSession) Close() error { return nil }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeAudioSession) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeProvider struct {
	sessions []ports.StreamingSession
	err      error
	calls    int
}

func (f *fakeProvider) StartStreaming(_ context.Context, _ ports.StreamingConfig) (ports.StreamingSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no stream session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

type fakeStreamingSession struct {
	events     chan domain.TranscriptEvent
	waitErr    error
	closeSend  int
	closeCalls int
	closed     bool
	mu         sync.Mutex
}

func newFakeStreamingSession() *fakeStreamingSession {
	return &fakeStreamingSession{events: make(chan domain.TranscriptEvent, 16)}
}

func (f *fakeStreamingSession) SendAudio(_ []byte) error { return nil }

func (f *fakeStreamingSession) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeSend++
	if !f.closed {
		close(f.events)
		f.closed = true
	}
	return nil
}

func (f *fakeStreamingSession) Events() <-chan domain.TranscriptEvent { return f.events }

func (f *fakeStreamingSession) Wait() error {
	time.Sleep(5 * time.Millisecond)
	return f.waitErr
}

func (f *fakeStreamingSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if !f.closed {
		close(f.events)
		f.closed = true
	}
	return nil
}

func (f *fakeStreamingSession) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

type fakeRules struct {
	transform string
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.transform != "" {
		return f.transform, nil
	}
	return text, nil
}

type fakeQuerySink struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeQuerySink) SubmitQuery(query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.queries = append(f.queries, query)
	return nil
}

func (f *fakeQuerySink) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

type fakeClipboard struct {
	mu       sync.Mutex
	lastText string
	err      error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = text
	return f.err
}

type fakeEventSink struct {
	mu sync.Mutex

	states   []stateEvent
	finals   []finalEvent
	partials []string
	errors   []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type finalEvent struct {
	raw   string
	query string
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) PartialTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partials = append(f.partials, text)
}

func (f *fakeEventSink) FinalTranscript(raw string, query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, finalEvent{raw: raw, query: query})
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotPartials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.partials))
	copy(out, f.partials)
	return out
}

func (f *fakeEventSink) snapshotFinals() []finalEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]finalEvent, len(f.finals))
	copy(out, f.finals)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

// fakeBackend implements every learning backend port.
type fakeBackend struct {
	mu sync.Mutex

	answer     string
	echo       bool
	answerErr  error
	answerGate chan struct{}
	questions  []answerCall

	summary    string
	summaryErr error

	analysis    string
	analysisErr error

	uploadURL string
	uploadErr error

	emotion    domain.Emotion
	emotionErr error

	audio    []byte
	audioErr error
	spoken   []string
}

type answerCall struct {
	mode     domain.SearchMode
	question string
	emotion  string
}

func (f *fakeBackend) Answer(ctx context.Context, mode domain.SearchMode, question string, emotion string) (string, error) {
	f.mu.Lock()
	f.questions = append(f.questions, answerCall{mode: mode, question: question, emotion: emotion})
	gate := f.answerGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.echo {
		return "answer: " + question, f.answerErr
	}
	return f.answer, f.answerErr
}

func (f *fakeBackend) answerCalls() []answerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]answerCall, len(f.questions))
	copy(out, f.questions)
	return out
}

func (f *fakeBackend) Summarize(_ context.Context, _ string) (string, error) {
	return f.summary, f.summaryErr
}

func (f *fakeBackend) AnalyzeImage(_ context.Context, _ []byte) (string, error) {
	return f.analysis, f.analysisErr
}

func (f *fakeBackend) UploadImage(_ context.Context, _ string, _ []byte) (string, error) {
	return f.uploadURL, f.uploadErr
}

func (f *fakeBackend) DetectEmotion(_ context.Context, _ []byte) (domain.Emotion, error) {
	return f.emotion, f.emotionErr
}

func (f *fakeBackend) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return f.audio, f.audioErr
}

type fakeScholar struct {
	results []domain.ScholarResult
	err     error
}

func (f *fakeScholar) SearchScholar(_ context.Context, _ string) ([]domain.ScholarResult, error) {
	return f.results, f.err
}

type fakeImageSearch struct {
	mu      sync.Mutex
	matches []domain.ImageMatch
	err     error
	urls    []string
}

func (f *fakeImageSearch) SearchImage(_ context.Context, imageURL string) ([]domain.ImageMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, imageURL)
	return f.matches, f.err
}
