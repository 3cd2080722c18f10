package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"learnshell/internal/domain"
	"learnshell/internal/ports"
)

// recording is one push-to-talk capture: microphone audio flowing into a
// transcription stream while transcripts accumulate into a question.
type recording struct {
	cancel   context.CancelFunc
	mic      ports.AudioSession
	stream   ports.StreamingSession
	question *spokenQuestion

	state atomic.Value
	sent  atomic.Int64

	micDone    chan struct{}
	streamDone chan struct{}
}

func newRecording(cancel context.CancelFunc, mic ports.AudioSession, stream ports.StreamingSession) *recording {
	r := &recording{
		cancel:     cancel,
		mic:        mic,
		stream:     stream,
		question:   &spokenQuestion{},
		micDone:    make(chan struct{}),
		streamDone: make(chan struct{}),
	}
	r.setState(domain.SessionStateRecording)
	return r
}

func (r *recording) setState(state domain.SessionState) {
	r.state.Store(state)
}

func (r *recording) getState() domain.SessionState {
	state, _ := r.state.Load().(domain.SessionState)
	return state
}

// start runs the audio and transcript loops until the microphone or the
// stream ends.
func (r *recording) start(chunkSize int, events ports.EventSink) {
	go r.forwardAudio(chunkSize, events)
	go r.collectTranscripts(events)
}

func (r *recording) forwardAudio(chunkSize int, events ports.EventSink) {
	defer close(r.micDone)

	buf := make([]byte, chunkSize)
	for {
		n, err := r.mic.Read(buf)
		if n > 0 {
			if sendErr := r.stream.SendAudio(buf[:n]); sendErr != nil {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("failed to stream audio: %v", sendErr))
				return
			}
			r.sent.Add(int64(n))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

// collectTranscripts feeds stream events into the question. Renderers get the
// whole question heard so far, not just the latest interim segment.
func (r *recording) collectTranscripts(events ports.EventSink) {
	defer close(r.streamDone)

	for event := range r.stream.Events() {
		if !r.question.Add(event) {
			continue
		}
		if event.Kind == domain.TranscriptKindPartial {
			events.PartialTranscript(r.question.Draft())
		}
	}
}

// finish half-closes the stream so the provider flushes its last results,
// then waits for both loops. A stream that does not finish within timeout
// is closed outright.
func (r *recording) finish(timeout time.Duration) error {
	_ = r.stream.CloseSend()

	done := make(chan error, 1)
	go func() {
		done <- r.stream.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(timeout):
		_ = r.stream.Close()
		err = <-done
	}
	<-r.streamDone
	<-r.micDone
	return err
}

// discard tears the capture down without waiting for transcripts.
func (r *recording) discard() {
	r.cancel()
	_ = r.mic.Stop()
	_ = r.stream.Close()
	<-r.streamDone
	<-r.micDone
}

func (r *recording) heardAudio() bool {
	return r.sent.Load() > 0
}

// spokenQuestion assembles finalized transcript segments plus the interim
// segment still being recognized.
type spokenQuestion struct {
	mu       sync.Mutex
	segments []string
	interim  string
}

// Add records event and reports whether it carried any text. Providers may
// repeat a final segment on reconnect; consecutive duplicates are kept once.
func (q *spokenQuestion) Add(event domain.TranscriptEvent) bool {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if event.Kind != domain.TranscriptKindFinal {
		q.interim = text
		return true
	}
	q.interim = ""
	if n := len(q.segments); n == 0 || q.segments[n-1] != text {
		q.segments = append(q.segments, text)
	}
	return true
}

// Draft is the question as heard so far.
func (q *spokenQuestion) Draft() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.joinLocked(q.interim)
}

// Text is the question once the stream has ended. An interim segment that was
// never finalized still counts unless the finals already end with it.
func (q *spokenQuestion) Text() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	joined := q.joinLocked("")
	if q.interim == "" || joined == q.interim || strings.HasSuffix(joined, " "+q.interim) {
		return joined
	}
	return q.joinLocked(q.interim)
}

func (q *spokenQuestion) joinLocked(tail string) string {
	parts := q.segments
	if tail != "" {
		parts = append(parts[:len(parts):len(parts)], tail)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
