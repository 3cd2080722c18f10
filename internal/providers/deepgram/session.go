package deepgram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"learnshell/internal/domain"
)

var (
	closeStreamFrame = []byte(`{"type":"CloseStream"}`)
	keepAliveFrame   = []byte(`{"type":"KeepAlive"}`)
)

// session is one live transcription stream. A single goroutine writes to the
// socket and another reads from it; done closes once both have returned.
type session struct {
	conn      *websocket.Conn
	keepAlive time.Duration

	events    chan domain.TranscriptEvent
	audio     chan []byte
	sendDone  chan struct{}
	closing   chan struct{}
	receiving chan struct{}
	done      chan struct{}

	closeSendOnce sync.Once
	closeOnce     sync.Once

	errMu sync.Mutex
	err   error
}

func newSession(conn *websocket.Conn, keepAlive time.Duration) *session {
	return &session{
		conn:      conn,
		keepAlive: keepAlive,
		events:    make(chan domain.TranscriptEvent, 64),
		audio:     make(chan []byte, 32),
		sendDone:  make(chan struct{}),
		closing:   make(chan struct{}),
		receiving: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func openSession(ctx context.Context, conn *websocket.Conn, keepAlive time.Duration) *session {
	s := newSession(conn, keepAlive)

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		s.receive()
	}()
	go func() {
		defer loops.Done()
		s.transmit()
	}()
	go func() {
		loops.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s
}

func (s *session) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	select {
	case <-s.sendDone:
		return ErrStreamClosed
	default:
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.sendDone:
		return ErrStreamClosed
	case <-s.done:
		if err := s.Err(); err != nil {
			return err
		}
		return ErrStreamClosed
	}
}

// CloseSend stops accepting audio. Buffered audio is still flushed before
// Deepgram is told to finalize the stream.
func (s *session) CloseSend() error {
	s.closeSendOnce.Do(func() { close(s.sendDone) })
	return nil
}

func (s *session) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *session) Wait() error {
	<-s.done
	return s.Err()
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.Err()
}

func (s *session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// fail records the first error. Orderly closes from the server are not errors.
func (s *session) fail(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *session) transmit() {
	var tick <-chan time.Time
	if s.keepAlive > 0 {
		ticker := time.NewTicker(s.keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}
	lastAudio := time.Now()

	for {
		select {
		case chunk := <-s.audio:
			if !s.write(websocket.BinaryMessage, chunk, "send audio") {
				return
			}
			lastAudio = time.Now()
		case <-tick:
			if time.Since(lastAudio) < s.keepAlive {
				continue
			}
			if !s.write(websocket.TextMessage, keepAliveFrame, "send keepalive") {
				return
			}
		case <-s.sendDone:
			if s.flush() {
				s.write(websocket.TextMessage, closeStreamFrame, "close stream")
			}
			return
		case <-s.receiving:
			return
		}
	}
}

func (s *session) flush() bool {
	for {
		select {
		case chunk := <-s.audio:
			if !s.write(websocket.BinaryMessage, chunk, "send audio") {
				return false
			}
		default:
			return true
		}
	}
}

func (s *session) write(kind int, payload []byte, action string) bool {
	if err := s.conn.WriteMessage(kind, payload); err != nil {
		s.fail(fmt.Errorf("%s: %w", action, err))
		return false
	}
	return true
}

func (s *session) receive() {
	defer close(s.receiving)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("read provider event: %w", err))
			return
		}

		msg := decodeMessage(payload)
		switch msg.kind {
		case messageError:
			s.fail(fmt.Errorf("%w: %s", ErrProvider, msg.err))
			return
		case messageTranscript:
			s.deliver(msg.event)
		}
	}
}

// deliver hands event to the reader. Interim results are dropped when the
// reader falls behind; finals wait, since they make up the question.
func (s *session) deliver(event domain.TranscriptEvent) {
	if event.Kind == domain.TranscriptKindPartial {
		select {
		case s.events <- event:
		default:
		}
		return
	}
	select {
	case s.events <- event:
	case <-s.closing:
	}
}
