package deepgram

import (
	"errors"
	"testing"

	"github.com/gorilla/websocket"

	"learnshell/internal/domain"
)

func TestSessionRejectsAudioAfterCloseSend(t *testing.T) {
	t.Parallel()

	s := newSession(nil, 0)
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected second error: %v", err)
	}
	if err := s.SendAudio([]byte("x")); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed, got %v", err)
	}
	if err := s.SendAudio(nil); err != nil {
		t.Fatalf("empty chunks are ignored, got %v", err)
	}
}

func TestSessionFailIgnoresOrderlyClose(t *testing.T) {
	t.Parallel()

	s := newSession(nil, 0)
	s.fail(&websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "closed"})
	if s.Err() != nil {
		t.Fatalf("expected close error to be ignored")
	}

	s.fail(errors.New("first"))
	s.fail(errors.New("second"))
	if s.Err() == nil || s.Err().Error() != "first" {
		t.Fatalf("expected first error to win, got %v", s.Err())
	}
}

func TestSessionDeliverDropsOnlyInterimResults(t *testing.T) {
	t.Parallel()

	s := newSession(nil, 0)
	s.events = make(chan domain.TranscriptEvent, 1)
	s.deliver(domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "a"})
	s.deliver(domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "ab"})

	if got := <-s.events; got.Text != "a" {
		t.Fatalf("expected first interim to be kept, got %+v", got)
	}

	delivered := make(chan struct{})
	s.deliver(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "abc"})
	go func() {
		s.deliver(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "abcd"})
		close(delivered)
	}()
	if got := <-s.events; got.Text != "abc" {
		t.Fatalf("unexpected final %+v", got)
	}
	<-delivered
	if got := <-s.events; got.Text != "abcd" {
		t.Fatalf("expected blocked final to be delivered, got %+v", got)
	}
}

func TestSessionDeliverGivesUpWhenClosing(t *testing.T) {
	t.Parallel()

	s := newSession(nil, 0)
	s.events = make(chan domain.TranscriptEvent)
	close(s.closing)
	s.deliver(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "lost"})
}
