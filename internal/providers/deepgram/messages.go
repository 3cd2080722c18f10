package deepgram

import (
	"encoding/json"
	"strings"

	"learnshell/internal/domain"
)

type messageKind int

const (
	messageIgnored messageKind = iota
	messageTranscript
	messageError
)

// message is one decoded server frame.
type message struct {
	kind  messageKind
	event domain.TranscriptEvent
	err   string
}

type wireMessage struct {
	Type        string      `json:"type"`
	Message     string      `json:"message"`
	Description string      `json:"description"`
	IsFinal     bool        `json:"is_final"`
	SpeechFinal bool        `json:"speech_final"`
	Channel     wireChannel `json:"channel"`
	Results     struct {
		Channels []wireChannel `json:"channels"`
	} `json:"results"`
}

type wireChannel struct {
	Alternatives []struct {
		Transcript string `json:"transcript"`
	} `json:"alternatives"`
}

func (c wireChannel) transcript() string {
	if len(c.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(c.Alternatives[0].Transcript)
}

// decodeMessage classifies a server frame. Metadata, UtteranceEnd and
// malformed frames are ignored, as are results without any text.
func decodeMessage(payload []byte) message {
	var wire wireMessage
	if err := json.Unmarshal(payload, &wire); err != nil {
		return message{}
	}

	if strings.EqualFold(wire.Type, "Error") {
		text := strings.TrimSpace(wire.Description)
		if text == "" {
			text = strings.TrimSpace(wire.Message)
		}
		if text == "" {
			text = "unknown error"
		}
		return message{kind: messageError, err: text}
	}

	text := wire.Channel.transcript()
	if text == "" && len(wire.Results.Channels) > 0 {
		text = wire.Results.Channels[0].transcript()
	}
	if text == "" {
		return message{}
	}

	kind := domain.TranscriptKindPartial
	if wire.IsFinal || wire.SpeechFinal {
		kind = domain.TranscriptKindFinal
	}
	return message{
		kind:  messageTranscript,
		event: domain.TranscriptEvent{Kind: kind, Text: text, IsSpeechFinal: wire.SpeechFinal},
	}
}
