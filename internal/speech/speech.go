// Package speech prepares answers for text-to-speech playback and derives
// word highlight timings from the synthesized audio.
package speech

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"learnshell/internal/domain"
)

var ErrInvalidAudio = errors.New("invalid wav audio")

var (
	markdownImage = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	markdownLink  = regexp.MustCompile(`\[([^\]]+)\]\((.*?)\)`)
	markdownChars = regexp.MustCompile("[`*_>{}#+\\-~]")
	newlines      = regexp.MustCompile(`\n+`)
)

// StripMarkdown removes markdown syntax so the text reads naturally aloud.
// Link text is kept, images are dropped.
func StripMarkdown(md string) string {
	text := markdownImage.ReplaceAllString(md, "")
	text = markdownLink.ReplaceAllString(text, "$1")
	text = markdownChars.ReplaceAllString(text, "")
	text = newlines.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Words splits text the way the highlighter counts words.
func Words(text string) []string {
	return strings.Fields(text)
}

// Duration reads the playback length of a PCM WAV file.
func Duration(audio []byte) (time.Duration, error) {
	decoder := wav.NewDecoder(bytes.NewReader(audio))
	if !decoder.IsValidFile() {
		return 0, ErrInvalidAudio
	}
	if err := decoder.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	bytesPerSecond := int64(decoder.SampleRate) * int64(decoder.NumChans) * int64(decoder.BitDepth) / 8
	if bytesPerSecond <= 0 {
		return 0, ErrInvalidAudio
	}
	return time.Duration(int64(decoder.PCMSize) * int64(time.Second) / bytesPerSecond), nil
}

// Timings spreads words evenly over duration.
func Timings(words []string, duration time.Duration) []domain.WordTiming {
	if len(words) == 0 {
		return []domain.WordTiming{}
	}
	perWord := float64(duration.Milliseconds()) / float64(len(words))
	timings := make([]domain.WordTiming, 0, len(words))
	for i, word := range words {
		timings = append(timings, domain.WordTiming{
			Index:   i,
			Word:    word,
			StartMS: float64(i) * perWord,
		})
	}
	return timings
}

// Prepare builds a SpeechResult for text and its synthesized WAV audio.
func Prepare(text string, audio []byte) (domain.SpeechResult, error) {
	duration, err := Duration(audio)
	if err != nil {
		return domain.SpeechResult{}, err
	}
	return domain.SpeechResult{
		Audio:      audio,
		MIMEType:   "audio/wav",
		DurationMS: float64(duration.Milliseconds()),
		Words:      Timings(Words(text), duration),
	}, nil
}
