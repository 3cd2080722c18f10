// Package audio captures spoken questions from the microphone as raw PCM.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"learnshell/internal/ports"
)

var ErrCaptureExited = errors.New("capture process exited before recording started")

const (
	startupProbe = 250 * time.Millisecond
	stopGrace    = 1200 * time.Millisecond
)

// Microphone records through an ffmpeg child process writing s16le PCM to
// stdout.
type Microphone struct {
	command string
	goos    string
}

func NewMicrophone(command string) *Microphone {
	if command == "" {
		command = "ffmpeg"
	}
	return &Microphone{command: command, goos: runtime.GOOS}
}

// Start launches the capture process. A process that dies during the
// startup probe is reported with its stderr.
func (m *Microphone) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, m.command, captureArgs(m.goos, cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("microphone stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", m.command, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	select {
	case err := <-exited:
		detail := strings.TrimSpace(stderr.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %s", ErrCaptureExited, err, detail)
		}
		return nil, fmt.Errorf("%w: %s", ErrCaptureExited, detail)
	case <-time.After(startupProbe):
	}

	return &recording{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		exited:  exited,
	}, nil
}

// captureArgs builds the ffmpeg arguments for the platform's default audio
// input unless cfg names one.
func captureArgs(goos string, cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	format, device := defaultInput(goos)
	if cfg.InputFormat != "" {
		format = cfg.InputFormat
	}
	if cfg.InputDevice != "" {
		device = cfg.InputDevice
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", format,
		"-i", device,
	}
	if cfg.MaxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(cfg.MaxDuration.Seconds(), 'f', -1, 64))
	}
	return append(args,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	)
}

func defaultInput(goos string) (format string, device string) {
	switch goos {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

type recording struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	exited  <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (r *recording) Read(p []byte) (int, error) {
	return r.stdout.Read(p)
}

func (r *recording) Close() error {
	return r.Stop()
}

// Stop interrupts the process so ffmpeg flushes, killing it after a grace
// period.
func (r *recording) Stop() error {
	r.stopOnce.Do(func() {
		if r.process != nil {
			_ = r.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-r.exited:
			if ok {
				r.stopErr = ignoreExitStatus(err)
			}
		case <-time.After(stopGrace):
			if r.process != nil {
				_ = r.process.Kill()
			}
			if err, ok := <-r.exited; ok {
				r.stopErr = ignoreExitStatus(err)
			}
		}

		if err := r.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && r.stopErr == nil {
			r.stopErr = err
		}
		if r.stopErr != nil && r.stderr != nil && r.stderr.Len() > 0 {
			r.stopErr = fmt.Errorf("%w: %s", r.stopErr, strings.TrimSpace(r.stderr.String()))
		}
	})
	return r.stopErr
}

// ignoreExitStatus drops the non-zero exit ffmpeg reports when interrupted.
func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
