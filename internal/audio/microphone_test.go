package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"learnshell/internal/ports"
)

func TestMicrophoneStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'hello'\nsleep 2\n")
	mic := NewMicrophone(script)

	session, err := mic.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "hello") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}

func TestMicrophoneStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no such device' 1>&2\nexit 1\n")
	mic := NewMicrophone(script)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := mic.Start(ctx, ports.AudioConfig{})
	if !errors.Is(err, ErrCaptureExited) {
		t.Fatalf("expected ErrCaptureExited, got %v", err)
	}
	if !strings.Contains(err.Error(), "no such device") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestCaptureArgsPlatformDefaults(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"linux":   {"-f", "pulse", "-i", "default"},
		"darwin":  {"-f", "avfoundation", "-i", ":0"},
		"windows": {"-f", "dshow", "-i", "audio=default"},
	}
	for goos, want := range cases {
		args := captureArgs(goos, ports.AudioConfig{})
		if !containsSequence(args, want) {
			t.Fatalf("%s: expected %v in %v", goos, want, args)
		}
		if !containsSequence(args, []string{"-ar", "16000"}) || !containsSequence(args, []string{"-ac", "1"}) {
			t.Fatalf("%s: expected 16k mono defaults in %v", goos, args)
		}
	}
}

func TestCaptureArgsOverridesAndMaxDuration(t *testing.T) {
	t.Parallel()

	args := captureArgs("linux", ports.AudioConfig{
		SampleRate:  48000,
		Channels:    2,
		InputFormat: "alsa",
		InputDevice: "hw:1",
		MaxDuration: 90 * time.Second,
	})
	for _, want := range [][]string{{"-f", "alsa", "-i", "hw:1"}, {"-t", "90"}, {"-ar", "48000"}, {"-ac", "2"}} {
		if !containsSequence(args, want) {
			t.Fatalf("expected %v in %v", want, args)
		}
	}
	if args[len(args)-1] != "-" {
		t.Fatalf("expected stdout output, got %v", args)
	}
}

func TestIgnoreExitStatus(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := ignoreExitStatus(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
	other := errors.New("pipe broke")
	if got := ignoreExitStatus(other); got != other {
		t.Fatalf("expected other errors to pass through, got %v", got)
	}
}

func containsSequence(args []string, want []string) bool {
	for i := range args {
		if i+len(want) <= len(args) && slices.Equal(args[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
