package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/tts"
)

// command describes one invocation of an external TTS binary.
type command struct {
	name    string
	args    []string
	stdin   io.Reader
	timeout time.Duration
}

// run executes the command with timeout protection.
// CRITICAL: stdin is configured before start so tools that read it right
// away never race with the writer.
func (c command) run(ctx context.Context) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.Command(c.name, c.args...)
	if c.stdin != nil {
		cmd.Stdin = c.stdin
	} else {
		cmd.Stdin = strings.NewReader("")
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children of a killed process may hold the pipes open.
	cmd.WaitDelay = 500 * time.Millisecond

	log.Debug("running", "cmd", c.name, "args", len(c.args))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w, stderr: %s", c.name, err, strings.TrimSpace(stderr.String()))
		}
	case <-ctx.Done():
		// Try graceful shutdown first
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			_ = cmd.Process.Kill()
			<-done
		}
		return nil, fmt.Errorf("%s: %w", c.name, ctx.Err())
	}

	return stdout.Bytes(), nil
}

// readOutput reads a file written by a subprocess and removes it.
func readOutput(path string) ([]byte, error) {
	defer os.Remove(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading synthesized audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("engine produced no audio output")
	}
	return data, nil
}

// tempPath reserves a unique file name in dir with the given pattern.
func tempPath(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// classify wraps a backend failure in a TTSError with a code callers can
// act on.
func classify(engine tts.EngineType, err error) error {
	var te *tts.TTSError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &te):
		return err
	case errors.Is(err, context.Canceled):
		return tts.NewTTSError(engine, tts.ErrorCodeCanceled, "synthesis canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return tts.NewTTSError(engine, tts.ErrorCodeEngineTimeout, "synthesis timed out", err)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return tts.NewTTSError(engine, tts.ErrorCodeEngineUnavailable, "engine not installed", err)
	default:
		return tts.NewTTSError(engine, tts.ErrorCodeEngineFailure, "synthesis failed", err)
	}
}

// checkText applies the limits every engine shares.
func checkText(engine tts.EngineType, text string, max int) error {
	if strings.TrimSpace(text) == "" {
		return tts.NewTTSError(engine, tts.ErrorCodeInvalidInput, "empty chunk", tts.ErrEmptyText)
	}
	if n := utf8.RuneCountInString(text); max > 0 && n > max {
		return tts.NewTTSError(engine, tts.ErrorCodeTextTooLong,
			fmt.Sprintf("%d characters (max %d)", n, max), tts.ErrTextTooLong)
	}
	return nil
}
