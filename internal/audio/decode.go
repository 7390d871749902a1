package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DecodePCM converts an audio file to signed 16-bit little-endian mono
// PCM at sampleRate using ffmpeg.
func DecodePCM(ctx context.Context, path string, sampleRate int) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	args := []string{
		"-v", "error",
		"-i", path,
		"-f", "s16le", // Output format: signed 16-bit little-endian
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-",
	}

	cmd := exec.Command("ffmpeg", args...)
	cmd.Stdin = strings.NewReader("")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 500 * time.Millisecond

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
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
		return nil, fmt.Errorf("ffmpeg: %w", ctx.Err())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no PCM output, stderr: %s", stderr.String())
	}
	return stdout.Bytes(), nil
}

// PCMDuration is the play time of mono 16-bit PCM at sampleRate.
func PCMDuration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
