// Package media wraps the external tools used to cut clips out of remote VODs
// and to read the HUD clock from sampled frames: yt-dlp, ffmpeg and tesseract.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrExtraction is returned when a clip could not be produced.
var ErrExtraction = errors.New("clip extraction failed")

// Runner runs an external program and returns its stdout. A non-zero exit is
// returned as an error carrying the tail of stderr.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec. The child is killed when ctx is done.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), 300))
	}
	return stdout.Bytes(), nil
}

// tail returns at most n trailing bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}

// FormatTimestamp renders d as hh:mm:ss, truncating sub-second precision.
// Negative durations render as 00:00:00.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
