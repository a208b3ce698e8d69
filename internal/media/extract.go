package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const vodURLFormat = "https://www.twitch.tv/videos/%s"

// YtDlpExtractor cuts clips straight from the remote VOD: yt-dlp resolves the
// media URL and ffmpeg stream-copies the requested window.
type YtDlpExtractor struct {
	YtDlp  string // yt-dlp binary
	FFmpeg string // ffmpeg binary
	Run    Runner // defaults to ExecRunner
}

// NewYtDlpExtractor returns an extractor using the given binaries.
func NewYtDlpExtractor(ytdlp, ffmpeg string) *YtDlpExtractor {
	return &YtDlpExtractor{YtDlp: ytdlp, FFmpeg: ffmpeg, Run: ExecRunner}
}

// Extract writes [start, end) of the video into outPath. The clip is written
// to a temporary sibling and renamed into place only once ffmpeg succeeds, so
// outPath existing always means a complete clip.
func (x *YtDlpExtractor) Extract(ctx context.Context, videoID string, start, end time.Duration, outPath string) error {
	src, err := x.resolve(ctx, videoID)
	if err != nil {
		return err
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrExtraction, dir, err)
	}
	tmp := filepath.Join(dir, "."+uuid.NewString()+".part.mp4")

	_, err = x.run(ctx, x.FFmpeg,
		"-y",
		"-loglevel", "error",
		"-ss", FormatTimestamp(start),
		"-to", FormatTimestamp(end),
		"-i", src,
		"-c", "copy",
		"-f", "mp4",
		tmp)
	if err != nil {
		os.Remove(tmp)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: video %s [%s-%s]: %v", ErrExtraction, videoID, FormatTimestamp(start), FormatTimestamp(end), err)
	}

	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", ErrExtraction, outPath, err)
	}
	return nil
}

// resolve asks yt-dlp for the direct media URL of the best single-file format.
func (x *YtDlpExtractor) resolve(ctx context.Context, videoID string) (string, error) {
	out, err := x.run(ctx, x.YtDlp, "--get-url", "-f", "b", fmt.Sprintf(vodURLFormat, videoID))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: resolve video %s: %v", ErrExtraction, videoID, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%w: resolve video %s: empty url", ErrExtraction, videoID)
}

func (x *YtDlpExtractor) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if x.Run == nil {
		return ExecRunner(ctx, name, args...)
	}
	return x.Run(ctx, name, args...)
}
