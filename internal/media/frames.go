package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// HUD clock region, top centre of a 1080p frame.
const (
	clockWidth  = 60
	clockHeight = 23
	clockTop    = 2
)

// OCR reads text from a single image.
type OCR interface {
	Read(ctx context.Context, imagePath string) (string, error)
}

// FFmpegFrameReader samples every Interval-th frame of a clip, crops the clock
// region and hands each crop to an OCR engine.
type FFmpegFrameReader struct {
	FFmpeg   string
	Interval int
	OCR      OCR
	Run      Runner // defaults to ExecRunner
}

// NewFFmpegFrameReader returns a frame reader using ffmpeg and ocr.
func NewFFmpegFrameReader(ffmpeg string, interval int, ocr OCR) *FFmpegFrameReader {
	return &FFmpegFrameReader{FFmpeg: ffmpeg, Interval: interval, OCR: ocr, Run: ExecRunner}
}

// ReadClock returns the first OCR token of every sampled frame in order.
// Frames with no text yield "".
func (r *FFmpegFrameReader) ReadClock(ctx context.Context, clipPath string) ([]string, error) {
	dir, err := os.MkdirTemp("", "clock-frames-")
	if err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	defer os.RemoveAll(dir)

	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	filter := fmt.Sprintf("select=not(mod(n+1\\,%d)),crop=%d:%d:iw/2-%d:%d",
		interval, clockWidth, clockHeight, clockWidth/2, clockTop)

	run := r.Run
	if run == nil {
		run = ExecRunner
	}
	if _, err := run(ctx, r.FFmpeg,
		"-loglevel", "error",
		"-i", clipPath,
		"-vf", filter,
		"-vsync", "vfr",
		filepath.Join(dir, "frame_%05d.png")); err != nil {
		return nil, fmt.Errorf("sample frames: %w", err)
	}

	frames, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	sort.Strings(frames)

	tokens := make([]string, 0, len(frames))
	for _, f := range frames {
		text, err := r.OCR.Read(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Unreadable frame: treat as blank.
			tokens = append(tokens, "")
			continue
		}
		tokens = append(tokens, firstToken(text))
	}
	return tokens, nil
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// TesseractOCR runs the tesseract CLI in single-line mode restricted to clock
// characters.
type TesseractOCR struct {
	Path string
	Run  Runner // defaults to ExecRunner
}

// NewTesseractOCR returns an OCR backed by the tesseract binary at path.
func NewTesseractOCR(path string) *TesseractOCR {
	return &TesseractOCR{Path: path, Run: ExecRunner}
}

func (t *TesseractOCR) Read(ctx context.Context, imagePath string) (string, error) {
	run := t.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, t.Path, imagePath, "stdout",
		"--psm", "7",
		"-c", "tessedit_char_whitelist=0123456789:")
	if err != nil {
		return "", fmt.Errorf("ocr %s: %w", filepath.Base(imagePath), err)
	}
	return strings.TrimSpace(string(out)), nil
}
