// Package align estimates the offset between the match clock and the video
// clock by reading the in-game HUD clock from a short calibration clip.
package align

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pable/highlight-clipper/internal/logger"
	"github.com/pable/highlight-clipper/internal/model"
)

var (
	// ErrAlignment is returned when no offset could be computed for a match.
	ErrAlignment = errors.New("alignment failed")
	// ErrNoTimestamps means no sampled frame yielded a readable clock.
	ErrNoTimestamps = fmt.Errorf("%w: no timestamps detected", ErrAlignment)
)

// Extractor cuts [start, end) of a video into outPath.
type Extractor interface {
	Extract(ctx context.Context, videoID string, start, end time.Duration, outPath string) error
}

// FrameReader samples frames of a local clip and returns the first OCR token
// read from the clock region of each sampled frame, in sampling order.
// Frames with no text yield an empty string.
type FrameReader interface {
	ReadClock(ctx context.Context, clipPath string) ([]string, error)
}

// Aligner estimates per-match clock offsets.
type Aligner struct {
	extractor Extractor
	frames    FrameReader
	margin    time.Duration
	workDir   string
	log       logger.Logger
}

// New creates an Aligner. margin is the half-width of the calibration window
// and workDir receives the temporary calibration clip.
func New(extractor Extractor, frames FrameReader, margin time.Duration, workDir string, log logger.Logger) *Aligner {
	if log == nil {
		log = logger.Discard()
	}
	return &Aligner{
		extractor: extractor,
		frames:    frames,
		margin:    margin,
		workDir:   workDir,
		log:       log.Named("align"),
	}
}

// Estimate returns the correction to add to MatchToVideoTime for this match.
// The calibration window covers the whole anchor plus margin on both sides,
// using the provisional (offset-free) mapping.
func (a *Aligner) Estimate(ctx context.Context, video model.Video, matchStart time.Time, anchor model.Event) (time.Duration, error) {
	start := model.MatchToVideoTime(anchor.Start, matchStart, video.CreatedAt, 0) - a.margin
	if start < 0 {
		start = 0
	}
	end := model.MatchToVideoTime(anchor.End, matchStart, video.CreatedAt, 0) + a.margin

	if err := os.MkdirAll(a.workDir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: create work dir: %v", ErrAlignment, err)
	}
	work := filepath.Join(a.workDir, fmt.Sprintf("%s_offset_calc_%s.mp4", video.ID, uuid.NewString()))
	defer os.Remove(work)

	a.log.Debug(ctx, "extracting calibration clip",
		logger.String("video", video.ID),
		logger.String("from", start.String()),
		logger.String("to", end.String()))

	if err := a.extractor.Extract(ctx, video.ID, start, end, work); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: extract calibration clip: %v", ErrAlignment, err)
	}

	tokens, err := a.frames.ReadClock(ctx, work)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: read clock: %v", ErrAlignment, err)
	}

	return a.offset(ctx, anchor, tokens)
}

// offset turns raw clock tokens into the calibrated correction.
func (a *Aligner) offset(ctx context.Context, anchor model.Event, tokens []string) (time.Duration, error) {
	var readings []time.Duration
	for _, tok := range tokens {
		if t, ok := ParseClock(tok); ok {
			readings = append(readings, t)
		}
	}
	if len(readings) == 0 {
		return 0, ErrNoTimestamps
	}

	kept := FilterOutliers(readings)
	if len(kept) == 0 {
		return 0, ErrNoTimestamps
	}
	avg := mean(kept)
	off := anchor.Midpoint() - avg

	a.log.Info(ctx, "clock offset estimated",
		logger.Int("frames", len(tokens)),
		logger.Int("readings", len(readings)),
		logger.Int("kept", len(kept)),
		logger.String("offset", off.String()))
	return off, nil
}
