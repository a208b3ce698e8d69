// Package clipper turns a channel's archived broadcasts and a player's match
// history into highlight clips on disk.
package clipper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pable/highlight-clipper/internal/align"
	"github.com/pable/highlight-clipper/internal/detect"
	"github.com/pable/highlight-clipper/internal/logger"
	"github.com/pable/highlight-clipper/internal/metrics"
	"github.com/pable/highlight-clipper/internal/model"
)

// VideoSource lists archived broadcasts of a channel.
type VideoSource interface {
	ListVideos(ctx context.Context, channelID string) ([]model.Video, error)
}

// MatchSource provides match history and match metadata.
type MatchSource interface {
	ListMatches(ctx context.Context, accountID int64) ([]model.MatchHistoryEntry, error)
	GetMatch(ctx context.Context, matchID int64) (*model.Match, error)
}

// EventDetector finds highlight events of a player in a match.
type EventDetector interface {
	Detect(accountID int64, m *model.Match) ([]model.Event, error)
}

// OffsetEstimator calibrates the match clock against the video clock.
type OffsetEstimator interface {
	Estimate(ctx context.Context, video model.Video, matchStart time.Time, anchor model.Event) (time.Duration, error)
}

// Extractor cuts [start, end) of a video into outPath. outPath must only
// exist once the clip is complete.
type Extractor interface {
	Extract(ctx context.Context, videoID string, start, end time.Duration, outPath string) error
}

// Ledger persists computed offsets and produced clips. It is advisory: the
// presence of a clip file on disk is what marks an event as done.
type Ledger interface {
	LoadOffset(ctx context.Context, videoID string, matchID int64) (time.Duration, bool, error)
	SaveOffset(ctx context.Context, videoID string, matchID int64, offset time.Duration) error
	RecordClip(ctx context.Context, c model.ClipRecord) error
}

// Options tunes a Pipeline.
type Options struct {
	OutputDir     string
	Padding       time.Duration
	MaxConcurrent int
}

// Pipeline wires the sources, detectors, aligner and extractor together.
type Pipeline struct {
	videos    VideoSource
	matches   MatchSource
	detector  EventDetector
	aligner   OffsetEstimator
	extractor Extractor
	ledger    Ledger
	metrics   *metrics.Manager
	log       logger.Logger
	opts      Options
}

// Deps groups the collaborators of a Pipeline. Ledger and Metrics are optional.
type Deps struct {
	Videos    VideoSource
	Matches   MatchSource
	Detector  EventDetector
	Aligner   OffsetEstimator
	Extractor Extractor
	Ledger    Ledger
	Metrics   *metrics.Manager
	Logger    logger.Logger
}

// New creates a Pipeline.
func New(d Deps, opts Options) *Pipeline {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	log := d.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		videos:    d.Videos,
		matches:   d.Matches,
		detector:  d.Detector,
		aligner:   d.Aligner,
		extractor: d.Extractor,
		ledger:    d.Ledger,
		metrics:   d.Metrics,
		log:       log.Named("clipper"),
		opts:      opts,
	}
}

// run holds the state scoped to a single Run call.
type run struct {
	channelID string
	accountID int64
	cache     *Cache
	summary   *Summary
}

// Run processes every archived video of channelID against the match history
// of accountID. Videos are handled one after another. Upstream failures abort
// the run; per-match and per-event failures are logged and skipped. The
// summary is returned even when the run stops early.
func (p *Pipeline) Run(ctx context.Context, channelID string, accountID int64) (*Summary, error) {
	r := &run{
		channelID: channelID,
		accountID: accountID,
		cache:     NewCache(p.matches),
		summary:   &Summary{},
	}
	log := p.log.With(logger.Int64("player", accountID), logger.String("channel", channelID))

	videos, err := p.videos.ListVideos(ctx, channelID)
	if err != nil {
		return r.summary, fmt.Errorf("list videos: %w", err)
	}
	history, err := p.matches.ListMatches(ctx, accountID)
	if err != nil {
		return r.summary, fmt.Errorf("list matches: %w", err)
	}
	log.Info(ctx, "starting run", logger.Int("videos", len(videos)), logger.Int("matches", len(history)))

	for _, v := range videos {
		entries := MatchesInVideo(v, history)
		if len(entries) == 0 {
			continue
		}
		if err := p.processVideo(ctx, r, v, entries); err != nil {
			return r.summary, err
		}
	}
	return r.summary, nil
}

// processVideo processes the matches played during one video, in order.
func (p *Pipeline) processVideo(ctx context.Context, r *run, v model.Video, entries []model.MatchHistoryEntry) error {
	p.log.Info(ctx, "processing video",
		logger.Int64("player", r.accountID),
		logger.String("video", v.ID),
		logger.String("title", v.Title),
		logger.Int("matches", len(entries)))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processMatch(ctx, r, v, e); err != nil {
			return err
		}
	}
	return nil
}

// processMatch detects the events of one match, calibrates the clock if any
// clip is still missing, and extracts the missing clips concurrently. It only
// returns an error when the whole run must stop.
func (p *Pipeline) processMatch(ctx context.Context, r *run, v model.Video, entry model.MatchHistoryEntry) error {
	log := p.log.With(
		logger.Int64("player", r.accountID),
		logger.String("video", v.ID),
		logger.Int64("match", entry.MatchID))

	m, err := r.cache.Get(ctx, entry.MatchID)
	if err != nil {
		return fmt.Errorf("get match %d: %w", entry.MatchID, err)
	}

	events, err := p.detector.Detect(r.accountID, m)
	if err != nil {
		reason := "detect"
		if errors.Is(err, detect.ErrPlayerNotFound) {
			reason = "player_not_found"
		}
		p.skipMatch(ctx, log, r, v, entry.MatchID, reason, err)
		return nil
	}
	if len(events) == 0 {
		log.Warn(ctx, "no events detected")
		return nil
	}
	for _, e := range events {
		p.metrics.EventsDetected(e.Name(), 1)
	}

	// Existing files are complete clips; only the rest need work.
	var pending []model.Event
	var paths []string
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		path := ClipPath(p.opts.OutputDir, v, m.StartTime, e)
		if seen[path] {
			continue
		}
		seen[path] = true
		if _, err := os.Stat(path); err == nil {
			log.Debug(ctx, "clip already exists", logger.String("event", e.Name()), logger.String("path", path))
			r.summary.Record(Outcome{VideoID: v.ID, MatchID: m.MatchID, Kind: e.Name(), Path: path, Status: StatusExisting})
			p.metrics.ClipDone(e.Name(), metrics.OutcomeExisting)
			continue
		}
		pending = append(pending, e)
		paths = append(paths, path)
	}
	if len(pending) == 0 {
		log.Info(ctx, "all clips present", logger.Int("events", len(events)))
		return nil
	}

	offset, err := p.offset(ctx, log, v, m, events)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.skipMatch(ctx, log, r, v, entry.MatchID, "alignment", err)
		return nil
	}

	tasks := make([]model.ClipTask, len(pending))
	for i, e := range pending {
		start, end := clipWindow(e, m.StartTime, v, offset, p.opts.Padding)
		tasks[i] = model.ClipTask{Event: e, VideoStart: start, VideoEnd: end, OutPath: paths[i]}
	}

	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrent)
	for _, t := range tasks {
		g.Go(func() error {
			p.extract(ctx, log, r, v, m, t)
			return nil
		})
	}
	g.Wait()
	return ctx.Err()
}

// offset returns the stored offset for the match or calibrates a new one
// anchored on the chronologically last event.
func (p *Pipeline) offset(ctx context.Context, log logger.Logger, v model.Video, m *model.Match, events []model.Event) (time.Duration, error) {
	if p.ledger != nil {
		off, ok, err := p.ledger.LoadOffset(ctx, v.ID, m.MatchID)
		if err != nil {
			log.Warn(ctx, "offset ledger read failed", logger.Error(err))
		} else if ok {
			log.Debug(ctx, "using stored offset", logger.String("offset", off.String()))
			return off, nil
		}
	}

	anchor, _ := detect.Latest(events)
	off, err := p.aligner.Estimate(ctx, v, m.StartTime, anchor)
	if err != nil {
		return 0, err
	}
	p.metrics.ObserveOffset(off.Seconds())

	if p.ledger != nil {
		if err := p.ledger.SaveOffset(ctx, v.ID, m.MatchID, off); err != nil {
			log.Warn(ctx, "offset ledger write failed", logger.Error(err))
		}
	}
	return off, nil
}

func (p *Pipeline) extract(ctx context.Context, log logger.Logger, r *run, v model.Video, m *model.Match, t model.ClipTask) {
	kind := t.Event.Name()
	log = log.With(logger.String("event", kind), logger.String("path", t.OutPath))
	log.Info(ctx, "extracting clip",
		logger.String("from", t.VideoStart.String()),
		logger.String("to", t.VideoEnd.String()))

	o := Outcome{
		VideoID:    v.ID,
		MatchID:    m.MatchID,
		Kind:       kind,
		Path:       t.OutPath,
		VideoStart: t.VideoStart,
		VideoEnd:   t.VideoEnd,
	}
	if err := p.extractor.Extract(ctx, v.ID, t.VideoStart, t.VideoEnd, t.OutPath); err != nil {
		o.Status, o.Err = StatusFailed, err
		r.summary.Record(o)
		p.metrics.ClipDone(kind, metrics.OutcomeFailed)
		if ctx.Err() == nil {
			log.Error(ctx, "clip extraction failed", logger.Error(err))
		}
		return
	}

	o.Status = StatusExtracted
	r.summary.Record(o)
	p.metrics.ClipDone(kind, metrics.OutcomeExtracted)
	log.Info(ctx, "clip extracted")

	if p.ledger != nil {
		rec := model.ClipRecord{
			Path:       t.OutPath,
			ChannelID:  r.channelID,
			AccountID:  r.accountID,
			VideoID:    v.ID,
			MatchID:    m.MatchID,
			Kind:       kind,
			VideoStart: t.VideoStart,
			VideoEnd:   t.VideoEnd,
			CreatedAt:  time.Now(),
		}
		if err := p.ledger.RecordClip(ctx, rec); err != nil {
			log.Warn(ctx, "clip ledger write failed", logger.Error(err))
		}
	}
}

func (p *Pipeline) skipMatch(ctx context.Context, log logger.Logger, r *run, v model.Video, matchID int64, reason string, err error) {
	log.Warn(ctx, "skipping match", logger.String("reason", reason), logger.Error(err))
	r.summary.Skip(SkippedMatch{VideoID: v.ID, MatchID: matchID, Reason: reason, Err: err})
	p.metrics.MatchFailed(reason)
}

var _ OffsetEstimator = (*align.Aligner)(nil)
