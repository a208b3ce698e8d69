package clipper

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

var titleReplacer = strings.NewReplacer("/", "-", ".", "-")

// ClipPath returns the deterministic output path of an event's clip:
//
//	{root}/{user}/{YYYY-MM-DD}-{title}/{HH:MM:SS}/{kind}/{filename}.mp4
//
// The date is the video's creation day and the time is the match start, both
// in UTC.
func ClipPath(root string, v model.Video, matchStart time.Time, e model.Event) string {
	return filepath.Join(
		root,
		v.UserName,
		v.CreatedAt.UTC().Format("2006-01-02")+"-"+titleReplacer.Replace(v.Title),
		matchStart.UTC().Format("15:04:05"),
		e.Name(),
		e.Filename()+".mp4",
	)
}

// MatchesInVideo returns the history entries whose start falls within the
// recording, bounds inclusive, preserving input order.
func MatchesInVideo(v model.Video, history []model.MatchHistoryEntry) []model.MatchHistoryEntry {
	var out []model.MatchHistoryEntry
	for _, h := range history {
		if v.Contains(h.StartTime) {
			out = append(out, h)
		}
	}
	return out
}

// clipWindow maps an event onto the video clock and pads it. The start is
// clamped at the beginning of the recording.
func clipWindow(e model.Event, matchStart time.Time, v model.Video, offset, padding time.Duration) (start, end time.Duration) {
	start = model.MatchToVideoTime(e.Start, matchStart, v.CreatedAt, offset) - padding
	end = model.MatchToVideoTime(e.End, matchStart, v.CreatedAt, offset) + padding
	if start < 0 {
		start = 0
	}
	return start, end
}
