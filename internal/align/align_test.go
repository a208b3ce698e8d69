package align

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

// fakeVideo renders the HUD clock of a recording whose true correction is
// trueOffset, i.e. match time c appears at video time c + (matchStart-created) + trueOffset.
type fakeVideo struct {
	lead       time.Duration // matchStart - created
	trueOffset time.Duration

	extractErr error
	lastOut    string
	from, to   time.Duration
}

func (f *fakeVideo) Extract(_ context.Context, _ string, start, end time.Duration, outPath string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	f.from, f.to, f.lastOut = start, end, outPath
	return os.WriteFile(outPath, []byte("clip"), 0o644)
}

func (f *fakeVideo) ReadClock(_ context.Context, clipPath string) ([]string, error) {
	if _, err := os.Stat(clipPath); err != nil {
		return nil, err
	}
	var tokens []string
	for v := f.from; v <= f.to; v += time.Second {
		c := v - f.lead - f.trueOffset
		s := int(c / time.Second)
		tokens = append(tokens, fmt.Sprintf("%d:%02d", s/60, s%60))
	}
	return tokens, nil
}

type staticFrames []string

func (s staticFrames) ReadClock(context.Context, string) ([]string, error) { return s, nil }

func TestEstimate_RoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	matchStart := created.Add(10 * time.Minute)
	video := model.Video{ID: "v1", CreatedAt: created, Duration: 3 * time.Hour}
	anchors := []model.Event{
		{Kind: model.KindKill, Start: 300 * time.Second, End: 300 * time.Second},
		{Kind: model.KindTeamFight, Start: 300 * time.Second, End: 330 * time.Second},
	}

	for _, anchor := range anchors {
		for _, trueOffset := range []time.Duration{-7 * time.Second, 0, 4 * time.Second} {
			fv := &fakeVideo{lead: matchStart.Sub(created), trueOffset: trueOffset}
			a := New(fv, fv, 5*time.Second, t.TempDir(), nil)

			off, err := a.Estimate(context.Background(), video, matchStart, anchor)
			if err != nil {
				t.Fatalf("%s offset %v: Estimate: %v", anchor.Kind, trueOffset, err)
			}
			if off != trueOffset {
				t.Errorf("%s: estimated offset %v, want %v", anchor.Kind, off, trueOffset)
			}
			got := model.MatchToVideoTime(anchor.Start, matchStart, created, off)
			want := model.MatchToVideoTime(anchor.Start, matchStart, created, trueOffset)
			if got != want {
				t.Errorf("%s offset %v: anchor maps to %v, want %v", anchor.Kind, trueOffset, got, want)
			}
		}
	}
}

func TestEstimate_WindowSpansAnchor(t *testing.T) {
	created := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	matchStart := created.Add(10 * time.Minute)
	fv := &fakeVideo{lead: 10 * time.Minute}
	a := New(fv, fv, 5*time.Second, t.TempDir(), nil)

	anchor := model.Event{Kind: model.KindTeamFight, Start: 300 * time.Second, End: 330 * time.Second}
	if _, err := a.Estimate(context.Background(), model.Video{ID: "v1", CreatedAt: created}, matchStart, anchor); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if fv.from != 895*time.Second || fv.to != 935*time.Second {
		t.Errorf("window = [%v, %v], want [14m55s, 15m35s]", fv.from, fv.to)
	}
}

func TestEstimate_RemovesWorkFile(t *testing.T) {
	created := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	fv := &fakeVideo{lead: time.Minute}
	dir := t.TempDir()
	a := New(fv, fv, 5*time.Second, dir, nil)

	anchor := model.Event{Start: 30 * time.Second, End: 40 * time.Second}
	if _, err := a.Estimate(context.Background(), model.Video{ID: "v9", CreatedAt: created}, created.Add(time.Minute), anchor); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if filepath.Dir(fv.lastOut) != dir {
		t.Errorf("work file %q not under %q", fv.lastOut, dir)
	}
	if _, err := os.Stat(fv.lastOut); !os.IsNotExist(err) {
		t.Errorf("work file should be removed, stat err = %v", err)
	}
}

func TestEstimate_ClampsWindowAtZero(t *testing.T) {
	created := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	fv := &fakeVideo{}
	a := New(fv, staticFrames{"00:02"}, 5*time.Second, t.TempDir(), nil)

	anchor := model.Event{Start: 2 * time.Second, End: 2 * time.Second}
	if _, err := a.Estimate(context.Background(), model.Video{ID: "v", CreatedAt: created}, created, anchor); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if fv.from != 0 || fv.to != 7*time.Second {
		t.Errorf("window = [%v, %v], want [0s, 7s]", fv.from, fv.to)
	}
}

func TestEstimate_NoTimestamps(t *testing.T) {
	fv := &fakeVideo{}
	a := New(fv, staticFrames{"", "LIVE", "7"}, 5*time.Second, t.TempDir(), nil)

	_, err := a.Estimate(context.Background(), model.Video{ID: "v"}, time.Time{}, model.Event{Start: time.Minute, End: time.Minute})
	if !errors.Is(err, ErrNoTimestamps) {
		t.Fatalf("expected ErrNoTimestamps, got %v", err)
	}
	if !errors.Is(err, ErrAlignment) {
		t.Error("ErrNoTimestamps should also match ErrAlignment")
	}
}

func TestEstimate_ExtractionFailure(t *testing.T) {
	fv := &fakeVideo{extractErr: errors.New("ffmpeg exited 1")}
	a := New(fv, fv, 5*time.Second, t.TempDir(), nil)

	_, err := a.Estimate(context.Background(), model.Video{ID: "v"}, time.Time{}, model.Event{Start: time.Minute, End: time.Minute})
	if !errors.Is(err, ErrAlignment) {
		t.Fatalf("expected ErrAlignment, got %v", err)
	}
	if errors.Is(err, ErrNoTimestamps) {
		t.Error("extraction failure should not be reported as missing timestamps")
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"12:34", 12*time.Minute + 34*time.Second, true},
		{"45", 45 * time.Second, true},
		{"1:05", time.Minute + 5*time.Second, true},
		{"1:75", time.Minute + 75*time.Second, true},
		{"a1b2", 12 * time.Second, true},
		{"99:59", 99*time.Minute + 59*time.Second, true},
		{"7", 0, false},
		{"", 0, false},
		{"1:23:45", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseClock(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseClock(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func secs(vs ...int) []time.Duration {
	out := make([]time.Duration, len(vs))
	for i, v := range vs {
		out[i] = time.Duration(v) * time.Second
	}
	return out
}

func TestFilterOutliers(t *testing.T) {
	cases := []struct {
		name string
		in   []time.Duration
		want []time.Duration
	}{
		{"spike", secs(10, 11, 12, 200, 13, 14), secs(10, 11, 12, 14)},
		{"clean", secs(300, 301, 302, 303), secs(300, 301, 302, 303)},
		{"single", secs(42), secs(42)},
		{"misread low", secs(100, 101, 1, 103, 104), secs(100, 101, 103, 104)},
		{"empty", nil, nil},
	}
	for _, tc := range cases {
		got := FilterOutliers(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
				break
			}
		}
	}
}
