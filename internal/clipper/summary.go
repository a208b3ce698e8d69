package clipper

import (
	"sort"
	"sync"
	"time"
)

// Status is the outcome of one planned clip.
type Status string

const (
	StatusExtracted Status = "extracted"
	StatusExisting  Status = "existing"
	StatusFailed    Status = "failed"
)

// Outcome records what happened to one event's clip.
type Outcome struct {
	VideoID    string
	MatchID    int64
	Kind       string
	Path       string
	VideoStart time.Duration
	VideoEnd   time.Duration
	Status     Status
	Err        error
}

// SkippedMatch records a match that produced no clips because of an error.
type SkippedMatch struct {
	VideoID string
	MatchID int64
	Reason  string
	Err     error
}

// Summary collects the outcomes of one run. Safe for concurrent use.
type Summary struct {
	mu       sync.Mutex
	outcomes []Outcome
	skipped  []SkippedMatch
}

// Record adds a clip outcome.
func (s *Summary) Record(o Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

// Skip adds a skipped match.
func (s *Summary) Skip(m SkippedMatch) {
	s.mu.Lock()
	s.skipped = append(s.skipped, m)
	s.mu.Unlock()
}

// Outcomes returns the clip outcomes ordered by video, match, then path.
func (s *Summary) Outcomes() []Outcome {
	s.mu.Lock()
	out := append([]Outcome(nil), s.outcomes...)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VideoID != out[j].VideoID {
			return out[i].VideoID < out[j].VideoID
		}
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Skipped returns the matches skipped during the run.
func (s *Summary) Skipped() []SkippedMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SkippedMatch(nil), s.skipped...)
}

// Count returns the number of outcomes with the given status.
func (s *Summary) Count(st Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.outcomes {
		if o.Status == st {
			n++
		}
	}
	return n
}
