// Package detect derives highlight events from a match's death records.
//
// Every detector is a pure function of (tracked account, match). Detectors are
// registered in a fixed table keyed by event kind; a Detector runs the enabled
// kinds in table order and concatenates their output. Within a single kind the
// events are ordered by start time; across kinds no order is implied.
package detect

import (
	"errors"
	"fmt"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

// ErrPlayerNotFound is returned when the tracked account is not part of the match.
var ErrPlayerNotFound = errors.New("player not found in match")

// Grouping configures greedy run grouping.
type Grouping struct {
	// Threshold is the exclusive upper bound on the gap between a record and
	// the last record of the current run.
	Threshold time.Duration
	// MinSize is the smallest run that becomes an event.
	MinSize int
}

// Params holds the tunables shared by all detectors.
type Params struct {
	MultiKill Grouping
	TeamFight Grouping
	// TeamFightMaxY excludes deaths with |y| >= this bound (base/fountain area).
	TeamFightMaxY float64
}

// DefaultParams mirrors the documented configuration defaults.
func DefaultParams() Params {
	return Params{
		MultiKill:     Grouping{Threshold: 10 * time.Second, MinSize: 3},
		TeamFight:     Grouping{Threshold: 10 * time.Second, MinSize: 5},
		TeamFightMaxY: 7000,
	}
}

// Func detects events of one kind for the tracked account.
type Func func(accountID int64, m *model.Match, p Params) ([]model.Event, error)

// registry is the fixed dispatch table; order is the output order.
var registry = []struct {
	kind model.Kind
	fn   Func
}{
	{model.KindKill, Kills},
	{model.KindDeath, Deaths},
	{model.KindMultiKill, MultiKills},
	{model.KindTeamFight, TeamFights},
}

// Detector runs a set of enabled detectors.
type Detector struct {
	params  Params
	enabled map[model.Kind]bool
}

// New returns a Detector running the given kinds. With no kinds, multikill
// and team_fight are enabled.
func New(params Params, kinds ...model.Kind) *Detector {
	if len(kinds) == 0 {
		kinds = []model.Kind{model.KindMultiKill, model.KindTeamFight}
	}
	enabled := make(map[model.Kind]bool, len(kinds))
	for _, k := range kinds {
		enabled[k] = true
	}
	return &Detector{params: params, enabled: enabled}
}

// Kinds returns the enabled kinds in dispatch order.
func (d *Detector) Kinds() []model.Kind {
	var out []model.Kind
	for _, r := range registry {
		if d.enabled[r.kind] {
			out = append(out, r.kind)
		}
	}
	return out
}

// Detect runs every enabled detector and concatenates the results.
func (d *Detector) Detect(accountID int64, m *model.Match) ([]model.Event, error) {
	var events []model.Event
	for _, r := range registry {
		if !d.enabled[r.kind] {
			continue
		}
		found, err := r.fn(accountID, m, d.params)
		if err != nil {
			return nil, fmt.Errorf("detect %s: %w", r.kind, err)
		}
		events = append(events, found...)
	}
	return events, nil
}

// Latest returns the event with the greatest start time. Ties go to the event
// appearing later in the slice. ok is false for an empty slice.
func Latest(events []model.Event) (model.Event, bool) {
	if len(events) == 0 {
		return model.Event{}, false
	}
	best := 0
	for i := 1; i < len(events); i++ {
		if events[i].Start >= events[best].Start {
			best = i
		}
	}
	return events[best], true
}

func trackedPlayer(accountID int64, m *model.Match) (*model.Player, error) {
	p, ok := m.PlayerByAccount(accountID)
	if !ok {
		return nil, fmt.Errorf("account %d in match %d: %w", accountID, m.MatchID, ErrPlayerNotFound)
	}
	return p, nil
}
