package detect

import (
	"math"
	"sort"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

// death pairs a death record with the player who died.
type death struct {
	victim *model.Player
	detail model.DeathDetail
}

func deathTime(d death) time.Duration { return d.detail.GameTime() }

// killsBy collects every death credited to the tracked player, sorted by time.
func killsBy(tracked *model.Player, m *model.Match) []death {
	var kills []death
	for i := range m.Players {
		victim := &m.Players[i]
		if victim.AccountID == tracked.AccountID {
			continue
		}
		for _, d := range victim.DeathDetails {
			if d.KillerPlayerSlot == tracked.PlayerSlot {
				kills = append(kills, death{victim: victim, detail: d})
			}
		}
	}
	sortDeaths(kills)
	return kills
}

func sortDeaths(ds []death) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].detail.GameTimeS < ds[j].detail.GameTimeS
	})
}

// Kills emits one point event per kill made by the tracked player.
func Kills(accountID int64, m *model.Match, _ Params) ([]model.Event, error) {
	tracked, err := trackedPlayer(accountID, m)
	if err != nil {
		return nil, err
	}
	var events []model.Event
	for _, k := range killsBy(tracked, m) {
		t := k.detail.GameTime()
		events = append(events, model.Event{
			Kind:   model.KindKill,
			Start:  t,
			End:    t,
			Killer: tracked,
			Victim: k.victim,
		})
	}
	return events, nil
}

// Deaths emits one point event per death of the tracked player. Killer is nil
// when the killing slot is not occupied by a player (e.g. neutral objectives).
func Deaths(accountID int64, m *model.Match, _ Params) ([]model.Event, error) {
	tracked, err := trackedPlayer(accountID, m)
	if err != nil {
		return nil, err
	}
	details := append([]model.DeathDetail(nil), tracked.DeathDetails...)
	sort.SliceStable(details, func(i, j int) bool { return details[i].GameTimeS < details[j].GameTimeS })

	var events []model.Event
	for _, d := range details {
		killer, _ := m.PlayerAtSlot(d.KillerPlayerSlot)
		t := d.GameTime()
		events = append(events, model.Event{
			Kind:   model.KindDeath,
			Start:  t,
			End:    t,
			Killer: killer,
			Victim: tracked,
		})
	}
	return events, nil
}

// MultiKills groups the tracked player's kills into runs of chronologically
// close kills and emits one event per run of at least p.MultiKill.MinSize.
func MultiKills(accountID int64, m *model.Match, p Params) ([]model.Event, error) {
	tracked, err := trackedPlayer(accountID, m)
	if err != nil {
		return nil, err
	}
	runs := groupRuns(killsBy(tracked, m), deathTime, p.MultiKill)

	events := make([]model.Event, 0, len(runs))
	for _, run := range runs {
		start, end := span(run, deathTime)
		victims := make([]*model.Player, len(run))
		for i, k := range run {
			victims[i] = k.victim
		}
		events = append(events, model.Event{
			Kind:    model.KindMultiKill,
			Start:   start,
			End:     end,
			Killer:  tracked,
			Victims: victims,
		})
	}
	return events, nil
}

// TeamFights groups deaths of every other player outside the base area into
// runs and keeps the runs in which the tracked player scored more than two
// kills and stayed alive.
func TeamFights(accountID int64, m *model.Match, p Params) ([]model.Event, error) {
	tracked, err := trackedPlayer(accountID, m)
	if err != nil {
		return nil, err
	}

	var deaths []death
	for i := range m.Players {
		victim := &m.Players[i]
		if victim.AccountID == tracked.AccountID {
			continue
		}
		for _, d := range victim.DeathDetails {
			if math.Abs(d.DeathPos.Y) < p.TeamFightMaxY {
				deaths = append(deaths, death{victim: victim, detail: d})
			}
		}
	}
	sortDeaths(deaths)

	var events []model.Event
	for _, run := range groupRuns(deaths, deathTime, p.TeamFight) {
		start, end := span(run, deathTime)

		own := 0
		for _, d := range run {
			if d.detail.KillerPlayerSlot == tracked.PlayerSlot {
				own++
			}
		}
		if own <= 2 {
			continue
		}
		if diedBetween(tracked, start, end) {
			continue
		}

		kills := make([]model.DeathDetail, len(run))
		for i, d := range run {
			kills[i] = d.detail
		}
		events = append(events, model.Event{
			Kind:  model.KindTeamFight,
			Start: start,
			End:   end,
			Kills: kills,
		})
	}
	return events, nil
}

// diedBetween reports whether p has a death within [start, end].
func diedBetween(p *model.Player, start, end time.Duration) bool {
	for _, d := range p.DeathDetails {
		t := d.GameTime()
		if t >= start && t <= end {
			return true
		}
	}
	return false
}
