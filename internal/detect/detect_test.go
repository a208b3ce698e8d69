package detect

import (
	"errors"
	"testing"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

// IDs for test players.
const (
	tracked   int64 = 100
	teammate  int64 = 101
	trackSlot       = 1
	mateSlot        = 2
	enemySlot       = 7
)

// makeMatch builds a match with the tracked player (slot 1), a teammate
// (slot 2) and five enemies (slots 6-10). Deaths are attached by the caller.
func makeMatch() *model.Match {
	m := &model.Match{
		MatchID:   42,
		StartTime: time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC),
		Players: []model.Player{
			{AccountID: tracked, HeroID: 7, PlayerSlot: trackSlot},
			{AccountID: teammate, HeroID: 8, PlayerSlot: mateSlot},
		},
	}
	for i := 0; i < 5; i++ {
		m.Players = append(m.Players, model.Player{
			AccountID:  int64(200 + i),
			HeroID:     20 + i,
			PlayerSlot: 6 + i,
		})
	}
	return m
}

// addDeath attaches a death at t seconds to the player with accountID.
func addDeath(m *model.Match, accountID int64, t, killerSlot int, y float64) {
	for i := range m.Players {
		if m.Players[i].AccountID == accountID {
			m.Players[i].DeathDetails = append(m.Players[i].DeathDetails, model.DeathDetail{
				GameTimeS:        t,
				KillerPlayerSlot: killerSlot,
				DeathPos:         model.Vec3{Y: y},
			})
			return
		}
	}
	panic("unknown account")
}

// addKills spreads kills by killerSlot at the given times across the enemies.
func addKills(m *model.Match, killerSlot int, times ...int) {
	for i, t := range times {
		addDeath(m, int64(200+i%5), t, killerSlot, 0)
	}
}

func seconds(events []model.Event) [][2]int {
	out := make([][2]int, len(events))
	for i, e := range events {
		out[i] = [2]int{int(e.Start / time.Second), int(e.End / time.Second)}
	}
	return out
}

// ---- Multi-kill tests ----

func TestMultiKills_TwoRuns(t *testing.T) {
	m := makeMatch()
	// Deliberately unsorted across victims.
	addKills(m, trackSlot, 30, 0, 31, 5, 25, 9)

	events, err := MultiKills(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := seconds(events)
	want := [][2]int{{0, 9}, {25, 31}}
	if len(got) != len(want) {
		t.Fatalf("expected %d multikills, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: want span %v, got %v", i, want[i], got[i])
		}
	}
	for _, e := range events {
		if e.Kind != model.KindMultiKill {
			t.Errorf("expected kind multikill, got %s", e.Kind)
		}
		if len(e.Victims) != 3 {
			t.Errorf("expected 3 victims, got %d", len(e.Victims))
		}
		if e.Killer == nil || e.Killer.AccountID != tracked {
			t.Errorf("expected tracked player as killer")
		}
		for _, v := range e.Victims {
			if v.AccountID == tracked {
				t.Errorf("tracked player listed as own victim")
			}
		}
	}
}

func TestMultiKills_BelowMinimum(t *testing.T) {
	m := makeMatch()
	addKills(m, trackSlot, 0, 5)

	events, err := MultiKills(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no multikill for 2 kills, got %d", len(events))
	}
}

// TestMultiKills_GapAtThreshold: a gap equal to the threshold breaks the run.
func TestMultiKills_GapAtThreshold(t *testing.T) {
	m := makeMatch()
	addKills(m, trackSlot, 0, 10, 20)

	events, err := MultiKills(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected gap of exactly 10s to split the run, got %v", seconds(events))
	}
}

// TestMultiKills_ChainedGaps: each gap is measured against the last kill, not the first.
func TestMultiKills_ChainedGaps(t *testing.T) {
	m := makeMatch()
	addKills(m, trackSlot, 0, 9, 18, 27)

	events, err := MultiKills(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || seconds(events)[0] != [2]int{0, 27} {
		t.Errorf("expected one run spanning 0-27, got %v", seconds(events))
	}
}

func TestMultiKills_IgnoresOtherKillers(t *testing.T) {
	m := makeMatch()
	addKills(m, mateSlot, 0, 1, 2, 3)

	events, err := MultiKills(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("teammate kills must not count, got %d events", len(events))
	}
}

// ---- Team fight tests ----

func TestTeamFights_TwoOwnKillsExcluded(t *testing.T) {
	m := makeMatch()
	addDeath(m, 200, 100, trackSlot, 0)
	addDeath(m, 201, 102, trackSlot, 0)
	addDeath(m, 202, 104, mateSlot, 0)
	addDeath(m, 203, 106, mateSlot, 0)
	addDeath(m, teammate, 108, enemySlot, 0)

	events, err := TeamFights(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("run with only 2 own kills must be excluded, got %v", seconds(events))
	}
}

func TestTeamFights_ThreeOwnKillsIncluded(t *testing.T) {
	m := makeMatch()
	addDeath(m, 200, 100, trackSlot, 0)
	addDeath(m, 201, 102, trackSlot, 0)
	addDeath(m, 202, 104, trackSlot, 0)
	addDeath(m, 203, 106, mateSlot, 0)
	addDeath(m, teammate, 108, enemySlot, 0)

	events, err := TeamFights(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 team fight, got %d", len(events))
	}
	e := events[0]
	if e.Kind != model.KindTeamFight {
		t.Errorf("expected kind team_fight, got %s", e.Kind)
	}
	if seconds(events)[0] != [2]int{100, 108} {
		t.Errorf("expected span 100-108, got %v", seconds(events)[0])
	}
	if len(e.Kills) != 5 {
		t.Errorf("expected 5 deaths in fight, got %d", len(e.Kills))
	}
	if e.Filename() != "100-K5" {
		t.Errorf("unexpected filename %q", e.Filename())
	}
}

func TestTeamFights_TrackedDeathExcludesRun(t *testing.T) {
	m := makeMatch()
	addDeath(m, 200, 100, trackSlot, 0)
	addDeath(m, 201, 102, trackSlot, 0)
	addDeath(m, 202, 104, trackSlot, 0)
	addDeath(m, 203, 106, mateSlot, 0)
	addDeath(m, teammate, 108, enemySlot, 0)
	addDeath(m, tracked, 105, enemySlot, 0)

	events, err := TeamFights(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected fight to be dropped when tracked player died in it, got %v", seconds(events))
	}
}

// TestTeamFights_EachRunCheckedIndependently: a death in a later fight does
// not remove an earlier fight.
func TestTeamFights_EachRunCheckedIndependently(t *testing.T) {
	m := makeMatch()
	for i, ts := range []int{100, 102, 104} {
		addDeath(m, int64(200+i), ts, trackSlot, 0)
	}
	addDeath(m, 203, 106, mateSlot, 0)
	addDeath(m, teammate, 108, enemySlot, 0)

	for i, ts := range []int{500, 502, 504} {
		addDeath(m, int64(200+i), ts, trackSlot, 0)
	}
	addDeath(m, 203, 506, mateSlot, 0)
	addDeath(m, teammate, 508, enemySlot, 0)
	addDeath(m, tracked, 507, enemySlot, 0)

	events, err := TeamFights(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || seconds(events)[0] != [2]int{100, 108} {
		t.Errorf("expected only the first fight to survive, got %v", seconds(events))
	}
}

func TestTeamFights_BaseAreaFiltered(t *testing.T) {
	m := makeMatch()
	addDeath(m, 200, 100, trackSlot, 0)
	addDeath(m, 201, 102, trackSlot, 0)
	addDeath(m, 202, 104, trackSlot, 0)
	addDeath(m, 203, 106, mateSlot, -7500) // fountain
	addDeath(m, teammate, 108, enemySlot, 7000)

	events, err := TeamFights(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("base-area deaths must not count toward the minimum, got %v", seconds(events))
	}
}

// ---- Kill / death tests ----

func TestKillsAndDeaths(t *testing.T) {
	m := makeMatch()
	addDeath(m, 202, 90, trackSlot, 0)
	addDeath(m, 201, 30, trackSlot, 0)
	addDeath(m, tracked, 60, enemySlot, 0)

	kills, err := Kills(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("Kills: %v", err)
	}
	if got := seconds(kills); len(got) != 2 || got[0] != [2]int{30, 30} || got[1] != [2]int{90, 90} {
		t.Errorf("unexpected kill spans %v", got)
	}
	if kills[0].Filename() != "30-K7-V201-21" {
		t.Errorf("unexpected kill filename %q", kills[0].Filename())
	}

	deaths, err := Deaths(tracked, m, DefaultParams())
	if err != nil {
		t.Fatalf("Deaths: %v", err)
	}
	if len(deaths) != 1 {
		t.Fatalf("expected 1 death, got %d", len(deaths))
	}
	if deaths[0].Killer == nil || deaths[0].Killer.PlayerSlot != enemySlot {
		t.Errorf("expected killer at slot %d", enemySlot)
	}
	if deaths[0].Filename() != "60-K21-V100-7" {
		t.Errorf("unexpected death filename %q", deaths[0].Filename())
	}
}

// ---- Detector tests ----

func TestDetect_PlayerNotFound(t *testing.T) {
	m := makeMatch()
	d := New(DefaultParams())
	_, err := d.Detect(999, m)
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestDetect_ConcatenatesEnabledKinds(t *testing.T) {
	m := makeMatch()
	addKills(m, trackSlot, 200, 201, 202)
	addDeath(m, tracked, 50, enemySlot, 0)

	d := New(DefaultParams(), model.KindDeath, model.KindMultiKill)
	events, err := d.Detect(tracked, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected death + multikill, got %d events", len(events))
	}
	if events[0].Kind != model.KindDeath || events[1].Kind != model.KindMultiKill {
		t.Errorf("unexpected kind order: %s, %s", events[0].Kind, events[1].Kind)
	}

	latest, ok := Latest(events)
	if !ok || latest.Kind != model.KindMultiKill {
		t.Errorf("expected multikill as latest event, got %+v", latest)
	}
}

func TestDetector_DefaultKinds(t *testing.T) {
	kinds := New(DefaultParams()).Kinds()
	if len(kinds) != 2 || kinds[0] != model.KindMultiKill || kinds[1] != model.KindTeamFight {
		t.Errorf("unexpected default kinds %v", kinds)
	}
}

func TestLatest_Empty(t *testing.T) {
	if _, ok := Latest(nil); ok {
		t.Error("expected ok=false for no events")
	}
}
