package model

import (
	"fmt"
	"sync"
	"time"
)

// ---- Match data as returned by the match metadata source ----

// Vec3 is a world-space position in map units.
type Vec3 struct{ X, Y, Z float64 }

// DeathDetail is one death of the owning player.
type DeathDetail struct {
	GameTimeS        int  // seconds since match start
	KillerPlayerSlot int  // slot of the player credited with the kill
	DeathPos         Vec3 // victim position at time of death
}

// GameTime returns the death time as a duration since match start.
func (d DeathDetail) GameTime() time.Duration {
	return time.Duration(d.GameTimeS) * time.Second
}

// Player is one participant's slot, hero and deaths in a match.
type Player struct {
	AccountID    int64
	HeroID       int
	PlayerSlot   int
	Team         int
	DeathDetails []DeathDetail // not guaranteed sorted
}

// Match is an immutable snapshot of a completed match.
type Match struct {
	MatchID   int64
	StartTime time.Time
	DurationS int
	Players   []Player

	indexOnce sync.Once
	byAccount map[int64]int
	bySlot    map[int]int
}

func (m *Match) buildIndex() {
	m.indexOnce.Do(func() {
		m.byAccount = make(map[int64]int, len(m.Players))
		m.bySlot = make(map[int]int, len(m.Players))
		for i, p := range m.Players {
			m.byAccount[p.AccountID] = i
			m.bySlot[p.PlayerSlot] = i
		}
	})
}

// PlayerByAccount returns the player with the given account ID.
func (m *Match) PlayerByAccount(accountID int64) (*Player, bool) {
	m.buildIndex()
	i, ok := m.byAccount[accountID]
	if !ok {
		return nil, false
	}
	return &m.Players[i], true
}

// PlayerAtSlot returns the player occupying slot.
func (m *Match) PlayerAtSlot(slot int) (*Player, bool) {
	m.buildIndex()
	i, ok := m.bySlot[slot]
	if !ok {
		return nil, false
	}
	return &m.Players[i], true
}

// MatchHistoryEntry is one row of a player's match history.
type MatchHistoryEntry struct {
	AccountID      int64
	MatchID        int64
	HeroID         int
	HeroLevel      int
	StartTime      time.Time
	GameMode       int
	MatchMode      int
	PlayerTeam     int
	PlayerKills    int
	PlayerDeaths   int
	PlayerAssists  int
	NetWorth       int
	LastHits       int
	MatchDurationS int
	MatchResult    int
}

// ---- Video data as returned by the video listing source ----

// Video is an archived broadcast on the tracked channel.
type Video struct {
	ID        string
	UserID    string
	UserName  string
	Title     string
	CreatedAt time.Time
	Duration  time.Duration
}

// End returns the wall-clock instant the recording stops.
func (v Video) End() time.Time {
	return v.CreatedAt.Add(v.Duration)
}

// Contains reports whether t falls inside the recording, bounds inclusive.
func (v Video) Contains(t time.Time) bool {
	return !t.Before(v.CreatedAt) && !t.After(v.End())
}

// ---- Detected events ----

// Kind tags the event variant.
type Kind int

const (
	KindKill Kind = iota
	KindDeath
	KindMultiKill
	KindTeamFight
)

func (k Kind) String() string {
	switch k {
	case KindKill:
		return "kill"
	case KindDeath:
		return "death"
	case KindMultiKill:
		return "multikill"
	case KindTeamFight:
		return "team_fight"
	default:
		return "unknown"
	}
}

// ParseKind maps an event name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindKill, KindDeath, KindMultiKill, KindTeamFight} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Event is a detected highlight. Start and End are match-clock times and
// Start <= End. Which payload fields are set depends on Kind:
//
//	kill, death: Killer, Victim
//	multikill:   Killer, Victims
//	team_fight:  Kills
type Event struct {
	Kind  Kind
	Start time.Duration
	End   time.Duration

	Killer  *Player
	Victim  *Player
	Victims []*Player
	Kills   []DeathDetail
}

// Name is the kind tag used in logs and output paths.
func (e Event) Name() string { return e.Kind.String() }

// Midpoint returns the match-clock instant halfway through the event.
func (e Event) Midpoint() time.Duration {
	return (e.Start + e.End) / 2
}

// Filename returns the kind-specific output file name, without extension.
func (e Event) Filename() string {
	startS := int(e.Start / time.Second)
	switch e.Kind {
	case KindKill, KindDeath:
		return fmt.Sprintf("%d-K%d-V%d-%d", startS, heroOf(e.Killer), accountOf(e.Victim), heroOf(e.Victim))
	case KindMultiKill:
		return fmt.Sprintf("%d-K%d-V%d", startS, heroOf(e.Killer), len(e.Victims))
	case KindTeamFight:
		return fmt.Sprintf("%d-K%d", startS, len(e.Kills))
	default:
		return fmt.Sprintf("%d-%s", startS, e.Kind)
	}
}

func heroOf(p *Player) int {
	if p == nil {
		return 0
	}
	return p.HeroID
}

func accountOf(p *Player) int64 {
	if p == nil {
		return 0
	}
	return p.AccountID
}

// ---- Time alignment ----

// MatchToVideoTime converts a match-clock time into an offset from the start
// of the recording. offset is the calibrated correction (zero when unknown).
func MatchToVideoTime(matchTime time.Duration, matchStart, videoCreated time.Time, offset time.Duration) time.Duration {
	return matchTime + matchStart.Sub(videoCreated) + offset
}

// ClipTask is one planned extraction. Not persisted: the existence of OutPath
// on disk marks completion.
type ClipTask struct {
	Event      Event
	VideoStart time.Duration
	VideoEnd   time.Duration
	OutPath    string
}

// ClipRecord is the ledger row written after a clip lands on disk.
type ClipRecord struct {
	Path       string
	ChannelID  string
	AccountID  int64
	VideoID    string
	MatchID    int64
	Kind       string
	VideoStart time.Duration
	VideoEnd   time.Duration
	CreatedAt  time.Time
}
