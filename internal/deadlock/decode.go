package deadlock

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

// Wire shapes of the match_info object. Only the fields the detectors read
// are decoded.
type matchInfo struct {
	MatchID   int64    `json:"match_id"`
	StartTime int64    `json:"start_time"`
	DurationS int      `json:"duration_s"`
	Players   []player `json:"players"`
}

type player struct {
	AccountID    int64         `json:"account_id"`
	PlayerSlot   int           `json:"player_slot"`
	Team         int           `json:"team"`
	HeroID       int           `json:"hero_id"`
	DeathDetails []deathDetail `json:"death_details"`
}

type deathDetail struct {
	GameTimeS        int `json:"game_time_s"`
	KillerPlayerSlot int `json:"killer_player_slot"`
	DeathPos         struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"death_pos"`
}

// DecodeMatchInfo converts a raw match_info object into a model.Match.
func DecodeMatchInfo(payload []byte) (*model.Match, error) {
	var mi matchInfo
	if err := json.Unmarshal(payload, &mi); err != nil {
		return nil, fmt.Errorf("decode match_info: %w", err)
	}

	m := &model.Match{
		MatchID:   mi.MatchID,
		StartTime: time.Unix(mi.StartTime, 0).UTC(),
		DurationS: mi.DurationS,
		Players:   make([]model.Player, len(mi.Players)),
	}
	for i, p := range mi.Players {
		deaths := make([]model.DeathDetail, len(p.DeathDetails))
		for j, d := range p.DeathDetails {
			deaths[j] = model.DeathDetail{
				GameTimeS:        d.GameTimeS,
				KillerPlayerSlot: d.KillerPlayerSlot,
				DeathPos:         model.Vec3{X: d.DeathPos.X, Y: d.DeathPos.Y, Z: d.DeathPos.Z},
			}
		}
		m.Players[i] = model.Player{
			AccountID:    p.AccountID,
			HeroID:       p.HeroID,
			PlayerSlot:   p.PlayerSlot,
			Team:         p.Team,
			DeathDetails: deaths,
		}
	}
	return m, nil
}
