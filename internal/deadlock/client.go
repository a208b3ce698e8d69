// Package deadlock provides a minimal client for the Deadlock match data API.
package deadlock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pable/highlight-clipper/internal/model"
)

// DefaultBaseURL is the root endpoint of the public Deadlock API.
const DefaultBaseURL = "https://api.deadlock-api.com"

// UpstreamError reports a failed or non-200 request. It is fatal to a run.
type UpstreamError struct {
	Path       string
	StatusCode int // 0 for transport errors
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("deadlock GET %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("deadlock GET %s: HTTP %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PayloadStore persists raw match metadata. Completed matches never change,
// so a stored payload is served without a network round trip.
type PayloadStore interface {
	LoadMatchPayload(ctx context.Context, matchID int64) ([]byte, bool, error)
	SaveMatchPayload(ctx context.Context, matchID int64, payload []byte) error
}

// Client is a minimal Deadlock API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	store      PayloadStore
}

// NewClient returns a client for baseURL allowing at most perMinute requests
// per minute. perMinute <= 0 disables rate limiting.
func NewClient(baseURL string, perMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// WithStore makes GetMatch consult and fill store.
func (c *Client) WithStore(store PayloadStore) *Client {
	c.store = store
	return c
}

// get performs a rate-limited GET request and returns the raw body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UpstreamError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Path: path, StatusCode: resp.StatusCode, Body: truncate(body, 200)}
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// historyEntry is one element of /v1/players/{id}/match-history.
type historyEntry struct {
	AccountID      int64 `json:"account_id"`
	MatchID        int64 `json:"match_id"`
	HeroID         int   `json:"hero_id"`
	HeroLevel      int   `json:"hero_level"`
	StartTime      int64 `json:"start_time"`
	GameMode       int   `json:"game_mode"`
	MatchMode      int   `json:"match_mode"`
	PlayerTeam     int   `json:"player_team"`
	PlayerKills    int   `json:"player_kills"`
	PlayerDeaths   int   `json:"player_deaths"`
	PlayerAssists  int   `json:"player_assists"`
	NetWorth       int   `json:"net_worth"`
	LastHits       int   `json:"last_hits"`
	MatchDurationS int   `json:"match_duration_s"`
	MatchResult    int   `json:"match_result"`
}

// ListMatches returns the match history of the player with the given
// 32-bit Steam account ID.
func (c *Client) ListMatches(ctx context.Context, accountID int64) ([]model.MatchHistoryEntry, error) {
	body, err := c.get(ctx, fmt.Sprintf("/v1/players/%d/match-history", accountID))
	if err != nil {
		return nil, err
	}
	var raw []historyEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode match history: %w", err)
	}

	out := make([]model.MatchHistoryEntry, len(raw))
	for i, h := range raw {
		out[i] = model.MatchHistoryEntry{
			AccountID:      h.AccountID,
			MatchID:        h.MatchID,
			HeroID:         h.HeroID,
			HeroLevel:      h.HeroLevel,
			StartTime:      time.Unix(h.StartTime, 0).UTC(),
			GameMode:       h.GameMode,
			MatchMode:      h.MatchMode,
			PlayerTeam:     h.PlayerTeam,
			PlayerKills:    h.PlayerKills,
			PlayerDeaths:   h.PlayerDeaths,
			PlayerAssists:  h.PlayerAssists,
			NetWorth:       h.NetWorth,
			LastHits:       h.LastHits,
			MatchDurationS: h.MatchDurationS,
			MatchResult:    h.MatchResult,
		}
	}
	return out, nil
}

// GetMatchPayload returns the raw match_info object of a match.
func (c *Client) GetMatchPayload(ctx context.Context, matchID int64) ([]byte, error) {
	body, err := c.get(ctx, fmt.Sprintf("/v1/matches/%d/metadata", matchID))
	if err != nil {
		return nil, err
	}
	var envelope struct {
		MatchInfo json.RawMessage `json:"match_info"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode match %d: %w", matchID, err)
	}
	if len(envelope.MatchInfo) == 0 {
		return nil, fmt.Errorf("decode match %d: missing match_info", matchID)
	}
	return envelope.MatchInfo, nil
}

// GetMatch returns the full metadata of a completed match.
func (c *Client) GetMatch(ctx context.Context, matchID int64) (*model.Match, error) {
	if c.store != nil {
		payload, ok, err := c.store.LoadMatchPayload(ctx, matchID)
		if err != nil {
			return nil, fmt.Errorf("load cached match %d: %w", matchID, err)
		}
		if ok {
			return DecodeMatchInfo(payload)
		}
	}

	payload, err := c.GetMatchPayload(ctx, matchID)
	if err != nil {
		return nil, err
	}
	m, err := DecodeMatchInfo(payload)
	if err != nil {
		return nil, err
	}
	if c.store != nil {
		if err := c.store.SaveMatchPayload(ctx, matchID, payload); err != nil {
			return nil, fmt.Errorf("cache match %d: %w", matchID, err)
		}
	}
	return m, nil
}
