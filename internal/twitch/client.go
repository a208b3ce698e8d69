// Package twitch lists archived broadcasts of a channel through the Helix API.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pable/highlight-clipper/internal/model"
)

// DefaultBaseURL is the Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix"

const pageSize = 100

// UpstreamError reports a failed or non-200 Helix request. It is fatal to a run.
type UpstreamError struct {
	Path       string
	StatusCode int // 0 for transport errors
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("twitch GET %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("twitch GET %s: HTTP %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client is a minimal Helix client authenticated with a user access token.
type Client struct {
	baseURL     string
	clientID    string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient returns a Helix client. perMinute <= 0 disables rate limiting.
func NewClient(baseURL, clientID, accessToken string, perMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientID:    clientID,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(limit, 1),
	}
}

type videoPage struct {
	Data []struct {
		ID        string `json:"id"`
		UserID    string `json:"user_id"`
		UserName  string `json:"user_name"`
		Title     string `json:"title"`
		CreatedAt string `json:"created_at"`
		Duration  string `json:"duration"`
	} `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// get performs a rate-limited, authenticated GET request and JSON-decodes the
// response body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &UpstreamError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return &UpstreamError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ListVideos returns every archived broadcast of the channel, newest first,
// following pagination cursors until the listing is exhausted.
func (c *Client) ListVideos(ctx context.Context, channelID string) ([]model.Video, error) {
	params := url.Values{
		"user_id": {channelID},
		"type":    {"archive"},
		"first":   {fmt.Sprint(pageSize)},
	}

	var videos []model.Video
	for {
		var page videoPage
		if err := c.get(ctx, "/videos", params, &page); err != nil {
			return nil, err
		}
		for _, v := range page.Data {
			created, err := time.Parse(time.RFC3339, v.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("parse created_at of video %s: %w", v.ID, err)
			}
			dur, err := ParseDuration(v.Duration)
			if err != nil {
				return nil, fmt.Errorf("parse duration of video %s: %w", v.ID, err)
			}
			videos = append(videos, model.Video{
				ID:        v.ID,
				UserID:    v.UserID,
				UserName:  v.UserName,
				Title:     v.Title,
				CreatedAt: created.UTC(),
				Duration:  dur,
			})
		}
		if page.Pagination.Cursor == "" || len(page.Data) == 0 {
			return videos, nil
		}
		params.Set("after", page.Pagination.Cursor)
	}
}

// ParseDuration parses Helix duration strings such as "3h8m33s", "54m2s" or
// "17s". Fractional or signed values are rejected.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" || strings.ContainsAny(s, ".-+") {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
