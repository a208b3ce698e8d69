package clipper

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pable/highlight-clipper/internal/model"
)

// Cache memoizes match metadata for the lifetime of one run. Concurrent
// lookups of the same match share a single fetch. Failures are not cached.
type Cache struct {
	src MatchSource

	mu      sync.Mutex
	matches map[int64]*model.Match
	group   singleflight.Group
}

// NewCache returns an empty cache in front of src.
func NewCache(src MatchSource) *Cache {
	return &Cache{src: src, matches: make(map[int64]*model.Match)}
}

// Get returns the match, fetching it on first use.
func (c *Cache) Get(ctx context.Context, matchID int64) (*model.Match, error) {
	c.mu.Lock()
	m, ok := c.matches[matchID]
	c.mu.Unlock()
	if ok {
		return m, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(matchID, 10), func() (any, error) {
		c.mu.Lock()
		m, ok := c.matches[matchID]
		c.mu.Unlock()
		if ok {
			return m, nil
		}
		m, err := c.src.GetMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.matches[matchID] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Match), nil
}
