package spacetraveling

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/spacetraveling/content"
)

// SummaryLoader loads every published post summary, newest first.
type SummaryLoader func(ctx context.Context) ([]content.PostSummary, error)

// PostCache is an in-memory cache of the published post summaries with TTL.
// It backs adjacency, the feed, and the sitemap; listing pages are not
// cached since their cursors come from the CMS.
type PostCache struct {
	mu      sync.RWMutex
	posts   []content.PostSummary
	fetched time.Time
	ttl     time.Duration
	load    SummaryLoader
}

// NewPostCache creates a PostCache filled by load.
func NewPostCache(load SummaryLoader, ttl time.Duration) *PostCache {
	return &PostCache{load: load, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// ensureLoaded returns cached summaries after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]content.PostSummary, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	posts, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []content.PostSummary{}
	}
	c.posts = posts
	c.fetched = time.Now()
	return c.posts, nil
}

// Newest returns the published summaries, newest first. The slice is
// shared; callers must not modify it.
func (c *PostCache) Newest(ctx context.Context) ([]content.PostSummary, error) {
	return c.ensureLoaded(ctx)
}

// Chronological returns a copy of the published summaries, oldest first.
func (c *PostCache) Chronological(ctx context.Context) ([]content.PostSummary, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return reversed(posts), nil
}

func reversed(posts []content.PostSummary) []content.PostSummary {
	out := make([]content.PostSummary, len(posts))
	for i, p := range posts {
		out[len(posts)-1-i] = p
	}
	return out
}
