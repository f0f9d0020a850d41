// Package cache holds the last catalog results for one browsing session.
// It is in-memory only and never survives a restart; its job is avoiding
// redundant provider calls, not durability.
package cache

import (
	"sync"
	"time"

	"manhwahub/pkg/models"
)

type entry struct {
	titles  []models.Title
	expires time.Time
}

// TitleCache is a TTL-bound map of result sets keyed by (scope, query key).
// Scope separation means a sign-in/out never serves another scope's results.
type TitleCache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]entry

	now func() time.Time // test hook
}

func NewTitleCache(ttl time.Duration) *TitleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TitleCache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *TitleCache) key(scope, k string) string { return scope + "\x00" + k }

func (c *TitleCache) Get(scope, k string) ([]models.Title, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[c.key(scope, k)]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.m, c.key(scope, k))
		return nil, false
	}
	return e.titles, true
}

func (c *TitleCache) Put(scope, k string, titles []models.Title) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[c.key(scope, k)] = entry{titles: titles, expires: c.now().Add(c.ttl)}
}

// Invalidate drops every entry under one scope, used on session transitions.
func (c *TitleCache) Invalidate(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := scope + "\x00"
	for k := range c.m {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.m, k)
		}
	}
}
