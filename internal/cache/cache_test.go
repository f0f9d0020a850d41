package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"manhwahub/pkg/models"
)

func TestTitleCache(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTitleCache(time.Minute)
	c.now = func() time.Time { return now }

	titles := []models.Title{{ID: "10", Provider: "anilist"}}
	c.Put("local:dev", "trending:1", titles)

	t.Run("hit within ttl", func(t *testing.T) {
		got, ok := c.Get("local:dev", "trending:1")
		require.True(t, ok)
		require.Equal(t, titles, got)
	})

	t.Run("scope isolation", func(t *testing.T) {
		_, ok := c.Get("user-42", "trending:1")
		require.False(t, ok)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, ok := c.Get("local:dev", "trending:1")
		require.False(t, ok)
	})

	t.Run("invalidate clears one scope only", func(t *testing.T) {
		now = time.Unix(1000, 0)
		c.Put("local:dev", "trending:1", titles)
		c.Put("user-42", "trending:1", titles)
		c.Invalidate("local:dev")

		_, ok := c.Get("local:dev", "trending:1")
		require.False(t, ok)
		_, ok = c.Get("user-42", "trending:1")
		require.True(t, ok)
	})
}
