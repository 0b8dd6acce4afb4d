package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter mirrors the RedisLimiter algorithm in process memory.
// Good enough for a single replica; use Redis when running more than one.
type MemoryLimiter struct {
	c      *gocache.Cache
	Max    int64
	Window time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		Max:    int64(max),
		Window: window,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	winKey := fmt.Sprintf("%s:%d", key, winStart.Unix())

	// Add is a no-op when the key exists, so the increment below always
	// applies to this window's counter.
	_ = l.c.Add(winKey, int64(0), l.Window)
	hits, err := l.c.IncrementInt64(winKey, 1)
	if err != nil {
		// Counter expired between Add and Increment; recreate.
		_ = l.c.Add(winKey, int64(1), l.Window)
		hits = 1
	}

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}

	windowEnd := winStart.Add(l.Window)
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   windowEnd.Sub(now),
	}
	if !allowed {
		res.RetryAfter = windowEnd.Sub(now)
	}
	return res, nil
}
