package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/equipview/internal/core"
)

// Counter counts hits per key inside a fixed window.
type Counter interface {
	// Hit records one request for key and returns the count in the current
	// window and the time until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimit rejects clients that exceed limit requests per window, keyed by
// the client address left in RemoteAddr by TrustedRealIP. Counter failures
// let the request through.
func RateLimit(c Counter, name string, limit int, window time.Duration, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r.RemoteAddr)
			id := r.RemoteAddr
			if ip != nil {
				id = ip.String()
			}

			count, reset, err := c.Hit(r.Context(), name+":"+id, window)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))

			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(reset.Seconds()))))
				fail(w, r, core.ErrRateLimited, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MemoryCounter is a per-process Counter.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count int64
	start time.Time
	size  time.Duration
}

// NewMemoryCounter returns an empty in-memory counter. Call Sweep
// periodically, or run StartSweeper, to forget idle clients.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, size time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= size {
		w = &window{start: now, size: size}
		m.windows[key] = w
	}
	w.count++
	return w.count, size - now.Sub(w.start), nil
}

// Sweep removes windows that ended more than one window ago.
func (m *MemoryCounter) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, w := range m.windows {
		if now.Sub(w.start) > 2*w.size {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *MemoryCounter) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// RedisCounter shares rate limit windows between instances using
// INCR and EXPIRE.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter returns a Counter storing keys under prefix.
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "equipview:rl:"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) Hit(ctx context.Context, key string, size time.Duration) (int64, time.Duration, error) {
	key = c.prefix + key

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("rate counter incr: %w", err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, size).Err(); err != nil {
			return 0, 0, fmt.Errorf("rate counter expire: %w", err)
		}
		return count, size, nil
	}

	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return count, size, nil
	}
	if ttl < 0 {
		// Key lost its expiry; restore it so the client is not blocked forever.
		c.client.Expire(ctx, key, size)
		ttl = size
	}
	return count, ttl, nil
}
