// utils/ratelimit.go
package utils

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"voltflow-backend/logger"
	"voltflow-backend/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter caps how many requests a key may make per fixed window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a fixed-window counter held in process memory
type MemoryLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	windows   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryLimiter(max int, w time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     max,
		window:  w,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= l.max {
		return false, nil
	}
	w.count++
	return true, nil
}

// sweep drops expired windows at most once per window length
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
		}
	}
	l.lastSweep = now
}

// RedisLimiter shares fixed-window counters between instances
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, max int, w time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: w, prefix: "ratelimit:sms:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	return n <= int64(l.max), nil
}

// RateLimitMiddleware limits requests per sender. The key is the normalized
// "From" form field, or the client IP when it is absent. Limiter errors let
// the request through.
func RateLimitMiddleware(limiter Limiter, callingCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := NormalizePhone(c.PostForm("From"), callingCode)
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Error("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			metrics.RecordRateLimited()
			logger.Warn("Rate limit exceeded", zap.String("key", key))
			RespondWithError(c, http.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}
		c.Next()
	}
}
