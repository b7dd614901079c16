package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/models"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors maps an identity (API key or client IP) to its token bucket.
type visitors struct {
	cfg config.RateLimitConfig

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func (v *visitors) get(identity string, now time.Time) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()
	entry, ok := v.entries[identity]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(v.cfg.RequestsPerSecond), v.cfg.Burst),
		}
		v.entries[identity] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evict drops entries not seen since cutoff.
func (v *visitors) evict(cutoff time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, entry := range v.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(v.entries, id)
		}
	}
}

// RateLimit returns per-identity token-bucket rate limiting middleware
// powered by golang.org/x/time/rate. Rejected requests get 429 with a
// Retry-After header in whole seconds.
//
// Entries unused for an hour are evicted every five minutes until ctx is done.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	v := &visitors{cfg: cfg, entries: make(map[string]*limiterEntry)}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				v.evict(time.Now().Add(-1 * time.Hour))
			}
		}
	}()

	return func(c *gin.Context) {
		// Prefer API key as identity (set by auth middleware); fall back to IP.
		identity := c.GetString("api_key")
		if identity == "" {
			identity = c.ClientIP()
		}

		now := time.Now()
		r := v.get(identity, now).ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			wait := time.Second
			if r.OK() {
				wait = r.DelayFrom(now)
				r.CancelAt(now)
			}
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}

		c.Next()
	}
}
