package ratelimit

import (
	"context"
	"fmt"
	"time"

	"ai-lifeplan-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultLimit  = 20
	DefaultWindow = time.Minute

	keyPrefix = "ratelimit:turn:"
)

// Decision is the outcome of one check.
type Decision struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"reset_in"`
	Limit     int           `json:"limit"`
	// Degraded is set when the shared store was unreachable and the decision
	// came from the local fallback.
	Degraded bool `json:"degraded,omitempty"`
}

// Config for a Limiter. Zero values fall back to the defaults.
type Config struct {
	Limit  int
	Window time.Duration
}

// Limiter is a fixed-window per-user counter over a shared Store.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	log    logger.ILogger
	now    func() time.Time

	// fallback only counts, it never blocks
	fallback *cache.Cache
}

func NewLimiter(store Store, cfg Config, log logger.ILogger) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Limiter{
		store:    store,
		limit:    cfg.Limit,
		window:   cfg.Window,
		log:      log,
		now:      time.Now,
		fallback: cache.New(cfg.Window, 2*cfg.Window),
	}
}

// Check counts one request for userId. When the shared store fails the check
// fails open: the request is allowed and the degradation is logged.
func (l *Limiter) Check(ctx context.Context, userId string) Decision {
	key := keyPrefix + userId

	count, ttl, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		l.log.Warn("RATE_LIMIT", "Shared store unavailable, allowing request", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return l.degraded(key)
	}

	if ttl <= 0 {
		ttl = l.window
	}
	return Decision{
		Allowed:   count <= int64(l.limit),
		Remaining: remaining(l.limit, count),
		ResetIn:   ttl,
		Limit:     l.limit,
	}
}

func (l *Limiter) degraded(key string) Decision {
	var count int64 = 1
	if err := l.fallback.Add(key, count, cache.DefaultExpiration); err != nil {
		if n, incErr := l.fallback.IncrementInt64(key, 1); incErr == nil {
			count = n
		}
	}

	resetIn := l.window
	if _, expiresAt, found := l.fallback.GetWithExpiration(key); found && !expiresAt.IsZero() {
		if d := expiresAt.Sub(l.now()); d > 0 {
			resetIn = d
		}
	}

	return Decision{
		Allowed:   true,
		Remaining: remaining(l.limit, count),
		ResetIn:   resetIn,
		Limit:     l.limit,
		Degraded:  true,
	}
}

func remaining(limit int, count int64) int {
	r := int64(limit) - count
	if r < 0 {
		return 0
	}
	return int(r)
}

func (d Decision) String() string {
	return fmt.Sprintf("allowed=%t remaining=%d/%d reset_in=%s", d.Allowed, d.Remaining, d.Limit, d.ResetIn)
}
