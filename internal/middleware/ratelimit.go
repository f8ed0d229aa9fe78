package middleware

import (
	"sync"

	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// maxLimiters bounds the limiter map; it is reset once exceeded.
const maxLimiters = 10000

// RateLimiter keeps one token bucket per session, or per IP when signed out.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing rps requests per second with burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// Handler rejects requests over the budget with 429.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if sess := GetSession(c); sess != nil {
			key = "user:" + sess.UserID
		}
		if !rl.limiter(key).Allow() {
			log.Warn().Str("key", key).Str("method", c.Method()).Str("path", c.Path()).Msg("rate limit exceeded")
			return response.Error(c, "Too many requests, please slow down", fiber.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}
