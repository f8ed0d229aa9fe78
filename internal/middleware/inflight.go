package middleware

import (
	"context"
	"time"

	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// InFlightPrefix namespaces the per-session busy flags.
const InFlightPrefix = "inflight:"

// InFlight allows one running request per session and action. A second
// request while the first is still running gets 409. Requests without a
// session are keyed by IP.
func InFlight(rdb *redis.Client, action string, ttl time.Duration) fiber.Handler {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return func(c *fiber.Ctx) error {
		if rdb == nil {
			return c.Next()
		}
		owner := GetSessionID(c)
		if owner == "" {
			owner = "ip:" + c.IP()
		}
		key := InFlightPrefix + owner + ":" + action

		ok, err := rdb.SetNX(c.UserContext(), key, time.Now().UnixMilli(), ttl).Result()
		if err != nil {
			log.Error().Err(err).Str("action", action).Msg("inflight: acquire failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
		if !ok {
			return response.Error(c, "This request is already being processed", fiber.StatusConflict, nil)
		}
		defer func() {
			// the request context may already be past its deadline
			if err := rdb.Del(context.Background(), key).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("inflight: release failed")
			}
		}()
		return c.Next()
	}
}
