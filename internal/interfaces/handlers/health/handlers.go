package health

import (
	"crypto/subtle"
	"encoding/json"
	"strconv"
	"time"

	healthsvc "bluetrust-backend/internal/application/health"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// maxErrorEntries matches the length the health marker trims its log to.
const maxErrorEntries = 50

type Handlers struct {
	Rdb            *redis.Client
	DB             healthsvc.DBPinger
	HealthAdminKey string
}

func (h *Handlers) adminKeyOK(key string) bool {
	return h.HealthAdminKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(h.HealthAdminKey)) == 1
}

// Reset GET /reset?key= wipes the traffic counters and restarts the uptime clock.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if !h.adminKeyOK(c.Query("key")) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	ctx := c.UserContext()
	_, err := h.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, healthsvc.ResetKeys()...)
		p.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("health: reset failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	log.Info().Msg("health: stats reset")
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON GET /health/json. Anything but "ok" answers 503 so probes can act on it.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.CollectHealth(c.UserContext(), h.Rdb, h.DB)
	code := fiber.StatusOK
	if result.Status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"service":      "bluetrust-api",
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors GET /health/errors?limit= lists recent 5xx entries, newest first.
// Unreadable entries are skipped.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", maxErrorEntries)
	if limit < 1 || limit > maxErrorEntries {
		limit = maxErrorEntries
	}
	entries, err := h.Rdb.LRange(c.UserContext(), middleware.KeyErrorLog, 0, int64(limit-1)).Result()
	if err != nil {
		log.Error().Err(err).Msg("health: reading error log failed")
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, raw := range entries {
		var entry map[string]interface{}
		if json.Unmarshal([]byte(raw), &entry) == nil && entry != nil {
			out = append(out, entry)
		}
	}
	return c.JSON(out)
}
