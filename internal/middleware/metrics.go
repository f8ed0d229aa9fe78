package middleware

import (
	"time"

	"bluetrust-backend/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records in-flight requests, status counts and latency.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		done := metrics.TrackInFlight()
		defer done()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		metrics.ObserveHTTP(c.Method(), c.Path(), status, time.Since(start))
		return err
	}
}
