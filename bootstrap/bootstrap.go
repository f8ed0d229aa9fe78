package bootstrap

import (
	"bluetrust-backend/internal/config"
	"bluetrust-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for the serverless entry point, which may not
// import internal packages directly. No scheduler runs there; the dashboard
// cache refreshes on demand.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, _, _, err := router.CreateApp(cfg)
	return app, err
}
