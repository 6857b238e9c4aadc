package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

const version = "1.0.0"

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// HealthCheck returns the health status
func HealthCheck(mode string, stores ...Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := "healthy"
		sinks := fiber.Map{}
		for _, s := range stores {
			if err := s.Ping(c.Context()); err != nil {
				sinks[s.Name()] = "unavailable"
				status = "degraded"
				continue
			}
			sinks[s.Name()] = "healthy"
		}

		return c.JSON(fiber.Map{
			"status":  status,
			"version": version,
			"mode":    mode,
			"sinks":   sinks,
		})
	}
}

// Root returns basic API info
func Root() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":    "jobscraper API",
			"version": version,
			"health":  "/health",
			"scrape":  "/api/scrape",
		})
	}
}
