package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/resume-rag/jobscraper/internal/api/handlers"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Health check routes (no prefix)
	app.Get("/health", handlers.HealthCheck(deps.Scrapes.Mode(), deps.Stores...))
	app.Get("/", handlers.Root())

	api := app.Group("/api")

	scrape := api.Group("/scrape")
	scrapeHandler := handlers.NewScrapeHandler(deps.Scrapes)
	scrape.Post("/", scrapeHandler.TriggerScrape)
	scrape.Get("/", scrapeHandler.ListScrapes)
	scrape.Get("/:task_id", scrapeHandler.GetScrapeStatus)
}

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	Scrapes handlers.ScrapeService
	// Stores are the sinks reported by /health.
	Stores []handlers.Pinger
}
