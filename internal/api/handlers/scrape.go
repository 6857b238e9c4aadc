package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/resume-rag/jobscraper/internal/domain"
)

// ScrapeService defines the interface for background scrape tasks
type ScrapeService interface {
	Submit(ctx context.Context, req domain.ScrapeRequest) (*domain.ScrapeTask, error)
	Get(ctx context.Context, taskID uuid.UUID) (*domain.ScrapeTask, error)
	List(ctx context.Context) []domain.ScrapeTask
	Mode() string
}

// ScrapeHandler handles scrape API requests
type ScrapeHandler struct {
	service ScrapeService
}

// NewScrapeHandler creates a new scrape handler
func NewScrapeHandler(service ScrapeService) *ScrapeHandler {
	return &ScrapeHandler{service: service}
}

// TriggerScrape handles POST /api/scrape
func (h *ScrapeHandler) TriggerScrape(c *fiber.Ctx) error {
	var req domain.ScrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
	}

	task, err := h.service.Submit(c.Context(), req)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_query",
				"field":   ve.Field,
				"message": ve.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "scrape_failed",
			"message": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id": task.ID,
		"status":  task.Status,
		"mode":    task.Mode,
		"message": "Scraping started",
	})
}

// GetScrapeStatus handles GET /api/scrape/:task_id
func (h *ScrapeHandler) GetScrapeStatus(c *fiber.Ctx) error {
	taskID, err := uuid.Parse(c.Params("task_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Invalid task ID",
		})
	}

	task, err := h.service.Get(c.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "not_found",
				"message": "Task not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "status_failed",
			"message": err.Error(),
		})
	}

	return c.JSON(task)
}

// ListScrapes handles GET /api/scrape
func (h *ScrapeHandler) ListScrapes(c *fiber.Ctx) error {
	tasks := h.service.List(c.Context())
	return c.JSON(fiber.Map{
		"tasks": tasks,
		"total": len(tasks),
	})
}
