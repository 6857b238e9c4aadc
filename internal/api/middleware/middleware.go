package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/config"
)

// Setup configures all middleware for the application
func Setup(app *fiber.App, cfg *config.Config, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.Server.Debug,
	}))

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return uuid.New().String()
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: joinOrAny(cfg.CORS.AllowedOrigins),
		AllowMethods: joinOrAny(cfg.CORS.AllowedMethods),
		AllowHeaders: joinOrAny(cfg.CORS.AllowedHeaders),
		MaxAge:       cfg.CORS.MaxAge,
	}))

	// Every submission starts browsers, so only submissions are rate limited.
	if cfg.RateLimit.Enabled {
		app.Use(limiter.New(limiter.Config{
			Next: func(c *fiber.Ctx) bool {
				return c.Method() != fiber.MethodPost
			},
			Max:        cfg.RateLimit.RequestsPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":   "rate_limit_exceeded",
					"message": "Too many scrape requests. Please try again later.",
				})
			},
		}))
	}

	app.Use(RequestLogger(log, cfg.Server.Debug))
	app.Use(RequestTiming())
}

// RequestLogger returns a logging middleware
func RequestLogger(log *zap.Logger, debug bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)
		status := c.Response().StatusCode()

		fields := []zap.Field{
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
		}
		if debug {
			fields = append(fields, zap.String("user_agent", c.Get(fiber.HeaderUserAgent)))
		}

		switch {
		case status >= 500:
			log.Error("Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		case duration > 2*time.Second:
			log.Warn("Slow request", fields...)
		case debug:
			log.Debug("Request completed", fields...)
		}
		return err
	}
}

// RequestTiming adds timing headers to responses
func RequestTiming() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		c.Set("X-Process-Time", time.Since(start).String())
		return err
	}
}

func joinOrAny(values []string) string {
	if len(values) == 0 {
		return "*"
	}
	return strings.Join(values, ",")
}
