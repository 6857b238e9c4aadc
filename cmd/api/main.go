package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/api"
	"github.com/resume-rag/jobscraper/internal/api/handlers"
	"github.com/resume-rag/jobscraper/internal/api/middleware"
	"github.com/resume-rag/jobscraper/internal/browser"
	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/events"
	"github.com/resume-rag/jobscraper/internal/scheduler"
	"github.com/resume-rag/jobscraper/internal/scraper"
	"github.com/resume-rag/jobscraper/internal/sink"
	"github.com/resume-rag/jobscraper/pkg/logger"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	mode := scraper.ModeFor(cfg.Scraper)
	logger.Info("Starting jobscraper API",
		zap.String("version", "1.0.0"),
		zap.Stringer("mode", mode),
		zap.Bool("debug", cfg.Server.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, err := sink.Open(ctx, cfg.Sinks, logger.Get())
	if err != nil {
		logger.Fatal("Failed to open sinks", zap.Error(err))
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Error("Failed to close sinks", zap.Error(err))
		}
	}()

	launcher := browser.NewLauncher(logger.Get(), cfg.Browser)
	defer launcher.Close()

	newRunner := func(bus *events.Bus) (api.Runner, error) {
		if err := sinks.Attach(ctx, bus, cfg.Scraper.EmitDataFile); err != nil {
			return nil, err
		}
		return scraper.New(cfg.Scraper, bus, scraper.ChromeLauncher(launcher), scraper.WithLogger(logger.Get())), nil
	}
	tasks := api.NewTaskManager(newRunner, mode.String(), cfg.Server.MaxTasks, logger.Get())

	if cfg.Scheduler.Enabled {
		bus := events.NewBus()
		runner, err := newRunner(bus)
		if err != nil {
			logger.Fatal("Failed to build scheduled runner", zap.Error(err))
		}
		sched, err := scheduler.New(cfg.Scheduler.Spec, runner, scheduler.FileLoader(cfg.Scheduler.QueriesFile), logger.Get())
		if err != nil {
			logger.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "jobscraper API v1.0.0",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		DisableStartupMessage: !cfg.Server.Debug,
		ErrorHandler:          errorHandler,
	})

	// Setup middleware
	middleware.Setup(app, cfg, logger.Named("http"))

	stores := make([]handlers.Pinger, 0, sinks.Len())
	for _, p := range sinks.Pingers() {
		stores = append(stores, p)
	}
	api.SetupRoutes(app, &api.Dependencies{
		Scrapes: tasks,
		Stores:  stores,
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down gracefully...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", addr))

	if err := app.Listen(addr); err != nil {
		logger.Error("Server failed", zap.Error(err))
	}
	tasks.Shutdown()
}

// errorHandler handles errors globally
func errorHandler(c *fiber.Ctx, err error) error {
	// Default to 500
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Log error
	logger.Error("Request error",
		zap.Int("status", code),
		zap.String("path", c.Path()),
		zap.Error(err),
	)

	return c.Status(code).JSON(fiber.Map{
		"error":   "request_failed",
		"message": message,
		"path":    c.Path(),
	})
}
