package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/browser"
	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
	"github.com/resume-rag/jobscraper/internal/scraper"
	"github.com/resume-rag/jobscraper/internal/sink"
	"github.com/resume-rag/jobscraper/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	queriesPath := flag.String("queries", "queries.yaml", "Path to the query set")
	flag.Parse()

	os.Exit(run(*configPath, *queriesPath))
}

func run(configPath, queriesPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	set, err := config.LoadQueries(queriesPath)
	if err != nil {
		logger.Error("Failed to load queries", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, err := sink.Open(ctx, cfg.Sinks, logger.Get())
	if err != nil {
		logger.Error("Failed to open sinks", zap.Error(err))
		return 1
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Error("Failed to close sinks", zap.Error(err))
		}
	}()

	bus := events.NewBus()
	if err := sinks.Attach(ctx, bus, cfg.Scraper.EmitDataFile); err != nil {
		logger.Error("Failed to attach sinks", zap.Error(err))
		return 1
	}
	if err := logEvents(bus, logger.Named("events")); err != nil {
		logger.Error("Failed to attach event log", zap.Error(err))
		return 1
	}

	launcher := browser.NewLauncher(logger.Get(), cfg.Browser)
	defer launcher.Close()

	s := scraper.New(cfg.Scraper, bus, scraper.ChromeLauncher(launcher), scraper.WithLogger(logger.Get()))
	err = s.Run(ctx, set.Queries, set.Options)

	var runErr *scraper.RunError
	switch {
	case err == nil:
		logger.Info("Scrape finished", zap.Int("queries", len(set.Queries)))
		return 0
	case errors.As(err, &runErr):
		logger.Error("Scrape finished with failures", zap.Int("failures", len(runErr.Failures)), zap.Error(err))
	default:
		logger.Error("Scrape aborted", zap.Error(err))
	}
	return 1
}

func logEvents(bus *events.Bus, log *zap.Logger) error {
	listeners := map[events.Kind]any{
		events.Data: func(job domain.EventData) {
			log.Info("Job scraped",
				zap.String("tag", job.Tag),
				zap.String("title", job.Title),
				zap.String("company", job.Company),
			)
		},
		events.Metrics: func(m domain.EventMetrics) {
			log.Info("Progress",
				zap.Int("processed", m.Processed),
				zap.Int("failed", m.Failed),
				zap.Int("skipped", m.Skipped),
				zap.Int("missed", m.Missed),
			)
		},
		events.Error: func(msg string) {
			log.Warn("Scraper error", zap.String("message", msg))
		},
		events.InvalidSession: func() {
			log.Warn("Session token rejected, set a fresh LI_AT_COOKIE")
		},
	}
	for kind, fn := range listeners {
		if _, err := bus.On(kind, fn); err != nil {
			return err
		}
	}
	return nil
}
