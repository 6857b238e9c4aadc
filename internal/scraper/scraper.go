package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
)

// Scraper runs queries on a bounded pool of browser sessions and reports
// results through its event bus.
type Scraper struct {
	cfg      config.ScraperConfig
	bus      *events.Bus
	launcher Launcher
	strategy Strategy
	urls     URLBuilder
	logger   *zap.Logger
	clock    Clock
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithClock replaces the wall clock used by every wait.
func WithClock(c Clock) Option {
	return func(s *Scraper) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// New creates a scraper. The strategy is picked once from the presence of
// the session token in cfg.
func New(cfg config.ScraperConfig, bus *events.Bus, launcher Launcher, opts ...Option) *Scraper {
	s := &Scraper{
		cfg:      cfg,
		bus:      bus,
		launcher: launcher,
		logger:   zap.NewNop(),
		clock:    RealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Concurrency < 1 {
		s.cfg.Concurrency = 1
	}

	mode := ModeFor(cfg)
	s.logger = s.logger.Named("scraper")
	s.strategy = NewStrategy(mode, s.cfg, bus, s.clock, s.logger)
	s.urls = NewURLBuilder(s.cfg, mode)
	s.logger.Info("Scraper initialized", zap.Stringer("mode", mode), zap.Int("concurrency", s.cfg.Concurrency))
	return s
}

// Mode reports the strategy chosen at construction.
func (s *Scraper) Mode() Mode { return s.strategy.Mode() }

// Bus returns the event bus listeners subscribe to.
func (s *Scraper) Bus() *events.Bus { return s.bus }

// Run validates and merges queries, then runs one task per query with at most
// Concurrency tasks in flight. It blocks until every task has finished. A
// failing task never cancels its siblings; failures are returned together as
// a *RunError. Validation failures are returned before any browser starts.
func (s *Scraper) Run(ctx context.Context, queries []domain.Query, global *domain.QueryOptions) error {
	if err := global.Validate(); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return ve.WithPrefix("options")
		}
		return err
	}

	merged := make([]domain.Query, len(queries))
	for i, q := range queries {
		if err := q.Validate(); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return ve.WithPrefix(fmt.Sprintf("queries[%d]", i))
			}
			return err
		}
		merged[i] = q.Merge(global)
	}

	var (
		mu       sync.Mutex
		failures []QueryFailure
	)
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, q := range merged {
		q := q
		g.Go(func() error {
			if fs := s.runQuery(ctx, q); len(fs) > 0 {
				mu.Lock()
				failures = append(failures, fs...)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return &RunError{Failures: failures}
	}
	return ctx.Err()
}

// runQuery owns one browser session for every location of q, in sequence.
func (s *Scraper) runQuery(ctx context.Context, q domain.Query) (failures []QueryFailure) {
	log := s.logger.With(zap.String("query", q.Keyword))
	fail := func(location string, err error) {
		failures = append(failures, QueryFailure{Query: q.Keyword, Location: location, Err: err})
	}

	defer func() {
		if err := s.bus.Emit(events.End); err != nil {
			fail("", err)
		}
	}()

	if err := s.bus.Emit(events.Begin); err != nil {
		fail("", err)
		return failures
	}
	if ctx.Err() != nil {
		return failures
	}

	b, err := s.launcher.Launch(ctx)
	if err != nil {
		log.Error("Failed to launch browser", zap.Error(err))
		fail("", fmt.Errorf("launch browser: %w", err))
		s.report(ctx, log, err)
		return failures
	}
	defer b.Close()

	for i, location := range q.Options.Locations {
		if i > 0 {
			if _, err := b.CloseExtraTabs(ctx, nil); err != nil {
				log.Debug("Tab cleanup failed", zap.Error(err))
			}
		}

		searchURL := s.urls.Build(q, location)
		log.Info("Starting run", zap.String("location", location), zap.String("url", searchURL))
		_, err := s.strategy.Run(ctx, b, searchURL, q, location)
		if err == nil {
			continue
		}

		var (
			cbErr  *events.CallbackError
			sesErr *InvalidSessionError
		)
		switch {
		case ctx.Err() != nil:
			fail(location, ctx.Err())
			return failures
		case errors.As(err, &cbErr):
			log.Error("Listener failed, aborting query", zap.String("location", location), zap.Error(err))
			fail(location, err)
			return failures
		case errors.As(err, &sesErr):
			fail(location, err)
		default:
			log.Error("Run failed", zap.String("location", location), zap.Error(err))
			fail(location, err)
			s.report(ctx, log, err)
		}
	}
	return failures
}

// report publishes err as an ERROR event.
func (s *Scraper) report(ctx context.Context, log *zap.Logger, err error) {
	if ctx.Err() != nil {
		return
	}
	if emitErr := s.bus.Emit(events.Error, err.Error()); emitErr != nil {
		log.Error("Failed to publish error", zap.Error(emitErr))
	}
}
