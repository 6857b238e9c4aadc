// Package scheduler wires up the cron job that periodically runs the
// configured query set.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
)

// Runner executes a batch of queries. *scraper.Scraper implements it.
type Runner interface {
	Run(ctx context.Context, queries []domain.Query, global *domain.QueryOptions) error
}

// LoadFunc returns the query set for the next cycle.
type LoadFunc func() (*config.QuerySet, error)

// FileLoader re-reads path on every cycle so edits apply without a restart.
func FileLoader(path string) LoadFunc {
	return func() (*config.QuerySet, error) { return config.LoadQueries(path) }
}

// Scheduler wraps robfig/cron and manages the scrape loop. A tick that fires
// while the previous cycle is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    cron.Job
	runner Runner
	load   LoadFunc
	logger *zap.Logger

	mu  sync.Mutex
	ctx context.Context
	// first tracks the cycle run by Start outside of cron.
	first sync.WaitGroup
}

// New validates spec and builds a scheduler running the query set from load.
func New(spec string, runner Runner, load LoadFunc, logger *zap.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")

	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl)),
		spec:   spec,
		runner: runner,
		load:   load,
		logger: logger,
		ctx:    context.Background(),
	}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { s.RunNow(s.context()) }))
	return s, nil
}

// Start registers the job and starts the scheduler. One cycle also runs
// immediately so results arrive without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if _, err := s.cron.AddJob(s.spec, s.job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Cron started", zap.String("spec", s.spec))

	s.first.Add(1)
	go func() {
		defer s.first.Done()
		s.job.Run()
	}()
	return nil
}

// Stop stops the scheduler and waits for running cycles to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.first.Wait()
	s.logger.Info("Cron stopped")
}

// RunNow runs one cycle synchronously.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.logger.Info("Scrape cycle started")

	set, err := s.load()
	if err != nil {
		s.logger.Error("Failed to load queries", zap.Error(err))
		return
	}

	s.logger.Info("Running queries", zap.Int("count", len(set.Queries)))
	if err := s.runner.Run(ctx, set.Queries, set.Options); err != nil {
		s.logger.Error("Scrape cycle failed", zap.Error(err))
		return
	}
	s.logger.Info("Scrape cycle complete")
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
