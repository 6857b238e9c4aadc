package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
)

// Runner executes a batch of queries. *scraper.Scraper implements it.
type Runner interface {
	Run(ctx context.Context, queries []domain.Query, global *domain.QueryOptions) error
}

// RunnerFactory builds a runner publishing on bus. Sinks are expected to be
// attached to bus by the factory.
type RunnerFactory func(bus *events.Bus) (Runner, error)

// TaskManager runs scrape requests in the background and tracks their
// progress through the event bus of each run.
type TaskManager struct {
	newRunner RunnerFactory
	mode      string
	maxTasks  int
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.ScrapeTask
	now   func() time.Time
}

// NewTaskManager creates a manager keeping at most maxTasks tasks, evicting
// finished ones first.
func NewTaskManager(newRunner RunnerFactory, mode string, maxTasks int, logger *zap.Logger) *TaskManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTasks < 1 {
		maxTasks = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		newRunner: newRunner,
		mode:      mode,
		maxTasks:  maxTasks,
		logger:    logger.Named("tasks"),
		ctx:       ctx,
		cancel:    cancel,
		tasks:     map[uuid.UUID]*domain.ScrapeTask{},
		now:       time.Now,
	}
}

// Mode is the extraction mode runs are started in.
func (m *TaskManager) Mode() string { return m.mode }

// Submit validates req and starts it in the background. Validation errors are
// returned as *domain.ValidationError and start nothing.
func (m *TaskManager) Submit(_ context.Context, req domain.ScrapeRequest) (*domain.ScrapeTask, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	bus := events.NewBus()
	runner, err := m.newRunner(bus)
	if err != nil {
		return nil, err
	}

	task := &domain.ScrapeTask{
		ID:        uuid.New(),
		Mode:      m.mode,
		Status:    domain.ScrapeStatusQueued,
		CreatedAt: m.now(),
	}
	for _, q := range req.Queries {
		task.Queries = append(task.Queries, q.Keyword)
	}
	if err := m.track(bus, task.ID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.evict()
	snapshot := *task
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(runner, task.ID, req)

	m.logger.Info("Scrape task submitted", zap.String("task_id", task.ID.String()), zap.Int("queries", len(req.Queries)))
	return &snapshot, nil
}

func (m *TaskManager) run(runner Runner, id uuid.UUID, req domain.ScrapeRequest) {
	defer m.wg.Done()

	m.update(id, func(t *domain.ScrapeTask) {
		started := m.now()
		t.StartedAt = &started
		t.Status = domain.ScrapeStatusInProgress
	})

	err := runner.Run(m.ctx, req.Queries, req.Options)

	m.update(id, func(t *domain.ScrapeTask) {
		finished := m.now()
		t.FinishedAt = &finished
		if err != nil {
			msg := err.Error()
			t.Error = &msg
			t.Status = domain.ScrapeStatusFailed
			return
		}
		t.Status = domain.ScrapeStatusCompleted
	})
	if err != nil {
		m.logger.Warn("Scrape task failed", zap.String("task_id", id.String()), zap.Error(err))
		return
	}
	m.logger.Info("Scrape task completed", zap.String("task_id", id.String()))
}

// track subscribes the task counters to bus.
func (m *TaskManager) track(bus *events.Bus, id uuid.UUID) error {
	listeners := map[events.Kind]any{
		events.Data: func(domain.EventData) {
			m.update(id, func(t *domain.ScrapeTask) { t.JobsFound++ })
		},
		events.Error: func(msg string) {
			m.update(id, func(t *domain.ScrapeTask) { t.Errors = append(t.Errors, msg) })
		},
		events.InvalidSession: func() {
			m.update(id, func(t *domain.ScrapeTask) { t.InvalidSession = true })
		},
		events.Begin: func() {
			m.update(id, func(t *domain.ScrapeTask) { t.QueriesStarted++ })
		},
		events.End: func() {
			m.update(id, func(t *domain.ScrapeTask) { t.QueriesDone++ })
		},
	}
	for kind, fn := range listeners {
		if _, err := bus.On(kind, fn); err != nil {
			return err
		}
	}
	return nil
}

func (m *TaskManager) update(id uuid.UUID, fn func(*domain.ScrapeTask)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		fn(t)
	}
}

// evict drops the oldest finished tasks beyond maxTasks. Callers hold mu.
func (m *TaskManager) evict() {
	if len(m.tasks) <= m.maxTasks {
		return
	}
	finished := make([]*domain.ScrapeTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.Status.Finished() {
			finished = append(finished, t)
		}
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].CreatedAt.Before(finished[j].CreatedAt) })
	for _, t := range finished {
		if len(m.tasks) <= m.maxTasks {
			return
		}
		delete(m.tasks, t.ID)
	}
}

// Get returns a copy of the task.
func (m *TaskManager) Get(_ context.Context, id uuid.UUID) (*domain.ScrapeTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	c := copyTask(t)
	return &c, nil
}

// List returns copies of every tracked task, newest first.
func (m *TaskManager) List(context.Context) []domain.ScrapeTask {
	m.mu.Lock()
	out := make([]domain.ScrapeTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, copyTask(t))
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Shutdown cancels running tasks and waits for them to return.
func (m *TaskManager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}

// Wait blocks until every submitted task has finished.
func (m *TaskManager) Wait() {
	m.wg.Wait()
}

func copyTask(t *domain.ScrapeTask) domain.ScrapeTask {
	c := *t
	c.Queries = append([]string(nil), t.Queries...)
	c.Errors = append([]string(nil), t.Errors...)
	return c
}
