package scraper

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/browser"
	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
)

// engine is the pagination state machine shared by both strategies.
type engine struct {
	cfg    config.ScraperConfig
	bus    *events.Bus
	clock  Clock
	logger *zap.Logger
}

// NewStrategy returns the strategy for mode.
func NewStrategy(mode Mode, cfg config.ScraperConfig, bus *events.Bus, clock Clock, logger *zap.Logger) Strategy {
	e := &engine{cfg: cfg, bus: bus, clock: clock, logger: logger}
	if mode == ModeAuthenticated {
		return &AuthenticatedStrategy{engine: e, sel: AuthenticatedSelectors()}
	}
	return &AnonymousStrategy{engine: e, sel: AnonymousSelectors()}
}

// run is the state of one (query, location) traversal.
type run struct {
	*engine
	v         variant
	b         Browser
	sel       Selectors
	q         domain.Query
	location  string
	searchURL string
	logger    *zap.Logger

	limit       int
	pageIndex   int
	metrics     domain.EventMetrics
	pages       int
	visited     int
	sessionLost bool
}

func (e *engine) run(ctx context.Context, v variant, b Browser, searchURL string, q domain.Query, location string) (RunOutcome, error) {
	r := &run{
		engine:    e,
		v:         v,
		b:         b,
		sel:       v.selectors(),
		q:         q,
		location:  location,
		searchURL: searchURL,
		logger: e.logger.With(
			zap.String("query", q.Keyword),
			zap.String("location", location),
			zap.Stringer("mode", v.Mode()),
		),
		limit:     q.Options.LimitValue(),
		pageIndex: q.Options.PageOffsetValue(),
	}

	err := r.execute(ctx)

	outcome := RunOutcome{Metrics: r.metrics, Pages: r.pages, Visited: r.visited}
	r.logger.Info("Run finished",
		zap.Int("processed", r.metrics.Processed),
		zap.Int("failed", r.metrics.Failed),
		zap.Int("skipped", r.metrics.Skipped),
		zap.Int("missed", r.metrics.Missed),
		zap.Int("pages", r.pages),
	)
	if emitErr := r.emitMetrics(); emitErr != nil && err == nil {
		err = emitErr
	}
	return outcome, err
}

func (r *run) execute(ctx context.Context) error {
	ok, err := r.v.start(ctx, r)
	if err != nil || !ok {
		return err
	}

	found, err := r.waitContainer(ctx)
	if err != nil {
		return err
	}
	if !found {
		r.logger.Info("No jobs found, skip")
		return nil
	}
	r.logTotal(ctx)

	for {
		r.pages++
		visited, err := r.jobLoop(ctx)
		if err != nil {
			return err
		}
		if r.limitReached() {
			r.logger.Info("Query limit reached")
			return nil
		}

		if missed := r.pageSize() - visited; missed > 0 {
			r.metrics.Missed += missed
		}
		r.logger.Info("No more jobs to process in this page", zap.Any("metrics", r.metrics))
		if err := r.emitMetrics(); err != nil {
			return err
		}

		ok, err := r.paginate(ctx)
		if err != nil {
			return err
		}
		if !ok {
			r.logger.Info("Couldn't find more jobs for the running query")
			return nil
		}
	}
}

func (r *run) limitReached() bool {
	return r.limit > 0 && r.metrics.Processed >= r.limit
}

func (r *run) pageSize() int {
	if r.cfg.Dialect.PageSize > 0 {
		return r.cfg.Dialect.PageSize
	}
	return config.DefaultDialect().PageSize
}

func (r *run) emitMetrics() error {
	return r.bus.Emit(events.Metrics, r.metrics)
}

// open navigates and lets client side rendering begin. A load timeout is not
// an error; the container wait decides whether the page is usable.
func (r *run) open(ctx context.Context, url string) error {
	if err := r.b.Open(ctx, url); err != nil && !errors.Is(err, browser.ErrLoadTimeout) {
		return err
	}
	return r.clock.Sleep(ctx, r.cfg.SettleDelay)
}

func (r *run) waitContainer(ctx context.Context) (bool, error) {
	found, err := PollUntil(ctx, r.clock, r.cfg.PollInterval, r.cfg.ContainerTimeout, func(ctx context.Context) (bool, error) {
		var ok bool
		if err := r.b.Evaluate(ctx, scriptContainer, &ok, r.sel); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			r.logger.Debug("Container check failed", zap.Error(err))
			return false, nil
		}
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (r *run) logTotal(ctx context.Context) {
	if r.sel.TotalResults == "" {
		return
	}
	var total string
	if err := r.b.Evaluate(ctx, scriptTotalResults, &total, r.sel); err != nil || total == "" {
		r.logger.Debug("Can not obtain total amount of jobs")
		return
	}
	r.logger.Info("Total results", zap.String("total", total))
}

func (r *run) countCards(ctx context.Context) (int, error) {
	var n int
	if err := r.b.Evaluate(ctx, scriptCountCards, &n, r.sel); err != nil {
		return 0, err
	}
	return n, nil
}

// jobLoop walks the cards of the current page and returns how many it visited.
func (r *run) jobLoop(ctx context.Context) (int, error) {
	r.v.preparePage(ctx, r)

	cardCount, err := r.countCards(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		r.logger.Warn("Failed to count job cards", zap.Error(err))
	}
	r.logger.Info("Found jobs", zap.Int("count", cardCount), zap.Int("page", r.pageIndex))

	visited := 0
	for !r.limitReached() {
		if visited >= cardCount {
			if cardCount >= r.pageSize() {
				break
			}
			more, err := r.loadMore(ctx, cardCount)
			if err != nil {
				return visited, err
			}
			if more <= cardCount {
				break
			}
			cardCount = more
		}

		if err := r.processCard(ctx, visited); err != nil {
			return visited, err
		}
		visited++
		r.visited++
	}
	return visited, nil
}

// loadMore nudges the list to render more cards and returns the new count.
func (r *run) loadMore(ctx context.Context, current int) (int, error) {
	if err := r.b.Evaluate(ctx, scriptLoadMore, nil, r.sel); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		r.logger.Debug("Load more failed", zap.Error(err))
		return current, nil
	}

	count := current
	_, err := PollUntil(ctx, r.clock, r.cfg.PollInterval, r.cfg.LoadMoreTimeout, func(ctx context.Context) (bool, error) {
		n, err := r.countCards(ctx)
		if err != nil {
			return false, nil
		}
		count = n
		return n > current, nil
	})
	if err != nil {
		return 0, err
	}
	if count > current {
		r.logger.Debug("Loaded more jobs", zap.Int("count", count))
	}
	return count, nil
}

// paginate opens the next result page by offset on the original search URL.
func (r *run) paginate(ctx context.Context) (bool, error) {
	next := r.pageIndex + 1
	url := WithOffset(r.searchURL, next*r.pageSize())
	r.logger.Info("Pagination requested", zap.Int("page", next), zap.String("url", url))

	if err := r.open(ctx, url); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		r.logger.Warn("Pagination navigation failed", zap.Error(err))
		return false, nil
	}

	ok, err := PollUntil(ctx, r.clock, r.cfg.PollInterval, r.cfg.PaginationTimeout, func(ctx context.Context) (bool, error) {
		n, err := r.countCards(ctx)
		if err != nil {
			return false, nil
		}
		return n > 0, nil
	})
	if err != nil {
		return false, err
	}
	if !ok {
		r.logger.Debug("Pagination wait ended", zap.Error(ErrNavigationTimeout))
		return false, nil
	}
	r.pageIndex = next
	return true, nil
}

// processCard handles one card. Only errors fatal to the run are returned.
func (r *run) processCard(ctx context.Context, i int) error {
	if err := r.clock.Sleep(ctx, r.cfg.SlowMo); err != nil {
		return err
	}
	if err := r.v.checkSession(ctx, r); err != nil {
		return err
	}
	r.closeStrayTabs(ctx)

	log := r.logger.With(zap.Int("job_index", r.visited), zap.String("tag", r.tag(i)))

	var p primaryFields
	if err := r.b.Evaluate(ctx, scriptPrimary, &p, r.sel, i); err != nil {
		return r.cardFailed(ctx, log, &ExtractionError{Index: i, Step: "primary fields", Err: err}, true)
	}
	if !p.Found {
		return r.cardFailed(ctx, log, &ExtractionError{Index: i, Step: "primary fields", Err: errCardMissing}, true)
	}
	p.normalize()
	// The detail pane can only be matched to the card by id.
	if p.JobID == "" {
		return r.cardFailed(ctx, log, &ExtractionError{Index: i, Step: "primary fields", Err: errNoJobID}, true)
	}

	skip := r.v.skip(r.q)
	if reason := r.cheapSkip(p, skip); reason != "" {
		r.metrics.Skipped++
		log.Info("Skipped", zap.String("reason", reason), zap.String("title", p.Title))
		return nil
	}

	loaded, err := PollUntil(ctx, r.clock, r.cfg.PollInterval, r.cfg.DetailsTimeout, func(ctx context.Context) (bool, error) {
		var ok bool
		if err := r.b.Evaluate(ctx, scriptDetailsLoaded, &ok, r.sel, p.JobID); err != nil {
			return false, err
		}
		return ok, nil
	})
	if err != nil {
		return r.cardFailed(ctx, log, &ExtractionError{Index: i, JobID: p.JobID, Step: "job details", Err: err}, true)
	}
	if !loaded {
		return r.cardFailed(ctx, log, &ExtractionError{Index: i, JobID: p.JobID, Step: "job details", Err: ErrDetailsTimeout}, false)
	}

	var sec secondaryFields
	if err := r.b.Evaluate(ctx, scriptSecondary, &sec, r.sel); err != nil {
		return r.cardFailed(ctx, log, &ExtractionError{Index: i, JobID: p.JobID, Step: "secondary fields", Err: err}, true)
	}

	job := r.buildJob(i, p, sec)
	if reason := r.contentSkip(job, sec, skip); reason != "" {
		r.metrics.Skipped++
		log.Info("Skipped", zap.String("reason", reason), zap.String("title", job.Title))
		return nil
	}

	if r.q.Options.ApplyLinkValue() {
		job.ApplyLink = r.v.applyLink(ctx, r, sec)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	r.metrics.Processed++
	log.Info("Processed", zap.String("job_id", job.JobID), zap.String("title", job.Title))
	if err := r.bus.Emit(events.Data, job); err != nil {
		return err
	}
	if r.cfg.EmitDataFile {
		if err := r.bus.Emit(events.DataFile, job); err != nil {
			return err
		}
	}
	return nil
}

// cardFailed records a per-card failure. Context cancellation is fatal.
func (r *run) cardFailed(ctx context.Context, log *zap.Logger, err *ExtractionError, publish bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.metrics.Failed++
	log.Error("Failed to process", zap.Error(err))
	if !publish {
		return nil
	}
	if r.v.Mode() == ModeAuthenticated && !r.b.IsAuthenticated(ctx, r.cfg.CookieName) && !r.sessionLost {
		r.sessionLost = true
		if emitErr := r.bus.Emit(events.InvalidSession); emitErr != nil {
			return emitErr
		}
	}
	return r.bus.Emit(events.Error, err.Error())
}

func (r *run) closeStrayTabs(ctx context.Context) {
	keep := func(t browser.Target) bool {
		return r.sel.JobPagePath != "" && strings.Contains(t.URL, r.sel.JobPagePath)
	}
	if n, err := r.b.CloseExtraTabs(ctx, keep); err != nil {
		r.logger.Debug("Tab cleanup failed", zap.Error(err))
	} else if n > 0 {
		r.logger.Debug("Closed unwanted tabs", zap.Int("count", n))
	}
}

func (r *run) tag(i int) string {
	return domain.Tag(r.q.Keyword, r.location, r.pageIndex*r.pageSize()+i+1)
}

func (r *run) cheapSkip(p primaryFields, skip *domain.SkipOptions) string {
	if p.Promoted && r.q.Options.SkipPromotedValue() {
		return "promoted"
	}
	if deny, ok := skip.MatchTitle(p.Title); ok {
		return "title matches " + deny
	}
	if deny, ok := skip.MatchCompany(p.Company); ok {
		return "company matches " + deny
	}
	return ""
}

func (r *run) contentSkip(job domain.EventData, sec secondaryFields, skip *domain.SkipOptions) string {
	if deny, ok := skip.MatchSkills(job.Skills); ok {
		return "skill matches " + deny
	}
	if deny, ok := skip.MatchDescription(job.Description); ok {
		return "description matches " + deny
	}
	if skip != nil && skip.SkipLocationMismatch && r.sel.LocationMismatchText != "" &&
		strings.Contains(strings.ToLower(sec.RemoteBanner), strings.ToLower(r.sel.LocationMismatchText)) {
		return "location mismatch"
	}
	return ""
}
