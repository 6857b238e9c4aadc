package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/browser"
	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
)

// Mode selects the extraction strategy.
type Mode int

const (
	ModeAnonymous Mode = iota
	ModeAuthenticated
)

func (m Mode) String() string {
	switch m {
	case ModeAnonymous:
		return "anonymous"
	case ModeAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeFor picks the strategy mode for cfg: authenticated when a session
// token is configured.
func ModeFor(cfg config.ScraperConfig) Mode {
	if cfg.Authenticated() {
		return ModeAuthenticated
	}
	return ModeAnonymous
}

// RunOutcome summarizes one (query, location) run.
type RunOutcome struct {
	Metrics domain.EventMetrics
	// Pages is the number of result pages walked.
	Pages int
	// Visited is the number of cards the job loop reached.
	Visited int
}

// Encountered is the number of card slots accounted for, visited or missed.
func (o RunOutcome) Encountered() int {
	return o.Visited + o.Metrics.Missed
}

// Strategy runs the pagination engine for one (query, location) pair.
type Strategy interface {
	Mode() Mode
	Run(ctx context.Context, b Browser, searchURL string, q domain.Query, location string) (RunOutcome, error)
}

// variant holds what differs between page shapes.
type variant interface {
	Mode() Mode
	selectors() Selectors
	// start performs INIT and VERIFY_SESSION. false without error ends the run
	// with zero results.
	start(ctx context.Context, r *run) (bool, error)
	preparePage(ctx context.Context, r *run)
	checkSession(ctx context.Context, r *run) error
	// skip returns the deny-lists honored by this mode.
	skip(q domain.Query) *domain.SkipOptions
	applyLink(ctx context.Context, r *run, sec secondaryFields) string
}

// AuthenticatedStrategy drives the signed-in search page.
type AuthenticatedStrategy struct {
	engine *engine
	sel    Selectors
}

// AnonymousStrategy drives the public guest search page.
type AnonymousStrategy struct {
	engine *engine
	sel    Selectors
}

func (s *AuthenticatedStrategy) Mode() Mode           { return ModeAuthenticated }
func (s *AuthenticatedStrategy) selectors() Selectors { return s.sel }

func (s *AuthenticatedStrategy) Run(ctx context.Context, b Browser, searchURL string, q domain.Query, location string) (RunOutcome, error) {
	return s.engine.run(ctx, s, b, searchURL, q, location)
}

func (s *AuthenticatedStrategy) start(ctx context.Context, r *run) (bool, error) {
	cfg := r.cfg
	if err := r.open(ctx, cfg.HomeURL); err != nil {
		return false, err
	}

	if !r.b.IsAuthenticated(ctx, cfg.CookieName) {
		r.logger.Info("Setting authentication cookie")
		err := r.b.SetCookie(ctx, browser.Cookie{
			Name:     cfg.CookieName,
			Value:    cfg.SessionToken,
			Domain:   cfg.CookieDomain,
			Secure:   true,
			HTTPOnly: true,
		})
		if err != nil {
			r.logger.Error("Failed to set authentication cookie", zap.Error(err))
		}
	}

	r.logger.Info("Opening search page", zap.String("url", r.searchURL))
	if err := r.open(ctx, r.searchURL); err != nil {
		return false, err
	}

	if !r.b.IsAuthenticated(ctx, cfg.CookieName) {
		r.logger.Error("The provided session cookie is invalid")
		if err := r.bus.Emit(events.InvalidSession); err != nil {
			return false, err
		}
		return false, &InvalidSessionError{Query: r.q.Keyword, Location: r.location}
	}
	return true, nil
}

func (s *AuthenticatedStrategy) preparePage(ctx context.Context, r *run) {
	if err := r.b.Evaluate(ctx, scriptHousekeeping, nil, s.sel); err != nil {
		r.logger.Debug("Page housekeeping failed", zap.Error(err))
	}
}

// checkSession emits INVALID_SESSION when the cookie disappears mid run.
// The run continues; requests may still succeed sporadically.
func (s *AuthenticatedStrategy) checkSession(ctx context.Context, r *run) error {
	if r.b.IsAuthenticated(ctx, r.cfg.CookieName) {
		r.sessionLost = false
		return nil
	}
	if r.sessionLost {
		return nil
	}
	r.sessionLost = true
	r.logger.Warn("Session is no longer valid, this may cause the scraper to fail")
	return r.bus.Emit(events.InvalidSession)
}

func (s *AuthenticatedStrategy) skip(q domain.Query) *domain.SkipOptions {
	return q.Options.Skip
}

// applyLink clicks the apply button and reads the URL of the tab it opens.
func (s *AuthenticatedStrategy) applyLink(ctx context.Context, r *run, _ secondaryFields) string {
	current, err := r.b.CurrentURL(ctx)
	if err != nil {
		r.logger.Debug("Apply link: current url", zap.Error(err))
		return ""
	}
	before := map[string]bool{}
	if targets, err := r.b.Targets(ctx); err == nil {
		for _, t := range targets {
			before[t.ID] = true
		}
	}

	var clicked bool
	if err := r.b.Evaluate(ctx, scriptClickApply, &clicked, s.sel); err != nil || !clicked {
		return ""
	}

	main := r.b.MainTarget()
	var link string
	found, err := PollUntil(ctx, r.clock, r.cfg.ApplyLinkInterval, r.cfg.ApplyLinkTimeout, func(ctx context.Context) (bool, error) {
		targets, err := r.b.Targets(ctx)
		if err != nil {
			return false, nil
		}
		for _, t := range targets {
			if t.ID == main || before[t.ID] || t.URL == "" || t.URL == "about:blank" || t.URL == current {
				continue
			}
			link = t.URL
			if err := r.b.CloseTarget(ctx, t.ID); err != nil {
				r.logger.Debug("Apply link: close tab", zap.Error(err))
			}
			return true, nil
		}
		return false, nil
	})
	if err != nil || !found {
		r.logger.Warn("Failed to extract apply link", zap.Error(err))
		return ""
	}
	return link
}

func (s *AnonymousStrategy) Mode() Mode           { return ModeAnonymous }
func (s *AnonymousStrategy) selectors() Selectors { return s.sel }

func (s *AnonymousStrategy) Run(ctx context.Context, b Browser, searchURL string, q domain.Query, location string) (RunOutcome, error) {
	return s.engine.run(ctx, s, b, searchURL, q, location)
}

func (s *AnonymousStrategy) start(ctx context.Context, r *run) (bool, error) {
	r.logger.Info("Opening search page", zap.String("url", r.searchURL))
	if err := r.open(ctx, r.searchURL); err != nil {
		return false, err
	}

	current, err := r.b.CurrentURL(ctx)
	if err != nil {
		r.logger.Debug("Auth wall check failed", zap.Error(err))
		return true, nil
	}
	if isAuthWall(current, s.sel.AuthWallPath) {
		msg := "Scraper failed to run in anonymous mode, authentication may be necessary for this environment"
		r.logger.Error(msg, zap.String("url", current))
		if err := r.bus.Emit(events.Error, msg); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *AnonymousStrategy) preparePage(context.Context, *run) {}

func (s *AnonymousStrategy) checkSession(context.Context, *run) error { return nil }

func (s *AnonymousStrategy) skip(domain.Query) *domain.SkipOptions { return nil }

// applyLink uses the offsite apply href read with the secondary fields.
func (s *AnonymousStrategy) applyLink(_ context.Context, _ *run, sec secondaryFields) string {
	return sec.ApplyLink
}

func isAuthWall(rawURL, marker string) bool {
	if marker == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Path), strings.ToLower(marker))
}
