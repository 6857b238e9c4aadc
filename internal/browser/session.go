package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrLoadTimeout is returned by Open when the load event did not fire in time.
// The document is usually still usable.
var ErrLoadTimeout = errors.New("page load timed out")

// Script is a named JavaScript function body. The body receives the call
// arguments as the array args and may return any JSON value.
type Script struct {
	Name string
	Body string
}

// Cookie is a browser cookie.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Target is a browser target such as a tab.
type Target struct {
	ID   string
	Type string
	URL  string
}

// Session is one browser process with its main tab. It is owned by a single
// worker and must not be shared.
type Session struct {
	ctx             context.Context
	cancel          context.CancelFunc
	logger          *zap.Logger
	pageLoadTimeout time.Duration

	closeOnce sync.Once

	mu       sync.Mutex
	statuses map[int64]int
}

func (s *Session) onEvent(ev any) {
	e, ok := ev.(*network.EventResponseReceived)
	if !ok || e.Response == nil {
		return
	}
	s.mu.Lock()
	s.statuses[e.Response.Status]++
	s.mu.Unlock()
	if e.Response.Status == 429 {
		s.logger.Warn("Rate limited by remote", zap.String("url", e.Response.URL))
	}
}

// run executes actions on the tab, aborting when ctx is done.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Open navigates the main tab to url and waits for the load event.
func (s *Session) Open(ctx context.Context, url string) error {
	loadCtx := ctx
	if s.pageLoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, s.pageLoadTimeout)
		defer cancel()
	}

	err := s.run(loadCtx, chromedp.Navigate(url))
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		s.logger.Warn("Page load timeout", zap.String("url", url), zap.Duration("timeout", s.pageLoadTimeout))
		return fmt.Errorf("open %s: %w", url, ErrLoadTimeout)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// Evaluate runs script with args and decodes its JSON result into out.
// out may be nil when the result is not needed.
func (s *Session) Evaluate(ctx context.Context, script Script, out any, args ...any) error {
	expr, err := wrapScript(script, args)
	if err != nil {
		return err
	}

	var raw []byte
	if err := s.run(ctx, chromedp.Evaluate(expr, &raw)); err != nil {
		return fmt.Errorf("evaluate %s: %w", script.Name, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", script.Name, err)
	}
	return nil
}

// wrapScript turns a function body into a self-invoking expression that never
// evaluates to undefined.
func wrapScript(script Script, args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode %s args: %w", script.Name, err)
	}
	return fmt.Sprintf("(() => { const args = %s; const res = (function() {\n%s\n})(); return res === undefined ? null : res; })()",
		encoded, script.Body), nil
}

// Cookie returns the named cookie of the current page, or nil when absent.
func (s *Session) Cookie(ctx context.Context, name string) (*Cookie, error) {
	var found *Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			if c.Name == name {
				found = &Cookie{
					Name:     c.Name,
					Value:    c.Value,
					Domain:   c.Domain,
					Path:     c.Path,
					Secure:   c.Secure,
					HTTPOnly: c.HTTPOnly,
				}
				return nil
			}
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("get cookie %s: %w", name, err)
	}
	return found, nil
}

// SetCookie installs c in the browser.
func (s *Session) SetCookie(ctx context.Context, c Cookie) error {
	path := c.Path
	if path == "" {
		path = "/"
	}
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(path).
			WithSecure(c.Secure).
			WithHTTPOnly(c.HTTPOnly).
			Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set cookie %s: %w", c.Name, err)
	}
	return nil
}

// IsAuthenticated reports whether the named cookie is present right now.
func (s *Session) IsAuthenticated(ctx context.Context, cookieName string) bool {
	c, err := s.Cookie(ctx, cookieName)
	if err != nil {
		s.logger.Debug("Session check failed", zap.Error(err))
		return false
	}
	return c != nil && c.Value != ""
}

// CurrentURL returns the main tab's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("current url: %w", err)
	}
	return loc, nil
}

// MainTarget returns the id of the session's own tab.
func (s *Session) MainTarget() string {
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil {
		return ""
	}
	return string(c.Target.TargetID)
}

// Targets lists the page targets of the browser.
func (s *Session) Targets(ctx context.Context) ([]Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := chromedp.Targets(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	out := make([]Target, 0, len(infos))
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		out = append(out, Target{ID: string(info.TargetID), Type: info.Type, URL: info.URL})
	}
	return out, nil
}

// CloseTarget closes a tab other than the main one.
func (s *Session) CloseTarget(ctx context.Context, id string) error {
	if id == s.MainTarget() {
		return fmt.Errorf("close target %s: refusing to close the main tab", id)
	}
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Browser == nil {
		return fmt.Errorf("close target %s: %w", id, chromedp.ErrInvalidContext)
	}
	if err := target.CloseTarget(target.ID(id)).Do(cdp.WithExecutor(ctx, c.Browser)); err != nil {
		return fmt.Errorf("close target %s: %w", id, err)
	}
	return nil
}

// CloseExtraTabs closes every page target except the main tab and those
// keep accepts. It returns the number of tabs closed.
func (s *Session) CloseExtraTabs(ctx context.Context, keep func(Target) bool) (int, error) {
	targets, err := s.Targets(ctx)
	if err != nil {
		return 0, err
	}
	main := s.MainTarget()
	closed := 0
	for _, t := range targets {
		if t.ID == main || (keep != nil && keep(t)) {
			continue
		}
		if err := s.CloseTarget(ctx, t.ID); err != nil {
			s.logger.Debug("Close tab failed", zap.String("url", t.URL), zap.Error(err))
			continue
		}
		closed++
	}
	return closed, nil
}

// StatusCounts returns how many responses were seen per HTTP status.
func (s *Session) StatusCounts() map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out
}

// Close shuts the browser down. It is safe to call more than once and never fails.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Warn("Browser close panicked", zap.Any("panic", r))
			}
		}()
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("Browser close", zap.Error(err))
		}
		s.cancel()
		if n := s.StatusCounts()[429]; n > 0 {
			s.logger.Warn("Session saw rate limiting", zap.Int("responses_429", n))
		}
	})
}
