package scraper

import (
	"context"

	"github.com/resume-rag/jobscraper/internal/browser"
)

// Browser is the capability surface a strategy drives. *browser.Session
// implements it.
type Browser interface {
	Open(ctx context.Context, url string) error
	Evaluate(ctx context.Context, script browser.Script, out any, args ...any) error
	Cookie(ctx context.Context, name string) (*browser.Cookie, error)
	SetCookie(ctx context.Context, c browser.Cookie) error
	IsAuthenticated(ctx context.Context, cookieName string) bool
	CurrentURL(ctx context.Context) (string, error)
	MainTarget() string
	Targets(ctx context.Context) ([]browser.Target, error)
	CloseTarget(ctx context.Context, id string) error
	CloseExtraTabs(ctx context.Context, keep func(browser.Target) bool) (int, error)
	Close()
}

// Launcher opens a fresh browser session.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Browser, error)

func (f LauncherFunc) Launch(ctx context.Context) (Browser, error) { return f(ctx) }

// ChromeLauncher adapts a browser.Launcher.
func ChromeLauncher(l *browser.Launcher) Launcher {
	return LauncherFunc(func(ctx context.Context) (Browser, error) {
		s, err := l.Launch(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

var _ Browser = (*browser.Session)(nil)
