// Package browser owns headless Chrome sessions driven over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/config"
)

// ErrClosed is returned by launchers and sessions used after Close.
var ErrClosed = errors.New("browser closed")

// DefaultUserAgents is the rotation used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// Launcher starts one browser process per session from a shared allocator.
type Launcher struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	cfg      config.BrowserConfig

	mu     sync.Mutex
	closed bool
}

// NewLauncher prepares the exec allocator. No browser is started until Launch.
func NewLauncher(logger *zap.Logger, cfg config.BrowserConfig) *Launcher {
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	return &Launcher{
		allocCtx: allocCtx,
		cancel:   cancel,
		logger:   logger.Named("browser"),
		cfg:      cfg,
	}
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	}

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}
	if cfg.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	return opts
}

// Launch starts a browser and opens its first tab.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	tabCtx, cancel := chromedp.NewContext(l.allocCtx)
	stop := context.AfterFunc(ctx, cancel)

	ua := pickUserAgent(l.cfg.UserAgents)
	s := &Session{
		ctx:             tabCtx,
		cancel:          cancel,
		logger:          l.logger,
		pageLoadTimeout: l.cfg.PageLoadTimeout,
		statuses:        make(map[int64]int),
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(ua).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return page.SetBypassCSP(true).Do(ctx)
		}),
	)
	stop()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	l.logger.Debug("Browser session started", zap.String("user_agent", ua))
	return s, nil
}

// Close shuts down the allocator and every browser it started.
func (l *Launcher) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.cancel()
}

func pickUserAgent(agents []string) string {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	return agents[rand.Intn(len(agents))]
}
