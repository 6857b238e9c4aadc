package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/resume-rag/jobscraper/internal/browser"
	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
)

// fakeClock advances only when something sleeps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

type fakeCard struct {
	ID           string
	Title        string
	Company      string
	Place        string
	Promoted     bool
	Stuck        bool // detail pane never shows this job
	PrimaryErr   error
	Skills       []string
	Description  string
	RemoteBanner string
	ApplyLink    string
}

type fakePage struct {
	Cards []fakeCard
	// More is rendered by the load-more nudge.
	More []fakeCard
}

// fakeSite is the fixture shared by every browser a test launches.
type fakeSite struct {
	SearchURL string
	Pages     map[int]fakePage
	// Redirect replaces the URL of every search page load.
	Redirect    string
	NoContainer bool
	// RejectCookie makes SetCookie a no-op.
	RejectCookie bool
	// DropCookieAfter clears cookies after that many cards were read. Zero never drops.
	DropCookieAfter int
	StartCookies    map[string]string
}

func (s *fakeSite) browser() *fakeBrowser {
	b := &fakeBrowser{site: s, cookies: map[string]string{}}
	for k, v := range s.StartCookies {
		b.cookies[k] = v
	}
	return b
}

type fakeBrowser struct {
	site *fakeSite

	mu       sync.Mutex
	current  string
	opened   []string
	rendered []fakeCard
	more     []fakeCard
	selected int
	reads    int
	cookies  map[string]string
	tabs     []browser.Target
	nextTab  int
	closed   int
}

func (b *fakeBrowser) Open(_ context.Context, rawURL string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = append(b.opened, rawURL)
	b.current = rawURL
	b.rendered, b.more = nil, nil
	if !strings.HasPrefix(rawURL, b.site.SearchURL) {
		return nil
	}
	if b.site.Redirect != "" {
		b.current = b.site.Redirect
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	start, _ := strconv.Atoi(u.Query().Get("start"))
	page := b.site.Pages[start]
	b.rendered = append([]fakeCard(nil), page.Cards...)
	b.more = append([]fakeCard(nil), page.More...)
	return nil
}

func (b *fakeBrowser) Evaluate(_ context.Context, script browser.Script, out any, args ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res any
	switch script.Name {
	case scriptContainer.Name:
		res = !b.site.NoContainer && len(b.rendered) > 0
	case scriptCountCards.Name:
		res = len(b.rendered)
	case scriptTotalResults.Name:
		res = fmt.Sprintf("%d results", len(b.rendered))
	case scriptPrimary.Name:
		i := args[1].(int)
		if i >= len(b.rendered) {
			res = map[string]any{"found": false}
			break
		}
		c := b.rendered[i]
		if c.PrimaryErr != nil {
			return c.PrimaryErr
		}
		b.selected = i
		b.reads++
		if b.site.DropCookieAfter > 0 && b.reads >= b.site.DropCookieAfter {
			b.cookies = map[string]string{}
		}
		res = map[string]any{
			"found":    true,
			"jobId":    c.ID,
			"title":    "  " + c.Title + "\n",
			"company":  c.Company,
			"place":    c.Place,
			"date":     "2024-01-01",
			"link":     "https://www.linkedin.com/jobs/view/" + c.ID,
			"promoted": c.Promoted,
		}
	case scriptDetailsLoaded.Name:
		c := b.rendered[b.selected]
		res = !c.Stuck && args[1].(string) == c.ID
	case scriptSecondary.Name:
		c := b.rendered[b.selected]
		res = map[string]any{
			"descriptionText": c.Description,
			"descriptionHtml": "<p>" + c.Description + "</p>",
			"skills":          c.Skills,
			"remoteBanner":    c.RemoteBanner,
			"criteria":        map[string]string{"Seniority level": "Mid-Senior level"},
			"applyLink":       c.ApplyLink,
		}
	case scriptHousekeeping.Name:
	case scriptClickApply.Name:
		c := b.rendered[b.selected]
		if c.ApplyLink == "" {
			res = false
			break
		}
		b.nextTab++
		b.tabs = append(b.tabs, browser.Target{ID: fmt.Sprintf("tab-%d", b.nextTab), Type: "page", URL: c.ApplyLink})
		res = true
	case scriptLoadMore.Name:
		b.rendered = append(b.rendered, b.more...)
		b.more = nil
		res = len(b.rendered)
	default:
		return fmt.Errorf("unexpected script %q", script.Name)
	}

	if out == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (b *fakeBrowser) Cookie(_ context.Context, name string) (*browser.Cookie, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.cookies[name]
	if !ok {
		return nil, nil
	}
	return &browser.Cookie{Name: name, Value: v}, nil
}

func (b *fakeBrowser) SetCookie(_ context.Context, c browser.Cookie) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.site.RejectCookie {
		b.cookies[c.Name] = c.Value
	}
	return nil
}

func (b *fakeBrowser) IsAuthenticated(_ context.Context, name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cookies[name] != ""
}

func (b *fakeBrowser) CurrentURL(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, nil
}

func (b *fakeBrowser) MainTarget() string { return "main" }

func (b *fakeBrowser) Targets(context.Context) ([]browser.Target, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []browser.Target{{ID: "main", Type: "page", URL: b.current}}
	return append(out, b.tabs...), nil
}

func (b *fakeBrowser) CloseTarget(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.tabs {
		if t.ID == id {
			b.tabs = append(b.tabs[:i], b.tabs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no target %s", id)
}

func (b *fakeBrowser) CloseExtraTabs(ctx context.Context, keep func(browser.Target) bool) (int, error) {
	targets, _ := b.Targets(ctx)
	n := 0
	for _, t := range targets {
		if t.ID == "main" || (keep != nil && keep(t)) {
			continue
		}
		if err := b.CloseTarget(ctx, t.ID); err == nil {
			n++
		}
	}
	return n, nil
}

func (b *fakeBrowser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
}

func (b *fakeBrowser) searchOpens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, u := range b.opened {
		if strings.HasPrefix(u, b.site.SearchURL) {
			out = append(out, u)
		}
	}
	return out
}

// recorder collects bus events.
type recorder struct {
	mu             sync.Mutex
	data           []domain.EventData
	metrics        []domain.EventMetrics
	errors         []string
	invalidSession int
	begin          int
	end            int
}

func record(bus *events.Bus) *recorder {
	r := &recorder{}
	must(bus.On(events.Data, func(d domain.EventData) { r.mu.Lock(); r.data = append(r.data, d); r.mu.Unlock() }))
	must(bus.On(events.Metrics, func(m domain.EventMetrics) { r.mu.Lock(); r.metrics = append(r.metrics, m); r.mu.Unlock() }))
	must(bus.On(events.Error, func(msg string) { r.mu.Lock(); r.errors = append(r.errors, msg); r.mu.Unlock() }))
	must(bus.On(events.InvalidSession, func() { r.mu.Lock(); r.invalidSession++; r.mu.Unlock() }))
	must(bus.On(events.Begin, func() { r.mu.Lock(); r.begin++; r.mu.Unlock() }))
	must(bus.On(events.End, func() { r.mu.Lock(); r.end++; r.mu.Unlock() }))
	return r
}

func (r *recorder) lastMetrics() domain.EventMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.metrics) == 0 {
		return domain.EventMetrics{}
	}
	return r.metrics[len(r.metrics)-1]
}

func must(_ events.ListenerID, err error) {
	if err != nil {
		panic(err)
	}
}

func testConfig() config.ScraperConfig {
	cfg := config.Default().Scraper
	cfg.Dialect.PageSize = 3
	return cfg
}

func cards(prefix string, n int) []fakeCard {
	out := make([]fakeCard, n)
	for i := range out {
		out[i] = fakeCard{
			ID:      fmt.Sprintf("%s%d", prefix, i),
			Title:   fmt.Sprintf("Engineer %s%d", prefix, i),
			Company: "Acme",
			Place:   "Remote",
		}
	}
	return out
}

func query(keyword string, opts domain.QueryOptions) domain.Query {
	return domain.NewQuery(keyword, opts).Merge(nil)
}
