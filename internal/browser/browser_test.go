package browser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/config"
)

func TestWrapScript(t *testing.T) {
	expr, err := wrapScript(Script{Name: "sum", Body: "return args[0] + args[1];"}, []any{1, 2})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(expr, "(() => { const args = [1,2];"))
	assert.Contains(t, expr, "return args[0] + args[1];")
	assert.True(t, strings.HasSuffix(expr, "})()"))

	expr, err = wrapScript(Script{Name: "noop", Body: ""}, nil)
	require.NoError(t, err)
	assert.Contains(t, expr, "const args = [];")
	assert.Contains(t, expr, "res === undefined ? null : res")

	_, err = wrapScript(Script{Name: "bad"}, []any{func() {}})
	assert.Error(t, err)
}

func TestPickUserAgent(t *testing.T) {
	assert.Contains(t, DefaultUserAgents, pickUserAgent(nil))
	assert.Equal(t, "custom", pickUserAgent([]string{"custom"}))
}

func TestAllocatorOptions(t *testing.T) {
	base := len(allocatorOptions(config.BrowserConfig{}))

	full := allocatorOptions(config.BrowserConfig{
		Headless:      true,
		WindowWidth:   800,
		WindowHeight:  600,
		ChromePath:    "/usr/bin/chromium",
		ProxyURL:      "http://proxy:3128",
		DisableImages: true,
	})
	assert.Equal(t, base+5, len(full))
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{ctx: ctx, cancel: cancel, logger: zap.NewNop(), statuses: map[int64]int{429: 2}}

	assert.NotPanics(t, func() {
		s.Close()
		s.Close()
	})
	assert.Error(t, ctx.Err())
	assert.Equal(t, "", s.MainTarget())
}

func TestSessionStatusCounts(t *testing.T) {
	s := &Session{logger: zap.NewNop(), statuses: make(map[int64]int)}
	s.onEvent("ignored")
	counts := s.StatusCounts()
	assert.Empty(t, counts)

	counts[200] = 5
	assert.Empty(t, s.StatusCounts())
}

func TestLauncherClosed(t *testing.T) {
	l := NewLauncher(zap.NewNop(), config.Default().Browser)
	l.Close()
	l.Close()

	_, err := l.Launch(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
