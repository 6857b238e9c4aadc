package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resume-rag/jobscraper/internal/api/handlers"
	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
)

type runnerFunc func(ctx context.Context, queries []domain.Query, global *domain.QueryOptions) error

func (f runnerFunc) Run(ctx context.Context, queries []domain.Query, global *domain.QueryOptions) error {
	return f(ctx, queries, global)
}

// emittingFactory publishes one job per query, then returns err.
func emittingFactory(err error) RunnerFactory {
	return func(bus *events.Bus) (Runner, error) {
		return runnerFunc(func(_ context.Context, queries []domain.Query, _ *domain.QueryOptions) error {
			for _, q := range queries {
				_ = bus.Emit(events.Begin)
				_ = bus.Emit(events.Data, domain.EventData{Query: q.Keyword, JobID: "1"})
				if err != nil {
					_ = bus.Emit(events.Error, err.Error())
				}
				_ = bus.Emit(events.End)
			}
			return err
		}), nil
	}
}

type pinger struct {
	name string
	err  error
}

func (p pinger) Name() string               { return p.name }
func (p pinger) Ping(context.Context) error { return p.err }

func newApp(m *TaskManager, stores ...handlers.Pinger) *fiber.App {
	app := fiber.New()
	SetupRoutes(app, &Dependencies{Scrapes: m, Stores: stores})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

const validBody = `{"queries":[{"query":"Engineer","options":{"limit":2}},{"query":"SRE"}],"options":{"locations":["Berlin"]}}`

func TestTriggerScrapeAndPollStatus(t *testing.T) {
	m := NewTaskManager(emittingFactory(nil), "anonymous", 10, nil)
	app := newApp(m)

	status, body := do(t, app, http.MethodPost, "/api/scrape", validBody)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "anonymous", body["mode"])
	id, ok := body["task_id"].(string)
	require.True(t, ok)

	m.Wait()

	status, body = do(t, app, http.MethodGet, "/api/scrape/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(domain.ScrapeStatusCompleted), body["status"])
	assert.EqualValues(t, 2, body["jobs_found"])
	assert.EqualValues(t, 2, body["queries_started"])
	assert.EqualValues(t, 2, body["queries_done"])
	assert.Equal(t, []any{"Engineer", "SRE"}, body["queries"])
	assert.NotNil(t, body["finished_at"])
}

func TestTriggerScrapeRejectsInvalidQueries(t *testing.T) {
	calls := 0
	factory := func(bus *events.Bus) (Runner, error) {
		calls++
		return emittingFactory(nil)(bus)
	}
	m := NewTaskManager(factory, "anonymous", 10, nil)
	app := newApp(m)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"negative limit", `{"queries":[{"query":"Engineer","options":{"limit":-1}}]}`, "queries[0].limit"},
		{"no queries", `{"queries":[]}`, "queries"},
		{"company url", `{"queries":[{"query":"x","options":{"filters":{"company_jobs_url":"https://www.linkedin.com/jobs"}}}]}`, "queries[0].filters.company_jobs_url"},
		{"blank location", `{"queries":[{"query":"x"}],"options":{"locations":[" "]}}`, "options.locations[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodPost, "/api/scrape", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "invalid_query", body["error"])
			assert.Equal(t, tt.field, body["field"])
		})
	}

	status, body := do(t, app, http.MethodPost, "/api/scrape", `{"queries":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", body["error"])

	assert.Zero(t, calls)
	assert.Empty(t, m.List(context.Background()))
}

func TestFailedTaskReportsError(t *testing.T) {
	m := NewTaskManager(emittingFactory(errors.New("1 run(s) failed")), "authenticated", 10, nil)
	app := newApp(m)

	_, body := do(t, app, http.MethodPost, "/api/scrape", validBody)
	id := body["task_id"].(string)
	m.Wait()

	_, body = do(t, app, http.MethodGet, "/api/scrape/"+id, "")
	assert.Equal(t, string(domain.ScrapeStatusFailed), body["status"])
	assert.Equal(t, "1 run(s) failed", body["error"])
	assert.Len(t, body["errors"], 2)
}

func TestGetScrapeStatusErrors(t *testing.T) {
	app := newApp(NewTaskManager(emittingFactory(nil), "anonymous", 10, nil))

	status, body := do(t, app, http.MethodGet, "/api/scrape/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", body["error"])

	status, body = do(t, app, http.MethodGet, "/api/scrape/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestFinishedTasksAreEvicted(t *testing.T) {
	m := NewTaskManager(emittingFactory(nil), "anonymous", 1, nil)
	app := newApp(m)

	_, first := do(t, app, http.MethodPost, "/api/scrape", validBody)
	m.Wait()
	_, second := do(t, app, http.MethodPost, "/api/scrape", validBody)
	m.Wait()

	status, body := do(t, app, http.MethodGet, "/api/scrape", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, _ = do(t, app, http.MethodGet, "/api/scrape/"+first["task_id"].(string), "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, app, http.MethodGet, "/api/scrape/"+second["task_id"].(string), "")
	assert.Equal(t, http.StatusOK, status)
}

func TestHealth(t *testing.T) {
	m := NewTaskManager(emittingFactory(nil), "authenticated", 10, nil)
	app := newApp(m, pinger{name: "redis"}, pinger{name: "postgres", err: errors.New("down")})

	status, body := do(t, app, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "authenticated", body["mode"])
	assert.Equal(t, map[string]any{"redis": "healthy", "postgres": "unavailable"}, body["sinks"])
}
