package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
)

func job(id, query, location string) domain.EventData {
	return domain.EventData{
		Query:    query,
		Location: location,
		JobID:    id,
		Title:    "Engineer " + id,
		Tag:      domain.Tag(query, location, 1),
	}
}

func readLines(t *testing.T, path string) []domain.EventData {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []domain.EventData
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var d domain.EventData
		require.NoError(t, json.Unmarshal(sc.Bytes(), &d))
		out = append(out, d)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestFileSinkGroupsByQueryAndLocation(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(filepath.Join(dir, "out"))
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, job("1", "Go Developer", "Berlin, Germany")))
	require.NoError(t, s.Write(ctx, job("2", "Go Developer", "Berlin, Germany")))
	require.NoError(t, s.Write(ctx, job("3", "Go Developer", "Remote")))
	require.NoError(t, s.Close())

	berlin := filepath.Join(dir, "out", "go-developer_berlin-germany_2024-03-09.jsonl")
	assert.Equal(t, berlin, s.Path("Go Developer", "Berlin, Germany"))

	got := readLines(t, berlin)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].JobID)
	assert.Equal(t, "2", got[1].JobID)

	remote := readLines(t, filepath.Join(dir, "out", "go-developer_remote_2024-03-09.jsonl"))
	require.Len(t, remote, 1)
	assert.Equal(t, "3", remote[0].JobID)

	assert.Error(t, s.Write(ctx, job("4", "Go Developer", "Remote")))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "senior-c-engineer", slug("  Senior C++ Engineer "))
	assert.Equal(t, "são-paulo", slug("São Paulo"))
	assert.Equal(t, "any", slug("***"))
}

func TestCleaner(t *testing.T) {
	c := NewCleaner()
	out := c.Clean(`<p onclick="x()">Hi<script>alert(1)</script></p><a href="javascript:alert(1)">bad</a><a href="https://example.com">ok</a>`)
	assert.Contains(t, out, "<p>Hi</p>")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "javascript")
	assert.NotContains(t, out, "onclick")
}

func TestCleanerJob(t *testing.T) {
	c := NewCleaner()
	j := job("1", "q", "l")
	j.DescriptionHTML = `<div>Build <b>things</b><iframe src="https://evil"></iframe></div>`

	got := c.Job(j)
	assert.Equal(t, "<div>Build <b>things</b></div>", got.DescriptionHTML)
	assert.Equal(t, "Build things", got.Description)

	var nilCleaner *Cleaner
	assert.Equal(t, j, nilCleaner.Job(j))
}

type memorySink struct {
	jobs []domain.EventData
	err  error
}

func (m *memorySink) Name() string { return "memory" }

func (m *memorySink) Write(_ context.Context, job domain.EventData) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *memorySink) Close() error { return nil }

func TestAttach(t *testing.T) {
	bus := events.NewBus()
	mem := &memorySink{}
	_, err := Attach(context.Background(), bus, events.DataFile, mem, NewCleaner(), nil)
	require.NoError(t, err)

	j := job("1", "q", "l")
	j.DescriptionHTML = "<p>x<script>y</script></p>"
	require.NoError(t, bus.Emit(events.DataFile, j))
	require.NoError(t, bus.Emit(events.Data, job("2", "q", "l")))

	require.Len(t, mem.jobs, 1)
	assert.Equal(t, "<p>x</p>", mem.jobs[0].DescriptionHTML)
}

func TestAttachWriteFailure(t *testing.T) {
	bus := events.NewBus()
	boom := errors.New("disk full")
	_, err := Attach(context.Background(), bus, events.Data, &memorySink{err: boom}, nil, nil)
	require.NoError(t, err)

	err = bus.Emit(events.Data, job("1", "q", "l"))
	var cbErr *events.CallbackError
	require.ErrorAs(t, err, &cbErr)
	assert.ErrorIs(t, err, boom)
}

type pingSink struct {
	memorySink
	closed bool
}

func (p *pingSink) Ping(context.Context) error { return nil }

func (p *pingSink) Close() error {
	p.closed = true
	return nil
}

func TestOpenFileSinkSet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	set, err := Open(context.Background(), config.SinksConfig{
		SanitizeHTML: true,
		File:         config.FileSinkConfig{Enabled: true, Dir: dir},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Empty(t, set.Pingers())

	bus := events.NewBus()
	require.NoError(t, set.Attach(context.Background(), bus, false))

	j := job("1", "Go Dev", "Berlin")
	j.DescriptionHTML = "<p>ok<script>x</script></p>"
	require.NoError(t, bus.Emit(events.Data, j))
	require.NoError(t, set.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "go-dev_berlin_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	lines := readLines(t, matches[0])
	require.Len(t, lines, 1)
	assert.Equal(t, "<p>ok</p>", lines[0].DescriptionHTML)
}

func TestSetPingersAndClose(t *testing.T) {
	set, err := Open(context.Background(), config.SinksConfig{}, nil)
	require.NoError(t, err)
	p := &pingSink{}
	set.Add(&memorySink{})
	set.Add(p)

	pingers := set.Pingers()
	require.Len(t, pingers, 1)
	assert.Equal(t, "memory", pingers[0].Name())

	require.NoError(t, set.Close())
	assert.True(t, p.closed)
}

func TestPostgresInsertIgnoresDuplicates(t *testing.T) {
	sql := insertJobSQL(`"scraped_jobs"`)
	assert.Contains(t, sql, `INSERT INTO "scraped_jobs"`)
	assert.Contains(t, sql, "ON CONFLICT (job_id) DO NOTHING")
	assert.NotContains(t, sql, "NOT EXISTS")
}

func TestPostgresSkipsJobsWithoutID(t *testing.T) {
	// No pool: a job without an id must return before touching the database.
	s := &PostgresSink{table: `"scraped_jobs"`}
	assert.NoError(t, s.Write(context.Background(), job("", "q", "l")))
}

func TestSetAttachFileSinkToDataFile(t *testing.T) {
	dir := t.TempDir()
	set, err := Open(context.Background(), config.SinksConfig{
		File: config.FileSinkConfig{Enabled: true, Dir: dir},
	}, nil)
	require.NoError(t, err)
	mem := &memorySink{}
	set.Add(mem)

	bus := events.NewBus()
	require.NoError(t, set.Attach(context.Background(), bus, true))
	assert.Equal(t, 1, bus.Count(events.Data))
	assert.Equal(t, 1, bus.Count(events.DataFile))

	require.NoError(t, bus.Emit(events.Data, job("1", "q", "l")))
	require.NoError(t, bus.Emit(events.DataFile, job("1", "q", "l")))
	require.NoError(t, set.Close())

	assert.Len(t, mem.jobs, 1)
	matches, err := filepath.Glob(filepath.Join(dir, "q_l_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Len(t, readLines(t, matches[0]), 1)
}
