package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/resume-rag/jobscraper/internal/domain"
)

// FileSink appends jobs as JSON lines, one file per query, location and day.
type FileSink struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	files  map[string]*os.File
	closed bool
}

// NewFileSink creates dir if needed and writes one file per query, location and day.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &FileSink{dir: dir, now: time.Now, files: map[string]*os.File{}}, nil
}

func (s *FileSink) Name() string { return "file" }

// Path returns the file a job for query and location is written to today.
func (s *FileSink) Path(query, location string) string {
	name := fmt.Sprintf("%s_%s_%s.jsonl", slug(query), slug(location), s.now().Format("2006-01-02"))
	return filepath.Join(s.dir, name)
}

func (s *FileSink) Write(_ context.Context, job domain.EventData) error {
	line, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("file sink is closed")
	}

	path := s.Path(job.Query, job.Location)
	f, ok := s.files[path]
	if !ok {
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		s.files[path] = f
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var errs []error
	for path, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
	}
	s.files = map[string]*os.File{}
	return errors.Join(errs...)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "any"
	}
	return out
}
