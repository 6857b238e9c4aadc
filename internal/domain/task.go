package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// ScrapeStatus represents the status of a scraping task
type ScrapeStatus string

const (
	ScrapeStatusQueued     ScrapeStatus = "queued"
	ScrapeStatusInProgress ScrapeStatus = "in_progress"
	ScrapeStatusCompleted  ScrapeStatus = "completed"
	ScrapeStatusFailed     ScrapeStatus = "failed"
)

// Finished reports whether the task reached a terminal status.
func (s ScrapeStatus) Finished() bool {
	return s == ScrapeStatusCompleted || s == ScrapeStatusFailed
}

// ScrapeRequest is the body of a scrape submission.
type ScrapeRequest struct {
	Queries []Query       `json:"queries"`
	Options *QueryOptions `json:"options,omitempty"`
}

// Validate checks the global options and every query.
func (r ScrapeRequest) Validate() error {
	if err := r.Options.Validate(); err != nil {
		return prefixed(err, "options")
	}
	if len(r.Queries) == 0 {
		return &ValidationError{Field: "queries", Reason: "must not be empty"}
	}
	for i, q := range r.Queries {
		if err := q.Validate(); err != nil {
			return prefixed(err, fmt.Sprintf("queries[%d]", i))
		}
	}
	return nil
}

func prefixed(err error, prefix string) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.WithPrefix(prefix)
	}
	return err
}

// ScrapeTask represents a background scraping task
type ScrapeTask struct {
	ID      uuid.UUID    `json:"id"`
	Queries []string     `json:"queries"`
	Mode    string       `json:"mode"`
	Status  ScrapeStatus `json:"status"`

	JobsFound      int      `json:"jobs_found"`
	QueriesStarted int      `json:"queries_started"`
	QueriesDone    int      `json:"queries_done"`
	InvalidSession bool     `json:"invalid_session"`
	Errors         []string `json:"errors,omitempty"`
	Error          *string  `json:"error,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
