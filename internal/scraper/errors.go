package scraper

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNavigationTimeout marks a container or pagination wait that found nothing.
	// It ends a run normally.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrDetailsTimeout marks a detail pane that never showed the clicked job.
	ErrDetailsTimeout = errors.New("timeout on loading job details")
	errCardMissing    = errors.New("job card not found")
	errNoJobID        = errors.New("job card has no id")
)

// InvalidSessionError reports that the authentication cookie could not be established.
type InvalidSessionError struct {
	Query    string
	Location string
}

func (e *InvalidSessionError) Error() string {
	return fmt.Sprintf("[%s][%s] the provided session cookie is invalid", e.Query, e.Location)
}

// ExtractionError is a per-card failure. It never leaves the job loop.
type ExtractionError struct {
	Index int
	JobID string
	Step  string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("card %d (job %s): %s: %v", e.Index, e.JobID, e.Step, e.Err)
	}
	return fmt.Sprintf("card %d: %s: %v", e.Index, e.Step, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// QueryFailure is one failed (query, location) run.
type QueryFailure struct {
	Query    string
	Location string
	Err      error
}

// RunError aggregates the failures of a Run call.
type RunError struct {
	Failures []QueryFailure
}

func (e *RunError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		if f.Location != "" {
			parts[i] = fmt.Sprintf("[%s][%s] %v", f.Query, f.Location, f.Err)
		} else {
			parts[i] = fmt.Sprintf("[%s] %v", f.Query, f.Err)
		}
	}
	return fmt.Sprintf("%d run(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
