// Package sink persists scraped jobs published on the event bus.
package sink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/domain"
	"github.com/resume-rag/jobscraper/internal/events"
)

// Sink stores one job at a time.
type Sink interface {
	Name() string
	Write(ctx context.Context, job domain.EventData) error
	Close() error
}

// Attach subscribes s to kind. Jobs pass through cleaner first when it is not
// nil. A write failure is returned to the publisher, which aborts that query.
func Attach(ctx context.Context, bus *events.Bus, kind events.Kind, s Sink, cleaner *Cleaner, log *zap.Logger) (events.ListenerID, error) {
	if log == nil {
		log = zap.NewNop()
	}
	id, err := bus.On(kind, func(job domain.EventData) error {
		if err := s.Write(ctx, cleaner.Job(job)); err != nil {
			log.Error("Sink write failed",
				zap.String("sink", s.Name()),
				zap.String("job_id", job.JobID),
				zap.Error(err),
			)
			return fmt.Errorf("%s sink: %w", s.Name(), err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("attach %s sink: %w", s.Name(), err)
	}
	return id, nil
}
