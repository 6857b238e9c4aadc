package sink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/events"
)

// Set is the group of sinks enabled by configuration.
type Set struct {
	sinks   []Sink
	cleaner *Cleaner
	logger  *zap.Logger
}

// Open connects every enabled sink. Sinks opened before a failure are closed.
func Open(ctx context.Context, cfg config.SinksConfig, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := &Set{logger: logger.Named("sink")}
	if cfg.SanitizeHTML {
		set.cleaner = NewCleaner()
	}

	if cfg.File.Enabled {
		fs, err := NewFileSink(cfg.File.Dir)
		if err != nil {
			return nil, err
		}
		set.Add(fs)
	}
	if cfg.Redis.Enabled {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.Add(NewRedisSink(client, cfg.Redis.Queue))
	}
	if cfg.Postgres.Enabled {
		ps, err := NewPostgresSink(ctx, cfg.Postgres)
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.Add(ps)
	}

	for _, s := range set.sinks {
		set.logger.Info("Sink enabled", zap.String("sink", s.Name()))
	}
	return set, nil
}

// Add appends s to the set.
func (st *Set) Add(s Sink) {
	st.sinks = append(st.sinks, s)
}

// Len is the number of sinks in the set.
func (st *Set) Len() int { return len(st.sinks) }

// Attach subscribes every sink to the Data events of bus. With dataFile set
// the file sink follows DataFile events instead.
func (st *Set) Attach(ctx context.Context, bus *events.Bus, dataFile bool) error {
	for _, s := range st.sinks {
		kind := events.Data
		if _, ok := s.(*FileSink); ok && dataFile {
			kind = events.DataFile
		}
		if _, err := Attach(ctx, bus, kind, s, st.cleaner, st.logger); err != nil {
			return err
		}
	}
	return nil
}

// Pinger is implemented by sinks backed by a remote store.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// Pingers returns the sinks that can report their health.
func (st *Set) Pingers() []Pinger {
	var out []Pinger
	for _, s := range st.sinks {
		if p, ok := s.(Pinger); ok {
			out = append(out, p)
		}
	}
	return out
}

// Close closes every sink.
func (st *Set) Close() error {
	var errs []error
	for _, s := range st.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
