package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
)

// PostgresSink stores each job once, keyed by its listing id.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// NewPostgresSink connects using cfg and creates the table if needed.
func NewPostgresSink(ctx context.Context, cfg config.PostgresConfig) (*PostgresSink, error) {
	pool, err := NewPostgresPool(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	s := &PostgresSink{pool: pool, table: pgx.Identifier{cfg.Table}.Sanitize()}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         BIGSERIAL PRIMARY KEY,
			job_id     TEXT NOT NULL UNIQUE,
			query      TEXT NOT NULL,
			location   TEXT NOT NULL,
			title      TEXT NOT NULL,
			company    TEXT NOT NULL,
			link       TEXT NOT NULL,
			raw_data   JSONB NOT NULL,
			scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table))
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// Write inserts job unless a row with the same job id already exists. Jobs
// without an id are not stored since they cannot be deduplicated.
func (s *PostgresSink) Write(ctx context.Context, job domain.EventData) error {
	if job.JobID == "" {
		return nil
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = s.pool.Exec(ctx, insertJobSQL(s.table),
		job.JobID, job.Query, job.Location, job.Title, job.Company, job.Link, string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.JobID, err)
	}
	return nil
}

// insertJobSQL leaves concurrent writers of the same job id to the unique
// constraint, so a duplicate is a no-op rather than an error.
func insertJobSQL(table string) string {
	return fmt.Sprintf(
		`INSERT INTO %s (job_id, query, location, title, company, link, raw_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		 ON CONFLICT (job_id) DO NOTHING`, table)
}

func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
