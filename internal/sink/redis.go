package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/resume-rag/jobscraper/internal/config"
	"github.com/resume-rag/jobscraper/internal/domain"
)

// RedisSink pushes jobs onto a Redis list for downstream workers.
type RedisSink struct {
	client *redis.Client
	queue  string
}

// NewRedisClient connects and pings the configured server.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisSink pushes onto queue, jobs:scraped when empty.
func NewRedisSink(client *redis.Client, queue string) *RedisSink {
	if queue == "" {
		queue = "jobs:scraped"
	}
	return &RedisSink{client: client, queue: queue}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, job domain.EventData) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.LPush(ctx, s.queue, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// QueueLength returns the current queue length
func (s *RedisSink) QueueLength(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, s.queue).Result()
}

func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
