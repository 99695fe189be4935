package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/attemptlog"
)

// RedisSink keeps per-domain technique counters in a Redis hash:
// HINCRBY fpguard:attempts:{domain} {technique} 1, plus a global
// per-technique hash for the dashboard totals.
type RedisSink struct {
	URL       string
	KeyPrefix string

	client *redis.Client
}

func NewRedisSink(url string) *RedisSink {
	return &RedisSink{URL: url, KeyPrefix: "fpguard"}
}

func (s *RedisSink) Start(ctx context.Context) error {
	opt, err := redis.ParseURL(s.URL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	s.client = client
	return nil
}

func (s *RedisSink) Enqueue(a attemptlog.Attempt) error {
	if s.client == nil {
		return fmt.Errorf("redis sink not started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, s.KeyPrefix+":attempts:"+a.Domain, a.Technique, 1)
	pipe.HIncrBy(ctx, s.KeyPrefix+":techniques", a.Technique, 1)
	pipe.HSet(ctx, s.KeyPrefix+":last_seen", a.Technique+"|"+a.Domain, a.TimestampMillis)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment redis counters: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisSink) Name() string { return "redis" }
