// Package redis backs the notification dedup set with a shared Redis
// instance so a restart or a re-polled block range cannot double-notify.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

// DefaultDedupTTL bounds how long a notified transaction key is remembered.
// Pollers only ever re-read a narrow recent window, so an hour is plenty.
const DefaultDedupTTL = time.Hour

type Dedup struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedup(url string, ttl time.Duration) (*Dedup, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Dedup{client: client, ttl: ttl}, nil
}

func (d *Dedup) Close() error {
	return d.client.Close()
}

func dedupKey(chain model.Chain, key string) string {
	return fmt.Sprintf("lensbot:dedup:%s:%s", chain, key)
}

func (d *Dedup) Seen(ctx context.Context, chain model.Chain, key string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(chain, key)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup exists: %w", err)
	}
	return n > 0, nil
}

func (d *Dedup) Record(ctx context.Context, chain model.Chain, key string) error {
	if err := d.client.Set(ctx, dedupKey(chain, key), 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup record: %w", err)
	}
	return nil
}
