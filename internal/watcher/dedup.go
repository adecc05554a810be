package watcher

import (
	"context"
	"time"

	"github.com/AsetGithub/evm-lens-bot/internal/cache"
	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

// MemoryDedup is the in-process fallback dedup set, used when no Redis is
// configured. Bounded and TTL-limited; survives re-polled ranges but not
// process restarts.
type MemoryDedup struct {
	seen *cache.TTL[string, struct{}]
}

func NewMemoryDedup(maxEntries int, ttl time.Duration) *MemoryDedup {
	if maxEntries <= 0 {
		maxEntries = 8192
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryDedup{seen: cache.NewTTL[string, struct{}](maxEntries, ttl)}
}

func (d *MemoryDedup) Seen(_ context.Context, chain model.Chain, key string) (bool, error) {
	return d.seen.Contains(string(chain) + ":" + key), nil
}

func (d *MemoryDedup) Record(_ context.Context, chain model.Chain, key string) error {
	d.seen.Set(string(chain)+":"+key, struct{}{})
	return nil
}
