package local

import (
	"context"
	"encoding/json"
	"log/slog"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

// Cache implements port/prompt.SnapshotCache on top of a local blob.
// It is only a paint cache: the authoritative backend may be remote.
type Cache struct {
	store *Store
}

var _ portprompt.SnapshotCache = (*Cache)(nil)

func NewCache(kv portprompt.KV) *Cache {
	return &Cache{store: New(kv, CacheKey)}
}

// Load reports ok=false when the cache is empty or cannot be read.
func (c *Cache) Load(ctx context.Context) ([]domainprompt.Prompt, bool) {
	data, err := c.store.kv.Get(ctx, CacheKey)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var prompts []domainprompt.Prompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		slog.Warn("local: ignoring unreadable snapshot cache", "error", err)
		return nil, false
	}
	return domainprompt.Clone(prompts), true
}

func (c *Cache) Save(ctx context.Context, prompts []domainprompt.Prompt) error {
	if err := c.store.Save(ctx, prompts); err != nil {
		slog.Warn("local: snapshot cache write failed", "error", err)
		return err
	}
	return nil
}
