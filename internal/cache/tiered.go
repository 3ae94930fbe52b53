package cache

import (
	"context"
	"log/slog"
)

var _ Manager = (*TieredCache)(nil)

// TieredCache fronts a persistent Manager with the in-memory Cache. A
// persistent hit warms memory; writes go to both tiers.
type TieredCache struct {
	memory     *Cache
	persistent Manager // may be nil
}

func NewTieredCache(memory *Cache, persistent Manager) *TieredCache {
	return &TieredCache{memory: memory, persistent: persistent}
}

func (c *TieredCache) Get(ctx context.Context, key Key) (*ResultEntry, error) {
	hash := key.Hash()
	if v, ok := c.memory.Get(hash); ok {
		return v.(*ResultEntry), nil
	}
	if c.persistent == nil {
		return nil, ErrCacheMiss
	}
	entry, err := c.persistent.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.memory.Set(hash, entry)
	return entry, nil
}

// Put always stores in memory. A persistent write failure is logged and not
// returned.
func (c *TieredCache) Put(ctx context.Context, key Key, entry *ResultEntry) error {
	c.memory.Set(key.Hash(), entry)
	if c.persistent == nil {
		return nil
	}
	if err := c.persistent.Put(ctx, key, entry); err != nil {
		slog.Warn("writing persistent cache", "err", err)
	}
	return nil
}

func (c *TieredCache) Delete(ctx context.Context, key Key) error {
	c.memory.Delete(key.Hash())
	if c.persistent == nil {
		return nil
	}
	return c.persistent.Delete(ctx, key)
}

// Stats reports the memory tier's statistics.
func (c *TieredCache) Stats() Stats {
	return c.memory.Stats()
}

// Clear empties the memory tier and, when it supports clearing, the
// persistent tier. It returns the number of persistent entries removed.
func (c *TieredCache) Clear(ctx context.Context) (int, error) {
	c.memory.Clear()
	p, ok := c.persistent.(interface {
		Clear(context.Context) (int, error)
	})
	if !ok {
		return 0, nil
	}
	return p.Clear(ctx)
}
