package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/chris-regnier/sharplint/internal/cache")

var _ Manager = (*DiskCache)(nil)

// DiskCache persists result entries as msgpack blobs in a Storage.
type DiskCache struct {
	storage Storage
}

func NewDiskCache(storage Storage) *DiskCache {
	return &DiskCache{storage: storage}
}

// NewLocalDiskCache stores entries under dir.
func NewLocalDiskCache(dir string) *DiskCache {
	return NewDiskCache(NewLocalStorage(dir))
}

func (c *DiskCache) Get(ctx context.Context, key Key) (*ResultEntry, error) {
	ctx, span := tracer.Start(ctx, "cache.get")
	defer span.End()

	hash := key.Hash()
	span.SetAttributes(attribute.String("sharplint.cache.key", hash))

	data, err := c.storage.Get(ctx, hash)
	if errors.Is(err, ErrCacheMiss) {
		span.SetAttributes(attribute.Bool("sharplint.cache.hit", false))
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fail(span, err)
	}

	var entry ResultEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, fail(span, fmt.Errorf("decoding cache entry %s: %w", hash, err))
	}
	// entries from an older encoding are treated as absent
	if entry.Schema != schemaVersion || entry.KeyHash != hash {
		span.SetAttributes(attribute.Bool("sharplint.cache.hit", false))
		return nil, ErrCacheMiss
	}

	span.SetAttributes(attribute.Bool("sharplint.cache.hit", true))
	return &entry, nil
}

func (c *DiskCache) Put(ctx context.Context, key Key, entry *ResultEntry) error {
	ctx, span := tracer.Start(ctx, "cache.put")
	defer span.End()

	hash := key.Hash()
	span.SetAttributes(
		attribute.String("sharplint.cache.key", hash),
		attribute.Int("sharplint.cache.diagnostics", len(entry.Diagnostics)),
	)

	entry.Schema = schemaVersion
	entry.KeyHash = hash
	entry.Timestamp = time.Now().Unix()
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fail(span, fmt.Errorf("encoding cache entry: %w", err))
	}
	if err := c.storage.Put(ctx, hash, data); err != nil {
		return fail(span, err)
	}
	return nil
}

func (c *DiskCache) Delete(ctx context.Context, key Key) error {
	return c.storage.Delete(ctx, key.Hash())
}

// Clear deletes every stored entry.
func (c *DiskCache) Clear(ctx context.Context) (int, error) {
	keys, err := c.storage.List(ctx, "")
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := c.storage.Delete(ctx, k); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
