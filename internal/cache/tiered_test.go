package cache

import (
	"context"
	"errors"
	"testing"
)

type countingManager struct {
	Manager
	gets, puts int
}

func (m *countingManager) Get(ctx context.Context, key Key) (*ResultEntry, error) {
	m.gets++
	return m.Manager.Get(ctx, key)
}

func (m *countingManager) Put(ctx context.Context, key Key, e *ResultEntry) error {
	m.puts++
	return m.Manager.Put(ctx, key, e)
}

type failingManager struct{}

func (failingManager) Get(context.Context, Key) (*ResultEntry, error) { return nil, ErrCacheMiss }
func (failingManager) Put(context.Context, Key, *ResultEntry) error  { return errors.New("disk full") }
func (failingManager) Delete(context.Context, Key) error             { return nil }

func TestTieredCache_WarmsMemoryOnPersistentHit(t *testing.T) {
	ctx := context.Background()
	disk := &countingManager{Manager: NewLocalDiskCache(t.TempDir())}
	key := testKey("class A {}")
	if err := disk.Manager.Put(ctx, key, NewResultEntry(key, testResult())); err != nil {
		t.Fatal(err)
	}

	c := NewTieredCache(New(), disk)
	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, key); err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
	}
	if disk.gets != 1 {
		t.Errorf("expected one persistent read, got %d", disk.gets)
	}
	if c.Stats().Hits != 2 {
		t.Errorf("expected 2 memory hits, got %+v", c.Stats())
	}
}

func TestTieredCache_PutWritesBothTiers(t *testing.T) {
	ctx := context.Background()
	disk := &countingManager{Manager: NewLocalDiskCache(t.TempDir())}
	c := NewTieredCache(New(), disk)
	key := testKey("class A {}")

	if err := c.Put(ctx, key, NewResultEntry(key, testResult())); err != nil {
		t.Fatal(err)
	}
	if disk.puts != 1 {
		t.Errorf("expected a persistent write, got %d", disk.puts)
	}
	if _, err := c.Get(ctx, key); err != nil || disk.gets != 0 {
		t.Errorf("expected a memory hit, got err %v and %d persistent reads", err, disk.gets)
	}
}

func TestTieredCache_PersistentFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	c := NewTieredCache(New(), failingManager{})
	key := testKey("x")
	if err := c.Put(ctx, key, NewResultEntry(key, testResult())); err != nil {
		t.Errorf("expected persistent error to be swallowed, got %v", err)
	}
	if _, err := c.Get(ctx, key); err != nil {
		t.Errorf("expected memory hit, got %v", err)
	}
}

func TestTieredCache_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := NewTieredCache(New(), nil)
	if _, err := c.Get(ctx, testKey("x")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
	if err := c.Delete(ctx, testKey("x")); err != nil {
		t.Error(err)
	}
}

func TestTieredCache_Clear(t *testing.T) {
	ctx := context.Background()
	c := NewTieredCache(New(), NewLocalDiskCache(t.TempDir()))
	for _, src := range []string{"class A {}", "class B {}"} {
		key := testKey(src)
		if err := c.Put(ctx, key, NewResultEntry(key, testResult())); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 persistent entries removed, got %d", n)
	}
	if _, err := c.Get(ctx, testKey("class A {}")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected a miss after clear, got %v", err)
	}
}
