package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_CollapsesConcurrentLoads(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "principal", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "token-a", loader)
			if err != nil {
				errCh <- err
				return
			}
			if v != "principal" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Minute)
	var calls atomic.Int32
	loader := func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("upstream down")
		}
		return 7, nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err == nil {
		t.Fatalf("expected first load to fail")
	}
	v, err := store.GetOrLoad(context.Background(), "k", loader)
	if err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}
	if v != 7 {
		t.Fatalf("unexpected value: %d", v)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("loader called %d times, want 2", got)
	}
}

func TestStore_ExpiresEntries(t *testing.T) {
	store := NewStore[string](time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "k", "v")
	store.SetWithTTL(context.Background(), "short", "v", 10*time.Second)

	now = now.Add(30 * time.Second)
	if _, ok := store.Get(context.Background(), "short"); ok {
		t.Fatalf("expected short-lived entry to expire")
	}
	if _, ok := store.Get(context.Background(), "k"); !ok {
		t.Fatalf("expected entry to still be cached")
	}

	now = now.Add(time.Minute)
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected entry to expire after ttl")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entries to be evicted, got %d", store.Len())
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	store := NewStore[int](0)
	store.Set(context.Background(), "group:g1:status", 1)
	store.Set(context.Background(), "group:g1:draws", 2)
	store.Set(context.Background(), "group:g2:status", 3)

	store.DeletePrefix(context.Background(), "group:g1:")

	if _, ok := store.Get(context.Background(), "group:g1:status"); ok {
		t.Fatalf("expected g1 status to be removed")
	}
	if v, ok := store.Get(context.Background(), "group:g2:status"); !ok || v != 3 {
		t.Fatalf("expected g2 status to survive, got %d %v", v, ok)
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
