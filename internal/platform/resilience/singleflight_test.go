package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[string]
	var counter atomic.Int32
	var sharedCount atomic.Int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err, shared := g.Do("token-key", func() (string, error) {
				counter.Add(1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			if v != "ok" {
				t.Errorf("unexpected value %q", v)
			}
			if shared {
				sharedCount.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := counter.Load(); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
	if got := sharedCount.Load(); got != workers-1 {
		t.Fatalf("expected %d shared results, got %d", workers-1, got)
	}
}

func TestSingleFlight_RunsAgainAfterCompletion(t *testing.T) {
	var g SingleFlight[int]
	calls := 0
	for i := 0; i < 3; i++ {
		if _, _, shared := g.Do("k", func() (int, error) { calls++; return calls, nil }); shared {
			t.Fatalf("sequential call should not be shared")
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 executions, got %d", calls)
	}
}
