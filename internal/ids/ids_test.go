package ids

import (
	"sync"
	"testing"
)

func TestNewIsUniqueAndOrdered(t *testing.T) {
	prev := New()
	if len(prev) != 26 {
		t.Fatalf("unexpected id length %d: %q", len(prev), prev)
	}
	for i := 0; i < 1000; i++ {
		next := New()
		if next == prev {
			t.Fatalf("duplicate id %q", next)
		}
		if next < prev {
			t.Fatalf("ids must be monotonic: %q after %q", next, prev)
		}
		prev = next
	}
}

func TestNewIsSafeForConcurrentUse(t *testing.T) {
	const perGoroutine = 200
	var (
		mu  sync.Mutex
		all = make(map[string]struct{})
		wg  sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				local = append(local, New())
			}
			mu.Lock()
			for _, id := range local {
				all[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(all) != 8*perGoroutine {
		t.Fatalf("expected %d unique ids, got %d", 8*perGoroutine, len(all))
	}
}
