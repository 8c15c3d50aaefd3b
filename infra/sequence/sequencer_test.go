package sequence

import (
	"sync"
	"testing"
)

func TestNextMonotonic(t *testing.T) {
	s := New(0)
	prev := uint64(0)
	for i := 0; i < 1000; i++ {
		v := s.Next()
		if v <= prev {
			t.Fatalf("Next() = %d after %d, not strictly increasing", v, prev)
		}
		prev = v
	}
}

func TestNextConcurrentUnique(t *testing.T) {
	s := New(0)
	const workers = 8
	const perWorker = 10000

	var mu sync.Mutex
	seen := make(map[uint64]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, s.Next())
			}
			mu.Lock()
			for _, v := range local {
				if seen[v] {
					t.Errorf("id %d issued twice", v)
				}
				seen[v] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Fatalf("issued %d unique ids, want %d", len(seen), workers*perWorker)
	}
}

func TestFloor(t *testing.T) {
	s := New(0)
	s.Floor(500)
	if v := s.Next(); v != 501 {
		t.Errorf("Next after Floor(500) = %d, want 501", v)
	}
	s.Floor(100) // lowering is a no-op
	if v := s.Next(); v != 502 {
		t.Errorf("Next after no-op floor = %d, want 502", v)
	}
}
