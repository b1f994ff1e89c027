package seq

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalNextIsStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	last := int64(-1)
	for i := 0; i < 100; i++ {
		v, err := s.Next(ctx, "a", 0)
		if err != nil {
			t.Fatal(err)
		}
		if v <= last {
			t.Fatalf("index %d not above %d", v, last)
		}
		last = v
	}
	if v, _ := s.Next(ctx, "b", 0); v != 0 {
		t.Fatalf("independent key should start at 0, got %d", v)
	}
}

func TestLocalNextHonorsFloor(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if v, _ := s.Next(ctx, "k", 10); v != 10 {
		t.Fatalf("got %d want 10", v)
	}
	// floor below the counter is ignored
	if v, _ := s.Next(ctx, "k", 3); v != 11 {
		t.Fatalf("got %d want 11", v)
	}
}

func TestLocalNextConcurrentUnique(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				v, _ := s.Next(ctx, "k", 0)
				mu.Lock()
				if seen[v] {
					t.Errorf("duplicate index %d", v)
				}
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Fatalf("got %d unique indices want 800", len(seen))
	}
}

func TestLocalCleanupPrunesOld(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, time.Second) // retention=1s
	t.Cleanup(func() { _ = s.Close(ctx) })

	for i := 0; i < 5; i++ {
		if _, err := s.Next(ctx, "old", 0); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(1200 * time.Millisecond)
	s.Cleanup(time.Second)

	// counter forgotten; the floor still protects committed indices
	v, err := s.Next(ctx, "old", 3)
	if err != nil {
		t.Fatal(err)
	}
	if v != 3 {
		t.Fatalf("expected pruned counter to restart at floor 3, got %d", v)
	}
}

func TestLocalCloseIsIdempotent(t *testing.T) {
	s := NewLocal(time.Millisecond, time.Hour)
	_ = s.Close(context.Background())
	_ = s.Close(context.Background())
}
