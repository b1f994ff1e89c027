package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	var s Set
	var wg sync.WaitGroup
	n := 0
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock("k")
			n++
			unlock()
		}()
	}
	wg.Wait()
	if n != 64 {
		t.Fatalf("n=%d want 64", n)
	}
}
