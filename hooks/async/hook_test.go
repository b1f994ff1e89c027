package asynchook

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/casstream"
)

type recorder struct {
	casstream.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (r *recorder) add(ev string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) CASConflict(string, string, int)                      { r.add("conflict") }
func (r *recorder) CorruptChunk(string, int64, string)                   { r.add("corrupt") }
func (r *recorder) StaleChunkCleanupFailed(string, error)                { r.add("stale") }
func (r *recorder) ContentionTimeout(string, string, int, time.Duration) { r.add("timeout") }

func TestAsyncDeliversBeforeClose(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 2, 16)

	h.CASConflict("m", "acquire-write", 0)
	h.CorruptChunk("c", 1, "missing")
	h.StaleChunkCleanupFailed("c", errors.New("x"))
	h.ContentionTimeout("m", "acquire-read", 3, time.Millisecond)
	h.Close()

	if len(rec.events) != 4 {
		t.Fatalf("want 4 events, got %v", rec.events)
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped = %d", h.Dropped())
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// one event held by the worker, one in the queue, the rest dropped
	for i := 0; i < 10; i++ {
		h.CASConflict("m", "commit-write", i)
	}
	close(rec.block)
	h.Close()

	if got := uint64(len(rec.events)) + h.Dropped(); got != 10 {
		t.Fatalf("delivered+dropped = %d, want 10", got)
	}
	if h.Dropped() < 8 {
		t.Fatalf("dropped = %d, want >= 8", h.Dropped())
	}
}

func TestAsyncAfterCloseIsDropped(t *testing.T) {
	h := New(casstream.NopHooks{}, 1, 4)
	h.Close()
	h.ProviderSetRejected("c")
	if h.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", h.Dropped())
	}
}
