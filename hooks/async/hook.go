// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/casstream"
//	"github.com/unkn0wn-root/casstream/hooks/async"
//	"github.com/unkn0wn-root/casstream/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    ConflictEvery: 10, // sample logs: ~every 10th CAS conflict
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	store, _ := casstream.New(casstream.Options{
//	    Namespace: "video",
//	    Provider:  provider,
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/casstream"
)

type Hooks struct {
	inner   casstream.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ casstream.Hooks = (*Hooks)(nil)

func New(inner casstream.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped counts events discarded because the queue was full.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on closed queue
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) CASConflict(k, op string, n int) { h.try(func() { h.inner.CASConflict(k, op, n) }) }
func (h *Hooks) ProviderSetRejected(k string)    { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) ParticipationBlocked(k, op string, r, w int) {
	h.try(func() { h.inner.ParticipationBlocked(k, op, r, w) })
}
func (h *Hooks) ContentionTimeout(k, op string, n int, waited time.Duration) {
	h.try(func() { h.inner.ContentionTimeout(k, op, n, waited) })
}
func (h *Hooks) CorruptChunk(k string, idx int64, reason string) {
	h.try(func() { h.inner.CorruptChunk(k, idx, reason) })
}
func (h *Hooks) StaleChunkCleanupFailed(k string, err error) {
	h.try(func() { h.inner.StaleChunkCleanupFailed(k, err) })
}
