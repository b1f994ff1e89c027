package seq

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	Next      int64
	UpdatedAt time.Time
}

// Local keeps counters in-process (default).
// Optional cleanup loop to prune long-idle counters.
type Local struct {
	mu       sync.Mutex
	counters map[string]localEntry
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once

	retention time.Duration
}

var _ Allocator = (*Local)(nil)

func NewLocal(cleanupInterval, retention time.Duration) *Local {
	s := &Local{
		counters:  make(map[string]localEntry),
		retention: retention,
	}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Local) Next(_ context.Context, k string, floor int64) (int64, error) {
	now := time.Now()
	s.mu.Lock()
	e := s.counters[k]
	v := max(e.Next, floor)
	e.Next = v + 1
	e.UpdatedAt = now
	s.counters[k] = e
	s.mu.Unlock()
	return v, nil
}

func (s *Local) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	for k, e := range s.counters {
		if e.UpdatedAt.Before(cutoff) {
			delete(s.counters, k)
		}
	}
	s.mu.Unlock()
}

func (s *Local) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop() // stop ticker before waiting
			s.wg.Wait()
		}
	})
	return nil
}
