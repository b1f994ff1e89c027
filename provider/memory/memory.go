// Package memory is an in-process Provider backed by a plain map.
// It is the reference local-heap store and the default for tests.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/casstream/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Memory struct {
	mu sync.Mutex
	m  map[string]entry
}

var _ pr.Provider = (*Memory)(nil)

func New() *Memory { return &Memory{m: make(map[string]entry)} }

// load returns the live entry for key, dropping it if expired. Caller holds mu.
func (p *Memory) load(key string) ([]byte, bool) {
	e, ok := p.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false
	}
	return e.v, true
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	v, ok := p.load(key)
	p.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = entry{v: bytes.Clone(value), exp: exp}
	p.mu.Unlock()
	return true, nil
}

func (p *Memory) CompareAndSwap(_ context.Context, key string, old, next []byte) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.load(key)
	if !matches(cur, ok, old) {
		return false, nil
	}
	p.m[key] = entry{v: bytes.Clone(next)}
	return true, nil
}

func (p *Memory) CompareAndDelete(_ context.Context, key string, old []byte) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.load(key)
	if !ok || !bytes.Equal(cur, old) {
		return false, nil
	}
	delete(p.m, key)
	return true, nil
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

// Len reports the number of stored keys, expired ones included.
func (p *Memory) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

func (p *Memory) Topology() pr.Topology      { return pr.TopologyLocalHeap }
func (p *Memory) Close(context.Context) error { return nil }

// matches reports whether the stored state (cur, present) is what the caller expects.
// A nil expectation means the key must be absent.
func matches(cur []byte, present bool, old []byte) bool {
	if old == nil {
		return !present
	}
	return present && bytes.Equal(cur, old)
}
