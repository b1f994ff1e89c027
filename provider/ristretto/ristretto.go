package ristretto

import (
	"bytes"
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/casstream/internal/keylock"
	pr "github.com/unkn0wn-root/casstream/provider"
)

// ErrRejected is returned by CompareAndSwap when ristretto's admission policy
// dropped the new value. The old value is gone at that point.
var ErrRejected = errors.New("ristretto: write rejected by admission policy")

type Provider struct {
	c     *rc.Cache
	locks keylock.Set
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost in Ristretto is provided by the caller (casstream passes the byte length).
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return bytes.Clone(b), true, nil
}

// Set waits for ristretto's write buffer to drain so the value is visible to the
// next Get; chunks must be readable before the master that references them.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	unlock := p.locks.Lock(key)
	defer unlock()
	if !p.c.SetWithTTL(key, bytes.Clone(value), cost, ttl) {
		return false, nil
	}
	p.c.Wait()
	_, ok := p.c.Get(key)
	return ok, nil
}

func (p *Provider) CompareAndSwap(_ context.Context, key string, old, next []byte) (bool, error) {
	unlock := p.locks.Lock(key)
	defer unlock()
	if !p.matches(key, old) {
		return false, nil
	}
	if !p.c.SetWithTTL(key, bytes.Clone(next), int64(len(next)), 0) {
		return false, ErrRejected
	}
	p.c.Wait()
	return true, nil
}

func (p *Provider) CompareAndDelete(_ context.Context, key string, old []byte) (bool, error) {
	unlock := p.locks.Lock(key)
	defer unlock()
	if old == nil || !p.matches(key, old) {
		return false, nil
	}
	p.c.Del(key)
	p.c.Wait()
	return true, nil
}

func (p *Provider) matches(key string, old []byte) bool {
	v, ok := p.c.Get(key)
	if old == nil {
		return !ok
	}
	b, _ := v.([]byte)
	return ok && bytes.Equal(b, old)
}

func (p *Provider) Del(_ context.Context, key string) error {
	unlock := p.locks.Lock(key)
	defer unlock()
	p.c.Del(key)
	p.c.Wait()
	return nil
}

func (p *Provider) Topology() pr.Topology { return pr.TopologyLocalHeap }

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Helper to expose metrics if desired by the application (not part of provider.Provider).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
