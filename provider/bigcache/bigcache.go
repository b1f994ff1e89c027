package bigcache

import (
	"bytes"
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/casstream/internal/keylock"
	pr "github.com/unkn0wn-root/casstream/provider"
)

// Provider keeps entries in BigCache's preallocated byte shards, outside of
// what the GC scans. It reports itself as a heap store with an overflow tier.
type Provider struct {
	c     *bc.BigCache
	locks keylock.Set
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	// BigCache does not support per-entry TTL; uses global LifeWindow.
	unlock := p.locks.Lock(key)
	defer unlock()
	return true, p.c.Set(key, value)
}

func (p *Provider) CompareAndSwap(_ context.Context, key string, old, next []byte) (bool, error) {
	unlock := p.locks.Lock(key)
	defer unlock()
	ok, err := p.matches(key, old)
	if err != nil || !ok {
		return false, err
	}
	if err := p.c.Set(key, next); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) CompareAndDelete(_ context.Context, key string, old []byte) (bool, error) {
	if old == nil {
		return false, nil
	}
	unlock := p.locks.Lock(key)
	defer unlock()
	ok, err := p.matches(key, old)
	if err != nil || !ok {
		return false, err
	}
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return false, err
	}
	return true, nil
}

func (p *Provider) matches(key string, old []byte) (bool, error) {
	cur, err := p.c.Get(key)
	switch {
	case errors.Is(err, bc.ErrEntryNotFound):
		return old == nil, nil
	case err != nil:
		return false, err
	}
	return old != nil && bytes.Equal(cur, old), nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	unlock := p.locks.Lock(key)
	defer unlock()
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (p *Provider) Topology() pr.Topology { return pr.TopologyLocalHeapOverflow }

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
