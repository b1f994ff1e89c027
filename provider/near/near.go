// Package near puts a local cache in front of a remote Provider.
//
// Reads are served locally when possible. CAS always goes to the remote store, so
// a stale local master only ever costs a lost CAS round: on a lost CAS the local
// copy is dropped and the next Get goes remote. Chunk bytes are immutable once
// written, which makes them safe to serve from the local tier indefinitely.
package near

import (
	"context"
	"errors"
	"time"

	pr "github.com/unkn0wn-root/casstream/provider"
)

var ErrNilTier = errors.New("near provider: local and remote are required")

type Near struct {
	remote   pr.Provider
	local    pr.Provider
	localTTL time.Duration
}

var _ pr.Provider = (*Near)(nil)

type Config struct {
	Remote pr.Provider
	Local  pr.Provider
	// LocalTTL bounds how long a value is served from the local tier; 0 = no expiry.
	LocalTTL time.Duration
}

func New(cfg Config) (*Near, error) {
	if cfg.Remote == nil || cfg.Local == nil {
		return nil, ErrNilTier
	}
	return &Near{remote: cfg.Remote, local: cfg.Local, localTTL: cfg.LocalTTL}, nil
}

func (n *Near) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, err := n.local.Get(ctx, key); err == nil && ok {
		return b, true, nil
	}
	b, ok, err := n.remote.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	n.fill(ctx, key, b)
	return b, true, nil
}

func (n *Near) Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	ok, err := n.remote.Set(ctx, key, value, cost, ttl)
	if err != nil || !ok {
		return ok, err
	}
	n.fill(ctx, key, value)
	return true, nil
}

func (n *Near) CompareAndSwap(ctx context.Context, key string, old, next []byte) (bool, error) {
	swapped, err := n.remote.CompareAndSwap(ctx, key, old, next)
	if err != nil || !swapped {
		_ = n.local.Del(ctx, key)
		return false, err
	}
	n.fill(ctx, key, next)
	return true, nil
}

func (n *Near) CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error) {
	deleted, err := n.remote.CompareAndDelete(ctx, key, old)
	_ = n.local.Del(ctx, key)
	return deleted, err
}

func (n *Near) Del(ctx context.Context, key string) error {
	_ = n.local.Del(ctx, key)
	return n.remote.Del(ctx, key)
}

func (n *Near) Topology() pr.Topology { return pr.TopologyClusteredLocalCache }

func (n *Near) Close(ctx context.Context) error {
	lerr := n.local.Close(ctx)
	rerr := n.remote.Close(ctx)
	return errors.Join(lerr, rerr)
}

// fill is best effort; a rejected local write only means the next Get goes remote.
func (n *Near) fill(ctx context.Context, key string, value []byte) {
	_, _ = n.local.Set(ctx, key, value, int64(len(value)), n.localTTL)
}
