package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/casstream/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// ARGV[1] = "1" when the caller expects the key to be absent.
var casScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if ARGV[1] == '1' then
  if cur then return 0 end
elseif (not cur) or cur ~= ARGV[2] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[3])
return 1
`)

var cadScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if (not cur) or cur ~= ARGV[1] then return 0 end
redis.call('DEL', KEYS[1])
return 1
`)

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per provider contract
	}

	err := p.rdb.Set(ctx, key, value, ttl).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

// CompareAndSwap runs the comparison and the write server-side in one Lua call.
func (p *Redis) CompareAndSwap(ctx context.Context, key string, old, next []byte) (bool, error) {
	expectAbsent := "0"
	if old == nil {
		expectAbsent = "1"
		old = []byte{}
	}
	n, err := casScript.Run(ctx, p.rdb, []string{key}, expectAbsent, old, next).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Redis) CompareAndDelete(ctx context.Context, key string, old []byte) (bool, error) {
	if old == nil {
		return false, nil
	}
	n, err := cadScript.Run(ctx, p.rdb, []string{key}, old).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

func (p *Redis) Topology() pr.Topology { return pr.TopologyClustered }

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
