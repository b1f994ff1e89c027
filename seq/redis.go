package seq

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// The counter stores the next index to hand out. INCR yields next+1; when that
// lands at or below the floor the counter jumps to floor+1 and floor is returned.
// ARGV[2] > 0 refreshes the key TTL in the same round trip.
var nextScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[1])
local floor = tonumber(ARGV[1])
if v <= floor then
  v = floor + 1
  redis.call('SET', KEYS[1], v)
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then redis.call('PEXPIRE', KEYS[1], ttl) end
return v - 1
`)

// Redis shares per-stream counters across processes and survives restarts.
// Optionally, a TTL can be applied to counter keys to prevent unbounded growth;
// an expired counter restarts at the caller's floor.
type Redis struct {
	rdb redis.UniversalClient
	ns  string        // logical namespace; should match Options.Namespace
	ttl time.Duration // optional TTL for counter keys; 0 disables expiry
}

var _ Allocator = (*Redis)(nil)

// NewRedis creates a Redis-backed allocator without TTL.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{rdb: client, ns: namespace}
}

// NewRedisWithTTL creates a Redis-backed allocator with TTL.
// If ttl <= 0, keys do not expire.
func NewRedisWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration) *Redis {
	return &Redis{rdb: client, ns: namespace, ttl: ttl}
}

func (s *Redis) key(k string) string { return "seq:" + s.ns + ":" + k }

func (s *Redis) Next(ctx context.Context, streamKey string, floor int64) (int64, error) {
	ttl := int64(0)
	if s.ttl > 0 {
		ttl = s.ttl.Milliseconds()
	}
	return nextScript.Run(ctx, s.rdb, []string{s.key(streamKey)}, floor, ttl).Int64()
}

// Cleanup is not applicable for Redis (Redis handles expiry if TTL is set).
func (s *Redis) Cleanup(time.Duration) {}

// Close closes the underlying Redis client.
func (s *Redis) Close(ctx context.Context) error { return s.rdb.Close() }
