package seq

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedisNextHonorsFloor(t *testing.T) {
	addr := os.Getenv("CASSTREAM_REDIS_ADDR")
	if addr == "" {
		t.Skip("CASSTREAM_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	s := NewRedis(rdb, "seqtest")
	defer s.Close(ctx)
	k := t.Name()
	_ = rdb.Del(ctx, s.key(k)).Err()
	defer rdb.Del(ctx, s.key(k))

	want := []struct{ floor, got int64 }{{0, 0}, {0, 1}, {10, 10}, {3, 11}, {11, 12}}
	for i, w := range want {
		got, err := s.Next(ctx, k, w.floor)
		if err != nil {
			t.Fatalf("Next #%d: %v", i, err)
		}
		if got != w.got {
			t.Fatalf("Next #%d (floor %d) = %d, want %d", i, w.floor, got, w.got)
		}
	}
}
