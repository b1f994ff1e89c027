package casstream

import (
	"strings"
	"testing"
	"time"

	pr "github.com/unkn0wn-root/casstream/provider"
	"github.com/unkn0wn-root/casstream/wait"
)

func TestParseConfigApply(t *testing.T) {
	doc := `
namespace: video
chunk_size: 8192
max_wait: 10s
max_attempts: 50
backoff:
  clustered: {base: 5ms, cap: 2s}
  local-heap: {jitter: false}
`
	cfg, err := ParseConfig([]byte(doc))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.MaxWait != 10*time.Second || cfg.ChunkSize != 8192 {
		t.Fatalf("parsed: %+v", cfg)
	}

	opts := Options{Namespace: "other", ReadBufferSize: 4096}
	if err := cfg.Apply(&opts); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if opts.Namespace != "video" || opts.ChunkSize != 8192 || opts.MaxAttempts != 50 {
		t.Fatalf("applied: %+v", opts)
	}
	if opts.ReadBufferSize != 4096 {
		t.Fatalf("unset field overwritten: %d", opts.ReadBufferSize)
	}

	p := wait.NewSelector(opts.Backoff).Profile(pr.TopologyClustered)
	if p.Base != 5*time.Millisecond || p.Cap != 2*time.Second || !p.Jitter {
		t.Fatalf("clustered profile: %+v", p)
	}
	lp := wait.NewSelector(opts.Backoff).Profile(pr.TopologyLocalHeap)
	if lp.Jitter || lp != (wait.Profile{Base: time.Millisecond, Cap: 20 * time.Millisecond}) {
		t.Fatalf("local-heap profile: %+v", lp)
	}
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig(nil): %v", err)
	}
	if cfg.Namespace != "" || cfg.Backoff != nil {
		t.Fatalf("want zero config, got %+v", cfg)
	}
}

func TestParseConfigRejects(t *testing.T) {
	if _, err := ParseConfig([]byte("chunk_sz: 1\n")); err == nil {
		t.Fatalf("unknown key accepted")
	}

	cfg, err := ParseConfig([]byte("backoff:\n  nowhere: {base: 1ms}\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	var opts Options
	if err := cfg.Apply(&opts); err == nil || !strings.Contains(err.Error(), "unknown topology") {
		t.Fatalf("Apply unknown topology: %v", err)
	}

	if err := (Config{MaxWait: -time.Second}).Apply(&opts); err == nil {
		t.Fatalf("negative max_wait accepted")
	}
}
