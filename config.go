package casstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	pr "github.com/unkn0wn-root/casstream/provider"
	"github.com/unkn0wn-root/casstream/wait"
)

// Config is the file form of the tunable part of Options. Durations use Go
// syntax ("250ms", "30s"); backoff keys are topology names.
//
//	namespace: video
//	chunk_size: 262144
//	max_wait: 10s
//	backoff:
//	  clustered: {base: 5ms, cap: 2s}
//	  local-heap: {jitter: false}
type Config struct {
	Namespace          string                   `yaml:"namespace"`
	ChunkSize          int                      `yaml:"chunk_size"`
	ReadBufferSize     int                      `yaml:"read_buffer_size"`
	MaxMasterSize      int                      `yaml:"max_master_size"`
	MaxWait            time.Duration            `yaml:"max_wait"`
	MaxAttempts        int                      `yaml:"max_attempts"`
	ReleaseTimeout     time.Duration            `yaml:"release_timeout"`
	CleanupConcurrency int                      `yaml:"cleanup_concurrency"`
	Backoff            map[string]wait.Override `yaml:"backoff"`
}

// ParseConfig decodes YAML. Unknown keys are rejected; an empty document
// yields the zero Config.
func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("casstream: parse config: %w", err)
	}
	return cfg, nil
}

// Apply copies every set field of c onto opts. Fields left at zero keep
// whatever opts already has.
func (c Config) Apply(opts *Options) error {
	if c.ChunkSize < 0 || c.ReadBufferSize < 0 || c.MaxMasterSize < 0 ||
		c.MaxWait < 0 || c.MaxAttempts < 0 || c.ReleaseTimeout < 0 || c.CleanupConcurrency < 0 {
		return fmt.Errorf("casstream: config: negative value")
	}
	for name, o := range c.Backoff {
		t, err := pr.ParseTopology(name)
		if err != nil {
			return fmt.Errorf("casstream: config: backoff: %w", err)
		}
		if (o.Base != nil && *o.Base < 0) || (o.Cap != nil && *o.Cap < 0) {
			return fmt.Errorf("casstream: config: backoff %s: negative duration", name)
		}
		if opts.Backoff == nil {
			opts.Backoff = make(map[pr.Topology]wait.Override, len(c.Backoff))
		}
		opts.Backoff[t] = o
	}

	opts.Namespace = coalesce(c.Namespace, opts.Namespace)
	opts.ChunkSize = coalesce(c.ChunkSize, opts.ChunkSize)
	opts.ReadBufferSize = coalesce(c.ReadBufferSize, opts.ReadBufferSize)
	opts.MaxMasterSize = coalesce(c.MaxMasterSize, opts.MaxMasterSize)
	opts.MaxWait = coalesce(c.MaxWait, opts.MaxWait)
	opts.MaxAttempts = coalesce(c.MaxAttempts, opts.MaxAttempts)
	opts.ReleaseTimeout = coalesce(c.ReleaseTimeout, opts.ReleaseTimeout)
	opts.CleanupConcurrency = coalesce(c.CleanupConcurrency, opts.CleanupConcurrency)
	return nil
}
