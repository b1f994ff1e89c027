package casstream

import "time"

const (
	defaultChunkSize          = 256 << 10
	defaultReadBufferSize     = 64 << 10
	defaultMaxWait            = 30 * time.Second
	defaultCleanupConcurrency = 8
	defaultSeqRetention       = 24 * time.Hour
	defaultSeqSweep           = time.Hour
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
