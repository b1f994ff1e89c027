// Package seq allocates chunk indices.
//
// Every chunk a writer persists gets a fresh index from an Allocator, so a chunk
// key is never reused by a later generation of the same stream, even when an
// earlier writer died after writing chunks but before committing them.
package seq

import (
	"context"
	"time"
)

// Allocator hands out strictly increasing indices per stream key.
// Use Local for a single process, or Redis to share counters across processes.
type Allocator interface {
	// Next returns an index greater than every index previously returned for
	// streamKey and not less than floor. Callers pass the committed master's
	// last index + 1 as floor, which keeps indices unique after a counter is lost
	// (restart, expiry, cleanup).
	Next(ctx context.Context, streamKey string, floor int64) (int64, error)
	// Cleanup prunes idle counters if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
