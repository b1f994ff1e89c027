// Package keylock provides striped per-key mutexes for stores that lack a native
// compare-and-swap and have to emulate one in-process.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const stripes = 256

// Set is a fixed array of mutexes indexed by key hash. The zero value is ready to use.
type Set struct {
	mu [stripes]sync.Mutex
}

// Lock locks the stripe owning key and returns its unlock func.
func (s *Set) Lock(key string) func() {
	m := &s.mu[xxhash.Sum64String(key)%stripes]
	m.Lock()
	return m.Unlock
}
