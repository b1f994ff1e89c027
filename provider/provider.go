// Package provider defines the storage abstraction used by casstream.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set or CompareAndSwap for a key (no
// prepended/appended metadata, no re-encoding, no mutation).
//
// Important: the keyspaces "master:<ns>:" and "chunk:<ns>:" are owned by casstream.
// External code MUST NOT write values under these prefixes.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Provider is a minimal byte store whose only atomic primitive is single-key CAS.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// CompareAndSwap atomically replaces the value at key with next iff the stored
	// value currently equals old byte for byte. old == nil means "expect absent".
	CompareAndSwap(ctx context.Context, key string, old, next []byte) (swapped bool, err error)

	// CompareAndDelete atomically removes key iff its stored value equals old.
	CompareAndDelete(ctx context.Context, key string, old []byte) (deleted bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Topology describes where the bytes live; it drives retry pacing.
	Topology() Topology

	// Close releases resources.
	Close(ctx context.Context) error
}

// Topology classifies a store by the latency profile of its CAS round trip.
type Topology int

const (
	TopologyUnknown Topology = iota
	TopologyLocalHeap
	TopologyLocalHeapOverflow
	TopologyClusteredLocalCache
	TopologyClustered
)

var topologyNames = [...]string{
	TopologyUnknown:             "default",
	TopologyLocalHeap:           "local-heap",
	TopologyLocalHeapOverflow:   "local-heap-overflow",
	TopologyClusteredLocalCache: "clustered-local-cache",
	TopologyClustered:           "clustered",
}

func (t Topology) String() string {
	if t < 0 || int(t) >= len(topologyNames) {
		return fmt.Sprintf("Topology(%d)", int(t))
	}
	return topologyNames[t]
}

// ParseTopology is the inverse of Topology.String.
func ParseTopology(s string) (Topology, error) {
	for i, name := range topologyNames {
		if name == s {
			return Topology(i), nil
		}
	}
	return TopologyUnknown, fmt.Errorf("provider: unknown topology %q", s)
}

// Topologies lists every known classification, default first.
func Topologies() []Topology {
	return []Topology{
		TopologyUnknown,
		TopologyLocalHeap,
		TopologyLocalHeapOverflow,
		TopologyClusteredLocalCache,
		TopologyClustered,
	}
}
