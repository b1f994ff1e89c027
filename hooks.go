package casstream

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The coordinator calls them from inside its retry loop.
type Hooks interface {
	// Another participant won the CAS round; attempt is zero-based.
	CASConflict(masterKey, op string, attempt int)

	// The concurrency policy blocked op (e.g. a reader while a writer is active).
	ParticipationBlocked(masterKey, op string, readers, writers int)

	// The retry budget ran out.
	ContentionTimeout(masterKey, op string, attempts int, waited time.Duration)

	// A reader found a chunk that does not match the committed master.
	// reason ∈ {"missing", "empty", "size", "checksum"}
	CorruptChunk(chunkKey string, index int64, reason string)

	// Deleting a chunk of a superseded generation failed; the chunk is orphaned.
	StaleChunkCleanupFailed(chunkKey string, err error)

	// Provider returned ok=false on a chunk Set (backpressure/eviction).
	ProviderSetRejected(chunkKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CASConflict(string, string, int)                      {}
func (NopHooks) ParticipationBlocked(string, string, int, int)        {}
func (NopHooks) ContentionTimeout(string, string, int, time.Duration) {}
func (NopHooks) CorruptChunk(string, int64, string)                   {}
func (NopHooks) StaleChunkCleanupFailed(string, error)                {}
func (NopHooks) ProviderSetRejected(string)                           {}
