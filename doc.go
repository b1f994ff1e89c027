// Package casstream stores byte streams of any length in a size-limited key/value
// cache by splitting them into chunks, with a per-stream master record that is
// only ever changed through compare-and-swap.
//
// Components:
//   - Provider: byte store with TTL and single-key CAS (memory, Ristretto, BigCache,
//     Redis, or a near cache in front of Redis).
//   - master.Master: chunk layout plus reader/writer participation counts.
//   - coordinator: the optimistic loop every master change goes through. Lost CAS
//     races and policy blocks pause per a wait.Strategy chosen by the provider's
//     topology; the budget is Options.MaxWait (and MaxAttempts).
//   - seq.Allocator: chunk index source. Local (in-process) by default, Redis for
//     multi-replica writers.
//
// Keys:
//
//	master:<ns>:<stream>                - master record
//	chunk:<ns>:<stream>:<epoch>:<index> - one chunk of a committed or in-flight generation
//
// The epoch is a random 64-bit value (16 hex digits) drawn when the master is
// created. A stream deleted and written again gets a new one.
//
// Policy: one writer at a time and no readers while it is active; any number of
// readers otherwise. A writer persists chunks as it goes and publishes them with a
// single CAS on Close, so readers see either the previous generation or the new
// one, never a mix.
//
//	w, _ := store.OpenWriter(ctx, "report-42", casstream.ModeWrite)
//	_, _ = io.Copy(w, src)
//	_ = w.Close() // commit
//
//	r, _ := store.OpenReader(ctx, "report-42")
//	defer r.Close()
//	_, _ = io.Copy(dst, r)
package casstream
