package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/casstream"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ConflictEvery uint64
	BlockedEvery  uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	conflictCtr atomic.Uint64
	blockedCtr  atomic.Uint64
}

var _ casstream.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CASConflict(masterKey, op string, attempt int) {
	if h.l == nil || !sample(h.opts.ConflictEvery, &h.conflictCtr) {
		return
	}
	h.l.Debug("casstream.cas_conflict",
		"key", h.redact(masterKey),
		"op", op,
		"attempt", attempt)
}

func (h *Hooks) ParticipationBlocked(masterKey, op string, readers, writers int) {
	if h.l == nil || !sample(h.opts.BlockedEvery, &h.blockedCtr) {
		return
	}
	h.l.Debug("casstream.participation_blocked",
		"key", h.redact(masterKey),
		"op", op,
		"readers", readers,
		"writers", writers)
}

func (h *Hooks) ContentionTimeout(masterKey, op string, attempts int, waited time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Warn("casstream.contention_timeout",
		"key", h.redact(masterKey),
		"op", op,
		"attempts", attempts,
		"waited", waited)
}

func (h *Hooks) CorruptChunk(chunkKey string, index int64, reason string) {
	if h.l == nil {
		return
	}
	h.l.Error("casstream.corrupt_chunk",
		"key", h.redact(chunkKey),
		"index", index,
		"reason", reason)
}

func (h *Hooks) StaleChunkCleanupFailed(chunkKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("casstream.stale_chunk_cleanup_failed",
		"key", h.redact(chunkKey),
		"err", err)
}

func (h *Hooks) ProviderSetRejected(chunkKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("casstream.provider_set_rejected",
		"key", h.redact(chunkKey))
}
