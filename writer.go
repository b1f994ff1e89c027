package casstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/casstream/internal/util"
	"github.com/unkn0wn-root/casstream/master"
)

var errChunkRejected = errors.New("chunk write rejected by provider")

// Writer streams bytes into a new generation of chunks.
//
// Chunks are persisted as they fill; the master record is only touched on
// Close, which publishes all of them at once. Until then readers keep seeing
// (and are kept away from) the previous generation.
//
// The context passed to OpenWriter governs the whole session: every Write,
// Close and Abort runs under it, so it must outlive the Writer. Once it has
// ended, Write fails and the write participation is still given back under a
// detached context bounded by Options.ReleaseTimeout. A Writer is not safe for
// concurrent use.
type Writer struct {
	s    *store
	ctx  context.Context
	id   string
	key  string
	mode Mode

	prev      master.Master // as observed before acquiring
	acquired  master.Master // as committed by acquire
	candidate master.Master

	buf     []byte
	floor   int64   // next index must be >= floor
	written []int64 // indices this session persisted
	size    int64

	closed bool
	err    error // sticky
}

var _ Stream = (*Writer)(nil)

// Write buffers p and persists every full chunk.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		if w.err != nil {
			return 0, w.err
		}
		return 0, ErrClosed
	}
	n := 0
	for len(p) > 0 {
		k := min(w.s.chunkSize-len(w.buf), len(p))
		w.buf = append(w.buf, p[:k]...)
		p = p[k:]
		n += k
		if len(w.buf) == w.s.chunkSize {
			if err := w.flush(); err != nil {
				return n, w.fail(err)
			}
		}
	}
	return n, nil
}

func (w *Writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	idx, err := w.s.alloc.Next(w.ctx, w.key, w.floor)
	if err != nil {
		return w.s.co.storeErr(w.ctx, w.key, "allocate-chunk", err)
	}
	w.floor = idx + 1

	ck := util.ChunkKey(w.s.ns, w.id, w.acquired.Epoch, idx)
	w.written = append(w.written, idx)
	ok, err := w.s.provider.Set(w.ctx, ck, w.buf, int64(len(w.buf)), 0)
	if err != nil {
		return w.s.co.storeErr(w.ctx, ck, "write-chunk", err)
	}
	if !ok {
		w.s.hooks.ProviderSetRejected(ck)
		return &StoreError{Key: ck, Op: "write-chunk", Err: errChunkRejected}
	}
	if err := w.candidate.AddChunk(idx, int64(len(w.buf)), xxhash.Sum64(w.buf)); err != nil {
		return err
	}
	w.size += int64(len(w.buf))
	w.buf = make([]byte, 0, w.s.chunkSize)
	return nil
}

// Close flushes the tail chunk, publishes the new layout and removes chunks of
// the superseded generation. A failed Close leaves the previous generation
// committed and readable.
func (w *Writer) Close() error {
	if w.closed {
		if w.err != nil {
			return w.err
		}
		return ErrClosed
	}
	if err := w.flush(); err != nil {
		return w.fail(err)
	}
	out, err := w.s.co.commitWrite(w.ctx, w.key, w.candidate)
	if err != nil {
		return w.fail(err)
	}
	w.closed = true

	keep := make(map[int64]struct{}, out.next.ChunkCount())
	for _, idx := range out.next.Indices {
		keep[idx] = struct{}{}
	}
	var stale []int64
	for _, idx := range w.acquired.Indices {
		if _, ok := keep[idx]; !ok {
			stale = append(stale, idx)
		}
	}
	if len(stale) > 0 {
		ctx, cancel := w.s.releaseCtx(w.ctx)
		defer cancel()
		// orphans are harmless; failures are reported through hooks only
		_ = w.s.dropChunks(ctx, w.id, w.acquired.Epoch, stale)
	}
	w.s.log.Debug("stream committed", Fields{
		"key": w.key, "mode": w.mode.String(), "chunks": out.next.ChunkCount(),
		"bytes": out.next.TotalSize(), "stale": len(stale), "attempts": out.attempts,
	})
	return nil
}

// Abort gives up the session: nothing is published, the write participation is
// released and the chunks written so far are removed.
func (w *Writer) Abort() error {
	if w.closed {
		if w.err != nil {
			return w.err
		}
		return ErrClosed
	}
	w.closed = true
	return w.abort(nil)
}

func (w *Writer) fail(cause error) error {
	w.closed = true
	w.err = w.abort(cause)
	return w.err
}

func (w *Writer) abort(cause error) error {
	ctx, cancel := w.s.releaseCtx(w.ctx)
	defer cancel()
	_, err := w.s.co.abortWrite(ctx, w.key)
	if err != nil {
		// the commit may have landed; our chunks could be live, keep them
		w.s.log.Error("write release failed", Fields{"key": w.key, "err": err})
		return &ReleaseError{Key: w.key, OpErr: cause, ReleaseErr: err}
	}
	if len(w.written) > 0 {
		_ = w.s.dropChunks(ctx, w.id, w.acquired.Epoch, w.written)
	}
	return cause
}

// Prev returns the master as it was before this writer acquired the stream.
func (w *Writer) Prev() master.Master { return w.prev.Clone() }

// Size reports the bytes persisted so far, buffered bytes excluded.
func (w *Writer) Size() int64 { return w.size }

func (w *Writer) String() string {
	return fmt.Sprintf("writer{%s %s}", w.key, w.mode)
}
