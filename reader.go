package casstream

import (
	"context"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/casstream/internal/util"
	"github.com/unkn0wn-root/casstream/master"
)

// Reader streams the generation that was committed when it was opened.
// Writes that commit later are invisible to it; the write policy keeps them
// from starting until every reader has closed.
//
// The context passed to OpenReader governs the whole session: every Read and
// Close runs under it, so it must outlive the Reader. Once it has ended, Read
// fails and Close still releases the read participation under a detached
// context bounded by Options.ReleaseTimeout. A Reader is not safe for
// concurrent use.
type Reader struct {
	s    *store
	ctx  context.Context
	id   string
	key  string
	snap master.Master

	pos int    // position in snap.Indices
	off int    // offset inside cur
	cur []byte // verified bytes of chunk pos; nil until loaded

	closed bool
}

var (
	_ Stream      = (*Reader)(nil)
	_ io.Reader   = (*Reader)(nil)
	_ io.WriterTo = (*Reader)(nil)
)

// Read copies into p across as many chunks as it takes to fill it. It returns
// io.EOF once every chunk of the snapshot has been consumed.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		if r.pos >= r.snap.ChunkCount() {
			if n == 0 {
				return 0, io.EOF
			}
			break
		}
		if r.cur == nil {
			b, err := r.load(r.pos)
			if err != nil {
				return n, err
			}
			r.cur = b
		}
		// min(bytes left in chunk, space left in p)
		k := copy(p[n:], r.cur[r.off:])
		n += k
		r.off += k
		if r.off == len(r.cur) {
			r.pos++
			r.off = 0
			r.cur = nil
		}
	}
	return n, nil
}

// load fetches chunk i and checks it against the snapshot. Anything short of an
// exact match is corruption: the master promised these bytes.
func (r *Reader) load(i int) ([]byte, error) {
	idx := r.snap.Indices[i]
	ck := util.ChunkKey(r.s.ns, r.id, r.snap.Epoch, idx)
	b, ok, err := r.s.provider.Get(r.ctx, ck)
	if err != nil {
		return nil, r.s.co.storeErr(r.ctx, ck, "read-chunk", err)
	}
	reason := ""
	switch {
	case !ok:
		reason = "missing"
	case len(b) == 0:
		reason = "empty"
	case int64(len(b)) != r.snap.Sizes[i]:
		reason = "size"
	case xxhash.Sum64(b) != r.snap.Checksums[i]:
		reason = "checksum"
	}
	if reason != "" {
		r.s.hooks.CorruptChunk(ck, idx, reason)
		r.s.log.Error("corrupt chunk", Fields{"key": ck, "index": idx, "reason": reason})
		return nil, &CorruptionError{Key: ck, Index: idx, Reason: reason}
	}
	return b, nil
}

// WriteTo copies the rest of the stream to w through a ReadBufferSize buffer.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, r.s.readBufferSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			total += int64(m)
			if werr != nil {
				return total, werr
			}
			if m < n {
				return total, io.ErrShortWrite
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Close releases the read participation.
func (r *Reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	r.cur = nil
	ctx, cancel := r.s.releaseCtx(r.ctx)
	defer cancel()
	if _, err := r.s.co.releaseRead(ctx, r.key); err != nil {
		r.s.log.Error("read release failed", Fields{"key": r.key, "err": err})
		return err
	}
	return nil
}

// Snapshot returns the master this reader is reading.
func (r *Reader) Snapshot() master.Master { return r.snap.Clone() }

// Size is the total stream length in bytes.
func (r *Reader) Size() int64 { return r.snap.TotalSize() }
