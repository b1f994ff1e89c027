package casstream

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	c "github.com/unkn0wn-root/casstream/codec"
	"github.com/unkn0wn-root/casstream/internal/util"
	"github.com/unkn0wn-root/casstream/master"
	pr "github.com/unkn0wn-root/casstream/provider"
	"github.com/unkn0wn-root/casstream/seq"
	"github.com/unkn0wn-root/casstream/wait"
)

type store struct {
	ns                 string
	provider           pr.Provider
	co                 *coordinator
	alloc              seq.Allocator
	ownsAlloc          bool
	log                Logger
	hooks              Hooks
	chunkSize          int
	readBufferSize     int
	cleanupConcurrency int
	releaseTimeout     time.Duration
}

func newStore(opts Options) (*store, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("casstream: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("casstream: namespace is required")
	}
	if opts.ChunkSize < 0 || opts.ReadBufferSize < 0 || opts.MaxWait < 0 || opts.MaxAttempts < 0 {
		return nil, fmt.Errorf("casstream: sizes and budgets must not be negative")
	}

	s := &store{
		ns:       opts.Namespace,
		provider: opts.Provider,
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.chunkSize = coalesce(opts.ChunkSize, defaultChunkSize)
	s.readBufferSize = coalesce(opts.ReadBufferSize, defaultReadBufferSize)
	s.cleanupConcurrency = coalesce(opts.CleanupConcurrency, defaultCleanupConcurrency)
	maxWait := coalesce(opts.MaxWait, defaultMaxWait)
	s.releaseTimeout = coalesce(opts.ReleaseTimeout, maxWait)

	var mc c.Codec[master.Master] = master.Binary{}
	if opts.Codec != nil {
		mc = opts.Codec
	}
	if opts.MaxMasterSize > 0 {
		mc = c.LimitCodec[master.Master]{Inner: mc, MaxDecode: opts.MaxMasterSize}
	}

	strategy := opts.Strategy
	if strategy == nil {
		strategy = wait.NewSelector(opts.Backoff).For(opts.Provider.Topology())
	}

	if opts.Allocator != nil {
		s.alloc = opts.Allocator
	} else {
		// default to in-process counters with periodic cleanup
		s.alloc = seq.NewLocal(defaultSeqSweep, defaultSeqRetention)
		s.ownsAlloc = true
	}

	s.co = &coordinator{
		ns:          s.ns,
		provider:    s.provider,
		codec:       mc,
		strategy:    strategy,
		maxWait:     maxWait,
		maxAttempts: opts.MaxAttempts,
		log:         s.log,
		hooks:       s.hooks,
		now:         func() time.Time { return time.Now().UTC() },
		epoch:       newEpoch,
	}

	s.log.Debug("store ready", Fields{
		"ns": s.ns, "topology": opts.Provider.Topology().String(),
		"chunk_size": s.chunkSize, "max_wait": maxWait,
	})
	return s, nil
}

func (s *store) Open(ctx context.Context, id string, mode Mode) (Stream, error) {
	if mode == ModeRead {
		r, err := s.OpenReader(ctx, id)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	w, err := s.OpenWriter(ctx, id, mode)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *store) OpenReader(ctx context.Context, id string) (*Reader, error) {
	key := s.masterKey(id)
	out, err := s.co.acquireRead(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Reader{s: s, ctx: ctx, id: id, key: key, snap: out.next}, nil
}

func (s *store) OpenWriter(ctx context.Context, id string, mode Mode) (*Writer, error) {
	if mode != ModeWrite && mode != ModeAppend {
		return nil, fmt.Errorf("casstream: OpenWriter with mode %s", mode)
	}
	key := s.masterKey(id)
	out, err := s.co.acquireWrite(ctx, key)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		s:        s,
		ctx:      ctx,
		id:       id,
		key:      key,
		mode:     mode,
		prev:     out.prev,
		acquired: out.next,
		buf:      make([]byte, 0, s.chunkSize),
		floor:    out.next.LastIndex() + 1,
	}
	if mode == ModeAppend {
		w.candidate = out.next.Clone()
	}
	w.candidate.Writers, w.candidate.Readers = 0, 0
	return w, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	key := s.masterKey(id)
	if _, err := s.co.acquireWrite(ctx, key); err != nil {
		return err
	}

	// Unpublish first: once the layout is empty no reader can be sent to a
	// chunk we are about to remove.
	out, err := s.co.update(ctx, key, opDelete, func(m *master.Master) error {
		if m.Writers != 1 || m.Readers != 0 {
			return lostParticipation(key, opDelete, fmt.Sprintf("writers=%d readers=%d", m.Writers, m.Readers))
		}
		m.ResetChunks()
		return nil
	})
	if err != nil {
		return s.releaseAfter(ctx, key, err)
	}

	rctx, cancel := s.releaseCtx(ctx)
	defer cancel()
	if len(out.prev.Indices) > 0 {
		// leftover chunks are orphans; failures are reported through hooks
		_ = s.dropChunks(rctx, id, out.prev.Epoch, out.prev.Indices)
	}
	if err := s.co.removeMaster(rctx, key); err != nil {
		return s.releaseAfter(ctx, key, err)
	}
	s.log.Debug("stream deleted", Fields{"key": key, "chunks": len(out.prev.Indices)})
	return nil
}

// releaseAfter gives back write participation after a failed Delete.
func (s *store) releaseAfter(ctx context.Context, key string, cause error) error {
	rctx, cancel := s.releaseCtx(ctx)
	defer cancel()
	if _, err := s.co.abortWrite(rctx, key); err != nil {
		s.log.Error("write release failed", Fields{"key": key, "err": err})
		return &ReleaseError{Key: key, OpErr: cause, ReleaseErr: err}
	}
	return cause
}

func (s *store) Stat(ctx context.Context, id string) (master.Master, bool, error) {
	snap, err := s.co.load(ctx, s.masterKey(id), opStat)
	if err != nil {
		return master.Master{}, false, err
	}
	return snap.m, snap.present(), nil
}

func (s *store) Close(ctx context.Context) error {
	var aerr error
	// Close allocator first (best effort)
	if s.ownsAlloc && s.alloc != nil {
		aerr = s.alloc.Close(ctx)
	}
	if s.provider != nil {
		return errors.Join(aerr, s.provider.Close(ctx))
	}
	return aerr
}

// dropChunks removes chunk keys in parallel. Every failure is reported through
// hooks; the first one is returned.
func (s *store) dropChunks(ctx context.Context, id string, epoch uint64, indices []int64) error {
	var g errgroup.Group
	g.SetLimit(s.cleanupConcurrency)
	for _, idx := range indices {
		ck := util.ChunkKey(s.ns, id, epoch, idx)
		g.Go(func() error {
			if err := s.provider.Del(ctx, ck); err != nil {
				s.hooks.StaleChunkCleanupFailed(ck, err)
				s.log.Warn("chunk cleanup failed", Fields{"key": ck, "err": err})
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// releaseCtx returns ctx while it is live. Once it has ended, releases still
// have to run, so they get a detached context bounded by releaseTimeout.
func (s *store) releaseCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), s.releaseTimeout)
}

// newEpoch draws a nonzero random epoch for a master being created. Chunk
// indices restart after a Delete; the epoch keeps a recreated stream's chunk
// keys apart from copies of the old ones still held in a local cache tier.
func newEpoch() uint64 {
	for {
		if e := rand.Uint64(); e != 0 {
			return e
		}
	}
}

func (s *store) masterKey(id string) string {
	return util.MasterKey(s.ns, id)
}
