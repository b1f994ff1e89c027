package casstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/casstream/codec"
	"github.com/unkn0wn-root/casstream/master"
	pr "github.com/unkn0wn-root/casstream/provider"
	"github.com/unkn0wn-root/casstream/wait"
)

const (
	opAcquireWrite = "acquire-write"
	opCommitWrite  = "commit-write"
	opAbortWrite   = "abort-write"
	opAcquireRead  = "acquire-read"
	opReleaseRead  = "release-read"
	opDelete       = "delete"
	opStat         = "stat"
)

var (
	// errBlocked makes the CAS loop pause and re-evaluate instead of failing.
	errBlocked = errors.New("blocked by concurrency policy")
	// errLostParticipation: the stored master no longer carries the count this
	// session registered (the record was removed or rewritten behind its back).
	errLostParticipation = errors.New("casstream: participation lost")
)

// coordinator runs every master mutation through the same optimistic loop:
// read snapshot, check policy, derive candidate, CAS against the bytes read.
type coordinator struct {
	ns          string
	provider    pr.Provider
	codec       c.Codec[master.Master]
	strategy    wait.Strategy
	maxWait     time.Duration
	maxAttempts int
	log         Logger
	hooks       Hooks
	now         func() time.Time
	epoch       func() uint64 // draws the epoch of a record being created
}

// snapshot is a master as read from the store plus the exact stored bytes.
type snapshot struct {
	m   master.Master
	raw []byte // nil => absent
}

func (s snapshot) present() bool { return s.raw != nil }

type outcome struct {
	prev     master.Master // snapshot the mutation was applied to
	next     master.Master // committed state
	attempts int
}

// mutation edits a private clone of the current master.
type mutation func(m *master.Master) error

func (co *coordinator) load(ctx context.Context, key, op string) (snapshot, error) {
	raw, ok, err := co.provider.Get(ctx, key)
	if err != nil {
		return snapshot{}, co.storeErr(ctx, key, op, err)
	}
	if !ok {
		return snapshot{}, nil
	}
	m, err := co.codec.Decode(raw)
	if err != nil {
		return snapshot{}, &StoreError{Key: key, Op: op, Err: fmt.Errorf("decode master: %w", err)}
	}
	if raw == nil {
		raw = []byte{}
	}
	return snapshot{m: m, raw: raw}, nil
}

// update applies fn to the current master until a CAS lands, the budget runs
// out, fn fails hard, or ctx ends while pausing.
func (co *coordinator) update(ctx context.Context, key, op string, fn mutation) (outcome, error) {
	cur, err := co.load(ctx, key, op)
	if err != nil {
		return outcome{}, err
	}

	var waited time.Duration
	quiet := false
	for attempt := 0; ; attempt++ {
		next := cur.m.Clone()
		err := fn(&next)
		switch {
		case err == nil:
			if !cur.present() && next.Epoch == 0 {
				next.Epoch = co.epoch()
			}
			nb, err := co.codec.Encode(next)
			if err != nil {
				return outcome{}, &StoreError{Key: key, Op: op, Err: fmt.Errorf("encode master: %w", err)}
			}
			swapped, err := co.provider.CompareAndSwap(ctx, key, cur.raw, nb)
			if err != nil {
				return outcome{}, co.storeErr(ctx, key, op, err)
			}
			if swapped {
				if attempt > 0 {
					co.log.Debug("master updated after retries", Fields{"key": key, "op": op, "attempts": attempt + 1})
				}
				return outcome{prev: cur.m, next: next, attempts: attempt + 1}, nil
			}
			co.hooks.CASConflict(key, op, attempt)

			fresh, err := co.load(ctx, key, op)
			if err != nil {
				return outcome{}, err
			}
			// A winner that only touched the advisory times leaves nothing to
			// wait out; go again at once, but never twice in a row.
			bookkeeping := !quiet && fresh.present() == cur.present() && fresh.m.Compare(cur.m)
			cur = fresh
			if bookkeeping {
				quiet = true
				if co.attemptsExhausted(attempt) {
					return outcome{}, co.timeout(key, op, attempt+1, waited)
				}
				continue
			}
		case errors.Is(err, errBlocked):
			co.hooks.ParticipationBlocked(key, op, cur.m.Readers, cur.m.Writers)
		default:
			return outcome{}, err
		}
		quiet = false

		if err := co.pause(ctx, key, op, attempt, &waited); err != nil {
			return outcome{}, err
		}
		if cur, err = co.load(ctx, key, op); err != nil {
			return outcome{}, err
		}
	}
}

// pause sleeps per the strategy within what is left of the wait budget.
func (co *coordinator) pause(ctx context.Context, key, op string, attempt int, waited *time.Duration) error {
	if co.attemptsExhausted(attempt) || *waited >= co.maxWait {
		return co.timeout(key, op, attempt+1, *waited)
	}
	d, err := wait.SleepAtMost(ctx, co.strategy, attempt, co.maxWait-*waited)
	*waited += d
	if err != nil {
		return &CanceledError{Key: key, Op: op, Err: err}
	}
	return nil
}

func (co *coordinator) attemptsExhausted(attempt int) bool {
	return co.maxAttempts > 0 && attempt+1 >= co.maxAttempts
}

func (co *coordinator) timeout(key, op string, attempts int, waited time.Duration) error {
	co.hooks.ContentionTimeout(key, op, attempts, waited)
	co.log.Warn("contention timeout", Fields{"key": key, "op": op, "attempts": attempts, "waited": waited})
	return &ContentionError{Key: key, Op: op, Attempts: attempts, Waited: waited}
}

// lostParticipation reports a master that no longer carries this session's
// count. It is a store failure: nothing a retry can fix.
func lostParticipation(key, op string, detail any) error {
	return &StoreError{Key: key, Op: op, Err: fmt.Errorf("%w: %v", errLostParticipation, detail)}
}

func (co *coordinator) storeErr(ctx context.Context, key, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &CanceledError{Key: key, Op: op, Err: ctxErr}
	}
	return &StoreError{Key: key, Op: op, Err: err}
}

// acquireWrite is granted only when nobody reads or writes the stream.
func (co *coordinator) acquireWrite(ctx context.Context, key string) (outcome, error) {
	return co.update(ctx, key, opAcquireWrite, func(m *master.Master) error {
		if m.Readers > 0 || m.Writers > 0 {
			return errBlocked
		}
		m.AddWriter()
		return nil
	})
}

// commitWrite publishes candidate's chunk layout and drops the write count.
func (co *coordinator) commitWrite(ctx context.Context, key string, candidate master.Master) (outcome, error) {
	return co.update(ctx, key, opCommitWrite, func(m *master.Master) error {
		if err := m.RemoveWriter(); err != nil {
			return lostParticipation(key, opCommitWrite, err)
		}
		cp := candidate.Clone()
		m.Indices, m.Sizes, m.Checksums = cp.Indices, cp.Sizes, cp.Checksums
		m.LastWritten = co.now()
		return nil
	})
}

// abortWrite drops the write count and leaves the committed layout as it was.
func (co *coordinator) abortWrite(ctx context.Context, key string) (outcome, error) {
	return co.update(ctx, key, opAbortWrite, func(m *master.Master) error {
		if err := m.RemoveWriter(); err != nil {
			return lostParticipation(key, opAbortWrite, err)
		}
		return nil
	})
}

// acquireRead is granted whenever no writer is active.
func (co *coordinator) acquireRead(ctx context.Context, key string) (outcome, error) {
	return co.update(ctx, key, opAcquireRead, func(m *master.Master) error {
		if m.Writers > 0 {
			return errBlocked
		}
		m.AddReader()
		return nil
	})
}

func (co *coordinator) releaseRead(ctx context.Context, key string) (outcome, error) {
	return co.update(ctx, key, opReleaseRead, func(m *master.Master) error {
		if err := m.RemoveReader(); err != nil {
			return lostParticipation(key, opReleaseRead, err)
		}
		m.LastRead = co.now()
		return nil
	})
}

// removeMaster deletes the master record. The caller must hold the only write
// participation; anything else means the record moved on without it.
func (co *coordinator) removeMaster(ctx context.Context, key string) error {
	var waited time.Duration
	for attempt := 0; ; attempt++ {
		cur, err := co.load(ctx, key, opDelete)
		if err != nil {
			return err
		}
		if !cur.present() {
			return nil
		}
		if cur.m.Writers != 1 || cur.m.Readers != 0 {
			return lostParticipation(key, opDelete,
				fmt.Sprintf("delete with writers=%d readers=%d", cur.m.Writers, cur.m.Readers))
		}
		deleted, err := co.provider.CompareAndDelete(ctx, key, cur.raw)
		if err != nil {
			return co.storeErr(ctx, key, opDelete, err)
		}
		if deleted {
			return nil
		}
		co.hooks.CASConflict(key, opDelete, attempt)
		if err := co.pause(ctx, key, opDelete, attempt, &waited); err != nil {
			return err
		}
	}
}
