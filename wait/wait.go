// Package wait computes how long to pause between compare-and-swap attempts.
//
// A Strategy is a pure function from attempt number to duration. Sleep performs
// the pause and is the only place in casstream that suspends a goroutine while
// retrying; cancelling its context aborts the retry loop.
package wait

import (
	"context"
	"math/rand/v2"
	"time"
)

// Strategy returns a non-negative pause for a zero-based attempt number.
type Strategy interface {
	Wait(attempt int) time.Duration
}

// Constant waits the same duration for every attempt.
type Constant time.Duration

func (c Constant) Wait(int) time.Duration {
	if c < 0 {
		return 0
	}
	return time.Duration(c)
}

// Exponential doubles Base per attempt up to Cap.
// With Jitter the pause is drawn uniformly from [0, min(Cap, Base<<attempt)].
type Exponential struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter bool

	// Rand returns a uniform value in [0, n). nil => math/rand/v2.Uint64N.
	// Unsigned so that n = Cap+1 fits even when Cap is math.MaxInt64.
	Rand func(n uint64) uint64
}

// NewExponential normalizes base and cap: base is at least 1ns and cap never
// drops below base.
func NewExponential(base, ceiling time.Duration, jitter bool) *Exponential {
	if base <= 0 {
		base = 1
	}
	if ceiling < base {
		ceiling = base
	}
	return &Exponential{Base: base, Cap: ceiling, Jitter: jitter}
}

// Ceiling is the deterministic component: min(Cap, Base*2^attempt) with
// overflow clamped to Cap.
func (e *Exponential) Ceiling(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if e.Base <= 0 {
		return max(e.Cap, 0)
	}
	// Base<<attempt overflows or exceeds Cap once Base > Cap>>attempt.
	if attempt >= 62 || e.Base > e.Cap>>uint(attempt) {
		return e.Cap
	}
	return e.Base << uint(attempt)
}

func (e *Exponential) Wait(attempt int) time.Duration {
	d := e.Ceiling(attempt)
	if !e.Jitter || d <= 0 {
		return d
	}
	rnd := e.Rand
	if rnd == nil {
		rnd = rand.Uint64N
	}
	return time.Duration(rnd(uint64(d) + 1))
}

// Sleep pauses for s.Wait(attempt). It returns the duration it waited and
// ctx.Err() if the context ended first.
func Sleep(ctx context.Context, s Strategy, attempt int) (time.Duration, error) {
	return sleepFor(ctx, s.Wait(attempt))
}

func sleepFor(ctx context.Context, d time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	start := time.Now()
	select {
	case <-t.C:
		return d, nil
	case <-ctx.Done():
		return time.Since(start), ctx.Err()
	}
}

// SleepAtMost is Sleep with the pause truncated to limit.
func SleepAtMost(ctx context.Context, s Strategy, attempt int, limit time.Duration) (time.Duration, error) {
	return sleepFor(ctx, min(s.Wait(attempt), limit))
}
