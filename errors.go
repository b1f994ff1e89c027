package casstream

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrContentionTimeout: the CAS loop spent its wait budget without acquiring
	// participation or committing.
	ErrContentionTimeout = errors.New("casstream: contention timeout")
	// ErrStoreFailure: the provider or the master codec failed. Never retried.
	ErrStoreFailure = errors.New("casstream: store failure")
	// ErrStreamCorruption: a chunk the committed master refers to is missing,
	// truncated or fails its checksum.
	ErrStreamCorruption = errors.New("casstream: stream corruption")
	// ErrCanceled: the context ended while the CAS loop was waiting.
	ErrCanceled = errors.New("casstream: canceled")
	// ErrClosed: the stream handle was already closed.
	ErrClosed = errors.New("casstream: stream closed")
)

type ContentionError struct {
	Key      string
	Op       string
	Attempts int
	Waited   time.Duration
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("%s %q: contention timeout after %d attempts (waited %s)",
		e.Op, e.Key, e.Attempts, e.Waited)
}

func (e *ContentionError) Unwrap() error { return ErrContentionTimeout }

type StoreError struct {
	Key string
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %q: store failure: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStoreFailure, e.Err} }

type CorruptionError struct {
	Key    string // chunk key
	Index  int64
	Reason string // "missing", "empty", "size", "checksum"
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("chunk %q (index %d): stream corruption: %s", e.Key, e.Index, e.Reason)
}

func (e *CorruptionError) Unwrap() error { return ErrStreamCorruption }

type CanceledError struct {
	Key string
	Op  string
	Err error // ctx.Err()
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s %q: canceled: %v", e.Op, e.Key, e.Err)
}

func (e *CanceledError) Unwrap() []error { return []error{ErrCanceled, e.Err} }

// ReleaseError reports that a session could not be released after its main
// operation failed. Both causes stay reachable through errors.Is/As.
type ReleaseError struct {
	Key        string
	OpErr      error
	ReleaseErr error
}

func (e *ReleaseError) Error() string {
	switch {
	case e.OpErr != nil && e.ReleaseErr != nil:
		return fmt.Sprintf("stream %q: operation and release failed: op=%v; release=%v",
			e.Key, e.OpErr, e.ReleaseErr)
	case e.ReleaseErr != nil:
		return fmt.Sprintf("stream %q: release failed: %v", e.Key, e.ReleaseErr)
	case e.OpErr != nil:
		return fmt.Sprintf("stream %q: %v", e.Key, e.OpErr)
	default:
		return fmt.Sprintf("stream %q: unknown error", e.Key)
	}
}

func (e *ReleaseError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.OpErr != nil {
		errs = append(errs, e.OpErr)
	}
	if e.ReleaseErr != nil {
		errs = append(errs, e.ReleaseErr)
	}
	return errs
}
