package casstream

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/casstream/codec"
	"github.com/unkn0wn-root/casstream/master"
	pr "github.com/unkn0wn-root/casstream/provider"
	"github.com/unkn0wn-root/casstream/seq"
	"github.com/unkn0wn-root/casstream/wait"
)

// Mode selects how Open attaches to a stream.
type Mode int

const (
	// ModeRead takes read participation over the committed generation.
	ModeRead Mode = iota
	// ModeWrite replaces the stream's content on Close.
	ModeWrite
	// ModeAppend keeps the committed chunks and adds new ones after them.
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Stream is the handle Open returns: a *Reader for ModeRead, a *Writer otherwise.
type Stream interface {
	Close() error
}

// Store is the byte-stream API over a size-limited cache.
// Readers and writers of one stream id coordinate through the master record only.
type Store interface {
	Open(ctx context.Context, id string, mode Mode) (Stream, error)

	// OpenReader and OpenWriter bind ctx to the returned handle: it bounds the
	// acquire and then every Read, Write and Close on the handle. Releases that
	// run after ctx has ended use a detached context bounded by ReleaseTimeout.
	OpenReader(ctx context.Context, id string) (*Reader, error)
	OpenWriter(ctx context.Context, id string, mode Mode) (*Writer, error)

	// Delete removes the master record and every chunk of the stream.
	// It waits for exclusive access like a writer does.
	Delete(ctx context.Context, id string) error

	// Stat returns the current master record; ok=false when the stream was never touched.
	Stat(ctx context.Context, id string) (m master.Master, ok bool, err error)

	Close(context.Context) error
}

// Options tune the store.
// Only Namespace and Provider are required; others have sensible defaults.
type Options struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "video", "report"
	Provider  pr.Provider

	Codec     c.Codec[master.Master] // nil => master.Binary
	Allocator seq.Allocator          // nil => seq.Local (in-process)
	Logger    Logger                 // if nil, NopLogger is used
	Hooks     Hooks                  // if nil, NopHooks is used

	ChunkSize      int // bytes per chunk written; 0 => 256KiB
	ReadBufferSize int // Reader.WriteTo buffer; 0 => 64KiB
	MaxMasterSize  int // reject master records larger than this on decode; 0 => unlimited

	// Retry budget of every CAS loop: total time spent pausing, and attempts.
	MaxWait     time.Duration // 0 => 30s
	MaxAttempts int           // 0 => bounded by MaxWait only

	// ReleaseTimeout bounds releases that run after the caller's context ended.
	ReleaseTimeout time.Duration // 0 => MaxWait

	// Backoff overrides per topology; Strategy, when set, bypasses topology selection.
	Backoff  map[pr.Topology]wait.Override
	Strategy wait.Strategy

	CleanupConcurrency int // parallel chunk deletes; 0 => 8
}

func New(opts Options) (Store, error) {
	s, err := newStore(opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
