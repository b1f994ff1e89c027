// Package master defines the per-stream master record: the chunk layout of the
// committed generation plus the counts of active readers and writers.
//
// A Master is a value. The coordinator never edits the stored record in place;
// it clones the snapshot it read, applies a delta to the clone and publishes the
// clone with compare-and-swap. Clone therefore never shares backing arrays.
package master

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrIndexOrder    = errors.New("master: chunk index must be strictly increasing")
	ErrEmptyChunk    = errors.New("master: chunk size must be positive")
	ErrNoParticipant = errors.New("master: count would drop below zero")
	ErrInconsistent  = errors.New("master: chunk sequences differ in length")
)

type Master struct {
	// Epoch names one incarnation of the stream. It is drawn when the record is
	// created and is part of every chunk key, so chunks of a deleted incarnation
	// can never be mistaken for chunks of a later one.
	Epoch uint64 `json:"epoch" cbor:"8,keyasint" msgpack:"e"`

	Indices   []int64  `json:"indices" cbor:"1,keyasint" msgpack:"i"`
	Sizes     []int64  `json:"sizes" cbor:"2,keyasint" msgpack:"s"`
	Checksums []uint64 `json:"checksums" cbor:"3,keyasint" msgpack:"c"`

	Writers int `json:"writers" cbor:"4,keyasint" msgpack:"w"`
	Readers int `json:"readers" cbor:"5,keyasint" msgpack:"r"`

	// advisory; ignored by Compare
	LastRead    time.Time `json:"last_read" cbor:"6,keyasint" msgpack:"lr"`
	LastWritten time.Time `json:"last_written" cbor:"7,keyasint" msgpack:"lw"`
}

func (m Master) ChunkCount() int { return len(m.Indices) }

// AddChunk appends one chunk to the layout.
func (m *Master) AddChunk(index, size int64, checksum uint64) error {
	if size <= 0 {
		return fmt.Errorf("%w: index %d size %d", ErrEmptyChunk, index, size)
	}
	if n := len(m.Indices); n > 0 && index <= m.Indices[n-1] {
		return fmt.Errorf("%w: %d after %d", ErrIndexOrder, index, m.Indices[n-1])
	}
	m.Indices = append(m.Indices, index)
	m.Sizes = append(m.Sizes, size)
	m.Checksums = append(m.Checksums, checksum)
	return nil
}

// ResetChunks drops the chunk layout, keeping counts and times.
func (m *Master) ResetChunks() {
	m.Indices, m.Sizes, m.Checksums = nil, nil, nil
}

func (m *Master) AddWriter() { m.Writers++ }
func (m *Master) AddReader() { m.Readers++ }

func (m *Master) RemoveWriter() error {
	if m.Writers <= 0 {
		return fmt.Errorf("%w: writers", ErrNoParticipant)
	}
	m.Writers--
	return nil
}

func (m *Master) RemoveReader() error {
	if m.Readers <= 0 {
		return fmt.Errorf("%w: readers", ErrNoParticipant)
	}
	m.Readers--
	return nil
}

// TotalSize is the stream length in bytes.
func (m Master) TotalSize() int64 {
	var n int64
	for _, s := range m.Sizes {
		n += s
	}
	return n
}

// LastIndex returns the highest chunk index, or -1 when there are no chunks.
func (m Master) LastIndex() int64 {
	if len(m.Indices) == 0 {
		return -1
	}
	return m.Indices[len(m.Indices)-1]
}

func (m Master) Clone() Master {
	m.Indices = slices.Clone(m.Indices)
	m.Sizes = slices.Clone(m.Sizes)
	m.Checksums = slices.Clone(m.Checksums)
	return m
}

// Equal compares every field, timestamps included.
func (m Master) Equal(o Master) bool {
	return m.Compare(o) && m.LastRead.Equal(o.LastRead) && m.LastWritten.Equal(o.LastWritten)
}

// Compare reports whether m and o are the same logical version: equal in
// everything except the advisory read/write times.
func (m Master) Compare(o Master) bool {
	return m.Epoch == o.Epoch &&
		m.Writers == o.Writers &&
		m.Readers == o.Readers &&
		slices.Equal(m.Indices, o.Indices) &&
		slices.Equal(m.Sizes, o.Sizes) &&
		slices.Equal(m.Checksums, o.Checksums)
}

// Validate checks the structural invariants a decoded record must satisfy.
func (m Master) Validate() error {
	if len(m.Sizes) != len(m.Indices) || len(m.Checksums) != len(m.Indices) {
		return fmt.Errorf("%w: indices=%d sizes=%d checksums=%d",
			ErrInconsistent, len(m.Indices), len(m.Sizes), len(m.Checksums))
	}
	if m.Writers < 0 || m.Readers < 0 {
		return fmt.Errorf("%w: writers=%d readers=%d", ErrNoParticipant, m.Writers, m.Readers)
	}
	for i := range m.Indices {
		if m.Sizes[i] <= 0 {
			return fmt.Errorf("%w: index %d size %d", ErrEmptyChunk, m.Indices[i], m.Sizes[i])
		}
		if i > 0 && m.Indices[i] <= m.Indices[i-1] {
			return fmt.Errorf("%w: %d after %d", ErrIndexOrder, m.Indices[i], m.Indices[i-1])
		}
	}
	return nil
}

func (m Master) String() string {
	return fmt.Sprintf("master{epoch=%016x chunks=%d bytes=%d writers=%d readers=%d}",
		m.Epoch, m.ChunkCount(), m.TotalSize(), m.Writers, m.Readers)
}
