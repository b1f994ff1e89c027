package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindMaster byte = 1
)

var (
	ErrCorrupt = errors.New("casstream: corrupt master record")
	magic4     = [...]byte{'C', 'S', 'T', 'M'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record is the flat form of a master record. Times are Unix nanoseconds; 0 means unset.
type Record struct {
	Epoch       uint64
	Writers     uint32
	Readers     uint32
	LastRead    int64
	LastWritten int64
	Chunks      []Chunk
}

type Chunk struct {
	Index    int64
	Size     int64
	Checksum uint64
}

const (
	headerLen = 4 + 1 + 1 + 8 + 4 + 4 + 8 + 8 + 4
	chunkLen  = 8 + 8 + 8
)

// Master:
//
//	magic(4) | ver(1) | kind(1=master) | epoch(u64 be)
//	writers(u32 be) | readers(u32 be)
//	lastRead(i64 be) | lastWritten(i64 be) | n(u32 be)
//	index(i64 be) | size(i64 be) | checksum(u64 be) * n
func EncodeMaster(r Record) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + chunkLen*len(r.Chunks))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindMaster)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], r.Epoch)
	buf.Write(u8[:])
	binary.BigEndian.PutUint32(u4[:], r.Writers)
	buf.Write(u4[:])
	binary.BigEndian.PutUint32(u4[:], r.Readers)
	buf.Write(u4[:])

	binary.BigEndian.PutUint64(u8[:], uint64(r.LastRead))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(r.LastWritten))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Chunks)))
	buf.Write(u4[:])

	for _, c := range r.Chunks {
		binary.BigEndian.PutUint64(u8[:], uint64(c.Index))
		buf.Write(u8[:])
		binary.BigEndian.PutUint64(u8[:], uint64(c.Size))
		buf.Write(u8[:])
		binary.BigEndian.PutUint64(u8[:], c.Checksum)
		buf.Write(u8[:])
	}
	return buf.Bytes()
}

func DecodeMaster(b []byte) (Record, error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindMaster {
		return Record{}, ErrCorrupt
	}

	off := 6
	var r Record

	r.Epoch = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	r.Writers = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	r.Readers = binary.BigEndian.Uint32(b[off : off+4])
	off += 4

	r.LastRead = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	r.LastWritten = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4

	// exact length: no truncation, no trailing bytes; also bounds n before allocating
	if n < 0 || (len(b)-off)%chunkLen != 0 || (len(b)-off)/chunkLen != n {
		return Record{}, ErrCorrupt
	}

	if n > 0 {
		r.Chunks = make([]Chunk, n)
	}
	for i := 0; i < n; i++ {
		r.Chunks[i] = Chunk{
			Index:    int64(binary.BigEndian.Uint64(b[off : off+8])),
			Size:     int64(binary.BigEndian.Uint64(b[off+8 : off+16])),
			Checksum: binary.BigEndian.Uint64(b[off+16 : off+24]),
		}
		off += chunkLen
	}
	return r, nil
}
