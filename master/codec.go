package master

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/unkn0wn-root/casstream/codec"
	"github.com/unkn0wn-root/casstream/internal/wire"
)

var (
	_ codec.Codec[Master] = Binary{}
	_ codec.Codec[Master] = Proto{}
)

// Binary is the default master codec: fixed-width framed binary with a magic
// header and exact-length validation.
type Binary struct{}

func (Binary) Encode(m Master) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	r := wire.Record{
		Epoch:       m.Epoch,
		Writers:     uint32(m.Writers),
		Readers:     uint32(m.Readers),
		LastRead:    toNanos(m.LastRead),
		LastWritten: toNanos(m.LastWritten),
	}
	if n := len(m.Indices); n > 0 {
		r.Chunks = make([]wire.Chunk, n)
		for i := range m.Indices {
			r.Chunks[i] = wire.Chunk{Index: m.Indices[i], Size: m.Sizes[i], Checksum: m.Checksums[i]}
		}
	}
	return wire.EncodeMaster(r), nil
}

func (Binary) Decode(b []byte) (Master, error) {
	r, err := wire.DecodeMaster(b)
	if err != nil {
		return Master{}, err
	}
	m := Master{
		Epoch:       r.Epoch,
		Writers:     int(r.Writers),
		Readers:     int(r.Readers),
		LastRead:    fromNanos(r.LastRead),
		LastWritten: fromNanos(r.LastWritten),
	}
	if n := len(r.Chunks); n > 0 {
		m.Indices = make([]int64, n)
		m.Sizes = make([]int64, n)
		m.Checksums = make([]uint64, n)
		for i, c := range r.Chunks {
			m.Indices[i], m.Sizes[i], m.Checksums[i] = c.Index, c.Size, c.Checksum
		}
	}
	return m, m.Validate()
}

// Proto encodes a master in protobuf wire format without generated code:
//
//	message Master {
//	  repeated int64  indices      = 1 [packed = true];
//	  repeated int64  sizes        = 2 [packed = true];
//	  repeated fixed64 checksums   = 3 [packed = true];
//	  int32 writers                = 4;
//	  int32 readers                = 5;
//	  sint64 last_read_unix_nano   = 6;
//	  sint64 last_written_unix_nano = 7;
//	  fixed64 epoch                = 8;
//	}
type Proto struct{}

const (
	fieldIndices protowire.Number = iota + 1
	fieldSizes
	fieldChecksums
	fieldWriters
	fieldReaders
	fieldLastRead
	fieldLastWritten
	fieldEpoch
)

func (Proto) Encode(m Master) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var b []byte
	if len(m.Indices) > 0 {
		b = appendPackedVarint(b, fieldIndices, m.Indices)
		b = appendPackedVarint(b, fieldSizes, m.Sizes)

		var packed []byte
		for _, c := range m.Checksums {
			packed = protowire.AppendFixed64(packed, c)
		}
		b = protowire.AppendTag(b, fieldChecksums, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	b = appendVarintField(b, fieldWriters, uint64(m.Writers))
	b = appendVarintField(b, fieldReaders, uint64(m.Readers))
	b = appendVarintField(b, fieldLastRead, protowire.EncodeZigZag(toNanos(m.LastRead)))
	b = appendVarintField(b, fieldLastWritten, protowire.EncodeZigZag(toNanos(m.LastWritten)))
	if m.Epoch != 0 {
		b = protowire.AppendTag(b, fieldEpoch, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, m.Epoch)
	}
	return b, nil
}

func (Proto) Decode(b []byte) (Master, error) {
	var m Master
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Master{}, fmt.Errorf("master proto: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && (num == fieldIndices || num == fieldSizes || num == fieldChecksums):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Master{}, fmt.Errorf("master proto: %w", protowire.ParseError(n))
			}
			b = b[n:]
			if err := decodePacked(&m, num, v); err != nil {
				return Master{}, err
			}
		case typ == protowire.VarintType && num >= fieldWriters && num <= fieldLastWritten:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Master{}, fmt.Errorf("master proto: %w", protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldWriters:
				m.Writers = int(int32(v))
			case fieldReaders:
				m.Readers = int(int32(v))
			case fieldLastRead:
				m.LastRead = fromNanos(protowire.DecodeZigZag(v))
			case fieldLastWritten:
				m.LastWritten = fromNanos(protowire.DecodeZigZag(v))
			}
		case typ == protowire.Fixed64Type && num == fieldEpoch:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return Master{}, fmt.Errorf("master proto: %w", protowire.ParseError(n))
			}
			b = b[n:]
			m.Epoch = v
		default:
			// unknown field; skip for forward compatibility
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Master{}, fmt.Errorf("master proto: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, m.Validate()
}

func decodePacked(m *Master, num protowire.Number, v []byte) error {
	for len(v) > 0 {
		if num == fieldChecksums {
			c, n := protowire.ConsumeFixed64(v)
			if n < 0 {
				return fmt.Errorf("master proto: %w", protowire.ParseError(n))
			}
			m.Checksums = append(m.Checksums, c)
			v = v[n:]
			continue
		}
		x, n := protowire.ConsumeVarint(v)
		if n < 0 {
			return fmt.Errorf("master proto: %w", protowire.ParseError(n))
		}
		if num == fieldIndices {
			m.Indices = append(m.Indices, int64(x))
		} else {
			m.Sizes = append(m.Sizes, int64(x))
		}
		v = v[n:]
	}
	return nil
}

func appendPackedVarint(b []byte, num protowire.Number, vs []int64) []byte {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// proto3 omits zero scalars
func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
