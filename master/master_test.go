package master

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/casstream/codec"
)

type step struct {
	kind     int // 0 chunk, 1 writer, 2 reader
	size     int64
	checksum uint64
}

func randomSteps(r *rand.Rand, n int) []step {
	out := make([]step, n)
	for i := range out {
		out[i] = step{kind: r.IntN(3), size: 1 + r.Int64N(1<<20), checksum: r.Uint64()}
	}
	return out
}

func build(t *testing.T, steps []step, ts time.Time) Master {
	t.Helper()
	var m Master
	next := int64(0)
	for _, s := range steps {
		switch s.kind {
		case 0:
			require.NoError(t, m.AddChunk(next, s.size, s.checksum))
			next++
		case 1:
			m.AddWriter()
		case 2:
			m.AddReader()
		}
	}
	m.LastRead, m.LastWritten = ts, ts.Add(time.Second)
	return m
}

func TestCompareIgnoresTimes(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 100; i++ {
		steps := randomSteps(r, 1+r.IntN(40))
		a := build(t, steps, time.Unix(100, 0))
		b := build(t, steps, time.Unix(999, 0))

		assert.True(t, a.Compare(b))
		assert.False(t, a.Equal(b))
		assert.True(t, a.Equal(a.Clone()))
	}
}

func TestCompareDetectsDifferentSequences(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 100; i++ {
		a := build(t, randomSteps(r, 20), time.Time{})
		b := build(t, randomSteps(r, 20), time.Time{})
		assert.False(t, a.Compare(b), "iteration %d", i)
	}
}

func TestCompareSeparatesEpochs(t *testing.T) {
	a := Master{Epoch: 1}
	b := Master{Epoch: 2}
	assert.False(t, a.Compare(b))
	b.Epoch = 1
	assert.True(t, a.Compare(b))
	assert.Equal(t, a.Epoch, a.Clone().Epoch)
}

func TestCloneSharesNoStorage(t *testing.T) {
	var m Master
	require.NoError(t, m.AddChunk(1, 10, 100))
	require.NoError(t, m.AddChunk(2, 20, 200))

	c := m.Clone()
	c.Indices[0] = 99
	c.Sizes[1] = 1
	c.Checksums[0] = 0
	require.NoError(t, c.AddChunk(100, 5, 5))
	c.AddReader()

	assert.Equal(t, []int64{1, 2}, m.Indices)
	assert.Equal(t, []int64{10, 20}, m.Sizes)
	assert.Equal(t, []uint64{100, 200}, m.Checksums)
	assert.Zero(t, m.Readers)
}

func TestAddChunkInvariants(t *testing.T) {
	var m Master
	require.NoError(t, m.AddChunk(5, 1, 0))
	assert.ErrorIs(t, m.AddChunk(5, 1, 0), ErrIndexOrder)
	assert.ErrorIs(t, m.AddChunk(4, 1, 0), ErrIndexOrder)
	assert.ErrorIs(t, m.AddChunk(6, 0, 0), ErrEmptyChunk)
	assert.Equal(t, 1, m.ChunkCount())
	assert.Equal(t, int64(5), m.LastIndex())

	m.ResetChunks()
	assert.Zero(t, m.ChunkCount())
	assert.Equal(t, int64(-1), m.LastIndex())
	require.NoError(t, m.AddChunk(0, 3, 0))
}

func TestRemoveBelowZero(t *testing.T) {
	var m Master
	assert.ErrorIs(t, m.RemoveWriter(), ErrNoParticipant)
	assert.ErrorIs(t, m.RemoveReader(), ErrNoParticipant)
	m.AddWriter()
	m.AddReader()
	assert.NoError(t, m.RemoveWriter())
	assert.NoError(t, m.RemoveReader())
	assert.Zero(t, m.Writers)
	assert.Zero(t, m.Readers)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Master{}.Validate())
	assert.ErrorIs(t, Master{Indices: []int64{1}}.Validate(), ErrInconsistent)
	assert.ErrorIs(t, Master{Readers: -1}.Validate(), ErrNoParticipant)
	bad := Master{Indices: []int64{2, 1}, Sizes: []int64{1, 1}, Checksums: []uint64{0, 0}}
	assert.ErrorIs(t, bad.Validate(), ErrIndexOrder)
}

func TestTotalSize(t *testing.T) {
	var m Master
	for i := int64(0); i < 31; i++ {
		require.NoError(t, m.AddChunk(i, 8192, 0))
	}
	require.NoError(t, m.AddChunk(31, 1968, 0))
	assert.Equal(t, int64(250_000), m.TotalSize())
	assert.Equal(t, 32, m.ChunkCount())
}

func sample(t *testing.T) Master {
	t.Helper()
	m := Master{Epoch: 0xfeedfacecafebeef}
	require.NoError(t, m.AddChunk(3, 8192, 0xdeadbeef))
	require.NoError(t, m.AddChunk(4, 17, ^uint64(0)))
	m.AddWriter()
	m.LastWritten = time.Unix(1_700_000_000, 123).UTC()
	return m
}

func TestCodecsRoundTrip(t *testing.T) {
	codecs := map[string]codec.Codec[Master]{
		"binary":  Binary{},
		"proto":   Proto{},
		"json":    codec.JSON[Master]{},
		"msgpack": codec.Msgpack[Master]{},
		"cbor":    codec.MustCBOR[Master](true),
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			for _, m := range []Master{{}, sample(t)} {
				b, err := c.Encode(m)
				require.NoError(t, err)
				got, err := c.Decode(b)
				require.NoError(t, err)
				assert.True(t, m.Equal(got), "got %v want %v", got, m)

				again, err := c.Encode(m)
				require.NoError(t, err)
				assert.Equal(t, b, again, "encoding must be deterministic")
			}
		})
	}
}

func TestBinaryRejectsInvalidMaster(t *testing.T) {
	_, err := Binary{}.Encode(Master{Indices: []int64{1}})
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestProtoSkipsUnknownFields(t *testing.T) {
	b, err := Proto{}.Encode(sample(t))
	require.NoError(t, err)
	// field 15, varint 1
	b = append(b, 15<<3|0, 1)
	got, err := Proto{}.Decode(b)
	require.NoError(t, err)
	assert.True(t, sample(t).Equal(got))
}

func TestProtoRejectsTruncated(t *testing.T) {
	b, err := Proto{}.Encode(sample(t))
	require.NoError(t, err)
	_, err = Proto{}.Decode(b[:len(b)-1])
	assert.Error(t, err)
}
