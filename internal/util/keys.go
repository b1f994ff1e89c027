package util

import (
	"strconv"
	"strings"
)

// MasterKey is the storage key of a stream's master record.
func MasterKey(ns, stream string) string {
	return "master:" + ns + ":" + stream
}

// ChunkKey is the storage key of one chunk of one stream incarnation. The epoch
// is fixed-width hex and the index goes last, so stream ids containing ':'
// cannot collide with another stream's chunk keys.
func ChunkKey(ns, stream string, epoch uint64, index int64) string {
	var b strings.Builder
	b.Grow(len("chunk:") + len(ns) + len(stream) + 40)
	b.WriteString("chunk:")
	b.WriteString(ns)
	b.WriteByte(':')
	b.WriteString(stream)
	b.WriteByte(':')
	e := strconv.FormatUint(epoch, 16)
	for i := len(e); i < 16; i++ {
		b.WriteByte('0')
	}
	b.WriteString(e)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(index, 10))
	return b.String()
}
