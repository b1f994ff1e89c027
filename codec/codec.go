// Package codec serializes master records for storage.
//
// The coordinator compares raw bytes on CAS, so an encoder should be
// deterministic: encoding the same value twice must give the same bytes.
// master.Binary is the default; the codecs here are generic alternatives.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
