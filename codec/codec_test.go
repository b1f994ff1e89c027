package codec

import (
	"bytes"
	"strings"
	"testing"
)

type rec struct {
	Name  string           `json:"name" cbor:"1,keyasint" msgpack:"name"`
	Sizes []int64          `json:"sizes" cbor:"2,keyasint" msgpack:"sizes"`
	Tags  map[string]int64 `json:"tags" cbor:"3,keyasint" msgpack:"tags"`
}

func sampleRec() rec {
	return rec{Name: "s", Sizes: []int64{8, 8, 3}, Tags: map[string]int64{"z": 1, "a": 2, "m": 3}}
}

func TestCodecsAreDeterministic(t *testing.T) {
	for name, c := range map[string]Codec[rec]{
		"json":    JSON[rec]{},
		"msgpack": Msgpack[rec]{},
		"cbor":    MustCBOR[rec](true),
	} {
		t.Run(name, func(t *testing.T) {
			a, err := c.Encode(sampleRec())
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			for i := 0; i < 20; i++ {
				b, _ := c.Encode(sampleRec())
				if !bytes.Equal(a, b) {
					t.Fatalf("encoding %d differs", i)
				}
			}
			got, err := c.Decode(a)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Name != "s" || len(got.Sizes) != 3 || got.Tags["m"] != 3 {
				t.Fatalf("decoded %+v", got)
			}
		})
	}
}

func TestLimitCodec(t *testing.T) {
	lc := LimitCodec[rec]{Inner: JSON[rec]{}, MaxDecode: 10}
	b, err := lc.Encode(sampleRec())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := lc.Decode(b); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("Decode over limit: %v", err)
	}

	lc.MaxDecode = 0
	if _, err := lc.Decode(b); err != nil {
		t.Fatalf("unlimited Decode: %v", err)
	}
}
