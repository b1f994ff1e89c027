package util

import "testing"

func TestKeys(t *testing.T) {
	if got := MasterKey("ns", "s1"); got != "master:ns:s1" {
		t.Fatalf("MasterKey=%q", got)
	}
	if got := ChunkKey("ns", "s1", 0xab, 42); got != "chunk:ns:s1:00000000000000ab:42" {
		t.Fatalf("ChunkKey=%q", got)
	}
	if got := ChunkKey("ns", "s1", ^uint64(0), 0); got != "chunk:ns:s1:ffffffffffffffff:0" {
		t.Fatalf("ChunkKey=%q", got)
	}
	if ChunkKey("ns", "a", 7, 1) == ChunkKey("ns", "a:1", 7, 0) {
		t.Fatalf("chunk keys collide")
	}
	if ChunkKey("ns", "a", 1, 0) == ChunkKey("ns", "a", 2, 0) {
		t.Fatalf("epochs share a chunk key")
	}
}
