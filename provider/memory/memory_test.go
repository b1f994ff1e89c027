package memory

import (
	"context"
	"testing"
	"time"
)

func TestCompareAndSwapExpectAbsent(t *testing.T) {
	ctx := context.Background()
	p := New()

	ok, err := p.CompareAndSwap(ctx, "k", nil, []byte("v1"))
	if err != nil || !ok {
		t.Fatalf("first CAS: ok=%v err=%v", ok, err)
	}
	// key now present; "expect absent" must fail
	ok, err = p.CompareAndSwap(ctx, "k", nil, []byte("v2"))
	if err != nil || ok {
		t.Fatalf("CAS on present key with nil old: ok=%v err=%v", ok, err)
	}
	got, _, _ := p.Get(ctx, "k")
	if string(got) != "v1" {
		t.Fatalf("got %q want v1", got)
	}
}

func TestCompareAndSwapMismatch(t *testing.T) {
	ctx := context.Background()
	p := New()
	_, _ = p.Set(ctx, "k", []byte("a"), 1, 0)

	if ok, _ := p.CompareAndSwap(ctx, "k", []byte("b"), []byte("c")); ok {
		t.Fatalf("CAS with stale old should fail")
	}
	if ok, _ := p.CompareAndSwap(ctx, "k", []byte("a"), []byte("c")); !ok {
		t.Fatalf("CAS with current old should succeed")
	}
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	p := New()
	_, _ = p.Set(ctx, "k", []byte("a"), 1, 0)

	if ok, _ := p.CompareAndDelete(ctx, "k", []byte("x")); ok {
		t.Fatalf("CAD with wrong old should fail")
	}
	if ok, _ := p.CompareAndDelete(ctx, "k", []byte("a")); !ok {
		t.Fatalf("CAD with current old should succeed")
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("key should be gone")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	p := New()
	in := []byte("abc")
	_, _ = p.Set(ctx, "k", in, 1, 0)
	in[0] = 'X'

	got, _, _ := p.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
	got[1] = 'Y'
	again, _, _ := p.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased stored slice: %q", again)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	p := New()
	_, _ = p.Set(ctx, "k", []byte("v"), 1, 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}
