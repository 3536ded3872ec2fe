// Author: momentics <momentics@gmail.com>

package ringbuf

import (
	"testing"
)

func newTestRing(t *testing.T, size uint32) *Ring {
	t.Helper()
	mem := make([]byte, RegionSize(size))
	r, err := NewRing(mem, size)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	return r
}

func TestRingEmptyFullInvariant(t *testing.T) {
	const size = 8
	r := newTestRing(t, size)
	if !r.Empty() {
		t.Fatalf("expected new ring to be empty")
	}
	msg := make([]byte, 16)
	for i := uint32(0); i < size; i++ {
		if !r.TryPush(msg) {
			t.Fatalf("push %d unexpectedly failed", i)
		}
		d := r.Depth()
		if d > size {
			t.Fatalf("depth %d exceeds size %d", d, size)
		}
	}
	if !r.Full() {
		t.Fatalf("expected ring to be full after size pushes")
	}
	if r.TryPush(msg) {
		t.Fatalf("push into full ring unexpectedly succeeded")
	}
}

func TestRingRoundTripOrder(t *testing.T) {
	const size = 4
	r := newTestRing(t, size)

	var sent [][]byte
	for i := 0; i < int(size); i++ {
		m := make([]byte, 32)
		m[0] = byte(i)
		sent = append(sent, m)
		if !r.TryPush(m) {
			t.Fatalf("push %d failed", i)
		}
	}

	for i := 0; i < int(size); i++ {
		got := make([]byte, 32)
		if !r.TryPop(got) {
			t.Fatalf("pop %d failed", i)
		}
		if got[0] != byte(i) {
			t.Fatalf("out of order: got %d want %d", got[0], i)
		}
	}
	if !r.Empty() {
		t.Fatalf("expected ring empty after draining")
	}
}

func TestRingBadSize(t *testing.T) {
	mem := make([]byte, RegionSize(3))
	if _, err := NewRing(mem, 3); err == nil {
		t.Fatalf("expected error for non-power-of-two size")
	}
}
