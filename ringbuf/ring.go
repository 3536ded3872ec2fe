// File: ringbuf/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ring is a single-producer/single-consumer fixed-size circular slot array
// over a shared memory region. Producer and consumer indices are each
// written by exactly one side; atomic loads/stores on the mapped memory
// provide the ordering guarantee spec §4.2 describes as explicit write/read
// barriers. Adapted from the teacher's internal/concurrency.RingBuffer
// (atomic head/tail, power-of-two masking), generalized to operate over a
// raw shared-memory-backed byte slice instead of a typed Go slice so the
// layout is bit-stable across processes.
package ringbuf

import (
	"errors"
	"sync/atomic"
	"unsafe"
)

// ErrBadRingSize is returned when a ring's declared size is not a
// power of two, or the backing memory doesn't match the expected region
// size.
var ErrBadRingSize = errors.New("ringbuf: size must be a power of two and match region length")

// Ring views a shared memory region as a producer/consumer header followed
// by a fixed slot array. It does not own mem's lifetime.
type Ring struct {
	mem  []byte
	size uint32 // entry count, power of two
}

// NewRing wraps mem (which must be exactly RegionSize(size) bytes) as a
// Ring with the given entry count.
func NewRing(mem []byte, size uint32) (*Ring, error) {
	if !isPowerOfTwo(size) || len(mem) != RegionSize(size) {
		return nil, ErrBadRingSize
	}
	return &Ring{mem: mem, size: size}, nil
}

// Cap returns the ring's entry count.
func (r *Ring) Cap() uint32 { return r.size }

func (r *Ring) producerPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[0]))
}

func (r *Ring) consumerPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[4]))
}

// Producer loads the producer index (written only by the sender side).
func (r *Ring) Producer() uint32 { return atomic.LoadUint32(r.producerPtr()) }

// Consumer loads the consumer index (written only by the receiver side).
func (r *Ring) Consumer() uint32 { return atomic.LoadUint32(r.consumerPtr()) }

// Empty reports producer == consumer.
func (r *Ring) Empty() bool { return r.Producer() == r.Consumer() }

// Full reports producer - consumer == size (unsigned difference, spec §3).
func (r *Ring) Full() bool { return r.Producer()-r.Consumer() == r.size }

// Depth returns the current unsigned producer-consumer distance.
func (r *Ring) Depth() uint32 { return r.Producer() - r.Consumer() }

// InitServer zeroes the producer/consumer header. Only the role marked
// "server" in a connection calls this, at construction time (spec §4.2).
func (r *Ring) InitServer() {
	atomic.StoreUint32(r.producerPtr(), 0)
	atomic.StoreUint32(r.consumerPtr(), 0)
}

// slot returns the raw backing bytes for logical index idx, taken modulo
// the ring's size.
func (r *Ring) slot(idx uint32) []byte {
	off := RingHeaderSize + int(idx&(r.size-1))*SlotSize
	return r.mem[off : off+SlotSize]
}

// TryPush copies data into the next producer slot and publishes the new
// producer index. Returns false if the ring is full. data must fit within
// SlotSize.
func (r *Ring) TryPush(data []byte) bool {
	prod := r.Producer()
	cons := r.Consumer()
	if prod-cons == r.size {
		return false
	}
	dst := r.slot(prod)
	n := copy(dst, data)
	// Zero any remainder so a stale slot never leaks a previous message's
	// tail bytes into a shorter one.
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	// atomic.StoreUint32 below is the write barrier + publish from spec's
	// send contract steps 5-6: the copy above is globally visible before
	// any reader can observe the incremented producer index.
	atomic.StoreUint32(r.producerPtr(), prod+1)
	return true
}

// TryPop copies the next consumer slot into dst (the first min(len(dst),
// SlotSize) bytes of the slot) and publishes the new consumer index.
// Returns false if the ring is empty. Callers size dst from the slot's
// decoded header length.
func (r *Ring) TryPop(dst []byte) bool {
	cons := r.Consumer()
	prod := r.Producer()
	if cons == prod {
		return false
	}
	src := r.slot(cons)
	copy(dst, src)
	atomic.StoreUint32(r.consumerPtr(), cons+1)
	return true
}

// SkipOne advances the consumer index without copying, used when a slot
// fails header validation (spec §4.2 step 4: advance and drop).
func (r *Ring) SkipOne() {
	cons := r.Consumer()
	atomic.StoreUint32(r.consumerPtr(), cons+1)
}

// PeekSlot returns the raw bytes at the current consumer slot without
// advancing the index, for header validation before committing to a copy.
func (r *Ring) PeekSlot() []byte {
	return r.slot(r.Consumer())
}
