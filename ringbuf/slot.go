// File: ringbuf/slot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ringbuf

// SlotSize is the fixed, page-aligned size of one ring slot. It must match
// on both ends of a connection (spec §6).
const SlotSize = 4096

// DefaultRingSize is the default entry count, a power of two (spec §3).
const DefaultRingSize = 32

// RingHeaderSize is the fixed size of the producer/consumer header that
// precedes the slot array in the shared region.
const RingHeaderSize = 16

// RegionSize returns the total shared-memory footprint of a ring with the
// given entry count.
func RegionSize(ringSize uint32) int {
	return RingHeaderSize + int(ringSize)*SlotSize
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}
