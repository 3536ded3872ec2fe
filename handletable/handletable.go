// File: handletable/handletable.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package handletable

import (
	"sync"
	"unsafe"
)

// Entry is the schema of spec §3's handle-table entry: an opaque handle
// mapping to its owning zone and the native resource it stands for.
type Entry struct {
	Handle    uint64
	OwnerZone uint32
	Ptr       unsafe.Pointer
	Size      uint64
}

// Table is a process-wide mapping from opaque handle to Entry, guarded by
// one mutex (spec §4.3: "expected load is well under a thousand live
// allocations", so a plain map beats the teacher's sharded
// internal/session.sessionManager here — sharding would only pay off at
// session-store scale).
type Table struct {
	mu        sync.Mutex
	entries   map[uint64]Entry
	nextID    uint64
	liveBytes uint64
}

// New constructs an empty handle table. Handle 0 is reserved (spec §4.3),
// so the counter starts at 1.
func New() *Table {
	return &Table{
		entries: make(map[uint64]Entry),
		nextID:  1,
	}
}

// Insert allocates the next handle id, inserts an entry owned by zone, and
// updates the live-bytes counter. Returns 0 if ptr is nil (spec §4.3:
// "Returns 0 on allocation failure or null ptr").
func (t *Table) Insert(zone uint32, ptr unsafe.Pointer, size uint64) uint64 {
	if ptr == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.nextID
	t.nextID++
	t.entries[h] = Entry{Handle: h, OwnerZone: zone, Ptr: ptr, Size: size}
	t.liveBytes += size
	return h
}

// Lookup resolves handle for zone. A handle owned by a different zone and
// an absent handle return the identical error: both paths return
// ErrNotFound, which the dispatcher maps to wire-level INVALID_HANDLE, so
// neither this package nor its callers can be used to distinguish "wrong
// owner" from "never existed" — spec §4.3's side-channel-free requirement.
func (t *Table) Lookup(zone uint32, handle uint64) (unsafe.Pointer, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[handle]
	if !ok {
		return nil, 0, ErrNotFound
	}
	if e.OwnerZone != zone {
		return nil, 0, ErrNotFound
	}
	return e.Ptr, e.Size, nil
}

// Remove resolves and deletes the entry for zone, enforcing the same
// ownership check as Lookup. Used by FREE: the table entry is gone before
// the caller invokes the backend free, so a concurrent second FREE on the
// same handle observes ErrNotFound rather than racing the backend.
func (t *Table) Remove(zone uint32, handle uint64) (unsafe.Pointer, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[handle]
	if !ok || e.OwnerZone != zone {
		return nil, 0, ErrNotFound
	}
	delete(t.entries, handle)
	t.liveBytes -= e.Size
	return e.Ptr, e.Size, nil
}

// Stats reports the current live allocation count and byte total.
func (t *Table) Stats() (liveCount int, liveBytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries), t.liveBytes
}

// Cleanup drops every entry without calling any backing free. The
// dispatcher's shutdown path calls Cleanup and does not free the native
// resources behind the dropped entries either.
func (t *Table) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[uint64]Entry)
	t.liveBytes = 0
}
