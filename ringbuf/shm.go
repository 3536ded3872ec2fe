// File: ringbuf/shm.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Region is the shared memory abstraction backing a Ring (spec §6): two
// per connection, named deterministically by zone id. LocalRegion below is
// the portable, same-process substrate used for colocated zones and tests
// (grounded on the teacher's fake/ package convention of an in-memory
// stand-in for an external resource); shm_linux.go provides the real
// POSIX-shm-backed substrate for separate-process zones on Linux,
// grounded on original_source/idm-protocol/transport.c's stub-mode
// shmget/shmat and the teacher's unix.Mmap usage in
// internal/transport/transport_linux.go.

package ringbuf

import (
	"fmt"
	"sync"
)

// Region exposes the raw backing bytes of a shared memory mapping.
type Region interface {
	Bytes() []byte
	Close() error
}

var (
	localRegistryMu sync.Mutex
	localRegistry   = map[string][]byte{}
)

// LocalRegion is a same-process Region keyed by name, emulating the
// named-shared-memory contract of spec §6 without crossing a process
// boundary. Every OpenLocalRegion call for the same name and size returns
// a Region backed by the identical byte slice.
type LocalRegion struct {
	name string
	mem  []byte
}

// OpenLocalRegion attaches to (creating if absent) a named in-process
// region of exactly size bytes.
func OpenLocalRegion(name string, size int) (*LocalRegion, error) {
	localRegistryMu.Lock()
	defer localRegistryMu.Unlock()
	mem, ok := localRegistry[name]
	if !ok {
		mem = make([]byte, size)
		localRegistry[name] = mem
	} else if len(mem) != size {
		return nil, fmt.Errorf("ringbuf: region %q size mismatch: have %d want %d", name, len(mem), size)
	}
	return &LocalRegion{name: name, mem: mem}, nil
}

// Bytes implements Region.
func (r *LocalRegion) Bytes() []byte { return r.mem }

// Close implements Region. It does not release the named region, since
// other attached endpoints may still reference it; see ForgetLocalRegion.
func (r *LocalRegion) Close() error { return nil }

// ForgetLocalRegion drops a named region from the process-wide registry,
// for test teardown between independent connection pairs that happen to
// reuse a zone id.
func ForgetLocalRegion(name string) {
	localRegistryMu.Lock()
	delete(localRegistry, name)
	localRegistryMu.Unlock()
}

// RegionName derives the deterministic shared-memory name for a ring
// written by senderZone and read by receiverZone (spec §6: "named
// deterministically by zone id").
func RegionName(senderZone, receiverZone uint32) string {
	return fmt.Sprintf("idm_ring_%d_to_%d", senderZone, receiverZone)
}
