// File: gpubackend/stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub is an in-memory Backend double, in the style of the teacher's
// fake/ package test doubles, standing in for a real CUDA/ROCm binding
// until one is wired.

package gpubackend

import (
	"sync"
	"unsafe"

	"github.com/momentics/idm-core/wire"
)

// Stub backs every allocation with a real Go byte slice and keys it by
// the slice's first-element pointer, so offset/size bounds behave exactly
// as a real device allocation would.
type Stub struct {
	mu  sync.Mutex
	mem map[unsafe.Pointer][]byte

	deviceName    string
	totalMemBytes uint64
	computeMajor  uint32
	computeMinor  uint32
}

// NewStub constructs a Stub describing a single synthetic device.
func NewStub() *Stub {
	return &Stub{
		mem:           make(map[unsafe.Pointer][]byte),
		deviceName:    "idm-stub-device-0",
		totalMemBytes: 16 << 30,
		computeMajor:  7,
		computeMinor:  5,
	}
}

// withinBounds reports whether [offset, offset+size) fits inside a
// bufLen-byte allocation without letting offset+size wrap past the top
// of the uint64 range and falsely compare as in-bounds.
func withinBounds(offset, size, bufLen uint64) bool {
	if size > bufLen {
		return false
	}
	return offset <= bufLen-size
}

func (s *Stub) Alloc(size uint64, flags uint32) (unsafe.Pointer, error) {
	_ = flags
	if size == 0 {
		return nil, errZeroSize()
	}
	buf := make([]byte, size)
	ptr := unsafe.Pointer(&buf[0])

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[ptr] = buf
	return ptr, nil
}

func (s *Stub) Free(ptr unsafe.Pointer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mem[ptr]; !ok {
		return errInvalidPointer()
	}
	delete(s.mem, ptr)
	return nil
}

func (s *Stub) CopyH2D(ptr unsafe.Pointer, offset uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.mem[ptr]
	if !ok {
		return errInvalidPointer()
	}
	if !withinBounds(offset, uint64(len(data)), uint64(len(buf))) {
		return errOutOfRange()
	}
	copy(buf[offset:], data)
	return nil
}

func (s *Stub) CopyD2H(ptr unsafe.Pointer, offset uint64, dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.mem[ptr]
	if !ok {
		return errInvalidPointer()
	}
	if !withinBounds(offset, uint64(len(dst)), uint64(len(buf))) {
		return errOutOfRange()
	}
	copy(dst, buf[offset:offset+uint64(len(dst))])
	return nil
}

func (s *Stub) CopyD2D(dstPtr unsafe.Pointer, dstOffset uint64, srcPtr unsafe.Pointer, srcOffset uint64, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dstBuf, ok := s.mem[dstPtr]
	if !ok {
		return errInvalidPointer()
	}
	srcBuf, ok := s.mem[srcPtr]
	if !ok {
		return errInvalidPointer()
	}
	if !withinBounds(dstOffset, size, uint64(len(dstBuf))) || !withinBounds(srcOffset, size, uint64(len(srcBuf))) {
		return errOutOfRange()
	}
	copy(dstBuf[dstOffset:dstOffset+size], srcBuf[srcOffset:srcOffset+size])
	return nil
}

func (s *Stub) Memset(ptr unsafe.Pointer, offset uint64, value byte, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.mem[ptr]
	if !ok {
		return errInvalidPointer()
	}
	if !withinBounds(offset, size, uint64(len(buf))) {
		return errOutOfRange()
	}
	region := buf[offset : offset+size]
	for i := range region {
		region[i] = value
	}
	return nil
}

func (s *Stub) Synchronize() error { return nil }

func (s *Stub) Properties() wire.DeviceProperties {
	return wire.DeviceProperties{
		Name:          s.deviceName,
		DeviceCount:   1,
		TotalMemBytes: s.totalMemBytes,
		ComputeMajor:  s.computeMajor,
		ComputeMinor:  s.computeMinor,
	}
}
