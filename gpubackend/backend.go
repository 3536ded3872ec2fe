// File: gpubackend/backend.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package gpubackend

import (
	"unsafe"

	"github.com/momentics/idm-core/wire"
)

// Backend is the operation set the dispatcher invokes after handle
// resolution (spec §1, §4.4). It is the Go mirror of
// original_source/gpu-proxy/libvgpu's CUDA Driver API subset, narrowed to
// the calls the dispatcher's message handlers actually make.
type Backend interface {
	// Alloc reserves size bytes of device memory and returns a native
	// pointer identifying it. flags is carried verbatim from the ALLOC
	// request for backend-specific interpretation.
	Alloc(size uint64, flags uint32) (unsafe.Pointer, error)

	// Free releases memory previously returned by Alloc.
	Free(ptr unsafe.Pointer) error

	// CopyH2D writes data into device memory at ptr+offset.
	CopyH2D(ptr unsafe.Pointer, offset uint64, data []byte) error

	// CopyD2H reads len(dst) bytes from device memory at ptr+offset into
	// dst, a staging buffer supplied by the caller.
	CopyD2H(ptr unsafe.Pointer, offset uint64, dst []byte) error

	// CopyD2D copies size bytes from srcPtr+srcOffset to dstPtr+dstOffset,
	// both device-resident.
	CopyD2D(dstPtr unsafe.Pointer, dstOffset uint64, srcPtr unsafe.Pointer, srcOffset uint64, size uint64) error

	// Memset fills size bytes at ptr+offset with value.
	Memset(ptr unsafe.Pointer, offset uint64, value byte, size uint64) error

	// Synchronize blocks until all outstanding device work completes.
	Synchronize() error

	// Properties reports static device information for GET_INFO/GET_PROPS.
	Properties() wire.DeviceProperties
}

// BackendError carries a backend-native error code alongside a
// human-readable message, matching spec §4.4's "RESPONSE_ERROR with
// DRIVER_ERROR and the backend's error code".
type BackendError struct {
	Code    int32
	Message string
}

func (e *BackendError) Error() string { return e.Message }
