// File: gpubackend/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package gpubackend abstracts the backing GPU driver the dispatcher
// invokes after handle resolution (spec §1 "the backing GPU driver
// itself; specified only through the operation set the dispatcher must
// invoke"). Backend is grounded on original_source/gpu-proxy/libvgpu's
// CUDA Driver API subset; Stub is an in-memory double in the style of
// the teacher's fake/ package, standing in for a real CUDA/ROCm binding.
package gpubackend
