//go:build windows
// +build windows

// File: pool/bufferpool_windows.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Windows-specific NUMA-aware, zero-copy buffer pool implementation.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/idm-core/api"
)

// windowsBufferPool is a sync.Pool-backed api.BufferPool for one NUMA node.
type windowsBufferPool struct {
	pool       sync.Pool
	numaId     int
	totalAlloc int64
	totalFree  int64
}

func (bp *windowsBufferPool) Get(size int, numaPreferred int) api.Buffer {
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
func (bp *windowsBufferPool) Put(b api.Buffer) {
	atomic.AddInt64(&bp.totalFree, 1)
	bp.pool.Put(b.Data)
}

func (bp *windowsBufferPool) Stats() api.BufferPoolStats {
	alloc := atomic.LoadInt64(&bp.totalAlloc)
	free := atomic.LoadInt64(&bp.totalFree)
	return api.BufferPoolStats{
		TotalAlloc: alloc,
		TotalFree:  free,
		InUse:      alloc - free,
		NUMAStats:  map[int]int64{bp.numaId: alloc - free},
	}
}

// newBufferPool (Windows) creates buffer pool with potential NUMA affinity.
func newBufferPool(numaNode int) api.BufferPool {
	return &windowsBufferPool{numaId: numaNode}
}
