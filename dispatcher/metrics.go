// File: dispatcher/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Metrics wraps the dispatcher's atomic counters and publishes them into
// the teacher's control.MetricsRegistry, keeping the ambient metrics
// surface uniform across the codebase.

package dispatcher

import (
	"sync/atomic"

	"github.com/momentics/idm-core/control"
	"github.com/momentics/idm-core/handletable"
)

// Metrics accumulates dispatcher-visible counters (spec SPEC_FULL.md
// ambient stack: handles.live, handles.bytes, requests.total,
// requests.errors, protocol.drops).
type Metrics struct {
	requestsTotal  uint64
	requestsErrors uint64
	protocolDrops  uint64

	registry *control.MetricsRegistry
}

func newMetrics() *Metrics {
	return &Metrics{registry: control.NewMetricsRegistry()}
}

func (m *Metrics) recordRequest() { atomic.AddUint64(&m.requestsTotal, 1) }
func (m *Metrics) recordError()   { atomic.AddUint64(&m.requestsErrors, 1) }

// Snapshot refreshes the registry with current counter values, including
// the handle table's live-allocation stats, and returns the merged view.
func (m *Metrics) Snapshot(handles *handletable.Table) map[string]any {
	live, bytes := handles.Stats()
	m.registry.Set("requests.total", atomic.LoadUint64(&m.requestsTotal))
	m.registry.Set("requests.errors", atomic.LoadUint64(&m.requestsErrors))
	m.registry.Set("protocol.drops", atomic.LoadUint64(&m.protocolDrops))
	m.registry.Set("handles.live", live)
	m.registry.Set("handles.bytes", bytes)
	return m.registry.GetSnapshot()
}
