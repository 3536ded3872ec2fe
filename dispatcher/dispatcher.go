// File: dispatcher/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatcher

import (
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/idm-core/affinity"
	"github.com/momentics/idm-core/api"
	"github.com/momentics/idm-core/gpubackend"
	"github.com/momentics/idm-core/handletable"
	"github.com/momentics/idm-core/internal/concurrency"
	"github.com/momentics/idm-core/pool"
	"github.com/momentics/idm-core/ringbuf"
	"github.com/momentics/idm-core/wire"
)

// defaultRecvTimeout bounds each receive-loop iteration so a pending
// shutdown request is noticed promptly (spec §4.4's "the loop returns on
// next receive timeout").
const defaultRecvTimeout = 500 * time.Millisecond

// Dispatcher drives the driver-zone side of one Connection (spec §4.4).
type Dispatcher struct {
	conn    *ringbuf.Connection
	backend gpubackend.Backend
	handles *handletable.Table
	staging api.BufferPool

	backlog *concurrency.Executor

	cpuID       int
	pinAffinity bool
	recvTimeout time.Duration
	numaNode    int

	stateMu sync.Mutex
	state   State

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	stoppedCh    chan struct{}

	metrics *Metrics
	logger  *log.Logger
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithRecvTimeout overrides the per-iteration receive timeout.
func WithRecvTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.recvTimeout = d }
}

// WithAffinity pins the dispatcher loop's OS thread to cpuID once RUNNING.
func WithAffinity(cpuID int) Option {
	return func(disp *Dispatcher) {
		disp.cpuID = cpuID
		disp.pinAffinity = true
	}
}

// WithNUMANode sets the preferred NUMA node for staging-buffer allocation.
func WithNUMANode(node int) Option {
	return func(disp *Dispatcher) { disp.numaNode = node }
}

// WithStagingPool overrides the default staging-buffer pool (for tests).
func WithStagingPool(p api.BufferPool) Option {
	return func(disp *Dispatcher) { disp.staging = p }
}

// WithLogger overrides the default stderr logger.
func WithLogger(l *log.Logger) Option {
	return func(disp *Dispatcher) { disp.logger = l }
}

// New constructs a Dispatcher in state INIT.
func New(conn *ringbuf.Connection, backend gpubackend.Backend, opts ...Option) *Dispatcher {
	disp := &Dispatcher{
		conn:        conn,
		backend:     backend,
		handles:     handletable.New(),
		backlog:     concurrency.NewExecutor(1),
		recvTimeout: defaultRecvTimeout,
		numaNode:    -1,
		state:       StateInit,
		shutdownCh:  make(chan struct{}),
		stoppedCh:   make(chan struct{}),
		metrics:     newMetrics(),
		logger:      log.New(os.Stderr, "idm-dispatcher: ", log.LstdFlags),
	}
	for _, o := range opts {
		o(disp)
	}
	if disp.staging == nil {
		mgr := pool.NewBufferPoolManager()
		disp.staging = mgr.GetPool(disp.numaNode)
	}
	disp.setState(StateReady)
	return disp
}

// State reports the dispatcher's current lifecycle state.
func (disp *Dispatcher) State() State {
	disp.stateMu.Lock()
	defer disp.stateMu.Unlock()
	return disp.state
}

func (disp *Dispatcher) setState(s State) {
	disp.stateMu.Lock()
	disp.state = s
	disp.stateMu.Unlock()
}

// Metrics exposes the dispatcher's live counters.
func (disp *Dispatcher) Metrics() *Metrics { return disp.metrics }

// Snapshot returns the current metrics view, including live handle-table
// stats.
func (disp *Dispatcher) Snapshot() map[string]any {
	return disp.metrics.Snapshot(disp.handles)
}

// Run executes the receive/dispatch loop until Shutdown is called or the
// connection is lost. It blocks the calling goroutine; callers typically
// invoke Run in its own goroutine and pin that goroutine via
// WithAffinity, matching spec §5's "single-threaded event dispatch"
// scheduling model.
func (disp *Dispatcher) Run() error {
	if disp.pinAffinity {
		runtime.LockOSThread()
		if err := affinity.SetAffinity(disp.cpuID); err != nil {
			disp.logger.Printf("affinity pin to cpu %d failed: %v", disp.cpuID, err)
		}
	}
	disp.setState(StateRunning)
	defer close(disp.stoppedCh)

	for {
		select {
		case <-disp.shutdownCh:
			return disp.drain()
		default:
		}

		msg, err := disp.conn.Receive(disp.recvTimeout)
		switch err {
		case nil:
			m := msg
			if subErr := disp.backlog.Submit(func() { disp.handle(m) }); subErr != nil {
				disp.logger.Printf("backlog submit failed: %v", subErr)
			}
		case ringbuf.ErrTimeout:
			continue
		case ringbuf.ErrInvalidMessage:
			atomic.AddUint64(&disp.metrics.protocolDrops, 1)
			continue
		case ringbuf.ErrConnectionLost:
			disp.setState(StateStopped)
			return err
		default:
			disp.logger.Printf("receive error: %v", err)
			continue
		}
	}
}

// Shutdown requests the dispatcher transition DRAINING → STOPPED. It
// returns once Run has drained the backlog and exited.
func (disp *Dispatcher) Shutdown() {
	disp.shutdownOnce.Do(func() { close(disp.shutdownCh) })
	<-disp.stoppedCh
}

func (disp *Dispatcher) drain() error {
	disp.setState(StateDraining)
	disp.backlog.Drain()
	disp.handles.Cleanup()
	disp.setState(StateStopped)
	return nil
}
