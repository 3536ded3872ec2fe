// File: ringbuf/wake.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Waker abstracts the out-of-band notification primitive signalled after a
// ring publish (spec §4.2, §6). Implementations must be edge-triggered and
// wake-coalescing-safe: the receive loop always re-checks producer/consumer
// indices after waking, so spurious wakes and missed edges are tolerated.

package ringbuf

import (
	"context"
	"time"
)

// Waker is the abstract wake capability injected into a Connection at
// construction. The transport depends only on this contract, never on a
// concrete substrate (POSIX semaphore, Xen event channel, or the portable
// channel fallback below).
type Waker interface {
	// Signal notifies the remote side that the ring state changed.
	Signal()
	// Wait blocks until Signal is observed or timeout elapses.
	// timeout < 0 blocks indefinitely; timeout == 0 polls without blocking.
	Wait(timeout time.Duration) error
}

// ChanWaker is a portable, edge-coalesced Waker backed by a buffered
// channel of capacity 1, matching the notification pattern from the
// retrieved shmring reference (readable/writable edge channels): a Signal
// while one is already pending is a no-op, and Wait always re-checks ring
// state afterward, so no edge needs to be durable. Suitable for colocated
// zones (same-host goroutines or processes sharing a channel proxy) and
// for tests.
type ChanWaker struct {
	ch chan struct{}
}

// NewChanWaker constructs a ChanWaker.
func NewChanWaker() *ChanWaker {
	return &ChanWaker{ch: make(chan struct{}, 1)}
}

// Signal implements Waker.
func (w *ChanWaker) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Wait implements Waker.
func (w *ChanWaker) Wait(timeout time.Duration) error {
	if timeout < 0 {
		<-w.ch
		return nil
	}
	if timeout == 0 {
		select {
		case <-w.ch:
			return nil
		default:
			return ErrWakeTimeout
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ErrWakeTimeout
	}
}

// pollInterval is how often PollWaker re-checks ring state while waiting.
const pollInterval = time.Millisecond

// PollWaker is a portable Waker for zone pairs that share ring memory
// (ringbuf.SharedRegion) but run as independent OS processes without a
// side channel to hand off a kernel wake object (an eventfd is only
// signalable within the process that created it; a real deployment would
// use a Xen event channel or a named POSIX semaphore here instead).
// Signal is a no-op; Wait sleeps in small increments up to timeout,
// relying on Connection.Receive's own post-wake ring re-check to notice
// new data. This trades wake latency (up to pollInterval) for a
// dependency-free, genuinely cross-process-correct implementation.
type PollWaker struct{}

// NewPollWaker constructs a PollWaker.
func NewPollWaker() *PollWaker { return &PollWaker{} }

// Signal implements Waker; PollWaker has no notification channel to ring.
func (w *PollWaker) Signal() {}

// Wait implements Waker by sleeping one poll interval (or the full
// timeout if shorter) and returning nil so the caller re-checks ring
// state. timeout < 0 blocks for one interval at a time, caller-looped.
func (w *PollWaker) Wait(timeout time.Duration) error {
	d := pollInterval
	if timeout >= 0 && timeout < d {
		d = timeout
	}
	time.Sleep(d)
	return nil
}

// ErrWakeTimeout is returned by Wait when no signal arrives within the
// caller's deadline.
var ErrWakeTimeout = errWakeTimeout{}

type errWakeTimeout struct{}

func (errWakeTimeout) Error() string { return "ringbuf: wake wait timed out" }
