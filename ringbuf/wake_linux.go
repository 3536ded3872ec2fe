//go:build linux
// +build linux

// File: ringbuf/wake_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventfdWaker implements Waker using a Linux eventfd, the natural
// same-host stand-in for a Xen inter-domain event channel (spec §6).
// Grounded on the teacher's golang.org/x/sys/unix usage style in
// internal/transport/transport_linux.go and reactor/epoll_reactor.go.
//
// An eventfd is only signalable by the process that holds its file
// descriptor: using it across two independent processes requires handing
// the fd off over a side channel (SCM_RIGHTS on a Unix socket). Within a
// single process — e.g. folding the wake fd into a reactor's own epoll
// set — it needs no such handoff; see PollWaker in wake.go for the
// dependency-free cross-process fallback cmd/idmd and cmd/idmclient use.

package ringbuf

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// EventfdWaker wraps a Linux eventfd file descriptor as a Waker.
type EventfdWaker struct {
	fd int
}

// NewEventfdWaker creates a new non-blocking eventfd-backed waker.
func NewEventfdWaker() (*EventfdWaker, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("ringbuf: eventfd create: %w", err)
	}
	return &EventfdWaker{fd: fd}, nil
}

// FD returns the underlying eventfd descriptor, for callers that want to
// fold it into their own epoll set.
func (w *EventfdWaker) FD() int { return w.fd }

// Signal writes the eventfd counter, waking any pending Wait.
func (w *EventfdWaker) Signal() {
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(w.fd, buf[:])
}

// Wait blocks on the eventfd becoming readable (counter > 0), then drains
// it. timeout < 0 blocks indefinitely; 0 polls without blocking.
func (w *EventfdWaker) Wait(timeout time.Duration) error {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		return fmt.Errorf("ringbuf: eventfd poll: %w", err)
	}
	if n == 0 {
		return ErrWakeTimeout
	}
	var buf [8]byte
	_, _ = unix.Read(w.fd, buf[:])
	return nil
}

// Close releases the eventfd descriptor.
func (w *EventfdWaker) Close() error {
	return unix.Close(w.fd)
}
