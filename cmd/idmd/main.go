//go:build linux
// +build linux

// File: cmd/idmd/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// idmd is the driver-zone daemon: it attaches to the shared ring pair for
// one zone pair, runs the dispatcher against a backend, and shuts down
// cleanly on SIGINT/SIGTERM. Grounded on the teacher's
// examples/stest/server flag-driven main and the stub-CUDA daemon loop
// of original_source/gpu-proxy/main.c. Linux-only: the real shared-memory
// transport (ringbuf.OpenSharedRegion) is only implemented for Linux,
// matching the Xen dom0/domU deployment target this protocol was
// distilled from. Wake uses ringbuf.PollWaker rather than an eventfd,
// since the daemon and its peer are independent processes and an eventfd
// is only signalable by the process that created it.

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/idm-core/dispatcher"
	"github.com/momentics/idm-core/gpubackend"
	"github.com/momentics/idm-core/ringbuf"
)

func main() {
	driverZone := flag.Uint("driver-zone", 1, "this daemon's zone id")
	userZone := flag.Uint("user-zone", 2, "the user zone this daemon serves")
	ringSize := flag.Uint("ring-size", ringbuf.DefaultRingSize, "ring entry count (power of two)")
	numaNode := flag.Int("numa-node", -1, "NUMA node for the staging buffer pool (-1 = unspecified)")
	cpuID := flag.Int("cpu", -1, "pin the dispatch loop to this CPU id (-1 = no pinning)")
	recvTimeout := flag.Duration("recv-timeout", 500*time.Millisecond, "ring receive poll timeout")
	flag.Parse()

	logger := log.New(os.Stderr, "idmd: ", log.LstdFlags)

	conn, err := attach(uint32(*driverZone), uint32(*userZone), ringbuf.RoleServer, uint32(*ringSize))
	if err != nil {
		logger.Fatalf("attach: %v", err)
	}
	conn.SetLogger(logger)

	opts := []dispatcher.Option{
		dispatcher.WithRecvTimeout(*recvTimeout),
		dispatcher.WithNUMANode(*numaNode),
		dispatcher.WithLogger(logger),
	}
	if *cpuID >= 0 {
		opts = append(opts, dispatcher.WithAffinity(*cpuID))
	}

	disp := dispatcher.New(conn, gpubackend.NewStub(), opts...)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- disp.Run() }()

	signalCh := make(chan os.Signal, 2)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signalCh:
		logger.Printf("received %v, shutting down", sig)
		disp.Shutdown()
	case err := <-runErrCh:
		if err != nil {
			logger.Printf("dispatch loop exited: %v", err)
		}
	}

	logger.Printf("stopped, state=%v", disp.State())
}

// attach opens the two named /dev/shm regions for a zone pair and wires
// them, plus a PollWaker per direction, into a Connection.
func attach(driverZone, userZone uint32, role ringbuf.Role, ringSize uint32) (*ringbuf.Connection, error) {
	nameUserToDriver := ringbuf.RegionName(userZone, driverZone)
	nameDriverToUser := ringbuf.RegionName(driverZone, userZone)

	regUserToDriver, err := ringbuf.OpenSharedRegion(nameUserToDriver, ringbuf.RegionSize(ringSize))
	if err != nil {
		return nil, err
	}
	regDriverToUser, err := ringbuf.OpenSharedRegion(nameDriverToUser, ringbuf.RegionSize(ringSize))
	if err != nil {
		return nil, err
	}
	rxRing, err := ringbuf.NewRing(regUserToDriver.Bytes(), ringSize)
	if err != nil {
		return nil, err
	}
	txRing, err := ringbuf.NewRing(regDriverToUser.Bytes(), ringSize)
	if err != nil {
		return nil, err
	}
	return ringbuf.NewConnection(driverZone, userZone, role, txRing, ringbuf.NewPollWaker(), rxRing, ringbuf.NewPollWaker()), nil
}
