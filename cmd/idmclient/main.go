//go:build linux
// +build linux

// File: cmd/idmclient/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// idmclient is a smoke-test client for a running idmd: it allocates,
// writes, reads back, and frees device memory over the correlator, the
// same sequence as original_source/gpu-proxy/test_client.c's
// test_alloc_free and test_multiple_alloc, reimplemented against the
// Go transport instead of built against idm.h directly.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/momentics/idm-core/correlator"
	"github.com/momentics/idm-core/ringbuf"
)

func main() {
	driverZone := flag.Uint("driver-zone", 1, "the driver zone to call")
	userZone := flag.Uint("user-zone", 2, "this client's zone id")
	ringSize := flag.Uint("ring-size", ringbuf.DefaultRingSize, "ring entry count (power of two)")
	numAllocs := flag.Int("num-allocs", 10, "how many buffers to allocate in the multi-alloc test")
	flag.Parse()

	logger := log.New(os.Stderr, "idmclient: ", log.LstdFlags)

	conn, err := attach(uint32(*userZone), uint32(*driverZone), ringbuf.RoleClient, uint32(*ringSize))
	if err != nil {
		logger.Fatalf("attach: %v", err)
	}
	conn.SetLogger(logger)

	// PollWaker has a ~1ms wake granularity (see ringbuf.PollWaker); scale
	// attempts up rather than lengthening the nominal per-attempt timeout.
	corr := correlator.New(conn,
		correlator.WithPerAttemptTimeout(5*time.Millisecond),
		correlator.WithMaxAttempts(20000),
	)

	if err := testAllocFree(corr, uint32(*driverZone)); err != nil {
		logger.Fatalf("alloc/free test: %v", err)
	}
	fmt.Println("alloc/free: OK")

	if err := testMultipleAlloc(corr, uint32(*driverZone), *numAllocs); err != nil {
		logger.Fatalf("multiple alloc test: %v", err)
	}
	fmt.Printf("multiple alloc (%d buffers): OK\n", *numAllocs)

	if err := testCopyRoundTrip(corr, uint32(*driverZone)); err != nil {
		logger.Fatalf("copy round trip test: %v", err)
	}
	fmt.Println("copy round trip: OK")

	props, err := corr.GetProps(uint32(*driverZone))
	if err != nil {
		logger.Fatalf("get props: %v", err)
	}
	fmt.Printf("device: %s (compute %d.%d, %d bytes)\n", props.Name, props.ComputeMajor, props.ComputeMinor, props.TotalMemBytes)
}

func testAllocFree(corr *correlator.Correlator, driverZone uint32) error {
	handle, err := corr.Alloc(driverZone, 1<<20, 0)
	if err != nil {
		return fmt.Errorf("alloc: %w", err)
	}
	if err := corr.Free(driverZone, handle); err != nil {
		return fmt.Errorf("free: %w", err)
	}
	return nil
}

func testMultipleAlloc(corr *correlator.Correlator, driverZone uint32, n int) error {
	handles := make([]uint64, n)
	for i := 0; i < n; i++ {
		size := uint64(i+1) * 1024
		handle, err := corr.Alloc(driverZone, size, 0)
		if err != nil {
			return fmt.Errorf("alloc %d: %w", i, err)
		}
		handles[i] = handle
	}
	for i, handle := range handles {
		if err := corr.Free(driverZone, handle); err != nil {
			return fmt.Errorf("free %d: %w", i, err)
		}
	}
	return nil
}

func testCopyRoundTrip(corr *correlator.Correlator, driverZone uint32) error {
	const size = 64
	handle, err := corr.Alloc(driverZone, size, 0)
	if err != nil {
		return fmt.Errorf("alloc: %w", err)
	}
	defer corr.Free(driverZone, handle)

	want := make([]byte, size)
	for i := range want {
		want[i] = byte(i)
	}
	if err := corr.CopyH2D(driverZone, handle, 0, want); err != nil {
		return fmt.Errorf("copy_h2d: %w", err)
	}
	got, err := corr.CopyD2H(driverZone, handle, 0, size)
	if err != nil {
		return fmt.Errorf("copy_d2h: %w", err)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("byte %d mismatch: got %d want %d", i, got[i], want[i])
		}
	}
	return nil
}

// attach opens the two named /dev/shm regions for a zone pair and wires
// them into a Connection using the same dependency-free PollWaker idmd
// uses (see ringbuf.PollWaker).
func attach(localZone, remoteZone uint32, role ringbuf.Role, ringSize uint32) (*ringbuf.Connection, error) {
	nameLocalToRemote := ringbuf.RegionName(localZone, remoteZone)
	nameRemoteToLocal := ringbuf.RegionName(remoteZone, localZone)

	regTx, err := ringbuf.OpenSharedRegion(nameLocalToRemote, ringbuf.RegionSize(ringSize))
	if err != nil {
		return nil, err
	}
	regRx, err := ringbuf.OpenSharedRegion(nameRemoteToLocal, ringbuf.RegionSize(ringSize))
	if err != nil {
		return nil, err
	}
	txRing, err := ringbuf.NewRing(regTx.Bytes(), ringSize)
	if err != nil {
		return nil, err
	}
	rxRing, err := ringbuf.NewRing(regRx.Bytes(), ringSize)
	if err != nil {
		return nil, err
	}

	return ringbuf.NewConnection(localZone, remoteZone, role, txRing, ringbuf.NewPollWaker(), rxRing, ringbuf.NewPollWaker()), nil
}
