// Author: momentics <momentics@gmail.com>

package correlator

import (
	"testing"
	"time"

	"github.com/momentics/idm-core/dispatcher"
	"github.com/momentics/idm-core/gpubackend"
	"github.com/momentics/idm-core/ringbuf"
	"github.com/momentics/idm-core/wire"
)

const (
	testDriverZone = 1
	testUserZone   = 2
)

func newHarness(t *testing.T) (*dispatcher.Dispatcher, *Correlator) {
	t.Helper()
	nameUserToDriver := ringbuf.RegionName(testUserZone, testDriverZone)
	nameDriverToUser := ringbuf.RegionName(testDriverZone, testUserZone)
	t.Cleanup(func() {
		ringbuf.ForgetLocalRegion(nameUserToDriver)
		ringbuf.ForgetLocalRegion(nameDriverToUser)
	})

	regUserToDriver, err := ringbuf.OpenLocalRegion(nameUserToDriver, ringbuf.RegionSize(ringbuf.DefaultRingSize))
	if err != nil {
		t.Fatalf("OpenLocalRegion: %v", err)
	}
	regDriverToUser, err := ringbuf.OpenLocalRegion(nameDriverToUser, ringbuf.RegionSize(ringbuf.DefaultRingSize))
	if err != nil {
		t.Fatalf("OpenLocalRegion: %v", err)
	}
	ringUserToDriver, err := ringbuf.NewRing(regUserToDriver.Bytes(), ringbuf.DefaultRingSize)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	ringDriverToUser, err := ringbuf.NewRing(regDriverToUser.Bytes(), ringbuf.DefaultRingSize)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	wakerUserToDriver := ringbuf.NewChanWaker()
	wakerDriverToUser := ringbuf.NewChanWaker()

	driverConn := ringbuf.NewConnection(testDriverZone, testUserZone, ringbuf.RoleServer,
		ringDriverToUser, wakerDriverToUser, ringUserToDriver, wakerUserToDriver)
	userConn := ringbuf.NewConnection(testUserZone, testDriverZone, ringbuf.RoleClient,
		ringUserToDriver, wakerUserToDriver, ringDriverToUser, wakerDriverToUser)

	disp := dispatcher.New(driverConn, gpubackend.NewStub(), dispatcher.WithRecvTimeout(50*time.Millisecond))
	go disp.Run()
	t.Cleanup(disp.Shutdown)

	corr := New(userConn, WithPerAttemptTimeout(500*time.Millisecond))
	return disp, corr
}

func TestCallAllocFreeRoundTrip(t *testing.T) {
	_, corr := newHarness(t)

	handle, err := corr.Alloc(testDriverZone, 4096, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if handle == 0 {
		t.Fatalf("expected nonzero handle")
	}
	if err := corr.Free(testDriverZone, handle); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

func TestCallTranslatesInvalidHandle(t *testing.T) {
	_, corr := newHarness(t)

	err := corr.Free(testDriverZone, 0xDEADBEEF)
	if err == nil {
		t.Fatalf("expected error for unknown handle")
	}
	callErr, ok := err.(*CallError)
	if !ok {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.Code != wire.ErrInvalidHandle {
		t.Fatalf("got %v want ErrInvalidHandle", callErr.Code)
	}
}

func TestCallCopyH2DThenD2H(t *testing.T) {
	_, corr := newHarness(t)

	handle, err := corr.Alloc(testDriverZone, 64, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	payload := []byte{9, 8, 7, 6, 5}
	if err := corr.CopyH2D(testDriverZone, handle, 0, payload); err != nil {
		t.Fatalf("CopyH2D: %v", err)
	}
	got, err := corr.CopyD2H(testDriverZone, handle, 0, uint64(len(payload)))
	if err != nil {
		t.Fatalf("CopyD2H: %v", err)
	}
	for i, b := range payload {
		if got[i] != b {
			t.Fatalf("byte %d: got %d want %d", i, got[i], b)
		}
	}
}

func TestCallSyncAndGetProps(t *testing.T) {
	_, corr := newHarness(t)

	if err := corr.Sync(testDriverZone, 0); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	props, err := corr.GetProps(testDriverZone)
	if err != nil {
		t.Fatalf("GetProps: %v", err)
	}
	if props.Name == "" {
		t.Fatalf("expected nonempty device name")
	}
}

func TestCallExhaustsOnNoResponse(t *testing.T) {
	t.Parallel()
	nameA := ringbuf.RegionName(testUserZone, testDriverZone)
	t.Cleanup(func() { ringbuf.ForgetLocalRegion(nameA) })

	reg, err := ringbuf.OpenLocalRegion(nameA, ringbuf.RegionSize(ringbuf.DefaultRingSize))
	if err != nil {
		t.Fatalf("OpenLocalRegion: %v", err)
	}
	ring, err := ringbuf.NewRing(reg.Bytes(), ringbuf.DefaultRingSize)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	waker := ringbuf.NewChanWaker()
	// Loop the connection back on itself so Send never gets a reply: no
	// dispatcher is listening on the other end.
	conn := ringbuf.NewConnection(testUserZone, testDriverZone, ringbuf.RoleServer, ring, waker, ring, waker)

	corr := New(conn, WithPerAttemptTimeout(20*time.Millisecond), WithMaxAttempts(3))
	_, err = corr.Call(testDriverZone, wire.MsgSync, nil)
	callErr, ok := err.(*CallError)
	if !ok {
		t.Fatalf("expected *CallError, got %T (%v)", err, err)
	}
	if callErr.Code != wire.ErrTimeout {
		t.Fatalf("got %v want ErrTimeout", callErr.Code)
	}
}
