// Author: momentics <momentics@gmail.com>

package ringbuf

import (
	"testing"
	"time"

	"github.com/momentics/idm-core/wire"
)

const (
	testDriverZone = 1
	testUserZone   = 2
)

// newConnectionPair builds a driver/user connection pair sharing two
// in-process regions, one per direction, mirroring how two zones attach
// to the same named shared memory in production.
func newConnectionPair(t *testing.T, ringSize uint32) (driver, user *Connection) {
	t.Helper()
	nameA := RegionName(testUserZone, testDriverZone)   // user -> driver
	nameB := RegionName(testDriverZone, testUserZone)   // driver -> user
	t.Cleanup(func() {
		ForgetLocalRegion(nameA)
		ForgetLocalRegion(nameB)
	})

	regA, err := OpenLocalRegion(nameA, RegionSize(ringSize))
	if err != nil {
		t.Fatalf("OpenLocalRegion A: %v", err)
	}
	regB, err := OpenLocalRegion(nameB, RegionSize(ringSize))
	if err != nil {
		t.Fatalf("OpenLocalRegion B: %v", err)
	}
	ringA, err := NewRing(regA.Bytes(), ringSize)
	if err != nil {
		t.Fatalf("NewRing A: %v", err)
	}
	ringB, err := NewRing(regB.Bytes(), ringSize)
	if err != nil {
		t.Fatalf("NewRing B: %v", err)
	}
	wakerA := NewChanWaker()
	wakerB := NewChanWaker()

	driver = NewConnection(testDriverZone, testUserZone, RoleServer, ringB, wakerB, ringA, wakerA)
	user = NewConnection(testUserZone, testDriverZone, RoleClient, ringA, wakerA, ringB, wakerB)
	return driver, user
}

func TestConnectionSendReceiveRoundTrip(t *testing.T) {
	driver, user := newConnectionPair(t, DefaultRingSize)

	payload := wire.AllocRequest{Size: 4096, Flags: 1}
	buf := make([]byte, 16)
	payload.Encode(buf)

	req := user.Build(testDriverZone, wire.MsgAlloc, buf)
	if err := user.Send(req); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := driver.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Header.SeqNum != req.Header.SeqNum {
		t.Fatalf("seq mismatch: got %d want %d", got.Header.SeqNum, req.Header.SeqNum)
	}
	if got.Header.MsgType != wire.MsgAlloc {
		t.Fatalf("unexpected msg type %v", got.Header.MsgType)
	}
	gotAlloc, err := wire.DecodeAllocRequest(got.Payload)
	if err != nil {
		t.Fatalf("DecodeAllocRequest: %v", err)
	}
	if gotAlloc.Size != payload.Size {
		t.Fatalf("payload mismatch: got %d want %d", gotAlloc.Size, payload.Size)
	}
}

func TestConnectionSequenceMonotonic(t *testing.T) {
	_, user := newConnectionPair(t, DefaultRingSize)

	var last uint64
	for i := 0; i < 50; i++ {
		m := user.Build(testDriverZone, wire.MsgSync, nil)
		if i > 0 && m.Header.SeqNum <= last {
			t.Fatalf("sequence not strictly increasing: %d <= %d", m.Header.SeqNum, last)
		}
		last = m.Header.SeqNum
	}
}

func TestConnectionReceiveTimeout(t *testing.T) {
	driver, _ := newConnectionPair(t, DefaultRingSize)
	_, err := driver.Receive(10 * time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("got err %v want ErrTimeout", err)
	}
}

func TestConnectionRingFullBackpressure(t *testing.T) {
	driver, user := newConnectionPair(t, 4)
	_ = driver

	var sendErr error
	for i := 0; i < 10; i++ {
		m := user.Build(testDriverZone, wire.MsgSync, nil)
		if err := user.Send(m); err != nil {
			sendErr = err
			break
		}
	}
	if sendErr != ErrRingFull {
		t.Fatalf("got %v want ErrRingFull once ring saturates", sendErr)
	}
}

func TestConnectionDropsInvalidMagic(t *testing.T) {
	driver, user := newConnectionPair(t, DefaultRingSize)

	// Hand-craft a message with a zeroed magic, bypassing Build/Send's
	// validity check, to exercise the receiver's drop-and-continue path
	// (spec scenario S7).
	raw := make([]byte, wire.HeaderSize)
	hdr := wire.Header{Magic: 0, Version: wire.Version, MsgType: wire.MsgSync, SrcZone: testUserZone, DstZone: testDriverZone}
	hdr.Encode(raw)
	if !user.tx.TryPush(raw) {
		t.Fatalf("push raw invalid message failed")
	}
	user.txWaker.Signal()

	_, err := driver.Receive(time.Second)
	if err != ErrInvalidMessage {
		t.Fatalf("got %v want ErrInvalidMessage", err)
	}

	// Connection must remain usable for the next message (S7).
	ok := driver.Connected()
	if !ok {
		t.Fatalf("connection should remain usable after dropping invalid slot")
	}
	m2 := user.Build(testDriverZone, wire.MsgSync, nil)
	if err := user.Send(m2); err != nil {
		t.Fatalf("Send after drop: %v", err)
	}
	got, err := driver.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive after drop: %v", err)
	}
	if got.Header.MsgType != wire.MsgSync {
		t.Fatalf("unexpected message after recovering from drop: %+v", got)
	}
}
