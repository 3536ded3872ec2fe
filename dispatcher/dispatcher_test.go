// Author: momentics <momentics@gmail.com>

package dispatcher

import (
	"testing"
	"time"

	"github.com/momentics/idm-core/gpubackend"
	"github.com/momentics/idm-core/ringbuf"
	"github.com/momentics/idm-core/wire"
)

const (
	testDriverZone = 1
	testUserZone   = 2
	testOtherZone  = 3
)

func newTestHarness(t *testing.T, ringSize uint32) (*Dispatcher, *ringbuf.Connection) {
	t.Helper()
	nameUserToDriver := ringbuf.RegionName(testUserZone, testDriverZone)
	nameDriverToUser := ringbuf.RegionName(testDriverZone, testUserZone)
	t.Cleanup(func() {
		ringbuf.ForgetLocalRegion(nameUserToDriver)
		ringbuf.ForgetLocalRegion(nameDriverToUser)
	})

	regUserToDriver, err := ringbuf.OpenLocalRegion(nameUserToDriver, ringbuf.RegionSize(ringSize))
	if err != nil {
		t.Fatalf("OpenLocalRegion: %v", err)
	}
	regDriverToUser, err := ringbuf.OpenLocalRegion(nameDriverToUser, ringbuf.RegionSize(ringSize))
	if err != nil {
		t.Fatalf("OpenLocalRegion: %v", err)
	}
	ringUserToDriver, err := ringbuf.NewRing(regUserToDriver.Bytes(), ringSize)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	ringDriverToUser, err := ringbuf.NewRing(regDriverToUser.Bytes(), ringSize)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	wakerUserToDriver := ringbuf.NewChanWaker()
	wakerDriverToUser := ringbuf.NewChanWaker()

	driverConn := ringbuf.NewConnection(testDriverZone, testUserZone, ringbuf.RoleServer,
		ringDriverToUser, wakerDriverToUser, ringUserToDriver, wakerUserToDriver)
	userConn := ringbuf.NewConnection(testUserZone, testDriverZone, ringbuf.RoleClient,
		ringUserToDriver, wakerUserToDriver, ringDriverToUser, wakerDriverToUser)

	disp := New(driverConn, gpubackend.NewStub(), WithRecvTimeout(50*time.Millisecond))
	go disp.Run()
	t.Cleanup(disp.Shutdown)

	return disp, userConn
}

func callAndWait(t *testing.T, disp *Dispatcher, user *ringbuf.Connection, msgType wire.MsgType, payload []byte) wire.Message {
	t.Helper()
	req := user.Build(testDriverZone, msgType, payload)
	if err := user.Send(req); err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp, err := user.Receive(2 * time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	// Responses carry the request's seq in their payload's RequestSeq; the
	// header SeqNum is the driver endpoint's own counter.
	var requestSeq uint64
	switch resp.Header.MsgType {
	case wire.MsgResponseOK:
		ok, err := wire.DecodeResponseOK(resp.Payload)
		if err != nil {
			t.Fatalf("DecodeResponseOK: %v", err)
		}
		requestSeq = ok.RequestSeq
	case wire.MsgResponseErr:
		rerr, err := wire.DecodeResponseError(resp.Payload)
		if err != nil {
			t.Fatalf("DecodeResponseError: %v", err)
		}
		requestSeq = rerr.RequestSeq
	default:
		t.Fatalf("unexpected response type %v", resp.Header.MsgType)
	}
	if requestSeq != req.Header.SeqNum {
		t.Fatalf("response request_seq %d does not match request seq %d", requestSeq, req.Header.SeqNum)
	}
	return resp
}

func encodeAlloc(t *testing.T, size uint64) []byte {
	t.Helper()
	buf := make([]byte, 16)
	wire.AllocRequest{Size: size}.Encode(buf)
	return buf
}

// S1: ALLOC succeeds and the driver's live counters reflect it.
func TestScenarioAllocSucceeds(t *testing.T) {
	disp, user := newTestHarness(t, ringbuf.DefaultRingSize)

	resp := callAndWait(t, disp, user, wire.MsgAlloc, encodeAlloc(t, 1<<20))
	if resp.Header.MsgType != wire.MsgResponseOK {
		t.Fatalf("expected RESPONSE_OK, got %v", resp.Header.MsgType)
	}
	ok, err := wire.DecodeResponseOK(resp.Payload)
	if err != nil {
		t.Fatalf("DecodeResponseOK: %v", err)
	}
	if ok.ResultHandle == 0 {
		t.Fatalf("expected nonzero handle")
	}

	live, bytes := disp.handles.Stats()
	if live != 1 || bytes != 1<<20 {
		t.Fatalf("got live=%d bytes=%d, want 1/%d", live, bytes, 1<<20)
	}
}

// S2: FREE by the owning zone succeeds and drains the counters.
func TestScenarioFreeByOwnerSucceeds(t *testing.T) {
	disp, user := newTestHarness(t, ringbuf.DefaultRingSize)

	allocResp := callAndWait(t, disp, user, wire.MsgAlloc, encodeAlloc(t, 4096))
	ok, _ := wire.DecodeResponseOK(allocResp.Payload)

	freeBuf := make([]byte, 8)
	wire.FreeRequest{Handle: ok.ResultHandle}.Encode(freeBuf)
	freeResp := callAndWait(t, disp, user, wire.MsgFree, freeBuf)
	if freeResp.Header.MsgType != wire.MsgResponseOK {
		t.Fatalf("expected RESPONSE_OK for FREE, got %v", freeResp.Header.MsgType)
	}

	live, bytes := disp.handles.Stats()
	if live != 0 || bytes != 0 {
		t.Fatalf("got live=%d bytes=%d, want 0/0", live, bytes)
	}
}

// S3: FREE from a different zone is rejected and state stays unchanged.
//
// A Connection only ever stamps its own zone as src_zone (spec's single
// connection per zone-pair rules out forging a sender identity over the
// wire), so this exercises the zone check directly against the running
// dispatcher's handler, the same way a second zone's traffic would if it
// arrived over its own connection to the same handle table.
func TestScenarioCrossZoneFreeRejected(t *testing.T) {
	disp, user := newTestHarness(t, ringbuf.DefaultRingSize)

	allocResp := callAndWait(t, disp, user, wire.MsgAlloc, encodeAlloc(t, 4096))
	ok, _ := wire.DecodeResponseOK(allocResp.Payload)

	freeBuf := make([]byte, 8)
	wire.FreeRequest{Handle: ok.ResultHandle}.Encode(freeBuf)

	resp := disp.handleFree(testOtherZone, 999, freeBuf)
	if resp.Header.MsgType != wire.MsgResponseErr {
		t.Fatalf("expected RESPONSE_ERROR, got %v", resp.Header.MsgType)
	}
	errPayload, err := wire.DecodeResponseError(resp.Payload)
	if err != nil {
		t.Fatalf("DecodeResponseError: %v", err)
	}
	if errPayload.ErrorCode != wire.ErrInvalidHandle {
		t.Fatalf("got %v want ErrInvalidHandle", errPayload.ErrorCode)
	}

	live, bytes := disp.handles.Stats()
	if live != 1 || bytes != 4096 {
		t.Fatalf("state changed after rejected cross-zone free: live=%d bytes=%d", live, bytes)
	}
}

// S4/S5: COPY_H2D at and past the allocation boundary.
func TestScenarioCopyH2DBoundary(t *testing.T) {
	disp, user := newTestHarness(t, ringbuf.DefaultRingSize)

	allocResp := callAndWait(t, disp, user, wire.MsgAlloc, encodeAlloc(t, 1<<20))
	ok, _ := wire.DecodeResponseOK(allocResp.Payload)

	// S4: offset+size landing exactly on the allocation's end must succeed.
	const allocSize = 1 << 20
	boundaryOffset := uint64(allocSize - 10)
	buf := make([]byte, wire.CopyH2DRequestSize+10)
	wire.CopyH2DRequest{DstHandle: ok.ResultHandle, DstOffset: boundaryOffset, Size: 10}.Encode(buf)
	resp := callAndWait(t, disp, user, wire.MsgCopyH2D, buf)
	if resp.Header.MsgType != wire.MsgResponseOK {
		t.Fatalf("S4: expected OK at exact boundary, got %v", resp.Header.MsgType)
	}

	// S5: same offset, one byte more, must fail with INVALID_SIZE.
	buf2 := make([]byte, wire.CopyH2DRequestSize+11)
	wire.CopyH2DRequest{DstHandle: ok.ResultHandle, DstOffset: boundaryOffset, Size: 11}.Encode(buf2)
	resp2 := callAndWait(t, disp, user, wire.MsgCopyH2D, buf2)
	if resp2.Header.MsgType != wire.MsgResponseErr {
		t.Fatalf("S5: expected ERROR past boundary, got %v", resp2.Header.MsgType)
	}
	errPayload, _ := wire.DecodeResponseError(resp2.Payload)
	if errPayload.ErrorCode != wire.ErrInvalidSize {
		t.Fatalf("S5: got %v want ErrInvalidSize", errPayload.ErrorCode)
	}
}

func TestCopyD2HRoundTrip(t *testing.T) {
	disp, user := newTestHarness(t, ringbuf.DefaultRingSize)

	allocResp := callAndWait(t, disp, user, wire.MsgAlloc, encodeAlloc(t, 64))
	ok, _ := wire.DecodeResponseOK(allocResp.Payload)

	h2d := make([]byte, wire.CopyH2DRequestSize+8)
	wire.CopyH2DRequest{DstHandle: ok.ResultHandle, DstOffset: 0, Size: 8}.Encode(h2d)
	copy(h2d[wire.CopyH2DRequestSize:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	callAndWait(t, disp, user, wire.MsgCopyH2D, h2d)

	d2h := make([]byte, 24)
	wire.CopyD2HRequest{SrcHandle: ok.ResultHandle, SrcOffset: 0, Size: 8}.Encode(d2h)
	resp := callAndWait(t, disp, user, wire.MsgCopyD2H, d2h)
	if resp.Header.MsgType != wire.MsgResponseOK {
		t.Fatalf("expected OK, got %v", resp.Header.MsgType)
	}
	okResp, _ := wire.DecodeResponseOK(resp.Payload)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for i, b := range want {
		if okResp.Data[i] != b {
			t.Fatalf("byte %d: got %d want %d", i, okResp.Data[i], b)
		}
	}
}

func TestLaunchKernelReservedRejected(t *testing.T) {
	disp, user := newTestHarness(t, ringbuf.DefaultRingSize)
	resp := callAndWait(t, disp, user, wire.MsgLaunchKernel, nil)
	if resp.Header.MsgType != wire.MsgResponseErr {
		t.Fatalf("expected ERROR for reserved LAUNCH_KERNEL, got %v", resp.Header.MsgType)
	}
	errPayload, _ := wire.DecodeResponseError(resp.Payload)
	if errPayload.ErrorCode != wire.ErrInvalidMessage {
		t.Fatalf("got %v want ErrInvalidMessage", errPayload.ErrorCode)
	}
}

func TestShutdownDrainsAndStops(t *testing.T) {
	disp, user := newTestHarness(t, ringbuf.DefaultRingSize)
	callAndWait(t, disp, user, wire.MsgAlloc, encodeAlloc(t, 1024))

	disp.Shutdown()
	if disp.State() != StateStopped {
		t.Fatalf("got state %v want STOPPED", disp.State())
	}
	live, _ := disp.handles.Stats()
	if live != 0 {
		t.Fatalf("expected handle table cleared on shutdown, got live=%d", live)
	}
}
