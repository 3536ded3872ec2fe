// File: dispatcher/handlers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-message-type handlers implementing spec §4.4's handler skeleton:
// decode, validate (handle ownership + bounds), invoke the backend, emit
// a response.

package dispatcher

import (
	"github.com/momentics/idm-core/gpubackend"
	"github.com/momentics/idm-core/wire"
)

// withinBounds reports whether [offset, offset+size) fits inside an
// allocation of allocSize bytes, without relying on offset+size staying
// within uint64 range (a large attacker-controlled offset or size would
// wrap the naive sum back under allocSize and pass a direct comparison).
func withinBounds(offset, size, allocSize uint64) bool {
	if size > allocSize {
		return false
	}
	return offset <= allocSize-size
}

// handle dispatches one received message and always emits exactly one
// response (OK or ERROR) back to its source zone, per spec §4.4 step 6.
func (disp *Dispatcher) handle(msg wire.Message) {
	disp.metrics.recordRequest()

	srcZone := msg.Header.SrcZone
	seq := msg.Header.SeqNum

	var resp wire.Message
	switch msg.Header.MsgType {
	case wire.MsgAlloc:
		resp = disp.handleAlloc(srcZone, seq, msg.Payload)
	case wire.MsgFree:
		resp = disp.handleFree(srcZone, seq, msg.Payload)
	case wire.MsgCopyH2D:
		resp = disp.handleCopyH2D(srcZone, seq, msg.Payload)
	case wire.MsgCopyD2H:
		resp = disp.handleCopyD2H(srcZone, seq, msg.Payload)
	case wire.MsgCopyD2D:
		resp = disp.handleCopyD2D(srcZone, seq, msg.Payload)
	case wire.MsgMemset:
		resp = disp.handleMemset(srcZone, seq, msg.Payload)
	case wire.MsgSync:
		resp = disp.handleSync(srcZone, seq)
	case wire.MsgGetInfo, wire.MsgGetProps:
		resp = disp.handleGetProps(srcZone, seq, msg.Payload)
	case wire.MsgLaunchKernel:
		resp = disp.errorResponse(srcZone, seq, wire.ErrInvalidMessage, 0, "LAUNCH_KERNEL is reserved and not implemented")
	case wire.MsgResponseOK, wire.MsgResponseErr:
		resp = disp.errorResponse(srcZone, seq, wire.ErrInvalidMessage, 0, "responses are not valid on the driver side")
	default:
		resp = disp.errorResponse(srcZone, seq, wire.ErrInvalidMessage, 0, "unknown message type")
	}

	if resp.Header.MsgType == wire.MsgResponseErr {
		disp.metrics.recordError()
	}
	if err := disp.conn.Send(resp); err != nil {
		disp.logger.Printf("send response seq=%d to zone %d failed: %v", seq, srcZone, err)
	}
}

func (disp *Dispatcher) okResponse(dstZone uint32, reqSeq uint64, resultHandle uint64, resultValue uint32, data []byte) wire.Message {
	ok := wire.ResponseOK{RequestSeq: reqSeq, ResultHandle: resultHandle, ResultValue: resultValue, DataLen: uint32(len(data)), Data: data}
	buf := make([]byte, ok.Size())
	ok.Encode(buf)
	return disp.conn.Build(dstZone, wire.MsgResponseOK, buf)
}

func (disp *Dispatcher) errorResponse(dstZone uint32, reqSeq uint64, code wire.ErrorCode, backendCode uint32, msg string) wire.Message {
	errPayload := wire.ResponseError{RequestSeq: reqSeq, ErrorCode: code, BackendErrorCode: backendCode, ErrorMsg: msg}
	buf := make([]byte, 8+4+4+256)
	errPayload.Encode(buf)
	return disp.conn.Build(dstZone, wire.MsgResponseErr, buf)
}

func (disp *Dispatcher) backendErrorResponse(dstZone uint32, reqSeq uint64, err error) wire.Message {
	if be, ok := err.(*gpubackend.BackendError); ok {
		return disp.errorResponse(dstZone, reqSeq, wire.ErrDriverError, uint32(be.Code), be.Error())
	}
	return disp.errorResponse(dstZone, reqSeq, wire.ErrDriverError, 0, err.Error())
}

func (disp *Dispatcher) handleAlloc(zone uint32, seq uint64, payload []byte) wire.Message {
	req, err := wire.DecodeAllocRequest(payload)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidMessage, 0, "malformed ALLOC payload")
	}
	ptr, err := disp.backend.Alloc(req.Size, req.Flags)
	if err != nil {
		return disp.backendErrorResponse(zone, seq, err)
	}
	handle := disp.handles.Insert(zone, ptr, req.Size)
	if handle == 0 {
		_ = disp.backend.Free(ptr)
		return disp.errorResponse(zone, seq, wire.ErrOutOfMemory, 0, "handle table insertion failed")
	}
	return disp.okResponse(zone, seq, handle, 0, nil)
}

func (disp *Dispatcher) handleFree(zone uint32, seq uint64, payload []byte) wire.Message {
	req, err := wire.DecodeFreeRequest(payload)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidMessage, 0, "malformed FREE payload")
	}
	ptr, _, err := disp.handles.Remove(zone, req.Handle)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidHandle, 0, "handle not found")
	}
	if err := disp.backend.Free(ptr); err != nil {
		return disp.backendErrorResponse(zone, seq, err)
	}
	return disp.okResponse(zone, seq, 0, 0, nil)
}

func (disp *Dispatcher) handleCopyH2D(zone uint32, seq uint64, payload []byte) wire.Message {
	req, err := wire.DecodeCopyH2DRequest(payload)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidMessage, 0, "malformed COPY_H2D payload")
	}
	want := wire.CopyH2DRequestSize + int(req.Size)
	if len(payload) != want {
		return disp.errorResponse(zone, seq, wire.ErrInvalidMessage, 0, "COPY_H2D payload length mismatch")
	}
	ptr, allocSize, err := disp.handles.Lookup(zone, req.DstHandle)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidHandle, 0, "handle not found")
	}
	if !withinBounds(req.DstOffset, req.Size, allocSize) {
		return disp.errorResponse(zone, seq, wire.ErrInvalidSize, 0, "offset+size exceeds allocation")
	}
	data := payload[wire.CopyH2DRequestSize:want]
	if err := disp.backend.CopyH2D(ptr, req.DstOffset, data); err != nil {
		return disp.backendErrorResponse(zone, seq, err)
	}
	return disp.okResponse(zone, seq, 0, 0, nil)
}

func (disp *Dispatcher) handleCopyD2H(zone uint32, seq uint64, payload []byte) wire.Message {
	req, err := wire.DecodeCopyD2HRequest(payload)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidMessage, 0, "malformed COPY_D2H payload")
	}
	ptr, allocSize, err := disp.handles.Lookup(zone, req.SrcHandle)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidHandle, 0, "handle not found")
	}
	if !withinBounds(req.SrcOffset, req.Size, allocSize) {
		return disp.errorResponse(zone, seq, wire.ErrInvalidSize, 0, "offset+size exceeds allocation")
	}

	staging := disp.staging.Get(int(req.Size), disp.numaNode)
	defer staging.Release()
	dst := staging.Bytes()[:req.Size]
	if err := disp.backend.CopyD2H(ptr, req.SrcOffset, dst); err != nil {
		return disp.backendErrorResponse(zone, seq, err)
	}
	// The response outlives the staging buffer's lifetime (released on
	// return), so the trailing data must be copied rather than aliased.
	out := make([]byte, len(dst))
	copy(out, dst)
	return disp.okResponse(zone, seq, 0, 0, out)
}

func (disp *Dispatcher) handleCopyD2D(zone uint32, seq uint64, payload []byte) wire.Message {
	req, err := wire.DecodeCopyD2DRequest(payload)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidMessage, 0, "malformed COPY_D2D payload")
	}
	dstPtr, dstAllocSize, err := disp.handles.Lookup(zone, req.DstHandle)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidHandle, 0, "dst handle not found")
	}
	srcPtr, srcAllocSize, err := disp.handles.Lookup(zone, req.SrcHandle)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidHandle, 0, "src handle not found")
	}
	if !withinBounds(req.DstOffset, req.Size, dstAllocSize) || !withinBounds(req.SrcOffset, req.Size, srcAllocSize) {
		return disp.errorResponse(zone, seq, wire.ErrInvalidSize, 0, "offset+size exceeds allocation")
	}
	if err := disp.backend.CopyD2D(dstPtr, req.DstOffset, srcPtr, req.SrcOffset, req.Size); err != nil {
		return disp.backendErrorResponse(zone, seq, err)
	}
	return disp.okResponse(zone, seq, 0, 0, nil)
}

func (disp *Dispatcher) handleMemset(zone uint32, seq uint64, payload []byte) wire.Message {
	req, err := wire.DecodeMemsetRequest(payload)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidMessage, 0, "malformed MEMSET payload")
	}
	ptr, allocSize, err := disp.handles.Lookup(zone, req.Handle)
	if err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidHandle, 0, "handle not found")
	}
	if !withinBounds(req.Offset, req.Size, allocSize) {
		return disp.errorResponse(zone, seq, wire.ErrInvalidSize, 0, "offset+size exceeds allocation")
	}
	if err := disp.backend.Memset(ptr, req.Offset, byte(req.Value), req.Size); err != nil {
		return disp.backendErrorResponse(zone, seq, err)
	}
	return disp.okResponse(zone, seq, 0, 0, nil)
}

func (disp *Dispatcher) handleSync(zone uint32, seq uint64) wire.Message {
	if err := disp.backend.Synchronize(); err != nil {
		return disp.backendErrorResponse(zone, seq, err)
	}
	return disp.okResponse(zone, seq, 0, 0, nil)
}

func (disp *Dispatcher) handleGetProps(zone uint32, seq uint64, payload []byte) wire.Message {
	if _, err := wire.DecodeGetInfoRequest(payload); err != nil {
		return disp.errorResponse(zone, seq, wire.ErrInvalidMessage, 0, "malformed GET_INFO/GET_PROPS payload")
	}
	props := disp.backend.Properties()
	buf := make([]byte, wire.DevicePropsSize)
	props.Encode(buf)
	return disp.okResponse(zone, seq, 0, 0, buf)
}
