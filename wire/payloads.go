// File: wire/payloads.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed, packed payload layouts for each request/response variant. Each
// Encode/Decode pair matches original_source/idm-protocol/idm.h exactly,
// bit-for-bit, little-endian.

package wire

import (
	"encoding/binary"
	"errors"
)

// ErrShortPayload is returned when a buffer is smaller than a fixed
// payload layout requires.
var ErrShortPayload = errors.New("wire: buffer shorter than payload")

// AllocRequest: ALLOC(size, flags).
type AllocRequest struct {
	Size     uint64
	Flags    uint32
	Reserved uint32
}

const allocRequestSize = 16

func (r AllocRequest) Encode(dst []byte) {
	_ = dst[allocRequestSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.Size)
	binary.LittleEndian.PutUint32(dst[8:12], r.Flags)
	binary.LittleEndian.PutUint32(dst[12:16], r.Reserved)
}

func DecodeAllocRequest(src []byte) (AllocRequest, error) {
	if len(src) < allocRequestSize {
		return AllocRequest{}, ErrShortPayload
	}
	return AllocRequest{
		Size:  binary.LittleEndian.Uint64(src[0:8]),
		Flags: binary.LittleEndian.Uint32(src[8:12]),
	}, nil
}

// FreeRequest: FREE(handle).
type FreeRequest struct {
	Handle uint64
}

const freeRequestSize = 8

func (r FreeRequest) Encode(dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], r.Handle)
}

func DecodeFreeRequest(src []byte) (FreeRequest, error) {
	if len(src) < freeRequestSize {
		return FreeRequest{}, ErrShortPayload
	}
	return FreeRequest{Handle: binary.LittleEndian.Uint64(src[0:8])}, nil
}

// CopyH2DRequest: COPY_H2D(dst_handle, dst_offset, size); size bytes of
// host data follow immediately in the message's trailing appendix.
type CopyH2DRequest struct {
	DstHandle uint64
	DstOffset uint64
	Size      uint64
}

const copyH2DRequestSize = 24

func (r CopyH2DRequest) Encode(dst []byte) {
	_ = dst[copyH2DRequestSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.DstHandle)
	binary.LittleEndian.PutUint64(dst[8:16], r.DstOffset)
	binary.LittleEndian.PutUint64(dst[16:24], r.Size)
}

func DecodeCopyH2DRequest(src []byte) (CopyH2DRequest, error) {
	if len(src) < copyH2DRequestSize {
		return CopyH2DRequest{}, ErrShortPayload
	}
	return CopyH2DRequest{
		DstHandle: binary.LittleEndian.Uint64(src[0:8]),
		DstOffset: binary.LittleEndian.Uint64(src[8:16]),
		Size:      binary.LittleEndian.Uint64(src[16:24]),
	}, nil
}

// CopyH2DRequestSize exposes the fixed-portion size so callers can locate
// the trailing data appendix.
const CopyH2DRequestSize = copyH2DRequestSize

// CopyD2HRequest: COPY_D2H(src_handle, src_offset, size).
type CopyD2HRequest struct {
	SrcHandle uint64
	SrcOffset uint64
	Size      uint64
}

const copyD2HRequestSize = 24

func (r CopyD2HRequest) Encode(dst []byte) {
	_ = dst[copyD2HRequestSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.SrcHandle)
	binary.LittleEndian.PutUint64(dst[8:16], r.SrcOffset)
	binary.LittleEndian.PutUint64(dst[16:24], r.Size)
}

func DecodeCopyD2HRequest(src []byte) (CopyD2HRequest, error) {
	if len(src) < copyD2HRequestSize {
		return CopyD2HRequest{}, ErrShortPayload
	}
	return CopyD2HRequest{
		SrcHandle: binary.LittleEndian.Uint64(src[0:8]),
		SrcOffset: binary.LittleEndian.Uint64(src[8:16]),
		Size:      binary.LittleEndian.Uint64(src[16:24]),
	}, nil
}

// CopyD2DRequest: COPY_D2D(dst_handle, src_handle, dst_offset, src_offset, size).
type CopyD2DRequest struct {
	DstHandle uint64
	SrcHandle uint64
	DstOffset uint64
	SrcOffset uint64
	Size      uint64
}

const copyD2DRequestSize = 40

func (r CopyD2DRequest) Encode(dst []byte) {
	_ = dst[copyD2DRequestSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.DstHandle)
	binary.LittleEndian.PutUint64(dst[8:16], r.SrcHandle)
	binary.LittleEndian.PutUint64(dst[16:24], r.DstOffset)
	binary.LittleEndian.PutUint64(dst[24:32], r.SrcOffset)
	binary.LittleEndian.PutUint64(dst[32:40], r.Size)
}

func DecodeCopyD2DRequest(src []byte) (CopyD2DRequest, error) {
	if len(src) < copyD2DRequestSize {
		return CopyD2DRequest{}, ErrShortPayload
	}
	return CopyD2DRequest{
		DstHandle: binary.LittleEndian.Uint64(src[0:8]),
		SrcHandle: binary.LittleEndian.Uint64(src[8:16]),
		DstOffset: binary.LittleEndian.Uint64(src[16:24]),
		SrcOffset: binary.LittleEndian.Uint64(src[24:32]),
		Size:      binary.LittleEndian.Uint64(src[32:40]),
	}, nil
}

// MemsetRequest: MEMSET(handle, offset, value, size).
type MemsetRequest struct {
	Handle uint64
	Offset uint64
	Value  uint32
	Size   uint64
}

const memsetRequestSize = 28

func (r MemsetRequest) Encode(dst []byte) {
	_ = dst[memsetRequestSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.Handle)
	binary.LittleEndian.PutUint64(dst[8:16], r.Offset)
	binary.LittleEndian.PutUint32(dst[16:20], r.Value)
	binary.LittleEndian.PutUint64(dst[20:28], r.Size)
}

func DecodeMemsetRequest(src []byte) (MemsetRequest, error) {
	if len(src) < memsetRequestSize {
		return MemsetRequest{}, ErrShortPayload
	}
	return MemsetRequest{
		Handle: binary.LittleEndian.Uint64(src[0:8]),
		Offset: binary.LittleEndian.Uint64(src[8:16]),
		Value:  binary.LittleEndian.Uint32(src[16:20]),
		Size:   binary.LittleEndian.Uint64(src[20:28]),
	}, nil
}

// SyncRequest: SYNC(flags).
type SyncRequest struct {
	Flags    uint32
	Reserved uint32
}

const syncRequestSize = 8

func (r SyncRequest) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], r.Flags)
	binary.LittleEndian.PutUint32(dst[4:8], r.Reserved)
}

func DecodeSyncRequest(src []byte) (SyncRequest, error) {
	if len(src) < syncRequestSize {
		return SyncRequest{}, ErrShortPayload
	}
	return SyncRequest{
		Flags: binary.LittleEndian.Uint32(src[0:4]),
	}, nil
}

// GetInfoRequest: GET_INFO/GET_PROPS(info_type) — both reuse this layout;
// the dispatcher ignores info_type for both and returns DeviceProperties.
type GetInfoRequest struct {
	InfoType uint32
	Reserved uint32
}

const getInfoRequestSize = 8

func (r GetInfoRequest) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], r.InfoType)
	binary.LittleEndian.PutUint32(dst[4:8], r.Reserved)
}

func DecodeGetInfoRequest(src []byte) (GetInfoRequest, error) {
	if len(src) < getInfoRequestSize {
		return GetInfoRequest{}, ErrShortPayload
	}
	return GetInfoRequest{
		InfoType: binary.LittleEndian.Uint32(src[0:4]),
	}, nil
}

// ResponseOK: {request_seq, result_handle, result_value, data_len, data...}.
type ResponseOK struct {
	RequestSeq   uint64
	ResultHandle uint64
	ResultValue  uint32
	DataLen      uint32
	Data         []byte
}

const responseOKFixedSize = 24

func (r ResponseOK) Encode(dst []byte) {
	_ = dst[responseOKFixedSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.RequestSeq)
	binary.LittleEndian.PutUint64(dst[8:16], r.ResultHandle)
	binary.LittleEndian.PutUint32(dst[16:20], r.ResultValue)
	binary.LittleEndian.PutUint32(dst[20:24], r.DataLen)
	copy(dst[responseOKFixedSize:], r.Data)
}

// Size returns the total encoded size including trailing data.
func (r ResponseOK) Size() int { return responseOKFixedSize + len(r.Data) }

// ResponseOKFixedSize exposes the fixed-portion size for trailing-data
// readers.
const ResponseOKFixedSize = responseOKFixedSize

func DecodeResponseOK(src []byte) (ResponseOK, error) {
	if len(src) < responseOKFixedSize {
		return ResponseOK{}, ErrShortPayload
	}
	r := ResponseOK{
		RequestSeq:   binary.LittleEndian.Uint64(src[0:8]),
		ResultHandle: binary.LittleEndian.Uint64(src[8:16]),
		ResultValue:  binary.LittleEndian.Uint32(src[16:20]),
		DataLen:      binary.LittleEndian.Uint32(src[20:24]),
	}
	end := responseOKFixedSize + int(r.DataLen)
	if len(src) < end {
		return ResponseOK{}, ErrShortPayload
	}
	r.Data = src[responseOKFixedSize:end]
	return r, nil
}

// ResponseError: {request_seq, error_code, backend_error_code, error_msg[256]}.
type ResponseError struct {
	RequestSeq        uint64
	ErrorCode         ErrorCode
	BackendErrorCode  uint32
	ErrorMsg          string
}

const (
	responseErrorMsgLen = 256
	responseErrorSize   = 8 + 4 + 4 + responseErrorMsgLen
)

func (r ResponseError) Encode(dst []byte) {
	_ = dst[responseErrorSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], r.RequestSeq)
	binary.LittleEndian.PutUint32(dst[8:12], uint32(r.ErrorCode))
	binary.LittleEndian.PutUint32(dst[12:16], r.BackendErrorCode)
	msgField := dst[16:responseErrorSize]
	for i := range msgField {
		msgField[i] = 0
	}
	n := copy(msgField, r.ErrorMsg)
	_ = n // NUL-truncated: copy stops at len(msgField), remainder stays zero
}

func DecodeResponseError(src []byte) (ResponseError, error) {
	if len(src) < responseErrorSize {
		return ResponseError{}, ErrShortPayload
	}
	msgField := src[16:responseErrorSize]
	nul := len(msgField)
	for i, b := range msgField {
		if b == 0 {
			nul = i
			break
		}
	}
	return ResponseError{
		RequestSeq:       binary.LittleEndian.Uint64(src[0:8]),
		ErrorCode:        ErrorCode(binary.LittleEndian.Uint32(src[8:12])),
		BackendErrorCode: binary.LittleEndian.Uint32(src[12:16]),
		ErrorMsg:         string(msgField[:nul]),
	}, nil
}

// DeviceProperties is the GET_PROPS result, supplementing spec §3's open
// question about GET_PROPS payload shape (see SPEC_FULL.md §3).
type DeviceProperties struct {
	Name          string
	DeviceCount   uint32
	TotalMemBytes uint64
	ComputeMajor  uint32
	ComputeMinor  uint32
}

const (
	devicePropsNameLen = 256
	DevicePropsSize    = devicePropsNameLen + 4 + 8 + 4 + 4
)

func (p DeviceProperties) Encode(dst []byte) {
	_ = dst[DevicePropsSize-1]
	nameField := dst[0:devicePropsNameLen]
	for i := range nameField {
		nameField[i] = 0
	}
	copy(nameField, p.Name)
	off := devicePropsNameLen
	binary.LittleEndian.PutUint32(dst[off:off+4], p.DeviceCount)
	off += 4
	binary.LittleEndian.PutUint64(dst[off:off+8], p.TotalMemBytes)
	off += 8
	binary.LittleEndian.PutUint32(dst[off:off+4], p.ComputeMajor)
	off += 4
	binary.LittleEndian.PutUint32(dst[off:off+4], p.ComputeMinor)
}

func DecodeDeviceProperties(src []byte) (DeviceProperties, error) {
	if len(src) < DevicePropsSize {
		return DeviceProperties{}, ErrShortPayload
	}
	nameField := src[0:devicePropsNameLen]
	nul := len(nameField)
	for i, b := range nameField {
		if b == 0 {
			nul = i
			break
		}
	}
	off := devicePropsNameLen
	p := DeviceProperties{Name: string(nameField[:nul])}
	p.DeviceCount = binary.LittleEndian.Uint32(src[off : off+4])
	off += 4
	p.TotalMemBytes = binary.LittleEndian.Uint64(src[off : off+8])
	off += 8
	p.ComputeMajor = binary.LittleEndian.Uint32(src[off : off+4])
	off += 4
	p.ComputeMinor = binary.LittleEndian.Uint32(src[off : off+4])
	return p, nil
}
