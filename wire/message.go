// File: wire/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
)

// Magic is the sentinel constant every valid header must carry.
const Magic uint32 = 0x49444D00 // "IDM\0"

// VersionMajor/VersionMinor are negotiated at compile time; any wire
// change requires bumping one of these.
const (
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
)

// Version packs major<<8 | minor, matching spec's 16-bit version field.
const Version uint16 = VersionMajor<<8 | VersionMinor

// MaxPayload bounds payload_len; messages larger than this are rejected
// by both the send and receive paths.
const MaxPayload = 4 * 1024 * 1024

// HeaderSize is the fixed, packed size of Header on the wire.
const HeaderSize = 32

// MsgType enumerates the IDM message taxonomy. Values are stable across
// versions; never renumber an existing constant.
type MsgType uint16

const (
	MsgAlloc        MsgType = 0x01
	MsgFree         MsgType = 0x02
	MsgCopyH2D      MsgType = 0x10
	MsgCopyD2H      MsgType = 0x11
	MsgCopyD2D      MsgType = 0x12
	MsgMemset       MsgType = 0x13
	MsgLaunchKernel MsgType = 0x20 // reserved, not implemented
	MsgSync         MsgType = 0x21
	MsgGetInfo      MsgType = 0x30
	MsgGetProps     MsgType = 0x31
	MsgResponseOK   MsgType = 0xF0
	MsgResponseErr  MsgType = 0xF1
)

func (t MsgType) String() string {
	switch t {
	case MsgAlloc:
		return "ALLOC"
	case MsgFree:
		return "FREE"
	case MsgCopyH2D:
		return "COPY_H2D"
	case MsgCopyD2H:
		return "COPY_D2H"
	case MsgCopyD2D:
		return "COPY_D2D"
	case MsgMemset:
		return "MEMSET"
	case MsgLaunchKernel:
		return "LAUNCH_KERNEL"
	case MsgSync:
		return "SYNC"
	case MsgGetInfo:
		return "GET_INFO"
	case MsgGetProps:
		return "GET_PROPS"
	case MsgResponseOK:
		return "RESPONSE_OK"
	case MsgResponseErr:
		return "RESPONSE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode is the shared transport/dispatcher error taxonomy (spec §7).
type ErrorCode uint32

const (
	ErrNone ErrorCode = iota
	ErrInvalidMessage
	ErrInvalidHandle
	ErrPermissionDenied
	ErrOutOfMemory
	ErrInvalidSize
	ErrTimeout
	ErrConnectionLost
	ErrDriverError
	ErrUnknown
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNone:
		return "NONE"
	case ErrInvalidMessage:
		return "INVALID_MESSAGE"
	case ErrInvalidHandle:
		return "INVALID_HANDLE"
	case ErrPermissionDenied:
		return "PERMISSION_DENIED"
	case ErrOutOfMemory:
		return "OUT_OF_MEMORY"
	case ErrInvalidSize:
		return "INVALID_SIZE"
	case ErrTimeout:
		return "TIMEOUT"
	case ErrConnectionLost:
		return "CONNECTION_LOST"
	case ErrDriverError:
		return "DRIVER_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Header is the fixed, packed, little-endian message header (spec §3).
type Header struct {
	Magic      uint32
	Version    uint16
	MsgType    MsgType
	SrcZone    uint32
	DstZone    uint32
	SeqNum     uint64
	PayloadLen uint32
	Reserved   uint32
}

// Valid reports whether h carries the expected magic/version and a
// payload length within bounds. It does not validate msg_type.
func (h Header) Valid() bool {
	return h.Magic == Magic && h.Version == Version && h.PayloadLen <= MaxPayload
}

// Encode writes the header's packed little-endian representation into dst,
// which must be at least HeaderSize bytes.
func (h Header) Encode(dst []byte) {
	_ = dst[HeaderSize-1]
	binary.LittleEndian.PutUint32(dst[0:4], h.Magic)
	binary.LittleEndian.PutUint16(dst[4:6], h.Version)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(h.MsgType))
	binary.LittleEndian.PutUint32(dst[8:12], h.SrcZone)
	binary.LittleEndian.PutUint32(dst[12:16], h.DstZone)
	binary.LittleEndian.PutUint64(dst[16:24], h.SeqNum)
	binary.LittleEndian.PutUint32(dst[24:28], h.PayloadLen)
	binary.LittleEndian.PutUint32(dst[28:32], h.Reserved)
}

// ErrShortHeader is returned by DecodeHeader when src is too small.
var ErrShortHeader = errors.New("wire: buffer shorter than header")

// DecodeHeader parses a packed little-endian header from src.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	var h Header
	h.Magic = binary.LittleEndian.Uint32(src[0:4])
	h.Version = binary.LittleEndian.Uint16(src[4:6])
	h.MsgType = MsgType(binary.LittleEndian.Uint16(src[6:8]))
	h.SrcZone = binary.LittleEndian.Uint32(src[8:12])
	h.DstZone = binary.LittleEndian.Uint32(src[12:16])
	h.SeqNum = binary.LittleEndian.Uint64(src[16:24])
	h.PayloadLen = binary.LittleEndian.Uint32(src[24:28])
	h.Reserved = binary.LittleEndian.Uint32(src[28:32])
	return h, nil
}

// Message is a decoded header plus its raw payload bytes (fixed portion
// and any variable-length appendix concatenated, per spec §3).
type Message struct {
	Header  Header
	Payload []byte
}

// Size returns header size plus len(m.Payload); Header.PayloadLen is not
// consulted.
func (m Message) Size() int {
	return HeaderSize + len(m.Payload)
}

// Encode serializes the full message (header + payload) into dst, which
// must be at least m.Size() bytes.
func (m Message) Encode(dst []byte) {
	m.Header.Encode(dst[:HeaderSize])
	copy(dst[HeaderSize:], m.Payload)
}

// DecodeMessage parses a full message from src, using the header's
// payload_len to bound the payload slice. The returned Message's Payload
// aliases src; callers that need an independent copy must clone it.
func DecodeMessage(src []byte) (Message, error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return Message{}, err
	}
	if !h.Valid() {
		return Message{}, ErrInvalidHeader
	}
	end := HeaderSize + int(h.PayloadLen)
	if len(src) < end {
		return Message{}, ErrShortHeader
	}
	return Message{Header: h, Payload: src[HeaderSize:end]}, nil
}

// ErrInvalidHeader is returned when magic/version/payload_len fail Valid().
var ErrInvalidHeader = errors.New("wire: invalid header")
