// File: correlator/requests.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed request builders, one per message type, so a user-zone shim can
// call Correlator.Call without hand-packing payload bytes. Out of scope
// to wire into a real API surface (spec's Non-goals exclude the shim
// itself); these are its contract.

package correlator

import "github.com/momentics/idm-core/wire"

// Alloc calls ALLOC(size, flags) and returns the new handle.
func (c *Correlator) Alloc(dstZone uint32, size uint64, flags uint32) (uint64, error) {
	buf := make([]byte, 16)
	wire.AllocRequest{Size: size, Flags: flags}.Encode(buf)
	res, err := c.Call(dstZone, wire.MsgAlloc, buf)
	if err != nil {
		return 0, err
	}
	return res.ResultHandle, nil
}

// Free calls FREE(handle).
func (c *Correlator) Free(dstZone uint32, handle uint64) error {
	buf := make([]byte, 8)
	wire.FreeRequest{Handle: handle}.Encode(buf)
	_, err := c.Call(dstZone, wire.MsgFree, buf)
	return err
}

// CopyH2D calls COPY_H2D(dst_handle, dst_offset, data).
func (c *Correlator) CopyH2D(dstZone uint32, dstHandle uint64, dstOffset uint64, data []byte) error {
	buf := make([]byte, wire.CopyH2DRequestSize+len(data))
	wire.CopyH2DRequest{DstHandle: dstHandle, DstOffset: dstOffset, Size: uint64(len(data))}.Encode(buf)
	copy(buf[wire.CopyH2DRequestSize:], data)
	_, err := c.Call(dstZone, wire.MsgCopyH2D, buf)
	return err
}

// CopyD2H calls COPY_D2H(src_handle, src_offset, size) and returns the
// bytes read back from the device.
func (c *Correlator) CopyD2H(dstZone uint32, srcHandle uint64, srcOffset uint64, size uint64) ([]byte, error) {
	buf := make([]byte, 24)
	wire.CopyD2HRequest{SrcHandle: srcHandle, SrcOffset: srcOffset, Size: size}.Encode(buf)
	res, err := c.Call(dstZone, wire.MsgCopyD2H, buf)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// CopyD2D calls COPY_D2D(dst_handle, src_handle, dst_offset, src_offset, size).
func (c *Correlator) CopyD2D(dstZone uint32, dstHandle, srcHandle, dstOffset, srcOffset, size uint64) error {
	buf := make([]byte, 40)
	wire.CopyD2DRequest{
		DstHandle: dstHandle, SrcHandle: srcHandle,
		DstOffset: dstOffset, SrcOffset: srcOffset, Size: size,
	}.Encode(buf)
	_, err := c.Call(dstZone, wire.MsgCopyD2D, buf)
	return err
}

// Memset calls MEMSET(handle, offset, value, size).
func (c *Correlator) Memset(dstZone uint32, handle uint64, offset uint64, value uint32, size uint64) error {
	buf := make([]byte, 28)
	wire.MemsetRequest{Handle: handle, Offset: offset, Value: value, Size: size}.Encode(buf)
	_, err := c.Call(dstZone, wire.MsgMemset, buf)
	return err
}

// Sync calls SYNC(flags).
func (c *Correlator) Sync(dstZone uint32, flags uint32) error {
	buf := make([]byte, 8)
	wire.SyncRequest{Flags: flags}.Encode(buf)
	_, err := c.Call(dstZone, wire.MsgSync, buf)
	return err
}

// GetProps calls GET_PROPS and decodes the resulting DeviceProperties.
func (c *Correlator) GetProps(dstZone uint32) (wire.DeviceProperties, error) {
	buf := make([]byte, 8)
	wire.GetInfoRequest{}.Encode(buf)
	res, err := c.Call(dstZone, wire.MsgGetProps, buf)
	if err != nil {
		return wire.DeviceProperties{}, err
	}
	return wire.DecodeDeviceProperties(res.Data)
}
