// File: ringbuf/connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection implements the per-pair transport instance of spec §3/§4.2:
// two rings (TX written locally, RX written remotely) plus a Waker per
// direction, a guarded sequence counter, and the send/receive/build
// contracts. Modeled on the teacher's internal/session.Session lifecycle
// shape, generalized from a WebSocket session to an IDM zone pair.
package ringbuf

import (
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/momentics/idm-core/wire"
)

// Role distinguishes which endpoint of a pair initializes shared ring
// memory (spec §4.2: "the endpoint marked server zeroes both ring
// structures on startup").
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// Connection is the per-instance transport state of spec §3 "Connection
// state". One Connection serves exactly one zone pair (spec's explicit
// single-connection-per-transport-instance non-goal).
type Connection struct {
	LocalZone  uint32
	RemoteZone uint32
	Role       Role

	tx       *Ring
	txWaker  Waker
	rx       *Ring
	rxWaker  Waker

	nextSeq   uint64 // atomic; allocated by Build
	connected atomic.Bool

	logger *log.Logger
}

// NewConnection wires a Connection from already-opened rings and wakers.
// If role is RoleServer, both rings are zeroed here per spec §4.2; a
// RoleClient attaches without zeroing.
func NewConnection(local, remote uint32, role Role, tx *Ring, txWaker Waker, rx *Ring, rxWaker Waker) *Connection {
	c := &Connection{
		LocalZone:  local,
		RemoteZone: remote,
		Role:       role,
		tx:         tx,
		txWaker:    txWaker,
		rx:         rx,
		rxWaker:    rxWaker,
		nextSeq:    1,
		logger:     log.New(os.Stderr, "idm: ", log.LstdFlags),
	}
	if role == RoleServer {
		tx.InitServer()
		rx.InitServer()
	}
	c.connected.Store(true)
	return c
}

// SetLogger overrides the diagnostic logger (defaults to stderr).
func (c *Connection) SetLogger(l *log.Logger) { c.logger = l }

// Connected reports whether the connection is still usable. CONNECTION_LOST
// is terminal: once cleared, all future operations fail with
// ErrConnectionLost (spec §4.2 Failure semantics).
func (c *Connection) Connected() bool { return c.connected.Load() }

// MarkLost transitions the connection to the terminal CONNECTION_LOST
// state, e.g. when the backing shared region is found unmapped or the
// peer is gone.
func (c *Connection) MarkLost() { c.connected.Store(false) }

// Build allocates the next sequence number and fills a message header
// addressed to dstZone (spec §4.2 Build contract). The sequence counter is
// a single atomic add, matching the "must be atomic or serialized"
// requirement without a separate mutex.
func (c *Connection) Build(dstZone uint32, msgType wire.MsgType, payload []byte) wire.Message {
	seq := atomic.AddUint64(&c.nextSeq, 1) - 1
	return wire.Message{
		Header: wire.Header{
			Magic:      wire.Magic,
			Version:    wire.Version,
			MsgType:    msgType,
			SrcZone:    c.LocalZone,
			DstZone:    dstZone,
			SeqNum:     seq,
			PayloadLen: uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Send implements spec §4.2's send contract: validity check, capacity
// check, ring-full check, copy, publish, and wake. It never poisons the
// connection — RingFull and InvalidMessage are returned to the caller and
// the connection remains usable.
func (c *Connection) Send(msg wire.Message) error {
	if !c.Connected() {
		return ErrConnectionLost
	}
	if !msg.Header.Valid() {
		return ErrInvalidMessage
	}
	size := msg.Size()
	if size > SlotSize {
		return ErrMessageTooLarge
	}
	buf := make([]byte, size)
	msg.Encode(buf)
	if !c.tx.TryPush(buf) {
		return ErrRingFull
	}
	c.txWaker.Signal()
	return nil
}

// Receive implements spec §4.2's receive contract. timeout < 0 blocks
// indefinitely, 0 polls without blocking, >0 bounds the wait.
func (c *Connection) Receive(timeout time.Duration) (wire.Message, error) {
	if !c.Connected() {
		return wire.Message{}, ErrConnectionLost
	}
	// A slot that is already published is taken without waiting, so a
	// wake edge coalesced away by the Waker never strands it.
	if c.rx.Empty() {
		if err := c.rxWaker.Wait(timeout); err != nil {
			return wire.Message{}, ErrTimeout
		}
	}
	if c.rx.Empty() {
		// Spurious wake: tolerated, surfaced identically to a real
		// timeout so callers retry uniformly.
		return wire.Message{}, ErrTimeout
	}

	peek := c.rx.PeekSlot()
	hdr, err := wire.DecodeHeader(peek)
	if err != nil || !hdr.Valid() || wire.HeaderSize+int(hdr.PayloadLen) > SlotSize {
		c.rx.SkipOne()
		c.logger.Printf("dropped invalid slot from zone %d (src=%d)", c.RemoteZone, hdr.SrcZone)
		return wire.Message{}, ErrInvalidMessage
	}

	buf := make([]byte, wire.HeaderSize+int(hdr.PayloadLen))
	if !c.rx.TryPop(buf) {
		// Ring transitioned to empty between the peek and the pop; treat
		// as a spurious wake.
		return wire.Message{}, ErrTimeout
	}
	return wire.DecodeMessage(buf)
}
