// File: correlator/correlator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package correlator

import (
	"time"

	"github.com/momentics/idm-core/ringbuf"
	"github.com/momentics/idm-core/wire"
)

const (
	defaultPerAttemptTimeout = time.Second
	defaultMaxAttempts       = 10
)

// Correlator pairs one outbound request with its matching response on a
// single Connection. It assumes a single in-flight caller: a concurrent
// second caller on the same Connection must be serialized above this
// package, or upgraded to a pending-request map keyed by sequence number.
type Correlator struct {
	conn        *ringbuf.Connection
	perAttempt  time.Duration
	maxAttempts int
}

// Option configures a Correlator at construction.
type Option func(*Correlator)

// WithPerAttemptTimeout overrides the default 1s per-receive-iteration
// timeout.
func WithPerAttemptTimeout(d time.Duration) Option {
	return func(c *Correlator) { c.perAttempt = d }
}

// WithMaxAttempts overrides the default 10 receive attempts before a
// Call gives up with TIMEOUT.
func WithMaxAttempts(n int) Option {
	return func(c *Correlator) { c.maxAttempts = n }
}

// New builds a Correlator bound to conn.
func New(conn *ringbuf.Connection, opts ...Option) *Correlator {
	c := &Correlator{
		conn:        conn,
		perAttempt:  defaultPerAttemptTimeout,
		maxAttempts: defaultMaxAttempts,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Result is the successful outcome of a Call: the decoded OK payload.
type Result struct {
	ResultHandle uint64
	ResultValue  uint32
	Data         []byte
}

// Call sends one request built from msgType/payload to dstZone, then
// waits for the response carrying a matching request sequence number,
// per spec's C5 loop: bounded per-iteration receive, bounded attempt
// count, discard-and-retry on any non-matching response, translate a
// remote error into the local error space.
func (c *Correlator) Call(dstZone uint32, msgType wire.MsgType, payload []byte) (Result, error) {
	req := c.conn.Build(dstZone, msgType, payload)
	if err := c.conn.Send(req); err != nil {
		return Result{}, newCallError(wire.ErrConnectionLost, err.Error())
	}
	reqSeq := req.Header.SeqNum

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		resp, err := c.conn.Receive(c.perAttempt)
		switch err {
		case nil:
		case ringbuf.ErrTimeout:
			continue
		case ringbuf.ErrInvalidMessage:
			continue
		case ringbuf.ErrConnectionLost:
			return Result{}, newCallError(wire.ErrConnectionLost, err.Error())
		default:
			return Result{}, newCallError(wire.ErrUnknown, err.Error())
		}

		switch resp.Header.MsgType {
		case wire.MsgResponseOK:
			ok, decErr := wire.DecodeResponseOK(resp.Payload)
			if decErr != nil || ok.RequestSeq != reqSeq {
				continue // orphan or malformed, not ours
			}
			return Result{ResultHandle: ok.ResultHandle, ResultValue: ok.ResultValue, Data: ok.Data}, nil
		case wire.MsgResponseErr:
			errResp, decErr := wire.DecodeResponseError(resp.Payload)
			if decErr != nil || errResp.RequestSeq != reqSeq {
				continue
			}
			return Result{}, translateRemote(errResp)
		default:
			continue // not a response at all, not ours
		}
	}

	return Result{}, newCallError(wire.ErrTimeout, "no matching response within attempt budget")
}
