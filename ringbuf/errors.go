// File: ringbuf/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ringbuf

import "errors"

// Local transport-level failures (spec §4.2, §7). These are distinct from
// wire.ErrorCode, which travels inside a RESPONSE_ERROR payload: RingFull,
// Timeout, and local InvalidMessage/ConnectionLost never reach the wire
// because they are detected before or outside of a successful send.
var (
	ErrRingFull       = errors.New("ringbuf: ring full")
	ErrTimeout        = errors.New("ringbuf: timeout")
	ErrInvalidMessage = errors.New("ringbuf: invalid message")
	ErrConnectionLost = errors.New("ringbuf: connection lost")
	ErrMessageTooLarge = errors.New("ringbuf: message exceeds slot capacity")
)
