// File: correlator/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package correlator

import (
	"fmt"

	"github.com/momentics/idm-core/wire"
)

// CallError is the user-visible error a Call returns, translated from
// either a local failure (send error, timeout, exhaustion) or a remote
// RESPONSE_ERROR. Diagnostic strings from the remote side are preserved
// here for logging but a caller must not forward Message verbatim to an
// untrusted context.
type CallError struct {
	Code    wire.ErrorCode
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("correlator: %s: %s", e.Code, e.Message)
}

func newCallError(code wire.ErrorCode, message string) *CallError {
	return &CallError{Code: code, Message: message}
}

// translateRemote maps a RESPONSE_ERROR's error code into the local
// error space (spec's translation table for C5): a wrong-owner rejection
// and a missing-handle rejection must look identical to the caller, so
// PERMISSION_DENIED collapses into INVALID_HANDLE same as INVALID_HANDLE
// itself; everything the dispatcher doesn't explicitly emit collapses to
// the unknown/default code rather than inventing a new one.
func translateRemote(resp wire.ResponseError) *CallError {
	switch resp.ErrorCode {
	case wire.ErrOutOfMemory:
		return newCallError(wire.ErrOutOfMemory, resp.ErrorMsg)
	case wire.ErrInvalidHandle, wire.ErrPermissionDenied:
		return newCallError(wire.ErrInvalidHandle, resp.ErrorMsg)
	case wire.ErrInvalidSize:
		return newCallError(wire.ErrInvalidSize, resp.ErrorMsg)
	case wire.ErrInvalidMessage:
		return newCallError(wire.ErrInvalidMessage, resp.ErrorMsg)
	case wire.ErrDriverError:
		return newCallError(wire.ErrDriverError, resp.ErrorMsg)
	default:
		return newCallError(wire.ErrUnknown, resp.ErrorMsg)
	}
}
