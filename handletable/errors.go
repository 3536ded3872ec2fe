// File: handletable/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package handletable

import "errors"

// ErrNotFound covers both "handle never existed" and "wrong owner zone" —
// the dispatcher maps it to wire.ErrInvalidHandle in both cases, and this
// package never exposes which case occurred (spec §4.3).
var ErrNotFound = errors.New("handletable: handle not found")
