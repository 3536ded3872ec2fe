// File: handletable/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package handletable implements the driver-side handle table of spec
// §4.3 (C3): an opaque, monotonically-increasing 64-bit handle mapping to
// a (owning zone, native pointer, size) triple, enforcing per-zone
// ownership on every lookup. Grounded on the teacher's sharded
// internal/session.sessionManager, generalized from string session ids
// to uint64 handles.
package handletable
