// File: dispatcher/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package dispatcher implements the driver-side message loop of spec
// §4.4 (C4): a single-threaded receive/decode/validate/invoke/respond
// cycle over a ringbuf.Connection, backed by a handletable.Table and a
// gpubackend.Backend. Grounded on the teacher's server.Server lifecycle
// and internal/concurrency.Executor backlog, generalized from an
// accept/handle WebSocket loop to a fixed zone-pair message loop.
package dispatcher
