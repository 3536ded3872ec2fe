// File: correlator/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package correlator implements the user-zone request/response pairing
// loop: send one request, wait for the response carrying a matching
// request sequence number, translate a remote error into the local
// error space. Grounded on the teacher's client.Call single-in-flight
// request pattern, generalized from a WebSocket RPC round trip to an
// IDM ring round trip.
package correlator
