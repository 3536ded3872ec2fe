// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// High-performance, cross-platform buffer pooling, batching, and ring buffer layer.
// Implements NUMA-aware, zero-copy pools and batching primitives for all supported OS (Linux/Windows).
// Extension via interface layer.
// All core methods are thread-safe or explicitly document the concurrency contract.
package pool
