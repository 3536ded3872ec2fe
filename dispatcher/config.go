// File: dispatcher/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatcher

import (
	"time"

	"github.com/momentics/idm-core/control"
)

// Config holds the ambient tunables for a driver-zone dispatcher and its
// Connection, loaded at process start (spec §6: "configuration loading"
// is an out-of-scope external collaborator; this struct is the shape that
// collaborator fills in).
type Config struct {
	RingSize    uint32
	SlotSize    int
	RecvTimeout time.Duration
	NUMANode    int
	CPUID       int
	PinAffinity bool
}

// DefaultConfig returns the spec's documented defaults: ring size 32,
// 500ms receive timeout, no NUMA/affinity pinning.
func DefaultConfig() Config {
	return Config{
		RingSize:    32,
		SlotSize:    4096,
		RecvTimeout: defaultRecvTimeout,
		NUMANode:    -1,
		PinAffinity: false,
	}
}

// PublishTo mirrors the config into a control.ConfigStore so it is
// observable through the same hot-reload surface as every other
// ambient setting.
func (c Config) PublishTo(store *control.ConfigStore) {
	store.SetConfig(map[string]any{
		"ring.size":       c.RingSize,
		"ring.slot_size":  c.SlotSize,
		"recv.timeout_ms": c.RecvTimeout.Milliseconds(),
		"numa.node":       c.NUMANode,
		"affinity.cpu":    c.CPUID,
		"affinity.pin":    c.PinAffinity,
	})
}

// Options converts the config into Dispatcher construction options.
func (c Config) Options() []Option {
	opts := []Option{
		WithRecvTimeout(c.RecvTimeout),
		WithNUMANode(c.NUMANode),
	}
	if c.PinAffinity {
		opts = append(opts, WithAffinity(c.CPUID))
	}
	return opts
}
