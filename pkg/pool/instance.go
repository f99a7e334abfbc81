package pool

import (
	"github.com/cuemby/scriptpool/pkg/provider"
)

// Instance is one element of the pool: a live backend instance serving a
// script on a host-local port.
type Instance struct {
	// Name is unique across the pool's lifetime, formed as
	// "<prefix>-<port>-<creationEpochMillis>".
	Name string

	// Port is the host-local TCP port forwarded to the workload.
	Port int

	// Handle is the provider-specific reference (and optional side
	// channel) returned by Create.
	Handle provider.Handle

	// CreatedAt is the epoch-millisecond creation timestamp.
	CreatedAt int64

	// LastUsedAt is the epoch-millisecond timestamp of the instance's
	// most recent selection. Updated on every successful Acquire that
	// selects this instance.
	LastUsedAt int64
}

// InstanceInfo is the caller-facing snapshot of an Instance returned by
// PoolInfo. Alive is populated only when PoolInfo is asked to probe.
type InstanceInfo struct {
	Name       string
	Port       int
	CreatedAt  int64
	LastUsedAt int64
	Alive      *bool
}
