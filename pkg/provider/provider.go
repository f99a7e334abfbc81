// Package provider defines the backend adapter contract the pool engine
// depends on. Each backend (thread, subprocess, container, pod) implements
// Provider; the engine itself knows nothing about threads, processes,
// containers, or pods.
package provider

import (
	"context"
	"os"
)

// SideChannel is an optional secondary process an instance owns alongside
// its backend handle — currently only the pod provider's port-forward
// tunnel child. The engine signals it during termination and otherwise
// leaves it alone. *os.Process satisfies this interface directly.
type SideChannel interface {
	Signal(sig os.Signal) error
}

// Handle is the opaque, provider-specific reference to a live backend
// instance, plus an optional side channel spawned alongside it.
type Handle struct {
	// Ref is the provider's own reference: a thread token, the
	// subprocess provider's wrapper around its *exec.Cmd, a container id,
	// a pod name. The engine never
	// inspects it — it only ever passes it back to the same provider.
	Ref any

	// SideChannel is non-nil only for providers that spawn a secondary
	// process during Create (the pod provider's port-forward tunnel).
	SideChannel SideChannel

	// Exited, if non-nil, is closed by the provider the moment the
	// backend instance exits on its own — a crashed goroutine, a child
	// process that exited — independent of any Terminate call. The pool
	// watches it in the background and removes the instance record as
	// soon as it closes, rather than waiting for the next reaper tick or
	// explicit probe to notice. Closing it more than once, or after an
	// explicit Terminate already removed the record, is safe: removal by
	// name is idempotent.
	Exited <-chan struct{}
}

// Provider is the backend adapter contract. Implementations MUST make
// IsAlive, Terminate, and ForceTerminate tolerant of a vanished backend:
// report/continue rather than panic.
type Provider interface {
	// Backend names this provider for logging ("thread", "subprocess",
	// "container", "pod").
	Backend() string

	// Create starts a new backend instance serving scriptDir/scriptFiles
	// on host-local port, under name. It must not return until the
	// instance is externally reachable. The caller races this against a
	// create timeout; Create should itself respect ctx cancellation.
	Create(ctx context.Context, port int, name string, scriptDir string, scriptFiles []string) (Handle, error)

	// IsAlive is a synchronous, non-blocking best-effort liveness probe.
	// A vanished backend is reported as false, never as an error.
	IsAlive(ctx context.Context, handle Handle) bool

	// Terminate requests graceful stop and resource release. It may
	// block; the engine races it against a shutdown timeout.
	Terminate(ctx context.Context, handle Handle) error

	// ForceTerminate unconditionally kills/removes the backend instance.
	// Best-effort: implementations log their own errors rather than
	// return them.
	ForceTerminate(ctx context.Context, handle Handle)
}

// Preparer is an optional provider capability invoked once per Acquire,
// before Create, only when the pool is below capacity. Only the pod
// provider currently implements it (publishing script contents to a
// cluster config object ahead of pod creation).
type Preparer interface {
	Prepare(ctx context.Context, scriptDir string, scriptFiles []string) error
}
