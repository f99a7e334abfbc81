/*
Package pool implements the generic pooled lifecycle engine shared by every
backend in this module. A Pool is instantiated once per provider.Provider
and composes four policies on top of it: capacity-bounded lazy
provisioning, idle-timeout reaping, selection-time liveness self-healing,
and signal-driven graceful shutdown.

# Acquire

Acquire(ctx, scriptDir, scriptFiles) is the only entry point callers need.
Below capacity it first creates a new instance (racing the provider's
Create against CreateTimeout, with a post-create capacity re-check to
discard a concurrent overfill). It then selects among all instances by a
time-rotating index (now_seconds mod pool size) rather than a random
pick or a per-pool counter, so selection is deterministic under test and
roughly balanced under steady request rate; the instance just created is
not necessarily the one returned. The selected instance is
probed with IsAlive before being returned; a dead instance is removed and
the selection recurses, bounded by one more than the pool size observed
at the call's start.

# Reaper

A single ticker-driven goroutine, armed on the pool's first Acquire,
removes the oldest instance (FIFO) once the pool has gone idle longer than
IdleInterval since the last Acquire. It removes at most one instance per
tick — draining gradually rather than all at once.

# Shutdown

Shutdown is idempotent: the reaper is disarmed first, then every live
instance is terminated concurrently (one slow instance does not block the
others), each instance racing the provider's Terminate against
ShutdownTimeout before escalating to ForceTerminate. The pool also
self-triggers Shutdown on SIGINT/SIGTERM.
*/
package pool
