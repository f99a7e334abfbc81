package pool

import "errors"

// Sentinel errors forming the taxonomy Acquire can return. Provider errors
// are wrapped against these with fmt.Errorf("%w: ...") so callers can use
// errors.Is rather than matching strings.
var (
	// ErrShuttingDown is returned by Acquire once shutdown has started.
	// It never recovers; the caller must not retry on this pool.
	ErrShuttingDown = errors.New("pool: shutting down")

	// ErrPoolEmpty is returned when selection finds no instances and no
	// instance could be created either.
	ErrPoolEmpty = errors.New("pool: empty")

	// ErrCreateTimeout is returned when a provider's Create exceeds the
	// configured create timeout and the pool was empty at the time (so
	// there was nothing to degrade to).
	ErrCreateTimeout = errors.New("pool: create timeout")

	// ErrCreateFailed wraps a provider Create error surfaced to the
	// caller because the pool was empty and there was nothing to reuse.
	ErrCreateFailed = errors.New("pool: create failed")

	// ErrPrepareFailed wraps a Preparer.Prepare error surfaced to the
	// caller because the pool was empty.
	ErrPrepareFailed = errors.New("pool: prepare failed")

	// ErrNotFound is for providers to wrap their own backend's "already
	// gone" signal (a container daemon 404, a Kubernetes NotFound). The
	// engine treats it as a successful terminate, never as a failure.
	ErrNotFound = errors.New("pool: not found")

	// ErrAlreadyStopped is for providers to wrap a "the backend already
	// considers this fully stopped" response (a container daemon 304).
	// Treated identically to ErrNotFound by the engine.
	ErrAlreadyStopped = errors.New("pool: already stopped")
)
