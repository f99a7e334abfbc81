package pool

import (
	"context"
	"errors"
	"sync"
)

// terminateInstance is the termination policy shared by the reaper and
// Shutdown: signal any side channel, race Terminate against
// shutdownTimeout, and escalate to ForceTerminate on timeout or error
// (an error wrapping ErrNotFound or ErrAlreadyStopped counts as success).
// Errors are logged, never returned — callers treat this as best-effort.
func (pl *Pool) terminateInstance(ctx context.Context, inst *Instance) {
	if inst.Handle.SideChannel != nil {
		_ = inst.Handle.SideChannel.Signal(terminateSignal)
	}

	done := make(chan error, 1)
	termCtx, cancel := context.WithTimeout(ctx, pl.cfg.ShutdownTimeout)
	defer cancel()

	go func() {
		done <- pl.provider.Terminate(termCtx, inst.Handle)
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAlreadyStopped) {
			pl.log.Warn().Err(err).Str("instance", inst.Name).Msg("terminate failed, forcing")
			pl.provider.ForceTerminate(context.Background(), inst.Handle)
		}
	case <-termCtx.Done():
		pl.log.Warn().Str("instance", inst.Name).Msg("terminate timed out, forcing")
		pl.provider.ForceTerminate(context.Background(), inst.Handle)
	}
}

// Shutdown stops the reaper, terminates every live instance concurrently,
// and releases the pool's signal handlers. It is idempotent: the second
// and subsequent calls make no provider calls and return immediately.
func (pl *Pool) Shutdown(ctx context.Context) {
	pl.shutdownOnce.Do(func() {
		pl.mu.Lock()
		pl.shuttingDown = true
		instances := pl.instances
		pl.instances = nil
		reaperArmed := pl.reaperArmed
		pl.mu.Unlock()

		if reaperArmed && pl.reaperStop != nil {
			close(pl.reaperStop)
			<-pl.reaperDone
		}

		var wg sync.WaitGroup
		for _, inst := range instances {
			wg.Add(1)
			go func(inst *Instance) {
				defer wg.Done()
				pl.terminateInstance(ctx, inst)
			}(inst)
		}
		wg.Wait()

		close(pl.sigDone)
		signalStop(pl.sigCh)

		pl.log.Info().Msg("pool shut down")
	})
}

// terminateSignal is the signal sent to a side channel before racing
// Terminate, matching the reference behavior of SIGTERM-ing the
// port-forward tunnel ahead of the pod delete call.
var terminateSignal = sigterm()

// StopAll terminates every instance but does not mark the pool as
// shutting down or release signal handlers; the pool remains usable and
// Acquire will provision fresh instances afterward.
func (pl *Pool) StopAll(ctx context.Context) {
	pl.mu.Lock()
	instances := pl.instances
	pl.instances = nil
	pl.mu.Unlock()

	var wg sync.WaitGroup
	for _, inst := range instances {
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			pl.terminateInstance(ctx, inst)
		}(inst)
	}
	wg.Wait()
}

// Clear removes every instance record from the pool without terminating
// the underlying backend. It exists for callers that manage backend
// lifetime themselves; ordinary operation should prefer StopAll.
func (pl *Pool) Clear() {
	pl.mu.Lock()
	pl.instances = nil
	pl.mu.Unlock()
}
