package pool

import (
	"context"
	"time"
)

// armReaper starts the single periodic reaping task, exactly once per pool
// lifetime. Subsequent calls are no-ops, matching the idempotent
// poolWatcher() requirement.
func (pl *Pool) armReaper() {
	pl.armOnce.Do(func() {
		pl.mu.Lock()
		pl.reaperArmed = true
		pl.mu.Unlock()

		pl.reaperStop = make(chan struct{})
		pl.reaperDone = make(chan struct{})
		go pl.runReaper()
	})
}

func (pl *Pool) runReaper() {
	defer close(pl.reaperDone)

	ticker := time.NewTicker(pl.cfg.IdleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pl.reaperStop:
			return
		case <-ticker.C:
			pl.reapTick()
		}
	}
}

// reapTick is one reaper iteration: at most one instance, the oldest
// (head, FIFO), is removed and asynchronously terminated if the pool has
// gone idle past idleInterval since the last Acquire.
func (pl *Pool) reapTick() {
	pl.mu.Lock()
	if pl.shuttingDown {
		pl.mu.Unlock()
		return
	}
	if len(pl.instances) == 0 {
		pl.mu.Unlock()
		return
	}
	idle := nowMillis()-pl.lastRequestAt > pl.cfg.IdleInterval.Milliseconds()
	if !idle {
		pl.mu.Unlock()
		return
	}
	head := pl.instances[0]
	pl.instances = pl.instances[1:]
	pl.mu.Unlock()

	pl.log.Info().Str("instance", head.Name).Msg("reaping idle instance")
	go pl.terminateInstance(context.Background(), head)
}
