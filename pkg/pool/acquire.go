package pool

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Acquired is the caller-facing result of a successful Acquire: the
// reachable endpoint of a running instance of the caller's script.
type Acquired struct {
	Name string
	Port int
}

// Acquire returns a reachable instance of the script at scriptDir,
// creating one if the pool is below capacity, reusing one otherwise. The
// caller is responsible for the actual network request against
// localhost:Port.
//
// An empty scriptFiles defaults to the pool's configured
// DefaultScriptFiles.
func (pl *Pool) Acquire(ctx context.Context, scriptDir string, scriptFiles []string) (Acquired, error) {
	if scriptDir == "" {
		return Acquired{}, errors.New("pool: scriptDir must not be empty")
	}
	if len(scriptFiles) == 0 {
		scriptFiles = pl.cfg.DefaultScriptFiles
	}

	pl.mu.Lock()
	if pl.shuttingDown {
		pl.mu.Unlock()
		return Acquired{}, ErrShuttingDown
	}
	pl.lastRequestAt = nowMillis()
	bound := len(pl.instances) + 1
	pl.mu.Unlock()

	pl.armReaper()

	if err := pl.maybeCreate(ctx, scriptDir, scriptFiles); err != nil {
		return Acquired{}, err
	}

	return pl.selectWithHeal(ctx, bound)
}

// selectWithHeal is the recursive core of algorithm steps 6-8: select,
// self-heal on a dead instance, and retry selection among whatever
// remains. It never re-provisions — step 5's capacity check already ran
// once in Acquire — so healing past a dead instance leaves the pool at
// its reduced size instead of silently refilling it back to capacity.
// depth bounds the recursion to one more than the pool size observed
// when Acquire began (room for the instance step 5 may have just
// created), preventing unbounded probing against a provider that always
// reports instances dead.
func (pl *Pool) selectWithHeal(ctx context.Context, depth int) (Acquired, error) {
	if depth <= 0 {
		return Acquired{}, ErrPoolEmpty
	}

	pl.mu.Lock()
	if len(pl.instances) == 0 {
		pl.mu.Unlock()
		return Acquired{}, ErrPoolEmpty
	}
	idx := int(time.Now().Unix()) % len(pl.instances)
	selected := pl.instances[idx]
	pl.mu.Unlock()

	if pl.provider.IsAlive(ctx, selected.Handle) {
		pl.mu.Lock()
		selected.LastUsedAt = nowMillis()
		pl.mu.Unlock()
		return Acquired{Name: selected.Name, Port: selected.Port}, nil
	}

	pl.log.Warn().Str("instance", selected.Name).Msg("instance dead at selection, self-healing")
	pl.removeByName(selected.Name)
	_ = pl.provider.Terminate(ctx, selected.Handle)

	return pl.selectWithHeal(ctx, depth-1)
}

// maybeCreate implements algorithm step 5: if the pool has room, prepare
// (if the provider needs it), allocate a port+name, create, and append —
// re-checking capacity after create to discard a racing overfill.
func (pl *Pool) maybeCreate(ctx context.Context, scriptDir string, scriptFiles []string) error {
	pl.mu.Lock()
	hasRoom := len(pl.instances) < pl.cfg.MaxPoolSize
	empty := len(pl.instances) == 0
	pl.mu.Unlock()
	if !hasRoom {
		return nil
	}

	if prep, ok := pl.provider.(interface {
		Prepare(ctx context.Context, scriptDir string, scriptFiles []string) error
	}); ok {
		if err := prep.Prepare(ctx, scriptDir, scriptFiles); err != nil {
			if empty {
				return fmt.Errorf("%w: %v", ErrPrepareFailed, err)
			}
			pl.log.Warn().Err(err).Msg("prepare failed, reusing existing instances")
			return nil
		}
	}

	port, name, err := pl.allocate()
	if err != nil {
		if empty {
			return fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		pl.log.Warn().Err(err).Msg("port allocation failed, reusing existing instances")
		return nil
	}

	createCtx, cancel := context.WithTimeout(ctx, pl.cfg.CreateTimeout)
	defer cancel()

	handle, err := pl.provider.Create(createCtx, port, name, scriptDir, scriptFiles)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			if empty {
				return ErrCreateTimeout
			}
			pl.log.Warn().Str("instance", name).Msg("create timed out, reusing existing instances")
			return nil
		}
		if empty {
			return fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		pl.log.Warn().Err(err).Str("instance", name).Msg("create failed, reusing existing instances")
		return nil
	}

	now := nowMillis()
	pl.mu.Lock()
	if len(pl.instances) >= pl.cfg.MaxPoolSize {
		// Double-check: a concurrent Acquire filled the pool while we
		// were creating. Discard this instance rather than overfill.
		pl.mu.Unlock()
		pl.log.Debug().Str("instance", name).Msg("pool filled concurrently, discarding fresh instance")
		_ = pl.provider.Terminate(ctx, handle)
		return nil
	}
	pl.instances = append(pl.instances, &Instance{
		Name:       name,
		Port:       port,
		Handle:     handle,
		CreatedAt:  now,
		LastUsedAt: now,
	})
	pl.mu.Unlock()

	if handle.Exited != nil {
		go pl.watchExit(name, handle.Exited)
	}

	pl.log.Info().Str("instance", name).Int("port", port).Msg("instance created")
	return nil
}

// watchExit removes name's record the moment the provider's exit channel
// closes — an instance that crashed or exited on its own is dropped
// immediately instead of staying counted toward the pool's capacity
// until the next reaper tick, probe, or health check happens to notice.
// removeByName is idempotent, so this is safe to race against an
// explicit Terminate that already removed the same record.
func (pl *Pool) watchExit(name string, exited <-chan struct{}) {
	<-exited
	pl.log.Warn().Str("instance", name).Msg("instance exited on its own, removing record")
	pl.removeByName(name)
}

// removeByName deletes the named instance from instances, if present.
// Idempotent: a no-op if the name is already gone.
func (pl *Pool) removeByName(name string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for i, inst := range pl.instances {
		if inst.Name == name {
			pl.instances = append(pl.instances[:i], pl.instances[i+1:]...)
			return
		}
	}
}
