package pool

import "context"

// Info is the caller-facing snapshot returned by PoolInfo.
type Info struct {
	PoolSize     int
	MaxPoolSize  int
	ShuttingDown bool
	ReaperArmed  bool
	Instances    []InstanceInfo
}

// PoolInfo snapshots the pool's current state. If probe is true, each
// instance's Alive field is populated via the provider's IsAlive check;
// otherwise Alive is left nil to avoid the I/O cost.
func (pl *Pool) PoolInfo(ctx context.Context, probe bool) Info {
	pl.mu.Lock()
	snapshot := make([]*Instance, len(pl.instances))
	copy(snapshot, pl.instances)
	info := Info{
		PoolSize:     len(pl.instances),
		MaxPoolSize:  pl.cfg.MaxPoolSize,
		ShuttingDown: pl.shuttingDown,
		ReaperArmed:  pl.reaperArmed,
	}
	pl.mu.Unlock()

	info.Instances = make([]InstanceInfo, len(snapshot))
	for i, inst := range snapshot {
		ii := InstanceInfo{
			Name:       inst.Name,
			Port:       inst.Port,
			CreatedAt:  inst.CreatedAt,
			LastUsedAt: inst.LastUsedAt,
		}
		if probe {
			alive := pl.provider.IsAlive(ctx, inst.Handle)
			ii.Alive = &alive
		}
		info.Instances[i] = ii
	}
	return info
}

// HealthResult is the outcome of HealthCheck.
type HealthResult struct {
	Total       int
	DeadRemoved int
	Healthy     bool
}

// HealthCheck probes every instance, terminating and removing any that
// report dead, then returns the counts. Healthy is true iff the pool has
// at least one instance or is not shutting down — an empty pool that
// isn't shutting down is still considered a healthy (merely cold) pool.
// HealthCheck is idempotent on a quiescent pool: a pool with nothing dead
// removes nothing on a repeat call.
func (pl *Pool) HealthCheck(ctx context.Context) HealthResult {
	pl.mu.Lock()
	snapshot := make([]*Instance, len(pl.instances))
	copy(snapshot, pl.instances)
	shuttingDown := pl.shuttingDown
	pl.mu.Unlock()

	var deadRemoved int
	for _, inst := range snapshot {
		if pl.provider.IsAlive(ctx, inst.Handle) {
			continue
		}
		pl.log.Warn().Str("instance", inst.Name).Msg("health check found dead instance")
		pl.removeByName(inst.Name)
		_ = pl.provider.Terminate(ctx, inst.Handle)
		deadRemoved++
	}

	pl.mu.Lock()
	total := len(pl.instances)
	pl.mu.Unlock()

	return HealthResult{
		Total:       total,
		DeadRemoved: deadRemoved,
		Healthy:     total > 0 || !shuttingDown,
	}
}
