package pool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/scriptpool/pkg/pool"
	"github.com/cuemby/scriptpool/pkg/provider/providertest"
)

func newTestPool(t *testing.T, fake *providertest.Fake, opts ...pool.Option) *pool.Pool {
	t.Helper()
	base := []pool.Option{
		pool.WithMaxPoolSize(3),
		pool.WithIdleInterval(50 * time.Millisecond),
		pool.WithCreateTimeout(200 * time.Millisecond),
		pool.WithShutdownTimeout(100 * time.Millisecond),
		pool.WithNamePrefix("test"),
	}
	p := pool.New(fake, append(base, opts...)...)
	t.Cleanup(func() { p.Shutdown(context.Background()) })
	return p
}

func TestColdAcquire(t *testing.T) {
	fake := providertest.New()
	p := newTestPool(t, fake)

	acquired, err := p.Acquire(context.Background(), "/s", []string{"index.js"})
	require.NoError(t, err)
	assert.NotEmpty(t, acquired.Name)
	assert.NotZero(t, acquired.Port)

	info := p.PoolInfo(context.Background(), false)
	assert.Equal(t, 1, info.PoolSize)
}

func TestCapacitySaturation(t *testing.T) {
	fake := providertest.New()
	p := newTestPool(t, fake, pool.WithMaxPoolSize(3))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := p.Acquire(ctx, "/s", []string{"index.js"})
		require.NoError(t, err)
	}
	require.Equal(t, 3, p.PoolInfo(ctx, false).PoolSize)

	createsBefore := countCreates(fake.Calls())
	_, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)

	assert.Equal(t, createsBefore, countCreates(fake.Calls()), "acquire at capacity must not create")
	assert.Equal(t, 3, p.PoolInfo(ctx, false).PoolSize)
}

func TestIdleReap(t *testing.T) {
	fake := providertest.New()
	p := newTestPool(t, fake, pool.WithIdleInterval(30*time.Millisecond))

	ctx := context.Background()
	_, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)
	require.Equal(t, 1, p.PoolInfo(ctx, false).PoolSize)

	require.Eventually(t, func() bool {
		return p.PoolInfo(ctx, false).PoolSize == 0
	}, time.Second, 10*time.Millisecond, "idle instance should be reaped")
}

func TestDeadOnSelectSelfHeal(t *testing.T) {
	fake := providertest.New()
	// A long idle interval keeps the reaper from racing this test's own
	// assertions: selection here is time-rotating (now_seconds mod pool
	// size), so the dead instance is only hit on some ticks of the wall
	// clock and the test polls Acquire until it lands on it.
	p := newTestPool(t, fake, pool.WithMaxPoolSize(2), pool.WithIdleInterval(time.Hour))

	ctx := context.Background()
	first, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)
	second, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)
	require.Equal(t, 2, p.PoolInfo(ctx, false).PoolSize)

	fake.MarkDead(second.Name)

	require.Eventually(t, func() bool {
		acquired, err := p.Acquire(ctx, "/s", []string{"index.js"})
		if err != nil {
			return false
		}
		info := p.PoolInfo(ctx, false)
		return acquired.Name == first.Name && info.PoolSize == 1 && info.Instances[0].Name == first.Name
	}, 3*time.Second, 50*time.Millisecond, "selection must eventually self-heal past the dead instance")
}

func TestExitEventRemovesRecordWithoutWaitingForProbe(t *testing.T) {
	fake := providertest.New()
	// A long idle interval keeps the reaper from removing the instance
	// itself, so only the exit-event path can be responsible for the
	// removal this test asserts on.
	p := newTestPool(t, fake, pool.WithMaxPoolSize(2), pool.WithIdleInterval(time.Hour))

	ctx := context.Background()
	acquired, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)
	require.Equal(t, 1, p.PoolInfo(ctx, false).PoolSize)

	fake.SimulateExit(acquired.Name)

	require.Eventually(t, func() bool {
		return p.PoolInfo(ctx, false).PoolSize == 0
	}, time.Second, 10*time.Millisecond, "an adapter-emitted exit event must remove the record without an explicit probe")
}

func TestCreateTimeoutDegrades(t *testing.T) {
	fake := providertest.New()
	p := newTestPool(t, fake, pool.WithMaxPoolSize(2), pool.WithCreateTimeout(20*time.Millisecond))

	ctx := context.Background()
	x, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)

	// Block the next Create past the timeout.
	block := make(chan struct{})
	fake.CreateBlock = block
	defer close(block)

	acquired, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err, "a non-empty pool must degrade to reuse on create timeout")
	assert.Equal(t, x.Name, acquired.Name)
	assert.Equal(t, 1, p.PoolInfo(ctx, false).PoolSize)
}

func TestCreateFailureSurfacesOnEmptyPool(t *testing.T) {
	fake := providertest.New()
	fake.CreateErr = errors.New("backend unavailable")
	p := newTestPool(t, fake)

	_, err := p.Acquire(context.Background(), "/s", []string{"index.js"})
	require.Error(t, err)
	assert.ErrorIs(t, err, pool.ErrCreateFailed)
}

func TestShutdownIsIdempotent(t *testing.T) {
	fake := providertest.New()
	p := pool.New(fake, pool.WithMaxPoolSize(2), pool.WithShutdownTimeout(100*time.Millisecond))

	ctx := context.Background()
	_, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)
	_, err = p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)

	p.Shutdown(ctx)
	callsAfterFirst := len(fake.Calls())

	p.Shutdown(ctx)
	assert.Equal(t, callsAfterFirst, len(fake.Calls()), "second shutdown must make no provider calls")

	info := p.PoolInfo(ctx, false)
	assert.True(t, info.ShuttingDown)
	assert.Equal(t, 0, info.PoolSize)

	_, err = p.Acquire(ctx, "/s", []string{"index.js"})
	assert.ErrorIs(t, err, pool.ErrShuttingDown)
}

func TestShutdownForcesFailingTerminate(t *testing.T) {
	fake := providertest.New()
	p := pool.New(fake, pool.WithMaxPoolSize(2), pool.WithShutdownTimeout(20*time.Millisecond))

	ctx := context.Background()
	slow, err := p.Acquire(ctx, "/s", []string{"index.js"})
	require.NoError(t, err)
	fake.FailTerminate(slow.Name, errors.New("terminate refused"))

	p.Shutdown(ctx)

	var forced bool
	for _, c := range fake.Calls() {
		if c.Op == "forceTerminate" && c.Name == slow.Name {
			forced = true
		}
	}
	assert.True(t, forced, "a failing terminate must escalate to forceTerminate")
}

func countCreates(calls []providertest.Call) int {
	n := 0
	for _, c := range calls {
		if c.Op == "create" {
			n++
		}
	}
	return n
}
