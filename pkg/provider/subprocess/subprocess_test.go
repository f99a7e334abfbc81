package subprocess

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/scriptpool/pkg/provider"
)

// newRunningHandle starts a short-lived real process and wraps it in a
// handle with its exit channel, as Create does (without the exited
// broadcast channel), skipping the TCP readiness probe — this
// exercises IsAlive/Terminate/ForceTerminate against a real PID without
// depending on a script interpreter being installed.
func newRunningHandle(t *testing.T, args ...string) (*Provider, provider.Handle) {
	t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	require.NoError(t, cmd.Start())

	h := &handle{cmd: cmd, exit: make(chan error, 1)}
	go func() { h.exit <- cmd.Wait() }()

	return New(), provider.Handle{Ref: h}
}

func TestIsAliveThenTerminate(t *testing.T) {
	p, h := newRunningHandle(t, "sleep", "5")

	assert.True(t, p.IsAlive(context.Background(), h))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.Terminate(ctx, h)
	require.NoError(t, err)

	assert.False(t, p.IsAlive(context.Background(), h))
}

func TestForceTerminate(t *testing.T) {
	p, h := newRunningHandle(t, "sleep", "30")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.ForceTerminate(ctx, h)

	require.Eventually(t, func() bool {
		return !p.IsAlive(context.Background(), h)
	}, time.Second, 20*time.Millisecond)
}

func TestIsAliveFalseForUnknownHandle(t *testing.T) {
	p := New()
	assert.False(t, p.IsAlive(context.Background(), provider.Handle{}))
}
