package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/scriptpool/pkg/freeport"
	"github.com/cuemby/scriptpool/pkg/health"
	"github.com/cuemby/scriptpool/pkg/provider"
)

const minimalScript = `
const http = require("http");
const port = process.argv[2] || 9000;
http.createServer((req, res) => { res.writeHead(200); res.end("ok"); }).listen(port);
`

// newClient skips the test when no local Docker daemon is reachable,
// since these tests exercise the real Engine API rather than a mock.
func newClient(t *testing.T) *client.Client {
	t.Helper()
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		t.Skipf("no reachable docker daemon: %v", err)
	}
	return cli
}

func TestCreateIsAliveTerminate(t *testing.T) {
	cli := newClient(t)
	p := New(cli)

	scriptDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scriptDir, "index.js"), []byte(minimalScript), 0o644))

	port, err := freeport.Get()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	h, err := p.Create(ctx, port, "scriptpool-container-test", scriptDir, []string{"index.js"})
	require.NoError(t, err)

	assert.True(t, p.IsAlive(context.Background(), h))

	// Structural liveness (Docker-reported Running state plus a
	// responsive exec) is all the engine requires. Callers that want a
	// deeper, application-level signal can layer an HTTPChecker on top
	// against the host-published port instead.
	deep := health.NewHTTPChecker(fmt.Sprintf("http://127.0.0.1:%d/", port)).WithTimeout(2 * time.Second)
	assert.True(t, deep.Check(context.Background()).Healthy)

	require.NoError(t, p.Terminate(context.Background(), h))
	assert.False(t, p.IsAlive(context.Background(), h))
}

func TestTerminateUnknownHandleIsNoop(t *testing.T) {
	cli := newClient(t)
	p := New(cli)
	assert.NoError(t, p.Terminate(context.Background(), provider.Handle{}))
}

func TestIsAliveFalseForUnknownHandle(t *testing.T) {
	cli := newClient(t)
	p := New(cli)
	assert.False(t, p.IsAlive(context.Background(), provider.Handle{Ref: "does-not-exist"}))
}
