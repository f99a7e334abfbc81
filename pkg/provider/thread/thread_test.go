package thread

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/scriptpool/pkg/freeport"
)

func TestCreateServesAndIsAlive(t *testing.T) {
	port, err := freeport.Get()
	require.NoError(t, err)

	p := New()
	h, err := p.Create(context.Background(), port, "test-thread", "/scripts/demo", []string{"index.js"})
	require.NoError(t, err)
	assert.True(t, p.IsAlive(context.Background(), h))

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, p.Terminate(context.Background(), h))
	assert.False(t, p.IsAlive(context.Background(), h))
}

func TestForceTerminateClosesListener(t *testing.T) {
	port, err := freeport.Get()
	require.NoError(t, err)

	p := New()
	h, err := p.Create(context.Background(), port, "test-thread-force", "/scripts/demo", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.ForceTerminate(ctx, h)

	assert.False(t, p.IsAlive(context.Background(), h))
}
