// Package thread implements the provider.Provider contract as in-process
// goroutine workers — Go has no user-space "threads" distinct from
// goroutines, so a thread instance is a goroutine running an HTTP server
// bound to the requested port, tracked by a generated handle token rather
// than an OS thread id.
//
// Grounded on cuemby-warren's pkg/worker/worker.go executor-loop shape
// (one goroutine per unit of concurrent work, an "online"/"error" style
// transition into a ready state, graceful-then-forced shutdown) adapted
// from "run a container task" to "serve an in-process HTTP handler".
package thread

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/scriptpool/pkg/log"
	"github.com/cuemby/scriptpool/pkg/provider"
)

// Handler builds the http.Handler an instance serves. Defaults to a
// minimal handler if nil; actual script interpretation is outside this
// module's scope (scripts are opaque to the library), so the default
// handler exists only to make the instance externally reachable.
type Handler func(scriptDir string, scriptFiles []string) http.Handler

// Provider runs script workloads as in-process goroutines.
type Provider struct {
	// NewHandler builds the handler each instance serves. Defaults to
	// defaultHandler when nil.
	NewHandler Handler

	// MemoryLimitBytes, if non-zero, is applied via debug.SetMemoryLimit
	// each time a thread instance is created. Best-effort: the
	// runtime-wide limit is shared across all thread instances, so this
	// is a soft hint, not a per-instance guarantee.
	MemoryLimitBytes int64

	log zerolog.Logger
}

// New returns a Provider with sensible defaults.
func New() *Provider {
	return &Provider{log: log.WithComponent("provider.thread")}
}

func (p *Provider) Backend() string { return "thread" }

type handle struct {
	id       uuid.UUID
	listener net.Listener
	server   *http.Server
	done     chan error
	exited   chan struct{}
	closed   atomic.Bool
}

func defaultHandler(scriptDir string, scriptFiles []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "thread instance serving %s\n", scriptDir)
	})
}

func (p *Provider) Create(ctx context.Context, port int, name string, scriptDir string, scriptFiles []string) (provider.Handle, error) {
	newHandler := p.NewHandler
	if newHandler == nil {
		newHandler = defaultHandler
	}

	if p.MemoryLimitBytes > 0 {
		debug.SetMemoryLimit(p.MemoryLimitBytes)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return provider.Handle{}, fmt.Errorf("thread: listen: %w", err)
	}

	id := uuid.New()
	srv := &http.Server{Handler: newHandler(scriptDir, scriptFiles)}
	h := &handle{id: id, listener: listener, server: srv, done: make(chan error, 1), exited: make(chan struct{})}

	go func() {
		err := srv.Serve(listener)
		if err == http.ErrServerClosed {
			err = nil
		}
		h.done <- err
		close(h.exited)
	}()

	p.log.Info().Str("instance", name).Str("thread", id.String()).Msg("thread online")
	return provider.Handle{Ref: h, Exited: h.exited}, nil
}

func (p *Provider) IsAlive(ctx context.Context, h provider.Handle) bool {
	hd, ok := h.Ref.(*handle)
	if !ok || hd.closed.Load() {
		return false
	}
	select {
	case <-hd.done:
		hd.closed.Store(true)
		return false
	default:
		return true
	}
}

func (p *Provider) Terminate(ctx context.Context, h provider.Handle) error {
	hd, ok := h.Ref.(*handle)
	if !ok {
		return nil
	}
	hd.closed.Store(true)
	return hd.server.Shutdown(ctx)
}

func (p *Provider) ForceTerminate(ctx context.Context, h provider.Handle) {
	hd, ok := h.Ref.(*handle)
	if !ok {
		return
	}
	hd.closed.Store(true)
	if err := hd.server.Close(); err != nil {
		p.log.Warn().Err(err).Msg("force close failed")
	}
}

