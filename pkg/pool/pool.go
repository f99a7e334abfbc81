// Package pool implements the backend-agnostic pooled lifecycle engine:
// capacity-bounded lazy provisioning, idle-timeout reaping, selection-time
// liveness self-healing, creation timeouts, and signal-driven graceful
// shutdown. It is instantiated once per provider.Provider backend.
package pool

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/scriptpool/pkg/freeport"
	"github.com/cuemby/scriptpool/pkg/log"
	"github.com/cuemby/scriptpool/pkg/provider"
)

// Pool guards a set of live backend instances for one provider. It is
// safe for concurrent use by multiple goroutines.
type Pool struct {
	cfg      Config
	provider provider.Provider
	log      zerolog.Logger

	mu            sync.Mutex
	instances     []*Instance
	lastRequestAt int64
	reaperArmed   bool
	shuttingDown  bool

	reaperStop chan struct{}
	reaperDone chan struct{}
	armOnce    sync.Once

	sigCh        chan os.Signal
	sigDone      chan struct{}
	shutdownOnce sync.Once
}

// New constructs a Pool around p, applying opts over DefaultConfig. It
// registers one-shot SIGINT/SIGTERM handlers immediately; Shutdown (or a
// received signal) removes them.
func New(p provider.Provider, opts ...Option) *Pool {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	pl := &Pool{
		cfg:      cfg,
		provider: p,
		log:      log.WithPool(p.Backend()),
		sigCh:    make(chan os.Signal, 2),
		sigDone:  make(chan struct{}),
	}

	signal.Notify(pl.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go pl.watchSignals()

	return pl
}

func (pl *Pool) watchSignals() {
	select {
	case sig, ok := <-pl.sigCh:
		if !ok {
			return
		}
		pl.log.Warn().Str("signal", sig.String()).Msg("received termination signal, shutting down pool")
		pl.Shutdown(context.Background())
	case <-pl.sigDone:
	}
}

// nowMillis returns the current time as epoch milliseconds. Extracted so
// tests could substitute a clock if ever needed; production code always
// uses the real wall clock.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func synthName(prefix string, port int) string {
	return fmt.Sprintf("%s-%d-%d", prefix, port, nowMillis())
}

// allocate asks the free-port helper for a host-local port and synthesizes
// a unique instance name from it.
func (pl *Pool) allocate() (int, string, error) {
	port, err := freeport.Get()
	if err != nil {
		return 0, "", fmt.Errorf("pool: allocate free port: %w", err)
	}
	return port, synthName(pl.cfg.NamePrefix, port), nil
}

// sigterm returns syscall.SIGTERM as an os.Signal, factored out so
// shutdown.go doesn't need its own syscall import.
func sigterm() os.Signal {
	return syscall.SIGTERM
}

// signalStop releases the OS-level signal registration for ch so a
// subsequent process signal no longer reaches this pool's watcher.
func signalStop(ch chan os.Signal) {
	signal.Stop(ch)
}
