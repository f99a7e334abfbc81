// Package subprocess implements the provider.Provider contract by forking
// a child interpreter process per instance.
//
// Grounded on cuemby-warren's pkg/embedded (os/exec child-process
// lifecycle, zerolog component logger, ticker-driven readiness wait) and
// pkg/health (the TCPChecker readiness probe, per the specification's
// resolution of the "first stdout chunk" Open Question).
package subprocess

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/scriptpool/pkg/health"
	"github.com/cuemby/scriptpool/pkg/log"
	"github.com/cuemby/scriptpool/pkg/provider"
)

// Provider spawns a child interpreter process per instance.
type Provider struct {
	// Interpreter is the host executable used to run the script, e.g.
	// "node". Defaults to "node" if empty.
	Interpreter string

	// ReadyPollInterval is how often the readiness probe dials the
	// instance's port while waiting for it to come up.
	ReadyPollInterval time.Duration

	log zerolog.Logger
}

// New returns a Provider with sensible defaults.
func New() *Provider {
	return &Provider{
		Interpreter:       "node",
		ReadyPollInterval: 100 * time.Millisecond,
		log:               log.WithComponent("provider.subprocess"),
	}
}

func (p *Provider) Backend() string { return "subprocess" }

// handle is the subprocess provider's backend-specific reference: the
// running *exec.Cmd, a channel fed once by the goroutine that owns
// cmd.Wait(), and a broadcast-style channel closed at the same moment so
// multiple independent watchers (Terminate's wait, the pool's
// background exit watcher) can each observe the exit without racing to
// drain a single value off exit.
type handle struct {
	cmd    *exec.Cmd
	exit   chan error
	exited chan struct{}
}

func (p *Provider) Create(ctx context.Context, port int, name string, scriptDir string, scriptFiles []string) (provider.Handle, error) {
	interpreter := p.Interpreter
	if interpreter == "" {
		interpreter = "node"
	}
	entry := "index.js"
	if len(scriptFiles) > 0 {
		entry = scriptFiles[0]
	}
	scriptPath := filepath.Join(scriptDir, entry)

	cmd := exec.Command(interpreter, scriptPath, strconv.Itoa(port))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return provider.Handle{}, fmt.Errorf("subprocess: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return provider.Handle{}, fmt.Errorf("subprocess: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return provider.Handle{}, fmt.Errorf("subprocess: start: %w", err)
	}

	h := &handle{cmd: cmd, exit: make(chan error, 1), exited: make(chan struct{})}
	go func() {
		h.exit <- cmd.Wait()
		close(h.exited)
	}()

	instLog := p.log.With().Str("instance", name).Logger()
	go logLines(instLog, "stdout", stdout)
	go logLines(instLog, "stderr", stderr)

	checker := health.NewTCPChecker(fmt.Sprintf("127.0.0.1:%d", port)).WithTimeout(time.Second)
	for {
		result := checker.Check(ctx)
		if result.Healthy {
			break
		}
		select {
		case <-ctx.Done():
			_ = p.terminateCmd(h, syscall.SIGKILL)
			return provider.Handle{}, fmt.Errorf("subprocess: %s: %w", name, ctx.Err())
		case err := <-h.exit:
			return provider.Handle{}, fmt.Errorf("subprocess: %s exited before becoming ready: %w", name, err)
		case <-time.After(p.ReadyPollInterval):
		}
	}

	instLog.Info().Int("port", port).Msg("subprocess ready")
	return provider.Handle{Ref: h, Exited: h.exited}, nil
}

func logLines(l zerolog.Logger, stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		l.Debug().Str("stream", stream).Msg(scanner.Text())
	}
}

func (p *Provider) IsAlive(ctx context.Context, h provider.Handle) bool {
	hd, ok := h.Ref.(*handle)
	if !ok || hd.cmd.Process == nil {
		return false
	}
	// Signal 0 performs no actual signaling; it only checks the process
	// still exists and is reachable.
	return hd.cmd.Process.Signal(syscall.Signal(0)) == nil
}

func (p *Provider) Terminate(ctx context.Context, h provider.Handle) error {
	hd, ok := h.Ref.(*handle)
	if !ok {
		return nil
	}
	if err := p.terminateCmd(hd, syscall.SIGTERM); err != nil {
		return err
	}
	select {
	case <-hd.exit:
		// The process exited after SIGTERM; its "signal: terminated" exit
		// status is the expected outcome, not a failed terminate.
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) ForceTerminate(ctx context.Context, h provider.Handle) {
	hd, ok := h.Ref.(*handle)
	if !ok {
		return
	}
	if err := p.terminateCmd(hd, syscall.SIGKILL); err != nil {
		p.log.Warn().Err(err).Msg("force-kill failed")
	}
}

func (p *Provider) terminateCmd(h *handle, sig syscall.Signal) error {
	if h.cmd.Process == nil {
		return nil
	}
	err := h.cmd.Process.Signal(sig)
	if err != nil && err.Error() == "os: process already finished" {
		return nil
	}
	return err
}
