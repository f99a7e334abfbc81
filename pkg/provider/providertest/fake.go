// Package providertest provides an in-memory fake provider.Provider for
// exercising the pool engine without any real backend. It records the
// ordered sequence of Create/Terminate/ForceTerminate calls so tests can
// assert on the engine's call pattern directly, per the scenario tests
// the specification describes.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/scriptpool/pkg/provider"
)

// Call is one recorded provider invocation.
type Call struct {
	Op   string // "create", "isAlive", "terminate", "forceTerminate", "prepare"
	Name string
}

// Fake is an in-memory Provider. Construct it with New, which allocates
// the maps MarkDead and FailTerminate write to; configure its exported
// fields to script failures or dead instances for a test.
type Fake struct {
	// CreateErr, if set, is returned by every Create call.
	CreateErr error

	// CreateBlock, if non-nil, makes Create wait until the channel is
	// closed or ctx is done; left nil, Create returns immediately.
	CreateBlock <-chan struct{}

	// Dead marks instance names that IsAlive should report as not alive.
	Dead map[string]bool

	// TerminateErr, if set, is returned by Terminate for the named
	// instance.
	TerminateErr map[string]error

	// PrepareErr, if set, is returned by Prepare.
	PrepareErr error

	mu        sync.Mutex
	calls     []Call
	exitChans map[string]chan struct{}
}

// New returns a ready-to-use Fake.
func New() *Fake {
	return &Fake{
		Dead:         make(map[string]bool),
		TerminateErr: make(map[string]error),
	}
}

func (f *Fake) Backend() string { return "fake" }

func (f *Fake) record(op, name string) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Name: name})
	f.mu.Unlock()
}

// Calls returns the ordered sequence of recorded provider calls so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) Create(ctx context.Context, port int, name string, scriptDir string, scriptFiles []string) (provider.Handle, error) {
	f.record("create", name)
	if f.CreateBlock != nil {
		select {
		case <-f.CreateBlock:
		case <-ctx.Done():
			return provider.Handle{}, ctx.Err()
		}
	}
	if f.CreateErr != nil {
		return provider.Handle{}, f.CreateErr
	}

	f.mu.Lock()
	if f.exitChans == nil {
		f.exitChans = make(map[string]chan struct{})
	}
	exited := make(chan struct{})
	f.exitChans[name] = exited
	f.mu.Unlock()

	return provider.Handle{Ref: name, Exited: exited}, nil
}

// SimulateExit closes name's exit channel, as if the backend instance had
// exited on its own rather than via Terminate/ForceTerminate. A no-op if
// name was never created or already simulated.
func (f *Fake) SimulateExit(name string) {
	f.mu.Lock()
	ch := f.exitChans[name]
	delete(f.exitChans, name)
	f.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (f *Fake) IsAlive(ctx context.Context, handle provider.Handle) bool {
	name, _ := handle.Ref.(string)
	f.record("isAlive", name)
	f.mu.Lock()
	dead := f.Dead[name]
	f.mu.Unlock()
	return !dead
}

func (f *Fake) Terminate(ctx context.Context, handle provider.Handle) error {
	name, _ := handle.Ref.(string)
	f.record("terminate", name)
	f.mu.Lock()
	err := f.TerminateErr[name]
	f.mu.Unlock()
	return err
}

func (f *Fake) ForceTerminate(ctx context.Context, handle provider.Handle) {
	name, _ := handle.Ref.(string)
	f.record("forceTerminate", name)
}

// Prepare implements provider.Preparer unconditionally on Fake; tests that
// don't care about Prepare can simply ignore the recorded calls.
func (f *Fake) Prepare(ctx context.Context, scriptDir string, scriptFiles []string) error {
	f.record("prepare", "")
	return f.PrepareErr
}

// MarkDead flags name as not-alive for subsequent IsAlive calls.
func (f *Fake) MarkDead(name string) {
	f.mu.Lock()
	f.Dead[name] = true
	f.mu.Unlock()
}

// FailTerminate makes Terminate return err for the named instance.
func (f *Fake) FailTerminate(name string, err error) {
	f.mu.Lock()
	f.TerminateErr[name] = err
	f.mu.Unlock()
}

var _ provider.Provider = (*Fake)(nil)
var _ provider.Preparer = (*Fake)(nil)

// String implements fmt.Stringer for readable test failure output.
func (c Call) String() string {
	return fmt.Sprintf("%s(%s)", c.Op, c.Name)
}
