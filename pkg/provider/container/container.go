// Package container implements the provider.Provider contract against a
// local Docker Engine, talking directly to its HTTP API.
//
// cuemby-warren's own container runtime (pkg/runtime) talks to containerd's
// gRPC API, which has no notion of the 304 (already-stopped) / 404
// (not-found) HTTP status codes the specification's error-mapping section
// names. Those codes belong to the Docker Engine API, so this provider is
// grounded instead on github.com/docker/docker/client, the stack the
// pack's fairyhunter13-ai-cv-evaluator repo uses for its own container
// lifecycle code.
package container

import (
	"context"
	"fmt"
	"strconv"
	"time"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"

	"github.com/cuemby/scriptpool/pkg/health"
	"github.com/cuemby/scriptpool/pkg/log"
	"github.com/cuemby/scriptpool/pkg/provider"
)

// defaultInternalPort is the fixed internal container port the
// specification hard-codes regardless of scriptFiles[0] — the reference
// behavior is preserved as-is (documented here rather than silently
// "fixed") rather than plumbing scriptFiles[0] into the entrypoint.
const defaultInternalPort = 9000

// Provider creates and manages one container per instance on a local
// Docker Engine.
type Provider struct {
	// Client is the Docker Engine API client. Construct with
	// client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation()).
	Client *client.Client

	// Image is the container image run for each instance.
	Image string

	// WorkDir is the in-container directory scriptFiles are bind-mounted
	// into. Fixed at /usr/src/app per the specification.
	WorkDir string

	log zerolog.Logger
}

// New returns a Provider bound to cli with the specification's defaults.
func New(cli *client.Client) *Provider {
	return &Provider{
		Client:  cli,
		Image:   "node:20-alpine",
		WorkDir: "/usr/src/app",
		log:     log.WithComponent("provider.container"),
	}
}

func (p *Provider) Backend() string { return "container" }

func (p *Provider) Create(ctx context.Context, port int, name string, scriptDir string, scriptFiles []string) (provider.Handle, error) {
	internalPort := nat.Port(fmt.Sprintf("%d/tcp", defaultInternalPort))

	binds := make([]string, 0, len(scriptFiles))
	for _, f := range scriptFiles {
		binds = append(binds, fmt.Sprintf("%s/%s:%s/%s", scriptDir, f, p.WorkDir, f))
	}

	hostConfig := &containertypes.HostConfig{
		Binds: binds,
		PortBindings: nat.PortMap{
			internalPort: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(port)}},
		},
	}

	cfg := &containertypes.Config{
		Image:        p.Image,
		Cmd:          []string{"node", "index.js", strconv.Itoa(defaultInternalPort)},
		ExposedPorts: nat.PortSet{internalPort: struct{}{}},
		WorkingDir:   p.WorkDir,
	}

	created, err := p.Client.ContainerCreate(ctx, cfg, hostConfig, nil, nil, name)
	if err != nil {
		return provider.Handle{}, fmt.Errorf("container: create %s: %w", name, err)
	}

	if err := p.Client.ContainerStart(ctx, created.ID, containertypes.StartOptions{}); err != nil {
		return provider.Handle{}, fmt.Errorf("container: start %s: %w", name, err)
	}

	p.log.Info().Str("instance", name).Str("container", created.ID).Int("port", port).Msg("container started")
	return provider.Handle{Ref: created.ID}, nil
}

// IsAlive first checks the daemon's structural Running state, then
// confirms the container's own process namespace is actually responsive
// by exec'ing a trivial command into it — a container the daemon still
// lists as Running can have a wedged init process that no longer accepts
// execs, which the structural check alone would miss.
func (p *Provider) IsAlive(ctx context.Context, h provider.Handle) bool {
	id, _ := h.Ref.(string)
	if id == "" {
		return false
	}
	inspect, err := p.Client.ContainerInspect(ctx, id)
	if err != nil {
		return false
	}
	if inspect.State == nil || !inspect.State.Running {
		return false
	}

	checker := health.NewExecChecker([]string{"true"}).WithContainer(id).WithTimeout(2 * time.Second)
	return checker.Check(ctx).Healthy
}

func (p *Provider) Terminate(ctx context.Context, h provider.Handle) error {
	id, _ := h.Ref.(string)
	if id == "" {
		return nil
	}

	err := p.Client.ContainerStop(ctx, id, containertypes.StopOptions{})
	switch {
	case err == nil:
	case errdefs.IsNotModified(err):
		// Daemon reports 304: already stopped. Treated as success.
	case errdefs.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("container: stop %s: %w", id, err)
	}

	err = p.Client.ContainerRemove(ctx, id, containertypes.RemoveOptions{})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("container: remove %s: %w", id, err)
	}
	return nil
}

func (p *Provider) ForceTerminate(ctx context.Context, h provider.Handle) {
	id, _ := h.Ref.(string)
	if id == "" {
		return
	}
	err := p.Client.ContainerRemove(ctx, id, containertypes.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		p.log.Warn().Err(err).Str("container", id).Msg("force remove failed")
	}
}
