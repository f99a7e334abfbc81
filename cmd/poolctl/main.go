// Command poolctl is a small operator CLI demonstrating the pool engine
// against a chosen backend. It is demonstration scaffolding, not the
// library's public surface: a single long-lived `run` invocation holds
// the pool in memory and accepts acquire/info/health/clear/shutdown
// commands over stdin, since persisting pool state across separate
// process invocations is out of scope.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	dockerclient "github.com/docker/docker/client"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/cuemby/scriptpool/pkg/log"
	"github.com/cuemby/scriptpool/pkg/pool"
	"github.com/cuemby/scriptpool/pkg/provider"
	"github.com/cuemby/scriptpool/pkg/provider/container"
	"github.com/cuemby/scriptpool/pkg/provider/pod"
	"github.com/cuemby/scriptpool/pkg/provider/subprocess"
	"github.com/cuemby/scriptpool/pkg/provider/thread"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "poolctl",
	Short: "Operate a script-pool engine against a chosen backend",
	Long: `poolctl runs a single pool against one of the thread, subprocess,
container, or pod backends and drives it interactively for demonstration
and manual testing.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a pool and drive it via stdin commands",
	Long: `run starts a pool against the chosen backend and reads commands
from stdin, one per line, until shutdown or EOF:

  acquire <scriptDir> <file1,file2,...>   acquire an instance
  info                                     print pool info
  health                                   run a health check pass
  clear                                    drop instance records without terminating backends
  stopall                                  terminate every instance, pool stays usable
  shutdown                                 terminate everything and exit`,
	RunE: runPool,
}

func init() {
	runCmd.Flags().String("backend", "thread", "Backend: thread, subprocess, container, pod")
	runCmd.Flags().Int("max-pool-size", 0, "Maximum concurrent instances (0 uses the engine default)")
	runCmd.Flags().Duration("create-timeout", 0, "Create timeout (0 uses the engine default)")
	runCmd.Flags().Duration("shutdown-timeout", 0, "Shutdown timeout (0 uses the engine default)")
	runCmd.Flags().Duration("idle-interval", 0, "Idle reap interval (0 uses the engine default)")
	runCmd.Flags().String("interpreter", "node", "Subprocess backend: host interpreter executable")
	runCmd.Flags().String("image", "", "Container/pod backend: image name (defaults applied per backend)")
	runCmd.Flags().String("namespace", "default", "Pod backend: Kubernetes namespace")
	runCmd.Flags().String("kubeconfig", "", "Pod backend: kubeconfig path (empty uses default loading rules)")
}

func runPool(cmd *cobra.Command, args []string) error {
	backend, _ := cmd.Flags().GetString("backend")
	maxPoolSize, _ := cmd.Flags().GetInt("max-pool-size")
	createTimeout, _ := cmd.Flags().GetDuration("create-timeout")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
	idleInterval, _ := cmd.Flags().GetDuration("idle-interval")

	prov, err := buildProvider(cmd, backend)
	if err != nil {
		return err
	}

	var opts []pool.Option
	if maxPoolSize > 0 {
		opts = append(opts, pool.WithMaxPoolSize(maxPoolSize))
	}
	if createTimeout > 0 {
		opts = append(opts, pool.WithCreateTimeout(createTimeout))
	}
	if shutdownTimeout > 0 {
		opts = append(opts, pool.WithShutdownTimeout(shutdownTimeout))
	}
	if idleInterval > 0 {
		opts = append(opts, pool.WithIdleInterval(idleInterval))
	}

	pl := pool.New(prov, opts...)
	fmt.Printf("pool running against %q backend; type \"help\" for commands\n", backend)

	return repl(pl)
}

func buildProvider(cmd *cobra.Command, backend string) (provider.Provider, error) {
	image, _ := cmd.Flags().GetString("image")

	switch backend {
	case "thread":
		return thread.New(), nil
	case "subprocess":
		p := subprocess.New()
		if interp, _ := cmd.Flags().GetString("interpreter"); interp != "" {
			p.Interpreter = interp
		}
		return p, nil
	case "container":
		cli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
		if err != nil {
			return nil, fmt.Errorf("docker client: %w", err)
		}
		p := container.New(cli)
		if image != "" {
			p.Image = image
		}
		return p, nil
	case "pod":
		namespace, _ := cmd.Flags().GetString("namespace")
		kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
		client, err := buildKubeClient(kubeconfig)
		if err != nil {
			return nil, err
		}
		p := pod.New(client, namespace)
		p.Kubeconfig = kubeconfig
		if image != "" {
			p.Image = image
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func buildKubeClient(kubeconfigPath string) (kubernetes.Interface, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("kubeconfig: %w", err)
	}
	return kubernetes.NewForConfig(cfg)
}

func repl(pl *pool.Pool) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "help":
			fmt.Println(runCmd.Long)
		case "acquire":
			if len(fields) != 3 {
				fmt.Println("usage: acquire <scriptDir> <file1,file2,...>")
				continue
			}
			files := strings.Split(fields[2], ",")
			acquired, err := pl.Acquire(ctx, fields[1], files)
			if err != nil {
				fmt.Printf("acquire failed: %v\n", err)
				continue
			}
			fmt.Printf("acquired %s on port %d\n", acquired.Name, acquired.Port)
		case "info":
			info := pl.PoolInfo(ctx, true)
			fmt.Printf("size=%d/%d shuttingDown=%v reaperArmed=%v\n",
				info.PoolSize, info.MaxPoolSize, info.ShuttingDown, info.ReaperArmed)
			for _, inst := range info.Instances {
				alive := "?"
				if inst.Alive != nil {
					alive = fmt.Sprintf("%v", *inst.Alive)
				}
				fmt.Printf("  %-28s port=%-6d alive=%s\n", inst.Name, inst.Port, alive)
			}
		case "health":
			result := pl.HealthCheck(ctx)
			fmt.Printf("total=%d deadRemoved=%d healthy=%v\n", result.Total, result.DeadRemoved, result.Healthy)
		case "clear":
			pl.Clear()
			fmt.Println("cleared instance records")
		case "stopall":
			pl.StopAll(ctx)
			fmt.Println("stopped all instances")
		case "shutdown":
			pl.Shutdown(ctx)
			fmt.Println("shut down")
			return nil
		default:
			fmt.Printf("unknown command %q; type \"help\"\n", fields[0])
		}
	}
	pl.Shutdown(ctx)
	return scanner.Err()
}
