// Package pod implements the provider.Provider contract against a
// Kubernetes cluster control plane: one pod per instance, reached through
// a host-local `kubectl port-forward` child process rather than an
// in-cluster network path.
//
// Grounded on the pack's Kubernetes-adjacent repos for the typed
// client-go/corev1/apimachinery stack, and on cuemby-warren's
// pkg/embedded/lima.go for the port-forward child's os/exec lifecycle
// (the same shape the subprocess provider reuses for its own child
// process).
package pod

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/rs/zerolog"

	"github.com/cuemby/scriptpool/pkg/health"
	"github.com/cuemby/scriptpool/pkg/log"
	"github.com/cuemby/scriptpool/pkg/provider"
)

// defaultPodPort is the fixed internal container port, per the
// specification's pod-workspace contract.
const defaultPodPort = 9000

const scriptsConfigMapName = "scripts"

// Provider creates and manages one pod per instance, publishing script
// contents to a shared ConfigMap ahead of pod creation.
type Provider struct {
	// Client is the typed Kubernetes clientset.
	Client kubernetes.Interface

	// Namespace is the namespace pods and the scripts ConfigMap live in.
	Namespace string

	// Image is the pod's container image.
	Image string

	// Kubeconfig is passed to `kubectl --kubeconfig` when non-empty; empty
	// uses kubectl's own default resolution (in-cluster or ~/.kube/config).
	Kubeconfig string

	log zerolog.Logger
}

// New returns a Provider with sensible defaults.
func New(client kubernetes.Interface, namespace string) *Provider {
	return &Provider{
		Client:    client,
		Namespace: namespace,
		Image:     "node:20-alpine",
		log:       log.WithComponent("provider.pod"),
	}
}

func (p *Provider) Backend() string { return "pod" }

// Prepare publishes scriptFiles' contents, plus a synthesized
// package.json, into the shared "scripts" ConfigMap. A read error with
// code 404 means the ConfigMap does not exist yet and is created; any
// other read error is fatal. A missing script file is warned, not
// failed, matching the reference's tolerance for partial script sets
// during iterative development.
func (p *Provider) Prepare(ctx context.Context, scriptDir string, scriptFiles []string) error {
	cms := p.Client.CoreV1().ConfigMaps(p.Namespace)

	data := make(map[string]string, len(scriptFiles)+1)
	for _, f := range scriptFiles {
		content, err := readFile(filepath.Join(scriptDir, f))
		if err != nil {
			p.log.Warn().Err(err).Str("file", f).Msg("script file missing, skipping")
			continue
		}
		data[f] = content
	}
	data["package.json"] = packageJSON

	existing, err := cms.Get(ctx, scriptsConfigMapName, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		cm := &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: scriptsConfigMapName, Namespace: p.Namespace},
			Data:       data,
		}
		_, err = cms.Create(ctx, cm, metav1.CreateOptions{})
		if err != nil {
			return fmt.Errorf("pod: create scripts configmap: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("pod: get scripts configmap: %w", err)
	}

	existing.Data = data
	_, err = cms.Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("pod: update scripts configmap: %w", err)
	}
	return nil
}

func (p *Provider) Create(ctx context.Context, port int, name string, scriptDir string, scriptFiles []string) (provider.Handle, error) {
	manifest := p.podManifest(name)

	pods := p.Client.CoreV1().Pods(p.Namespace)
	if _, err := pods.Create(ctx, manifest, metav1.CreateOptions{}); err != nil {
		return provider.Handle{}, fmt.Errorf("pod: create %s: %w", name, err)
	}

	if err := p.waitRunning(ctx, name); err != nil {
		return provider.Handle{}, err
	}

	cmd, err := p.startPortForward(ctx, name, port)
	if err != nil {
		return provider.Handle{}, err
	}

	checker := health.NewTCPChecker(fmt.Sprintf("127.0.0.1:%d", port)).WithTimeout(time.Second)
	for {
		if checker.Check(ctx).Healthy {
			break
		}
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			return provider.Handle{}, fmt.Errorf("pod: %s: port-forward not ready: %w", name, ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}

	p.log.Info().Str("instance", name).Int("port", port).Msg("pod ready")
	return provider.Handle{Ref: name, SideChannel: cmd.Process}, nil
}

func (p *Provider) waitRunning(ctx context.Context, name string) error {
	pods := p.Client.CoreV1().Pods(p.Namespace)
	for {
		pod, err := pods.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return fmt.Errorf("pod: get %s: %w", name, err)
		}
		if pod.Status.Phase == corev1.PodRunning {
			return nil
		}
		if pod.Status.Phase == corev1.PodFailed {
			return fmt.Errorf("pod: %s entered Failed phase", name)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("pod: %s: %w", name, ctx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (p *Provider) startPortForward(ctx context.Context, name string, port int) (*exec.Cmd, error) {
	args := []string{"port-forward", "pod/" + name, fmt.Sprintf("%d:%d", port, defaultPodPort), "-n", p.Namespace}
	if p.Kubeconfig != "" {
		args = append([]string{"--kubeconfig", p.Kubeconfig}, args...)
	}
	cmd := exec.Command("kubectl", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pod: port-forward stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("pod: port-forward stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("pod: port-forward start: %w", err)
	}

	instLog := p.log.With().Str("instance", name).Logger()
	go logLines(instLog, "stdout", stdout)
	go logLines(instLog, "stderr", stderr)

	return cmd, nil
}

func logLines(l zerolog.Logger, stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		l.Debug().Str("stream", stream).Msg(scanner.Text())
	}
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *Provider) IsAlive(ctx context.Context, h provider.Handle) bool {
	name, ok := h.Ref.(string)
	if !ok || name == "" {
		return false
	}
	pod, err := p.Client.CoreV1().Pods(p.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false
	}
	return pod.Status.Phase == corev1.PodRunning
}

func (p *Provider) Terminate(ctx context.Context, h provider.Handle) error {
	name, ok := h.Ref.(string)
	if !ok || name == "" {
		return nil
	}
	err := p.Client.CoreV1().Pods(p.Namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("pod: delete %s: %w", name, err)
	}
	return nil
}

func (p *Provider) ForceTerminate(ctx context.Context, h provider.Handle) {
	name, ok := h.Ref.(string)
	if !ok || name == "" {
		return
	}
	grace := int64(0)
	err := p.Client.CoreV1().Pods(p.Namespace).Delete(ctx, name, metav1.DeleteOptions{GracePeriodSeconds: &grace})
	if err != nil && !apierrors.IsNotFound(err) {
		p.log.Warn().Err(err).Str("instance", name).Msg("force delete failed")
	}
}

func (p *Provider) podManifest(name string) *corev1.Pod {
	const workDir = "/app"
	cmd := "cp /scripts/* " + workDir + "/ && cd " + workDir + " && npm install --omit=dev --no-audit --no-fund && node index.js"

	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: p.Namespace,
			Labels:    map[string]string{"app": "scriptpool", "instance": name},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:       "instance",
					Image:      p.Image,
					Command:    []string{"sh", "-c", cmd},
					WorkingDir: workDir,
					Env: []corev1.EnvVar{
						{Name: "NODE_ENV", Value: "production"},
						{Name: "PORT", Value: strconv.Itoa(defaultPodPort)},
					},
					Ports: []corev1.ContainerPort{{ContainerPort: defaultPodPort}},
					VolumeMounts: []corev1.VolumeMount{
						{Name: "scripts", MountPath: "/scripts"},
					},
				},
			},
			Volumes: []corev1.Volume{
				{
					Name: "scripts",
					VolumeSource: corev1.VolumeSource{
						ConfigMap: &corev1.ConfigMapVolumeSource{
							LocalObjectReference: corev1.LocalObjectReference{Name: scriptsConfigMapName},
						},
					},
				},
			},
		},
	}
}

const packageJSON = `{
  "name": "scriptpool-instance",
  "version": "1.0.0",
  "private": true,
  "dependencies": {
    "express": "^4.18.2"
  }
}
`
