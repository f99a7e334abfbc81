package pod

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sfake "k8s.io/client-go/kubernetes/fake"

	"github.com/cuemby/scriptpool/pkg/provider"
)

func TestPrepareCreatesConfigMap(t *testing.T) {
	client := k8sfake.NewSimpleClientset()
	p := New(client, "default")

	scriptDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scriptDir, "index.js"), []byte("// noop"), 0o644))

	require.NoError(t, p.Prepare(context.Background(), scriptDir, []string{"index.js"}))

	cm, err := client.CoreV1().ConfigMaps("default").Get(context.Background(), scriptsConfigMapName, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "// noop", cm.Data["index.js"])
	assert.Contains(t, cm.Data["package.json"], "express")
}

func TestPrepareUpdatesExistingConfigMap(t *testing.T) {
	client := k8sfake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: scriptsConfigMapName, Namespace: "default"},
		Data:       map[string]string{"stale.js": "old"},
	})
	p := New(client, "default")

	scriptDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scriptDir, "index.js"), []byte("// fresh"), 0o644))

	require.NoError(t, p.Prepare(context.Background(), scriptDir, []string{"index.js"}))

	cm, err := client.CoreV1().ConfigMaps("default").Get(context.Background(), scriptsConfigMapName, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "// fresh", cm.Data["index.js"])
	assert.NotContains(t, cm.Data, "stale.js")
}

func TestPrepareSkipsMissingScriptFile(t *testing.T) {
	client := k8sfake.NewSimpleClientset()
	p := New(client, "default")

	require.NoError(t, p.Prepare(context.Background(), t.TempDir(), []string{"missing.js"}))

	cm, err := client.CoreV1().ConfigMaps("default").Get(context.Background(), scriptsConfigMapName, metav1.GetOptions{})
	require.NoError(t, err)
	assert.NotContains(t, cm.Data, "missing.js")
}

func TestIsAliveReflectsPodPhase(t *testing.T) {
	client := k8sfake.NewSimpleClientset(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "test-pod", Namespace: "default"},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	})
	p := New(client, "default")

	assert.True(t, p.IsAlive(context.Background(), provider.Handle{Ref: "test-pod"}))
	assert.False(t, p.IsAlive(context.Background(), provider.Handle{Ref: "no-such-pod"}))
}

func TestTerminateDeletesPod(t *testing.T) {
	client := k8sfake.NewSimpleClientset(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "test-pod", Namespace: "default"},
	})
	p := New(client, "default")

	require.NoError(t, p.Terminate(context.Background(), provider.Handle{Ref: "test-pod"}))

	_, err := client.CoreV1().Pods("default").Get(context.Background(), "test-pod", metav1.GetOptions{})
	assert.Error(t, err)
}

func TestTerminateMissingPodIsSuccess(t *testing.T) {
	client := k8sfake.NewSimpleClientset()
	p := New(client, "default")

	assert.NoError(t, p.Terminate(context.Background(), provider.Handle{Ref: "ghost-pod"}))
}
