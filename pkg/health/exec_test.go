package health

import (
	"context"
	"testing"
	"time"
)

func TestExecChecker_HealthyCommand(t *testing.T) {
	checker := NewExecChecker([]string{"true"})

	ctx := context.Background()
	result := checker.Check(ctx)

	if !result.Healthy {
		t.Errorf("Expected healthy, got unhealthy: %s", result.Message)
	}
}

func TestExecChecker_UnhealthyCommand(t *testing.T) {
	checker := NewExecChecker([]string{"false"})

	ctx := context.Background()
	result := checker.Check(ctx)

	if result.Healthy {
		t.Errorf("Expected unhealthy, got healthy: %s", result.Message)
	}
}

func TestExecChecker_NoCommand(t *testing.T) {
	checker := NewExecChecker(nil)

	ctx := context.Background()
	result := checker.Check(ctx)

	if result.Healthy {
		t.Error("Expected unhealthy for empty command")
	}
}

func TestExecChecker_Timeout(t *testing.T) {
	checker := NewExecChecker([]string{"sleep", "1"}).WithTimeout(50 * time.Millisecond)

	ctx := context.Background()
	result := checker.Check(ctx)

	if result.Healthy {
		t.Errorf("Expected unhealthy due to timeout, got healthy: %s", result.Message)
	}
}

func TestExecChecker_ContainerExecBuildsDockerCommand(t *testing.T) {
	checker := NewExecChecker([]string{"node", "-e", "process.exit(0)"}).WithContainer("bogus-container-id")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result := checker.Check(ctx)

	// The container doesn't exist, so the docker exec itself fails, but the
	// check must route through `docker exec <id> ...` rather than running
	// the command on the host.
	if result.Healthy {
		t.Error("Expected unhealthy against a nonexistent container")
	}
}

func TestExecChecker_Type(t *testing.T) {
	checker := NewExecChecker([]string{"true"})
	if checker.Type() != CheckTypeExec {
		t.Errorf("Expected type %s, got %s", CheckTypeExec, checker.Type())
	}
}
