/*
Package health provides health check mechanisms for probing pooled instance
readiness and liveness.

The package implements three checker types — HTTP, TCP, and Exec — behind
a single Checker interface, plus a Status tracker that applies hysteresis
(consecutive failures/successes) so a transient blip doesn't flap an
instance's health state.

# Architecture

	┌──────────────────────────────────────────────────────────────┐
	│                     Checker Interface                        │
	│  • Check(ctx) Result                                         │
	│  • Type() CheckType                                          │
	└────────┬─────────────────────────────────────────────────────┘
	         │
	    ┌────┴──────┬──────────┐
	    ▼           ▼          ▼
	┌────────┐  ┌──────┐  ┌────────┐
	│  HTTP  │  │ TCP  │  │  Exec  │
	│Checker │  │Checker│ │Checker │
	└────────┘  └──────┘  └────────┘
	     │          │          │
	     ▼          ▼          ▼
	  GET /    Connect       Run cmd
	  /health    :port      on host/subprocess

# Usage

The Subprocess provider uses TCPChecker as its readiness probe: after
spawning the interpreter it dials localhost:port on a short interval until
either the dial succeeds or createTimeout elapses.

	checker := health.NewTCPChecker(fmt.Sprintf("127.0.0.1:%d", port))
	checker.WithTimeout(2 * time.Second)

	for {
		result := checker.Check(ctx)
		if result.Healthy {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

Container and Pod providers can layer an HTTPChecker on top of the engine's
structural IsAlive check when a caller wants deeper, application-level
health information than "the process/container/pod still exists":

	checker := health.NewHTTPChecker("http://127.0.0.1:9000/").
		WithStatusRange(200, 299).
		WithTimeout(3 * time.Second)

Status tracking applies hysteresis so N consecutive failures are required
before an instance is considered unhealthy:

	status := health.NewStatus()
	status.Update(checker.Check(ctx), health.DefaultConfig())
	if !status.Healthy {
		// instance failed its health budget
	}

# Design notes

Checkers implement a strategy pattern (same Checker interface, different
probe mechanics) and use fluent builders for optional configuration
(WithTimeout, WithMethod, WithHeader, ...). All checks honor context
cancellation so a caller can bound total probing time independently of any
single check's own Timeout field.
*/
package health
