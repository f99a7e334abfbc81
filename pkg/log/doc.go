/*
Package log provides structured logging for the pool engine using zerolog.

The package wraps zerolog to give every engine and provider component a
component-scoped child logger, configurable level/format, and a small set
of helper functions for common logging patterns. All logs carry timestamps
and support filtering by severity for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - zerolog instance                         │          │
	│  │  - initialized via log.Init()               │          │
	│  │  - safe for concurrent use                  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout or custom writer          │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("pool")                    │          │
	│  │  - WithPool("container")                    │          │
	│  │  - WithInstance("thread-a1b2c3")            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  {"level":"info","component":"pool",        │          │
	│  │   "backend":"container","time":"...",       │          │
	│  │   "message":"instance created"}             │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

The pool engine and every provider adapter log through a component logger
rather than the bare global Logger, so `create`, `terminate`,
`forceTerminate`, reap, and shutdown events are always attributable to a
pool and backend without a separate metrics subsystem.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	poolLog := log.WithComponent("pool").With().Str("backend", "subprocess").Logger()
	poolLog.Info().Str("instance", name).Msg("instance acquired")

	log.Logger.Error().Err(err).Msg("create failed")

# Best practices

Use Info level in production; reserve Debug for readiness-probe and
selection-loop detail. Always attach .Err(err) rather than formatting the
error into the message string, so log aggregation can filter on it.
*/
package log
