package pool

import "time"

// Config holds pool-wide tuning knobs. Zero-value Config is not valid on
// its own; use DefaultConfig() and Option overrides, or New's functional
// options which start from DefaultConfig().
type Config struct {
	// MaxPoolSize is the hard upper bound on the number of live
	// instances. Default 3.
	MaxPoolSize int

	// IdleInterval is both the reaper's tick period and the idleness
	// threshold measured against lastRequestAt. Default 10s.
	IdleInterval time.Duration

	// CreateTimeout bounds how long a single Create call may run before
	// the engine treats it as timed out. Default depends on backend
	// (30s threads/processes/containers, 60s pods) — callers of New
	// should override this per backend; the package default is 30s.
	CreateTimeout time.Duration

	// ShutdownTimeout is the per-instance budget for graceful
	// termination before the engine escalates to ForceTerminate.
	// Default depends on backend (5s threads/processes, 10s containers,
	// 15s pods) — the package default is 5s.
	ShutdownTimeout time.Duration

	// NamePrefix is prepended to every synthesized instance name.
	NamePrefix string

	// DefaultScriptFiles is used when Acquire is called with an empty
	// scriptFiles slice.
	DefaultScriptFiles []string
}

// DefaultConfig returns a Config with the thread/process/container
// defaults from the specification. Pod pools should override
// CreateTimeout and ShutdownTimeout.
func DefaultConfig() Config {
	return Config{
		MaxPoolSize:        3,
		IdleInterval:       10 * time.Second,
		CreateTimeout:      30 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		NamePrefix:         "instance",
		DefaultScriptFiles: []string{"index.js"},
	}
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithMaxPoolSize overrides the pool's capacity bound.
func WithMaxPoolSize(n int) Option {
	return func(c *Config) { c.MaxPoolSize = n }
}

// WithIdleInterval overrides the reaper tick period / idleness threshold.
func WithIdleInterval(d time.Duration) Option {
	return func(c *Config) { c.IdleInterval = d }
}

// WithCreateTimeout overrides the per-Create timeout budget.
func WithCreateTimeout(d time.Duration) Option {
	return func(c *Config) { c.CreateTimeout = d }
}

// WithShutdownTimeout overrides the per-instance graceful termination
// budget.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) { c.ShutdownTimeout = d }
}

// WithNamePrefix overrides the instance name prefix.
func WithNamePrefix(prefix string) Option {
	return func(c *Config) { c.NamePrefix = prefix }
}

// WithDefaultScriptFiles overrides the script file list used when Acquire
// is called without one.
func WithDefaultScriptFiles(files []string) Option {
	return func(c *Config) { c.DefaultScriptFiles = append([]string(nil), files...) }
}
