package corepool

import (
	"log/slog"
	"strconv"

	"github.com/jacobsa/timeutil"
)

// PanicHandler is invoked, per worker, when a Task's Run or StealFrom panics.
// The panic is always recovered before the handler runs; workerID is the
// worker's zero-based construction-order index, or -1 for a task run inline
// by Wait(ctx, true).
type PanicHandler func(workerID int, recovered any, stack []byte)

// Config holds the options shared by Pool and StealingPool. Use NewPool or
// NewStealingPool with a list of Option values rather than constructing a
// Config directly.
type Config struct {
	// Logger receives structured lifecycle events (worker start/stop, pool
	// shutdown, recovered panics). Defaults to slog.Default().
	Logger *slog.Logger

	// Clock supplies monotonic time for start_time/total_wait_time
	// accounting (spec.md §4.3). Defaults to timeutil.RealClock().
	Clock timeutil.Clock

	// PanicHandler is called when a task panics during Run or StealFrom.
	// Defaults to logging the panic and stack trace through Logger.
	PanicHandler PanicHandler

	// WorkerNamePrefix overrides the "Thread pool worker"/"Work stealing
	// worker" naming convention (spec.md §6) used to build each worker's
	// name. The zero-based index is appended with a space.
	WorkerNamePrefix string
}

// Option configures a Config. Pass Options to NewPool or NewStealingPool.
type Option func(*Config)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithClock overrides the default real-time clock. Intended for tests, which
// can inject a *timeutil.SimulatedClock to assert on total_wait_time without
// relying on wall-clock sleeps.
func WithClock(clock timeutil.Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

// WithPanicHandler overrides the default panic handler.
func WithPanicHandler(handler PanicHandler) Option {
	return func(c *Config) { c.PanicHandler = handler }
}

// WithWorkerNamePrefix overrides the default worker naming prefix.
func WithWorkerNamePrefix(prefix string) Option {
	return func(c *Config) { c.WorkerNamePrefix = prefix }
}

func defaultConfig() Config {
	return Config{
		Logger: slog.Default(),
		Clock:  timeutil.RealClock(),
	}
}

func buildConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock()
	}
	if cfg.PanicHandler == nil {
		logger := cfg.Logger
		cfg.PanicHandler = func(workerID int, recovered any, stack []byte) {
			logger.Error("task panicked",
				slog.Int("worker_id", workerID),
				slog.Any("panic", recovered),
				slog.String("stack", string(stack)),
			)
		}
	}
	return cfg
}

func (c *Config) validate(numWorkers int) error {
	if numWorkers < 0 {
		return errInvalidConfig("numWorkers must be >= 0")
	}
	return nil
}

// workerName builds the worker name for the given zero-based index,
// following spec.md §6's naming convention unless overridden by
// WithWorkerNamePrefix.
func (c *Config) workerName(defaultPrefix string, index int) string {
	prefix := c.WorkerNamePrefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return prefix + " " + strconv.Itoa(index)
}
