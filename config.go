package kilat

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxRequestHeadSize matches the nginx default request-head cap.
	DefaultMaxRequestHeadSize = 4096

	// DefaultEpollQueueMaxEvents sizes the readiness batch drained per
	// event-loop wake-up in the evented dispatcher.
	DefaultEpollQueueMaxEvents = 512
)

// Config represents server configuration options.
type Config struct {
	// Addrs are the addresses the server binds. Serve listens on all of
	// them; ServeEventLoop uses the first.
	Addrs []string

	// ThreadCount is the worker count for the blocking dispatcher.
	// Zero selects DefaultThreadCount().
	ThreadCount int

	// MaxRequestHeadSize caps the bytes scanned before the CRLFCRLF
	// head terminator; exceeding it answers 431 and closes the
	// connection.
	MaxRequestHeadSize int

	// EpollQueueMaxEvents is the readiness-batch sizing hint for the
	// evented dispatcher.
	EpollQueueMaxEvents int

	// IdleTimeout is the TCP keep-alive period applied by the evented
	// dispatcher. Socket timeouts for the blocking dispatcher are set
	// via the connection-setup hook.
	IdleTimeout time.Duration

	// Multicore runs one event loop per core in the evented dispatcher.
	Multicore bool

	// DisableStartupMessage suppresses the listen log line.
	DisableStartupMessage bool

	// Logger receives accept-loop and dispatch errors. Nil disables
	// logging.
	Logger *zap.Logger

	// ConnectionSetupHook runs for every accept result before the
	// connection enters the pipeline.
	ConnectionSetupHook ConnectionSetupHook

	// PreRoutingHook runs after parsing and may short-circuit routing.
	PreRoutingHook PreRoutingHook

	// ConnectionTeardownHook runs when a connection leaves the
	// pipeline, with the last I/O error if there was one.
	ConnectionTeardownHook ConnectionTeardownHook
}

// DefaultConfig returns a configuration with sensible defaults:
// a 4 KiB head cap, 512-event readiness batches, a hardware-derived
// worker count, multicore event loops, and a 15 second idle timeout.
func DefaultConfig() Config {
	return Config{
		MaxRequestHeadSize:  DefaultMaxRequestHeadSize,
		EpollQueueMaxEvents: DefaultEpollQueueMaxEvents,
		IdleTimeout:         15 * time.Second,
		Multicore:           true,
	}
}
