package kilat

import "net"

// Handler handles one routed request. The request view borrows from a
// per-worker buffer and is only valid until the handler returns.
type Handler func(req *RequestCtx, res *ResponseHandle) error

// ConnectionSetupAction is returned by the connection-setup hook.
type ConnectionSetupAction uint8

const (
	// SetupProceed admits the connection.
	SetupProceed ConnectionSetupAction = iota
	// SetupDrop discards the connection.
	SetupDrop
	// SetupStopAccepting discards the connection and exits the accept
	// loop cleanly.
	SetupStopAccepting
)

// ConnectionSetupHook is called with every accept result. It may
// replace the connection (after setting socket options, say), drop it,
// or stop the accept loop. Used for timeouts, TCP_NODELAY, and IP
// allow/block lists.
type ConnectionSetupHook func(conn net.Conn, err error) (net.Conn, ConnectionSetupAction)

// PreRoutingAction is returned by the pre-routing hook.
type PreRoutingAction uint8

const (
	// PreRoutingProceed continues to routing.
	PreRoutingProceed PreRoutingAction = iota
	// PreRoutingDrop ends the request; the connection's keep-alive
	// state still follows the response handle.
	PreRoutingDrop
)

// PreRoutingHook runs between parsing and routing. Used for rate
// limiting, trailing-slash redirects, or rejecting unknown methods.
// Hooks are shared across workers and must be safe for concurrent use.
type PreRoutingHook func(req *Request, res *ResponseHandle, meta *ConnectionMeta) PreRoutingAction

// ConnectionTeardownHook runs after a connection leaves the pipeline,
// with the last I/O error observed, if any.
type ConnectionTeardownHook func(conn net.Conn, err error)
