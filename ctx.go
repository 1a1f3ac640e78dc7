package kilat

import (
	"io"
	"net"
	"time"

	"github.com/goccy/go-json"
)

// ConnectionMeta carries per-connection bookkeeping available to hooks
// and handlers: the monotonic request index within the connection, the
// connection start time, and the peer address.
type ConnectionMeta struct {
	index      uint64
	start      time.Time
	remoteAddr net.Addr
}

// NewConnectionMeta starts bookkeeping for a connection from remote.
func NewConnectionMeta(remote net.Addr) *ConnectionMeta {
	return &ConnectionMeta{start: time.Now(), remoteAddr: remote}
}

func (m *ConnectionMeta) increment() {
	m.index++
}

// Index returns the 1-based index of the current request within its
// connection.
func (m *ConnectionMeta) Index() uint64 {
	return m.index
}

// Start returns when the connection was accepted.
func (m *ConnectionMeta) Start() time.Time {
	return m.start
}

// RemoteAddr returns the peer address, or nil when unknown.
func (m *ConnectionMeta) RemoteAddr() net.Addr {
	return m.remoteAddr
}

// RequestCtx is the request view handed to handlers. All string fields
// borrow from the per-worker read buffer and must not be retained past
// the handler's return.
type RequestCtx struct {
	Method      Method
	URI         URI
	Headers     *Headers
	Params      *RouteParams
	HTTPVersion uint8
	Conn        *ConnectionMeta
	body        *BodyReader
}

// Body returns the request body stream.
func (c *RequestCtx) Body() *BodyReader {
	return c.body
}

// BindJSON decodes the request body into v.
func (c *RequestCtx) BindJSON(v interface{}) error {
	return json.NewDecoder(c.body).Decode(v)
}

// ResponseHandle writes responses for the current connection. Sending
// a header set that carries connection: close turns keep-alive off;
// the dispatcher then closes the connection after the handler returns.
type ResponseHandle struct {
	w          io.Writer
	keepAlive  bool
	lastStatus int
}

// NewResponseHandle wraps the write half of a connection.
func NewResponseHandle(w io.Writer) *ResponseHandle {
	return &ResponseHandle{w: w, keepAlive: true}
}

// Ok sends a 200 response with a streaming body.
func (r *ResponseHandle) Ok(h *Headers, body io.Reader) error {
	return r.Send(StatusOf(StatusOK), h, body)
}

// Ok0 sends a bodiless 200 response.
func (r *ResponseHandle) Ok0(h *Headers) error {
	return r.Send0(StatusOf(StatusOK), h)
}

// Send emits a response with a streaming body.
func (r *ResponseHandle) Send(status Status, h *Headers, body io.Reader) error {
	r.observe(status, h)
	return WriteResponse(r.w, status, h, body)
}

// SendBytes emits a response with an in-memory body.
func (r *ResponseHandle) SendBytes(status Status, h *Headers, body []byte) error {
	r.observe(status, h)
	return WriteResponseBytes(r.w, status, h, body)
}

// Send0 emits a bodiless response.
func (r *ResponseHandle) Send0(status Status, h *Headers) error {
	r.observe(status, h)
	return WriteResponseEmpty(r.w, status, h)
}

// JSON marshals v and sends it as application/json.
func (r *ResponseHandle) JSON(status Status, h *Headers, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if h == nil {
		h = NewHeaders()
	}
	h.Set(HeaderContentType, "application/json")
	return r.SendBytes(status, h, payload)
}

// Continue emits the interim 100 Continue response. The final response
// still follows.
func (r *ResponseHandle) Continue() error {
	return WriteContinue(r.w)
}

func (r *ResponseHandle) observe(status Status, h *Headers) {
	r.lastStatus = status.Code
	if h != nil && h.IsConnectionClose() {
		r.keepAlive = false
	}
}

// KeepAlive reports whether the connection will serve another request
// after the current response.
func (r *ResponseHandle) KeepAlive() bool {
	return r.keepAlive
}

// SetKeepAlive overrides the keep-alive decision.
func (r *ResponseHandle) SetKeepAlive(v bool) {
	r.keepAlive = v
}

// Status returns the code of the last response sent, or 0.
func (r *ResponseHandle) Status() int {
	return r.lastStatus
}

// Writer exposes the underlying write half.
func (r *ResponseHandle) Writer() io.Writer {
	return r.w
}
