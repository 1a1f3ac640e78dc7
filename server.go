package kilat

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ryanbekhen/kilat/internal/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server drives the per-request pipeline: parse, pre-routing hook,
// route, handle, keep-alive decision. Two interchangeable dispatchers
// feed the pipeline: Serve (blocking accept loop plus a bounded worker
// set) and ServeEventLoop (edge-triggered readiness via gnet).
type Server struct {
	cfg     Config
	builder *RouterBuilder[Handler]
	router  *Router[Handler]
	exec    *Executor
	logger  *zap.Logger
	events  *eventServer

	headBufs *pool.Bytes

	mu        sync.Mutex
	listeners []net.Listener
	closed    atomic.Bool
}

// New creates a new server. Omit the config for defaults.
func New(config ...Config) *Server {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.MaxRequestHeadSize <= 0 {
		cfg.MaxRequestHeadSize = DefaultMaxRequestHeadSize
	}
	if cfg.EpollQueueMaxEvents <= 0 {
		cfg.EpollQueueMaxEvents = DefaultEpollQueueMaxEvents
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		builder:  NewRouterBuilder[Handler](defaultFallback),
		logger:   logger,
		headBufs: pool.NewBytes(cfg.MaxRequestHeadSize),
	}
}

// defaultFallback answers 404 when no route matches.
func defaultFallback(_ *RequestCtx, res *ResponseHandle) error {
	return res.Send0(StatusOf(StatusNotFound), NewHeaders())
}

// Route registers a handler for method and pattern.
func (s *Server) Route(method Method, pattern string, h Handler) *Server {
	s.builder.Add(method, pattern, h)
	return s
}

// GET registers a new route with the GET method.
func (s *Server) GET(pattern string, h Handler) *Server {
	return s.Route(MethodGet, pattern, h)
}

// HEAD registers a new route with the HEAD method.
func (s *Server) HEAD(pattern string, h Handler) *Server {
	return s.Route(MethodHead, pattern, h)
}

// POST registers a new route with the POST method.
func (s *Server) POST(pattern string, h Handler) *Server {
	return s.Route(MethodPost, pattern, h)
}

// PUT registers a new route with the PUT method.
func (s *Server) PUT(pattern string, h Handler) *Server {
	return s.Route(MethodPut, pattern, h)
}

// PATCH registers a new route with the PATCH method.
func (s *Server) PATCH(pattern string, h Handler) *Server {
	return s.Route(MethodPatch, pattern, h)
}

// DELETE registers a new route with the DELETE method.
func (s *Server) DELETE(pattern string, h Handler) *Server {
	return s.Route(MethodDelete, pattern, h)
}

// OPTIONS registers a new route with the OPTIONS method.
func (s *Server) OPTIONS(pattern string, h Handler) *Server {
	return s.Route(MethodOptions, pattern, h)
}

// TRACE registers a new route with the TRACE method.
func (s *Server) TRACE(pattern string, h Handler) *Server {
	return s.Route(MethodTrace, pattern, h)
}

// Fallback sets the handler invoked when no route matches.
func (s *Server) Fallback(h Handler) *Server {
	s.builder.SetFallback(h)
	return s
}

// finalizeRouter compiles the route table once; the router is shared
// read-only across workers afterwards.
func (s *Server) finalizeRouter() *Router[Handler] {
	if s.router == nil {
		s.router = s.builder.Build()
	}
	return s.router
}

// Listen binds addr and serves with the blocking dispatcher.
func (s *Server) Listen(addr string) error {
	s.cfg.Addrs = []string{addr}
	return s.Serve()
}

// Serve runs the blocking dispatcher on every configured address.
// Each accepted connection is handed to an executor worker, which
// serves requests with plain blocking reads and writes until the
// connection stops being reusable.
func (s *Server) Serve() error {
	if len(s.cfg.Addrs) == 0 {
		return errors.New("kilat: no bind address configured")
	}
	s.finalizeRouter()
	exec, err := NewExecutor(s.cfg.ThreadCount)
	if err != nil {
		return err
	}
	s.exec = exec
	defer exec.Shutdown()

	var g errgroup.Group
	for _, addr := range s.cfg.Addrs {
		ln, lerr := net.Listen("tcp", addr)
		if lerr != nil {
			s.closeListeners()
			return lerr
		}
		s.mu.Lock()
		s.listeners = append(s.listeners, ln)
		s.mu.Unlock()
		if !s.cfg.DisableStartupMessage {
			s.logger.Info("kilat listening", zap.String("addr", ln.Addr().String()))
		}
		g.Go(func() error {
			return s.serveListener(ln)
		})
	}
	return g.Wait()
}

// Close stops the blocking accept loops.
func (s *Server) Close() error {
	s.closed.Store(true)
	s.closeListeners()
	return nil
}

func (s *Server) closeListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ln := range s.listeners {
		ln.Close()
	}
	s.listeners = nil
}

func (s *Server) serveListener(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) || s.closed.Load() {
			if conn != nil {
				conn.Close()
			}
			return nil
		}

		if hook := s.cfg.ConnectionSetupHook; hook != nil {
			var action ConnectionSetupAction
			conn, action = hook(conn, err)
			switch action {
			case SetupDrop:
				if conn != nil {
					conn.Close()
				}
				continue
			case SetupStopAccepting:
				if conn != nil {
					conn.Close()
				}
				return nil
			}
			if conn == nil {
				continue
			}
		} else if err != nil {
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		c := conn
		if serr := s.exec.Submit(func() { _ = s.handleConn(c) }); serr != nil {
			c.Close()
			if s.closed.Load() {
				return nil
			}
			s.logger.Warn("executor rejected connection", zap.Error(serr))
		}
	}
}

// Handle drives one already-accepted connection through the blocking
// pipeline. Useful for tests and custom accept loops.
func (s *Server) Handle(conn net.Conn) error {
	s.finalizeRouter()
	return s.handleConn(conn)
}

func (s *Server) handleConn(conn net.Conn) error {
	meta := NewConnectionMeta(conn.RemoteAddr())
	res := NewResponseHandle(conn)
	var lastErr error
	defer func() {
		if hook := s.cfg.ConnectionTeardownHook; hook != nil {
			hook(conn, lastErr)
		}
		conn.Close()
	}()

	for {
		meta.increment()
		keepAlive, err := s.handleOneRequest(conn, res, meta)
		if err != nil {
			lastErr = err
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("connection error", zap.Error(err))
			}
			return err
		}
		if !keepAlive {
			return nil
		}
	}
}

// errHeadTooLarge marks a head that outgrew the configured cap.
var errHeadTooLarge = errors.New("request head too large")

// handleOneRequest serves a single request and reports whether the
// connection stays alive for the next one.
func (s *Server) handleOneRequest(conn net.Conn, res *ResponseHandle, meta *ConnectionMeta) (bool, error) {
	buf := s.headBufs.Get()
	defer s.headBufs.Put(buf)

	filled, req, err := readRequest(conn, buf)
	switch {
	case err == nil:
	case errors.Is(err, errHeadTooLarge):
		_ = res.Send0(StatusOf(StatusRequestHeaderFieldsTooLarge), closeHeaders())
		lingerClose(conn)
		return false, nil
	case isTerminalParseError(err):
		_ = res.Send0(StatusOf(StatusBadRequest), closeHeaders())
		lingerClose(conn)
		return false, nil
	case errors.Is(err, io.EOF):
		// Peer closed between requests.
		return false, nil
	default:
		return false, err
	}

	if hook := s.cfg.PreRoutingHook; hook != nil {
		if hook(&req, res, meta) == PreRoutingDrop {
			return res.KeepAlive(), nil
		}
	}

	matched := s.router.MatchRoute(req.Method, req.URI.Path())
	body := RequestBodyReader(buf[req.BufOffset:filled], conn, &req.Headers)
	ctx := &RequestCtx{
		Method:      req.Method,
		URI:         req.URI,
		Headers:     &req.Headers,
		Params:      &matched.Params,
		HTTPVersion: req.HTTPVersion,
		Conn:        meta,
		body:        body,
	}

	clientClose := req.Headers.IsConnectionClose()
	if herr := matched.Route(ctx, res); herr != nil {
		return false, herr
	}
	// Drain whatever the handler left unread so the next head parse
	// starts clean.
	body.Drain()

	if clientClose {
		return false, nil
	}
	return res.KeepAlive(), nil
}

// lingerClose consumes whatever the peer already sent, briefly, so
// closing after an error response does not turn into a reset before
// the response is delivered.
func lingerClose(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var buf [1024]byte
	for {
		if _, err := conn.Read(buf[:]); err != nil {
			return
		}
	}
}

// readRequest reads into the per-worker head buffer until the parser
// succeeds, fails terminally, or the buffer fills up.
func readRequest(r io.Reader, buf []byte) (int, Request, error) {
	filled := 0
	for {
		if filled == len(buf) {
			return 0, Request{}, errHeadTooLarge
		}
		n, err := r.Read(buf[filled:])
		filled += n
		if n > 0 {
			req, perr := ParseRequest(buf[:filled])
			if perr == nil {
				return filled, req, nil
			}
			if !errors.Is(perr, ErrUnexpectedEOF) {
				return 0, Request{}, perr
			}
		}
		if err != nil {
			if err == io.EOF {
				return 0, Request{}, io.EOF
			}
			return 0, Request{}, err
		}
	}
}
