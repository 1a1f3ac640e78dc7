package kilat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"

	"github.com/panjf2000/gnet/v2"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

// Evented dispatcher: the readiness variant of the pipeline. gnet owns
// the epoll registration, the edge-triggered arming, and the
// non-blocking accept loop; connections are serialized per event loop,
// so at most one worker touches a connection at a time. Each readiness
// notification hands the connection's buffered bytes to the same
// parse → hook → route → handle pipeline as the blocking dispatcher.
type eventServer struct {
	gnet.BuiltinEventEngine
	srv  *Server
	eng  gnet.Engine
	addr string
}

// evConn is the per-connection record stored in the event's user data.
type evConn struct {
	meta *ConnectionMeta
}

func (es *eventServer) OnBoot(eng gnet.Engine) gnet.Action {
	es.eng = eng
	if !es.srv.cfg.DisableStartupMessage {
		es.srv.logger.Info("kilat listening",
			zap.String("addr", es.addr),
			zap.String("dispatcher", "event-loop"))
	}
	return gnet.None
}

func (es *eventServer) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	if hook := es.srv.cfg.ConnectionSetupHook; hook != nil {
		if nc, ok := any(c).(net.Conn); ok {
			switch _, action := hook(nc, nil); action {
			case SetupDrop:
				return nil, gnet.Close
			case SetupStopAccepting:
				return nil, gnet.Shutdown
			}
		}
	}
	c.SetContext(&evConn{meta: NewConnectionMeta(c.RemoteAddr())})
	return nil, gnet.None
}

func (es *eventServer) OnClose(c gnet.Conn, err error) gnet.Action {
	if hook := es.srv.cfg.ConnectionTeardownHook; hook != nil {
		nc, _ := any(c).(net.Conn)
		hook(nc, err)
	}
	return gnet.None
}

func (es *eventServer) OnTraffic(c gnet.Conn) gnet.Action {
	ec, _ := c.Context().(*evConn)
	if ec == nil {
		return gnet.Close
	}
	s := es.srv

	buf, _ := c.Peek(-1)
	out := bytebufferpool.Get()
	defer bytebufferpool.Put(out)

	processed := 0
	action := gnet.None

	for processed < len(buf) {
		req, err := ParseRequest(buf[processed:])
		if err != nil {
			if errors.Is(err, ErrUnexpectedEOF) {
				// Head incomplete: wait for more bytes unless the cap
				// is already blown.
				if len(buf)-processed >= s.cfg.MaxRequestHeadSize {
					_ = WriteResponseEmpty(out, StatusOf(StatusRequestHeaderFieldsTooLarge), closeHeaders())
					action = gnet.Close
				}
				break
			}
			_ = WriteResponseEmpty(out, StatusOf(StatusBadRequest), closeHeaders())
			action = gnet.Close
			break
		}
		if req.BufOffset > s.cfg.MaxRequestHeadSize {
			_ = WriteResponseEmpty(out, StatusOf(StatusRequestHeaderFieldsTooLarge), closeHeaders())
			action = gnet.Close
			break
		}

		bodyLen, ok, berr := bodyLength(&req, buf[processed+req.BufOffset:])
		if berr != nil {
			_ = WriteResponseEmpty(out, StatusOf(StatusBadRequest), closeHeaders())
			action = gnet.Close
			break
		}
		if !ok {
			// Body incomplete: wait for more bytes.
			break
		}

		total := req.BufOffset + bodyLen
		keepAlive := s.serveBuffered(&req, buf[processed+req.BufOffset:processed+total], ec.meta, out)
		processed += total
		if !keepAlive {
			action = gnet.Close
			break
		}
	}

	if out.Len() > 0 {
		if _, werr := c.Write(out.B); werr != nil {
			action = gnet.Close
		}
	}
	if processed > 0 {
		_, _ = c.Discard(processed)
	}
	return action
}

// bodyLength computes how many bytes after the head belong to the
// request body, when that is determinable from the bytes available.
// ok is false while more bytes are needed.
func bodyLength(req *Request, body []byte) (n int, ok bool, err error) {
	if cl, has := req.Headers.ContentLength(); has {
		if uint64(len(body)) < cl {
			return 0, false, nil
		}
		return int(cl), true, nil
	}
	if !req.Headers.IsChunked() {
		return 0, true, nil
	}
	// Run the chunked decoder over the available bytes; what it
	// consumed is the encoded body length.
	r := bytes.NewReader(body)
	br := NewChunkedBodyReader(nil, r)
	if _, cerr := io.Copy(io.Discard, br); cerr != nil {
		if errors.Is(cerr, io.ErrUnexpectedEOF) {
			return 0, false, nil
		}
		return 0, false, cerr
	}
	consumed := len(body) - r.Len() - br.buffered()
	return consumed, true, nil
}

// serveBuffered runs one parsed request whose whole body is already in
// memory through the pipeline, writing the response into out. It
// reports the keep-alive decision.
func (s *Server) serveBuffered(req *Request, body []byte, meta *ConnectionMeta, out io.Writer) bool {
	meta.increment()
	res := NewResponseHandle(out)

	if hook := s.cfg.PreRoutingHook; hook != nil {
		if hook(req, res, meta) == PreRoutingDrop {
			return res.KeepAlive()
		}
	}

	matched := s.router.MatchRoute(req.Method, req.URI.Path())
	bodyReader := RequestBodyReader(body, eofReader{}, &req.Headers)
	ctx := &RequestCtx{
		Method:      req.Method,
		URI:         req.URI,
		Headers:     &req.Headers,
		Params:      &matched.Params,
		HTTPVersion: req.HTTPVersion,
		Conn:        meta,
		body:        bodyReader,
	}

	clientClose := req.Headers.IsConnectionClose()
	if err := matched.Route(ctx, res); err != nil {
		s.logger.Debug("handler failed", zap.Error(err))
		return false
	}
	bodyReader.Drain()

	return !clientClose && res.KeepAlive()
}

// eofReader terminates in-memory body readers.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}

// ServeEventLoop runs the evented dispatcher on the first configured
// address.
func (s *Server) ServeEventLoop() error {
	if len(s.cfg.Addrs) == 0 {
		return errors.New("kilat: no bind address configured")
	}
	s.finalizeRouter()
	es := &eventServer{srv: s, addr: s.cfg.Addrs[0]}
	s.events = es

	opts := []gnet.Option{
		gnet.WithMulticore(s.cfg.Multicore),
		gnet.WithReuseAddr(true),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithEdgeTriggeredIO(true),
		gnet.WithEdgeTriggeredIOChunk(s.cfg.EpollQueueMaxEvents << 10),
		gnet.WithLogger(s.logger.Sugar()),
	}
	if s.cfg.IdleTimeout > 0 {
		opts = append(opts, gnet.WithTCPKeepAlive(s.cfg.IdleTimeout))
	}
	return gnet.Run(es, "tcp://"+es.addr, opts...)
}

// ListenEventLoop binds addr and serves with the evented dispatcher.
func (s *Server) ListenEventLoop(addr string) error {
	s.cfg.Addrs = []string{addr}
	return s.ServeEventLoop()
}

// Shutdown gracefully stops the server: the blocking listeners are
// closed and the evented engine, when running, is stopped.
func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.Close()
	if es := s.events; es != nil {
		return es.eng.Stop(ctx)
	}
	return nil
}
