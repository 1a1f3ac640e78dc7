package kilat

import (
	"io"
	"net"
	"strconv"

	"github.com/ryanbekhen/kilat/internal/pool"
	"github.com/valyala/bytebufferpool"
)

const (
	// probeMax bounds the printer's read-ahead on bodies without a
	// declared length, and doubles as the fast-path size limit.
	probeMax      = 8 * 1024
	inlineCopyMax = 2 * 1024
	streamBufSize = 128 * 1024
)

var (
	response100Continue = []byte("HTTP/1.1 100 Continue\r\n\r\n")

	// lastChunk represents the end of a chunked HTTP response in a byte slice
	lastChunk = []byte{0x30, 0x0d, 0x0a, 0x0d, 0x0a} // "0\r\n\r\n"
)

var (
	streamBufs = pool.NewBytes(streamBufSize)
	probeBufs  = pool.NewBytes(probeMax)
)

// bodyStrategy selects how the printer frames the response body.
type bodyStrategy uint8

const (
	stratFast        bodyStrategy = iota // bounded body, emit content-length
	stratStreaming                       // large declared length, stream raw
	stratChunked                         // caller declared transfer-encoding: chunked
	stratAutoChunked                     // probe overflowed, chunk the remainder
)

// WriteResponse emits a status line, headers, and a streaming body to
// w, choosing the framing strategy adaptively:
//
//   - headers declare chunked: emit chunked frames until EOF
//   - headers declare a content-length ≤ 8 KiB: buffer fully, one write
//   - headers declare a larger content-length: emit head, stream raw
//   - no framing declared: probe up to 8 KiB; EOF inside the probe
//     emits length-framed, otherwise the head declares chunked and the
//     probe prefix becomes the first chunk
//
// The probe heuristic is part of this package's contract, not an
// implementation detail.
func WriteResponse(w io.Writer, status Status, h *Headers, body io.Reader) error {
	if h.IsChunked() {
		head := buildHead(status, h, stratChunked, 0)
		defer bytebufferpool.Put(head)
		if _, err := w.Write(head.B); err != nil {
			return err
		}
		return writeChunkedBody(w, body)
	}

	if cl, ok := h.ContentLength(); ok {
		if cl <= probeMax {
			buf := probeBufs.Get()
			defer probeBufs.Put(buf)
			payload := buf[:cl]
			if _, err := io.ReadFull(body, payload); err != nil {
				return err
			}
			return writeHeadAndBody(w, status, h, payload)
		}
		head := buildHead(status, h, stratStreaming, cl)
		defer bytebufferpool.Put(head)
		if _, err := w.Write(head.B); err != nil {
			return err
		}
		scratch := streamBufs.Get()
		defer streamBufs.Put(scratch)
		_, err := io.CopyBuffer(w, body, scratch)
		return err
	}

	buf := probeBufs.Get()
	defer probeBufs.Put(buf)
	prefix, complete, err := probeBody(body, buf)
	if err != nil {
		return err
	}
	if complete {
		return writeHeadAndBody(w, status, h, prefix)
	}
	head := buildHead(status, h, stratAutoChunked, 0)
	defer bytebufferpool.Put(head)
	if _, err := w.Write(head.B); err != nil {
		return err
	}
	if err := writeChunk(w, prefix); err != nil {
		return err
	}
	return writeChunkedBody(w, body)
}

// WriteResponseBytes emits a response whose body is already in memory.
// A declared chunked coding still wins over length framing.
func WriteResponseBytes(w io.Writer, status Status, h *Headers, body []byte) error {
	if h.IsChunked() {
		head := buildHead(status, h, stratChunked, 0)
		defer bytebufferpool.Put(head)
		if _, err := w.Write(head.B); err != nil {
			return err
		}
		if len(body) > 0 {
			if err := writeChunk(w, body); err != nil {
				return err
			}
		}
		_, err := w.Write(lastChunk)
		return err
	}
	return writeHeadAndBody(w, status, h, body)
}

// WriteResponseEmpty emits a bodiless response with content-length: 0.
func WriteResponseEmpty(w io.Writer, status Status, h *Headers) error {
	head := buildHead(status, h, stratFast, 0)
	defer bytebufferpool.Put(head)
	_, err := w.Write(head.B)
	return err
}

// WriteContinue emits the interim "HTTP/1.1 100 Continue" response.
func WriteContinue(w io.Writer) error {
	_, err := w.Write(response100Continue)
	return err
}

// writeHeadAndBody emits a bounded body with a computed content-length.
// Small bodies are appended to the head buffer and written with a
// single call; larger ones go out as one vectored write.
func writeHeadAndBody(w io.Writer, status Status, h *Headers, body []byte) error {
	head := buildHead(status, h, stratFast, uint64(len(body)))
	defer bytebufferpool.Put(head)
	if len(body) < inlineCopyMax {
		head.B = append(head.B, body...)
		_, err := w.Write(head.B)
		return err
	}
	bufs := net.Buffers{head.B, body}
	_, err := bufs.WriteTo(w)
	return err
}

// buildHead renders the status line and headers. Wire format:
// "HTTP/1.1 <code> <reason>\r\n" then one "<name>: <value>\r\n" line
// per header value in insertion order, the connection tokens, the date
// line when the header set requests one, the framing header chosen by
// the strategy, and the empty-line terminator.
func buildHead(status Status, h *Headers, strat bodyStrategy, contentLength uint64) *bytebufferpool.ByteBuffer {
	bb := bytebufferpool.Get()
	bb.B = append(bb.B, "HTTP/1.1 "...)
	bb.B = strconv.AppendUint(bb.B, uint64(status.Code), 10)
	bb.B = append(bb.B, ' ')
	bb.B = append(bb.B, status.Reason...)
	bb.B = append(bb.B, crlf...)

	for i := range h.entries {
		e := &h.entries[i]
		for _, v := range e.values {
			bb.B = append(bb.B, e.name...)
			bb.B = append(bb.B, ": "...)
			bb.B = append(bb.B, v...)
			bb.B = append(bb.B, crlf...)
		}
	}
	if len(h.connection) > 0 {
		bb.B = append(bb.B, "connection: "...)
		bb.B = appendTokens(bb.B, h.connection)
		bb.B = append(bb.B, crlf...)
	}
	if h.withDate {
		bb.B = appendDateHeader(bb.B)
	}

	switch strat {
	case stratFast, stratStreaming:
		bb.B = append(bb.B, "content-length: "...)
		bb.B = strconv.AppendUint(bb.B, contentLength, 10)
		bb.B = append(bb.B, crlf...)
	case stratChunked:
		bb.B = append(bb.B, "transfer-encoding: "...)
		bb.B = appendTokens(bb.B, h.transferEncoding)
		bb.B = append(bb.B, crlf...)
	case stratAutoChunked:
		bb.B = append(bb.B, "transfer-encoding: chunked\r\n"...)
	}

	bb.B = append(bb.B, crlf...)
	return bb
}

func appendTokens(dst []byte, tokens []string) []byte {
	for i, tok := range tokens {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = append(dst, tok...)
	}
	return dst
}

// probeBody fills buf from r; complete reports that EOF was reached
// inside the probe.
func probeBody(r io.Reader, buf []byte) ([]byte, bool, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err == io.EOF {
			return buf[:total], true, nil
		}
		if err != nil {
			return nil, false, err
		}
		if n == 0 {
			return buf[:total], true, nil
		}
	}
	return buf, false, nil
}

// writeChunk frames one chunk as "<hex-len>\r\n<bytes>\r\n" in a
// single write.
func writeChunk(w io.Writer, b []byte) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	bb.B = appendUpperHex(bb.B, uint64(len(b)))
	bb.B = append(bb.B, crlf...)
	bb.B = append(bb.B, b...)
	bb.B = append(bb.B, crlf...)
	_, err := w.Write(bb.B)
	return err
}

func appendUpperHex(dst []byte, n uint64) []byte {
	const digits = "0123456789ABCDEF"
	if n == 0 {
		return append(dst, '0')
	}
	var tmp [16]byte
	i := len(tmp)
	for n > 0 {
		i--
		tmp[i] = digits[n&0xf]
		n >>= 4
	}
	return append(dst, tmp[i:]...)
}

// writeChunkedBody chunk-frames body until EOF, then emits the
// zero-length terminator.
func writeChunkedBody(w io.Writer, body io.Reader) error {
	buf := streamBufs.Get()
	defer streamBufs.Put(buf)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if werr := writeChunk(w, buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return err
		}
	}
	_, err := w.Write(lastChunk)
	return err
}
