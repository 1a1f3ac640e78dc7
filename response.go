package kilat

import (
	"github.com/ryanbekhen/kilat/internal/bytesconv"
)

// Response is a borrowed view of a parsed response head, the mirror of
// Request with a Status in place of the method and URI. It backs the
// EOF body encoding: a response without content-length or
// transfer-encoding is terminated by connection close.
type Response struct {
	// HTTPVersion is the minor version: 0 for HTTP/1.0, 1 for HTTP/1.1.
	HTTPVersion uint8
	Status      Status
	Headers     Headers
	// BufOffset is the index of the first byte after the CRLFCRLF head
	// terminator.
	BufOffset int
}

// ParseResponse parses a response head from buf. Like ParseRequest it
// returns ErrUnexpectedEOF while the head is incomplete.
func ParseResponse(buf []byte) (Response, error) {
	var resp Response

	version, rest, err := parseVersion(buf)
	if err != nil {
		return Response{}, err
	}
	if len(rest) < 1 {
		return Response{}, ErrUnexpectedEOF
	}
	if rest[0] != ' ' {
		return Response{}, ErrMalformedStatusLine
	}
	status, rest, err := parseResponseStatus(rest[1:])
	if err != nil {
		return Response{}, err
	}
	rest, err = parseHeaders(rest, &resp.Headers)
	if err != nil {
		return Response{}, err
	}

	resp.HTTPVersion = version
	resp.Status = status
	resp.BufOffset = len(buf) - len(rest)
	return resp, nil
}

// parseResponseStatus reads the three-digit code, the separating
// space, and the reason phrase up to CRLF.
func parseResponseStatus(buf []byte) (Status, []byte, error) {
	if len(buf) < 4 {
		return Status{}, nil, ErrUnexpectedEOF
	}
	code := 0
	for k := 0; k < 3; k++ {
		if buf[k] < '0' || buf[k] > '9' {
			return Status{}, nil, ErrMalformedStatusLine
		}
		code = code*10 + int(buf[k]-'0')
	}
	if buf[3] != ' ' {
		return Status{}, nil, ErrMalformedStatusLine
	}
	rest := buf[4:]
	for i := 0; i+1 < len(rest); i++ {
		if rest[i] == '\r' && rest[i+1] == '\n' {
			reason := bytesconv.B2S(rest[:i])
			return Status{Code: code, Reason: reason}, rest[i+2:], nil
		}
		// Reason phrases are visible ASCII plus SP and HT; Latin-1 is
		// rejected because the view is reinterpreted as UTF-8.
		if c := rest[i]; c != '\t' && c != ' ' && (c < 0x21 || c > 0x7e) {
			return Status{}, nil, ErrMalformedStatusLine
		}
	}
	return Status{}, nil, ErrUnexpectedEOF
}
