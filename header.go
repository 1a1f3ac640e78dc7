package kilat

import (
	"strconv"
	"strings"
)

// Fast-path header field names. These fields are never stored in the
// ordered field list; their parsed values live in dedicated caches on
// Headers and are re-emitted by the printer.
const (
	HeaderContentLength    = "content-length"
	HeaderContentType      = "content-type"
	HeaderTransferEncoding = "transfer-encoding"
	HeaderConnection       = "connection"
)

// headerEntry is one logical field: a lowercased name and its values in
// insertion order.
type headerEntry struct {
	name   string
	values []string
}

// Headers is an ordered multimap of HTTP header fields. Names are
// lowercased on insertion and compared case-insensitively; insertion
// order of fields and of repeated values is preserved and reproduced on
// the wire.
//
// Three fields are materialized into caches at insertion time instead
// of being stored: content-length (last occurrence wins),
// transfer-encoding (token list plus a chunked flag), and connection
// (token list plus a close flag). Use the dedicated accessors for
// those; Get and Values do not see them.
type Headers struct {
	entries []headerEntry

	contentLength    uint64
	hasContentLength bool
	transferEncoding []string
	chunked          bool
	connection       []string
	connClose        bool
	withDate         bool
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{}
}

// lowerASCII lowercases s without allocating when it is already lowercase.
func lowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			return strings.ToLower(s)
		}
	}
	return s
}

// Add appends value to the field named name, creating the field if it
// does not exist yet. The name is compared case-insensitively.
func (h *Headers) Add(name, value string) {
	h.addLower(lowerASCII(name), value)
}

// addLower is the insertion fast path; name must already be lowercase.
// The parser calls this directly with in-buffer views.
func (h *Headers) addLower(name, value string) {
	switch name {
	case HeaderContentLength:
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		h.contentLength, h.hasContentLength = n, err == nil
		return
	case HeaderTransferEncoding:
		h.transferEncoding = h.addTokens(h.transferEncoding, value, "chunked", &h.chunked)
		return
	case HeaderConnection:
		h.connection = h.addTokens(h.connection, value, "close", &h.connClose)
		return
	}
	for i := range h.entries {
		if h.entries[i].name == name {
			h.entries[i].values = append(h.entries[i].values, value)
			return
		}
	}
	h.entries = append(h.entries, headerEntry{name: name, values: []string{value}})
}

// addTokens splits a comma-separated field value into tokens, trimming
// leading whitespace, and raises *flag when a token equals special
// case-insensitively.
func (h *Headers) addTokens(dst []string, value, special string, flag *bool) []string {
	for len(value) > 0 {
		var tok string
		if i := strings.IndexByte(value, ','); i >= 0 {
			tok, value = value[:i], value[i+1:]
		} else {
			tok, value = value, ""
		}
		tok = strings.TrimLeft(tok, " \t")
		if strings.EqualFold(tok, special) {
			*flag = true
		}
		dst = append(dst, tok)
	}
	return dst
}

// Set replaces the field named name with the single given value.
func (h *Headers) Set(name, value string) {
	name = lowerASCII(name)
	switch name {
	case HeaderContentLength:
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		h.contentLength, h.hasContentLength = n, err == nil
		return
	case HeaderTransferEncoding:
		h.transferEncoding, h.chunked = nil, false
		h.transferEncoding = h.addTokens(h.transferEncoding, value, "chunked", &h.chunked)
		return
	case HeaderConnection:
		h.connection, h.connClose = nil, false
		h.connection = h.addTokens(h.connection, value, "close", &h.connClose)
		return
	}
	for i := range h.entries {
		if h.entries[i].name == name {
			h.entries[i].values = append(h.entries[i].values[:0], value)
			return
		}
	}
	h.entries = append(h.entries, headerEntry{name: name, values: []string{value}})
}

// Get returns the last value of the field named name, or "".
func (h *Headers) Get(name string) string {
	name = lowerASCII(name)
	for i := range h.entries {
		if h.entries[i].name == name {
			return h.entries[i].values[len(h.entries[i].values)-1]
		}
	}
	return ""
}

// Values returns all values of the field named name in insertion order.
func (h *Headers) Values(name string) []string {
	name = lowerASCII(name)
	for i := range h.entries {
		if h.entries[i].name == name {
			return h.entries[i].values
		}
	}
	return nil
}

// Has reports whether the field named name is present. The fast-path
// fields count as present when their caches are set.
func (h *Headers) Has(name string) bool {
	name = lowerASCII(name)
	switch name {
	case HeaderContentLength:
		return h.hasContentLength
	case HeaderTransferEncoding:
		return len(h.transferEncoding) > 0
	case HeaderConnection:
		return len(h.connection) > 0
	}
	for i := range h.entries {
		if h.entries[i].name == name {
			return true
		}
	}
	return false
}

// Del removes the field named name. Deleting content-length clears the
// cached length; deleting transfer-encoding or connection clears the
// token lists and their flags.
func (h *Headers) Del(name string) {
	name = lowerASCII(name)
	switch name {
	case HeaderContentLength:
		h.hasContentLength = false
		return
	case HeaderTransferEncoding:
		h.transferEncoding, h.chunked = nil, false
		return
	case HeaderConnection:
		h.connection, h.connClose = nil, false
		return
	}
	for i := range h.entries {
		if h.entries[i].name == name {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of stored logical fields, excluding the
// fast-path caches.
func (h *Headers) Len() int {
	return len(h.entries)
}

// ForEach calls fn for every (name, value) pair in wire order.
func (h *Headers) ForEach(fn func(name, value string)) {
	for i := range h.entries {
		for _, v := range h.entries[i].values {
			fn(h.entries[i].name, v)
		}
	}
}

// ContentLength returns the cached content-length, if one was set.
func (h *Headers) ContentLength() (uint64, bool) {
	return h.contentLength, h.hasContentLength
}

// SetContentLength sets the cached content-length.
func (h *Headers) SetContentLength(n uint64) {
	h.contentLength, h.hasContentLength = n, true
}

// TransferEncoding returns the transfer-encoding tokens in insertion order.
func (h *Headers) TransferEncoding() []string {
	return h.transferEncoding
}

// SetChunked declares the body as chunked.
func (h *Headers) SetChunked() {
	h.chunked = true
	h.transferEncoding = append(h.transferEncoding, "chunked")
}

// IsChunked reports whether any transfer-encoding token equals "chunked".
func (h *Headers) IsChunked() bool {
	return h.chunked
}

// Connection returns the connection tokens in insertion order.
func (h *Headers) Connection() []string {
	return h.connection
}

// SetConnectionClose marks the connection for closing after this message.
func (h *Headers) SetConnectionClose() {
	h.connClose = true
	h.connection = append(h.connection, "close")
}

// IsConnectionClose reports whether any connection token equals "close".
func (h *Headers) IsConnectionClose() bool {
	return h.connClose
}

// SetDate controls whether the printer inserts a date header from the
// date cache when emitting this header set.
func (h *Headers) SetDate(on bool) {
	h.withDate = on
}

// WantsDate reports whether a date header will be emitted.
func (h *Headers) WantsDate() bool {
	return h.withDate
}

// Is100Continue reports whether the client asked for a 100 Continue
// interim response before sending its body.
func (h *Headers) Is100Continue() bool {
	return strings.EqualFold(h.Get("expect"), "100-continue")
}

// Reset clears h for reuse.
func (h *Headers) Reset() {
	h.entries = h.entries[:0]
	h.hasContentLength = false
	h.transferEncoding = nil
	h.chunked = false
	h.connection = nil
	h.connClose = false
	h.withDate = false
}

// closeHeaders returns a header set carrying connection: close, used
// for error responses that also end the connection.
func closeHeaders() *Headers {
	h := NewHeaders()
	h.SetConnectionClose()
	return h
}
