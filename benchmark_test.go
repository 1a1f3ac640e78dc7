package kilat

import (
	"io"
	"strings"
	"testing"
)

func BenchmarkParseRequest(b *testing.B) {
	raw := []byte("GET /api/v1/users/42?fields=name HTTP/1.1\r\n" +
		"host: example.com\r\n" +
		"user-agent: bench/1.0\r\n" +
		"accept: */*\r\n" +
		"content-length: 0\r\n\r\n")
	buf := make([]byte, len(raw))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		copy(buf, raw)
		if _, err := ParseRequest(buf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRouterMatchLiteral(b *testing.B) {
	rb := NewRouterBuilder[int](-1)
	for i, p := range []string{"/", "/users", "/users/me", "/posts", "/health", "/metrics"} {
		rb.Add(MethodGet, p, i)
	}
	r := rb.Build()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if m := r.MatchRoute(MethodGet, "/users/me"); m.Route < 0 {
			b.Fatal("no match")
		}
	}
}

func BenchmarkRouterMatchParams(b *testing.B) {
	rb := NewRouterBuilder[int](-1)
	rb.Add(MethodGet, "/users/:id/posts/:post_id", 1)
	rb.Add(MethodGet, "/users/:id", 2)
	rb.Add(MethodGet, "/static/**", 3)
	r := rb.Build()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if m := r.MatchRoute(MethodGet, "/users/42/posts/abc"); m.Route != 1 {
			b.Fatal("wrong route")
		}
	}
}

func BenchmarkWriteResponseBytes(b *testing.B) {
	h := NewHeaders()
	h.Set("content-type", "text/plain")
	body := []byte(strings.Repeat("x", 512))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := WriteResponseBytes(io.Discard, StatusOf(StatusOK), h, body); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHTTPDateCached(b *testing.B) {
	b.ReportAllocs()
	var buf []byte
	for i := 0; i < b.N; i++ {
		buf = appendDateHeader(buf[:0])
	}
	_ = buf
}

func BenchmarkMatchPathVectored(b *testing.B) {
	buf := []byte(strings.Repeat("/segment", 16) + " HTTP/1.1")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		matchPathVectored(buf)
	}
}
