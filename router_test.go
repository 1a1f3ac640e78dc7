package kilat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTestRouter(routes map[string][]string) *Router[string] {
	b := NewRouterBuilder[string]("fallback")
	for method, patterns := range routes {
		for _, p := range patterns {
			b.Add(MethodOf(method), p, method+" "+p)
		}
	}
	return b.Build()
}

// TestRouterLiteral tests exact literal matching via the sorted vector
func TestRouterLiteral(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/", "/users", "/users/me", "/about"},
	})

	m := r.MatchRoute(MethodGet, "/users/me")
	require.Equal(t, "GET /users/me", m.Route)
	require.True(t, m.Params.IsEmpty())

	m = r.MatchRoute(MethodGet, "/")
	require.Equal(t, "GET /", m.Route)

	m = r.MatchRoute(MethodGet, "/missing")
	require.Equal(t, "fallback", m.Route)
}

// TestRouterParams tests parameter capture
func TestRouterParams(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/users/:id", "/users/:id/posts/:post_id"},
	})

	m := r.MatchRoute(MethodGet, "/users/42")
	require.Equal(t, "GET /users/:id", m.Route)
	require.Equal(t, "42", m.Params.Get("id"))

	m = r.MatchRoute(MethodGet, "/users/42/posts/abc")
	require.Equal(t, "GET /users/:id/posts/:post_id", m.Route)
	require.Equal(t, "42", m.Params.Get("id"))
	require.Equal(t, "abc", m.Params.Get("post_id"))
	require.Equal(t, 2, m.Params.Len())
}

// TestRouterLiteralBeatsParam tests Literal > Param precedence
func TestRouterLiteralBeatsParam(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/users/me", "/users/:id"},
	})

	m := r.MatchRoute(MethodGet, "/users/me")
	require.Equal(t, "GET /users/me", m.Route)
	require.True(t, m.Params.IsEmpty())

	m = r.MatchRoute(MethodGet, "/users/42")
	require.Equal(t, "GET /users/:id", m.Route)
	require.Equal(t, "42", m.Params.Get("id"))
}

// TestRouterLMLPrecedence tests that the longest matching literal
// prefix wins: /a/b/* beats /a/*/c for /a/b/c
func TestRouterLMLPrecedence(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/a/b/*", "/a/*/c"},
	})

	m := r.MatchRoute(MethodGet, "/a/b/c")
	require.Equal(t, "GET /a/b/*", m.Route)

	m = r.MatchRoute(MethodGet, "/a/x/c")
	require.Equal(t, "GET /a/*/c", m.Route)
}

// TestRouterSegmentPrecedence tests Param > Wildcard among equal
// literal prefixes
func TestRouterSegmentPrecedence(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/x/*", "/x/:name"},
	})

	m := r.MatchRoute(MethodGet, "/x/anything")
	require.Equal(t, "GET /x/:name", m.Route)
	require.Equal(t, "anything", m.Params.Get("name"))
}

// TestRouterWildcard tests single-segment wildcards
func TestRouterWildcard(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/files/*"},
	})

	m := r.MatchRoute(MethodGet, "/files/report.txt")
	require.Equal(t, "GET /files/*", m.Route)

	// "*" consumes exactly one segment
	m = r.MatchRoute(MethodGet, "/files/a/b")
	require.Equal(t, "fallback", m.Route)

	m = r.MatchRoute(MethodGet, "/files")
	require.Equal(t, "fallback", m.Route)
}

// TestRouterDoubleWildcard tests that "**" matches the remainder
func TestRouterDoubleWildcard(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/static/**"},
	})

	m := r.MatchRoute(MethodGet, "/static/css/site.css")
	require.Equal(t, "GET /static/**", m.Route)

	m = r.MatchRoute(MethodGet, "/static/a/b/c/d")
	require.Equal(t, "GET /static/**", m.Route)
}

// TestRouterMethodIsolation tests that methods see only their own routes
func TestRouterMethodIsolation(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET":  {"/thing"},
		"POST": {"/thing"},
	})

	require.Equal(t, "GET /thing", r.MatchRoute(MethodGet, "/thing").Route)
	require.Equal(t, "POST /thing", r.MatchRoute(MethodPost, "/thing").Route)
	require.Equal(t, "fallback", r.MatchRoute(MethodDelete, "/thing").Route)
}

// TestRouterCustomMethod tests the keyed map for non-standard methods
func TestRouterCustomMethod(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"PURGE": {"/cache/:key"},
	})

	m := r.MatchRoute(Method("PURGE"), "/cache/a1")
	require.Equal(t, "PURGE /cache/:key", m.Route)
	require.Equal(t, "a1", m.Params.Get("key"))

	// Custom-method lookup ignores case
	m = r.MatchRoute(Method("purge"), "/cache/a1")
	require.Equal(t, "PURGE /cache/:key", m.Route)

	require.Equal(t, "fallback", r.MatchRoute(Method("BREW"), "/cache/a1").Route)
}

// TestRouterFallbackEmptyParams tests that the fallback never carries
// parameters
func TestRouterFallbackEmptyParams(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/users/:id"},
	})
	m := r.MatchRoute(MethodPost, "/users/42")
	require.Equal(t, "fallback", m.Route)
	require.True(t, m.Params.IsEmpty())
}

// TestRouterLastWriterWins tests that re-registering a key replaces it
func TestRouterLastWriterWins(t *testing.T) {
	b := NewRouterBuilder[string]("fallback")
	b.Add(MethodGet, "/users/me", "first")
	b.Add(MethodGet, "/users/me", "second")
	b.Add(MethodGet, "/users/:id", "p-first")
	b.Add(MethodGet, "/users/:uid", "p-second")
	r := b.Build()

	require.Equal(t, "second", r.MatchRoute(MethodGet, "/users/me").Route)

	m := r.MatchRoute(MethodGet, "/users/7")
	require.Equal(t, "p-second", m.Route)
	require.Equal(t, "7", m.Params.Get("uid"))
}

// TestRouterDeterminism tests that results depend only on the inserted
// set, not on insertion order of unrelated routes
func TestRouterDeterminism(t *testing.T) {
	patterns := []string{"/a/b/*", "/a/:x/c", "/a/b/c", "/a/**"}

	forward := NewRouterBuilder[string]("fallback")
	for _, p := range patterns {
		forward.Add(MethodGet, p, p)
	}
	reverse := NewRouterBuilder[string]("fallback")
	for i := len(patterns) - 1; i >= 0; i-- {
		reverse.Add(MethodGet, patterns[i], patterns[i])
	}

	rf, rr := forward.Build(), reverse.Build()
	for _, path := range []string{"/a/b/c", "/a/x/c", "/a/b/z", "/a/1/2/3", "/other"} {
		require.Equal(t, rf.MatchRoute(MethodGet, path).Route, rr.MatchRoute(MethodGet, path).Route, "path %q", path)
	}
	require.Equal(t, "/a/b/c", rf.MatchRoute(MethodGet, "/a/b/c").Route)
}

// TestRouterTrailingSlash tests that a trailing slash produces a final
// empty segment rather than being ignored
func TestRouterTrailingSlash(t *testing.T) {
	r := buildTestRouter(map[string][]string{
		"GET": {"/users", "/users/*"},
	})

	require.Equal(t, "GET /users", r.MatchRoute(MethodGet, "/users").Route)
	// "/users/" has an empty final segment the wildcard consumes
	require.Equal(t, "GET /users/*", r.MatchRoute(MethodGet, "/users/").Route)
}

// TestRouterTieLaterInsertionWins tests that among patterns with equal
// (LML, last-segment precedence) the later insertion wins
func TestRouterTieLaterInsertionWins(t *testing.T) {
	b := NewRouterBuilder[string]("fallback")
	b.Add(MethodGet, "/*/a", "first")
	b.Add(MethodGet, "/:x/a", "second")
	r := b.Build()
	require.Equal(t, "second", r.MatchRoute(MethodGet, "/q/a").Route)

	b = NewRouterBuilder[string]("fallback")
	b.Add(MethodGet, "/:x/a", "first")
	b.Add(MethodGet, "/*/a", "second")
	r = b.Build()
	require.Equal(t, "second", r.MatchRoute(MethodGet, "/q/a").Route)
}
