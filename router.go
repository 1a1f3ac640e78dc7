package kilat

import (
	"slices"
	"sort"
	"strings"
)

// Trie-free pattern router. Routes are compiled once into per-method
// buckets: purely literal paths go into a sorted vector looked up by
// binary search, patterned paths into a scan list scored per request.
// Precedence among pattern segments, lowest to highest:
// "**" < "*" < ":param" < literal.

// segmentKind orders segment kinds by precedence.
type segmentKind uint8

const (
	segDoubleWildcard segmentKind = iota
	segWildcard
	segParam
	segLiteral
)

type routeSegment struct {
	kind segmentKind
	text string // literal text or parameter name
}

type routePattern struct {
	segments []routeSegment
	lastKind segmentKind
}

type literalRoute[T any] struct {
	path  string
	route T
}

type patternRoute[T any] struct {
	pattern routePattern
	route   T
}

// methodBucket holds one method's routes.
type methodBucket[T any] struct {
	literals []literalRoute[T]
	patterns []patternRoute[T]
}

func (b *methodBucket[T]) add(path string, route T) {
	norm, pattern := parseRoutePattern(path)
	literal := true
	for _, s := range pattern.segments {
		if s.kind != segLiteral {
			literal = false
			break
		}
	}
	// Later inserts with the same key replace earlier ones.
	if literal {
		b.literals = slices.DeleteFunc(b.literals, func(lr literalRoute[T]) bool {
			return lr.path == norm
		})
		b.literals = append(b.literals, literalRoute[T]{path: norm, route: route})
		return
	}
	b.patterns = slices.DeleteFunc(b.patterns, func(pr patternRoute[T]) bool {
		return patternEqual(pr.pattern, pattern)
	})
	b.patterns = append(b.patterns, patternRoute[T]{pattern: pattern, route: route})
}

// finalize sorts the literal vector once at build time so lookup is a
// binary search.
func (b *methodBucket[T]) finalize() {
	sort.Slice(b.literals, func(i, j int) bool {
		return b.literals[i].path < b.literals[j].path
	})
}

func (b *methodBucket[T]) findLiteral(path string) (*T, bool) {
	i := sort.Search(len(b.literals), func(i int) bool {
		return b.literals[i].path >= path
	})
	if i < len(b.literals) && b.literals[i].path == path {
		return &b.literals[i].route, true
	}
	return nil, false
}

// RouterBuilder accumulates route insertions; Build freezes them into
// an immutable Router.
type RouterBuilder[T any] struct {
	methods  [methodCount]methodBucket[T]
	custom   map[string]*methodBucket[T]
	fallback T
}

// NewRouterBuilder returns a builder whose fallback route is invoked
// when nothing matches.
func NewRouterBuilder[T any](fallback T) *RouterBuilder[T] {
	return &RouterBuilder[T]{
		custom:   make(map[string]*methodBucket[T]),
		fallback: fallback,
	}
}

// Add registers a route for method under the given path pattern.
// Custom methods are keyed case-insensitively in their own map.
func (b *RouterBuilder[T]) Add(method Method, path string, route T) {
	if i := method.bucket(); i >= 0 {
		b.methods[i].add(path, route)
		return
	}
	key := strings.ToUpper(string(method))
	mb := b.custom[key]
	if mb == nil {
		mb = &methodBucket[T]{}
		b.custom[key] = mb
	}
	mb.add(path, route)
}

// SetFallback replaces the fallback route.
func (b *RouterBuilder[T]) SetFallback(route T) {
	b.fallback = route
}

// Build finalizes the table. The returned Router is read-only and safe
// to share across workers by reference.
func (b *RouterBuilder[T]) Build() *Router[T] {
	for i := range b.methods {
		b.methods[i].finalize()
	}
	for _, mb := range b.custom {
		mb.finalize()
	}
	return &Router[T]{
		methods:  b.methods,
		custom:   b.custom,
		fallback: b.fallback,
	}
}

// Router is the compiled pattern-to-route table.
type Router[T any] struct {
	methods  [methodCount]methodBucket[T]
	custom   map[string]*methodBucket[T]
	fallback T
}

// Match is a routing result: the route plus the parameters its pattern
// captured from the path.
type Match[T any] struct {
	Route  T
	Params RouteParams
}

// MatchRoute resolves method plus URI path to a route. Patterns are
// scored by (longest matching literal prefix, precedence of the last
// segment); among equal scores the later insertion wins. The fallback
// route is returned, with empty params, when nothing matches.
func (r *Router[T]) MatchRoute(method Method, path string) Match[T] {
	path = strings.TrimPrefix(path, "/")

	var bucket *methodBucket[T]
	if i := method.bucket(); i >= 0 {
		bucket = &r.methods[i]
	} else if mb, ok := r.custom[strings.ToUpper(string(method))]; ok {
		bucket = mb
	} else {
		return Match[T]{Route: r.fallback}
	}

	// Fast path: exact literal route.
	if route, ok := bucket.findLiteral(path); ok {
		return Match[T]{Route: *route}
	}

	bestLML := -1
	bestKind := segDoubleWildcard
	var bestRoute *T
	var bestParams, scratch RouteParams

	for pi := range bucket.patterns {
		p := &bucket.patterns[pi]
		scratch.clear()
		it := pathSegments{rest: path}
		ok := true
		lml := 0
		countingPrefix := true

	segments:
		for _, seg := range p.pattern.segments {
			part, have := it.next()
			switch seg.kind {
			case segDoubleWildcard:
				// Matches the remainder unconditionally.
				break segments
			case segWildcard:
				if !have {
					ok = false
					break segments
				}
				countingPrefix = false
			case segParam:
				if !have {
					ok = false
					break segments
				}
				scratch.insert(seg.text, part)
				countingPrefix = false
			case segLiteral:
				if !have || seg.text != part {
					ok = false
					break segments
				}
				if countingPrefix {
					lml++
				}
			}
		}
		// Leftover path segments require a trailing "**".
		if ok {
			if _, more := it.next(); more {
				ok = p.pattern.lastKind == segDoubleWildcard
			}
		}
		if !ok {
			continue
		}

		if lml > bestLML || (lml == bestLML && p.pattern.lastKind >= bestKind) {
			bestLML = lml
			bestKind = p.pattern.lastKind
			bestRoute = &p.route
			bestParams, scratch = scratch, bestParams
		}
	}

	if bestRoute != nil {
		return Match[T]{Route: *bestRoute, Params: bestParams}
	}
	return Match[T]{Route: r.fallback}
}

// parseRoutePattern normalizes a path (one leading '/' stripped) and
// classifies its segments. A leading ':' marks a parameter; the exact
// tokens "*" and "**" are the wildcards.
func parseRoutePattern(path string) (string, routePattern) {
	norm := strings.TrimPrefix(path, "/")
	var segs []routeSegment
	it := pathSegments{rest: norm}
	for {
		part, ok := it.next()
		if !ok {
			break
		}
		segs = append(segs, parseRouteSegment(part))
	}
	last := segDoubleWildcard
	if len(segs) > 0 {
		last = segs[len(segs)-1].kind
	}
	return norm, routePattern{segments: segs, lastKind: last}
}

func parseRouteSegment(s string) routeSegment {
	switch {
	case s == "*":
		return routeSegment{kind: segWildcard}
	case s == "**":
		return routeSegment{kind: segDoubleWildcard}
	case strings.HasPrefix(s, ":"):
		return routeSegment{kind: segParam, text: s[1:]}
	}
	return routeSegment{kind: segLiteral, text: s}
}

// patternEqual treats parameters with different names as the same key,
// so re-registering "/users/:id" as "/users/:uid" replaces it.
func patternEqual(a, b routePattern) bool {
	if len(a.segments) != len(b.segments) {
		return false
	}
	for i := range a.segments {
		sa, sb := a.segments[i], b.segments[i]
		if sa.kind != sb.kind {
			return false
		}
		if sa.kind == segLiteral && sa.text != sb.text {
			return false
		}
	}
	return true
}

// pathSegments iterates '/'-separated segments the way a split does:
// an empty path yields one empty segment, a trailing slash a final
// empty one.
type pathSegments struct {
	rest string
	done bool
}

func (it *pathSegments) next() (string, bool) {
	if it.done {
		return "", false
	}
	if i := strings.IndexByte(it.rest, '/'); i >= 0 {
		seg := it.rest[:i]
		it.rest = it.rest[i+1:]
		return seg, true
	}
	seg := it.rest
	it.rest = ""
	it.done = true
	return seg, true
}
