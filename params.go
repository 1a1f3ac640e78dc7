package kilat

// RouteParams is the small association list of parameters extracted by
// the router. Expected cardinality is 0–3, so a linear scan beats a
// map and both sides stay views into the pattern and the request path.
type RouteParams struct {
	pairs []routeParam
}

type routeParam struct {
	key, value string
}

// Get returns the value for key, or "".
func (p *RouteParams) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Lookup returns the value for key and whether it was captured.
func (p *RouteParams) Lookup(key string) (string, bool) {
	for i := range p.pairs {
		if p.pairs[i].key == key {
			return p.pairs[i].value, true
		}
	}
	return "", false
}

// Len returns the number of captured parameters.
func (p *RouteParams) Len() int {
	return len(p.pairs)
}

// IsEmpty reports whether no parameters were captured.
func (p *RouteParams) IsEmpty() bool {
	return len(p.pairs) == 0
}

// ForEach calls fn for every (key, value) pair in capture order.
func (p *RouteParams) ForEach(fn func(key, value string)) {
	for i := range p.pairs {
		fn(p.pairs[i].key, p.pairs[i].value)
	}
}

func (p *RouteParams) insert(key, value string) {
	p.pairs = append(p.pairs, routeParam{key: key, value: value})
}

func (p *RouteParams) clear() {
	p.pairs = p.pairs[:0]
}
