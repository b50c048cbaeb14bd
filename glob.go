package vfs

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// A Glob is a string pattern used to scope filters (Observe) and Token applicability. AutoMount loaders match
// names with regular expressions instead. * matches any sequence within a single segment, ** matches across segments including /, and
// ? matches exactly one character. The empty pattern matches only the root directory itself, not children.
type Glob string

// Match reports whether path satisfies the glob pattern g.
func (g Glob) Match(path Path) bool {
	if g == "" {
		return path.IsRoot()
	}
	ok, err := doublestar.Match(string(g), strings.TrimPrefix(path.String(), PathSeparator))
	if err != nil {
		return false
	}
	return ok
}

// MatchAny reports whether path satisfies any of the given patterns. An empty pattern list matches nothing,
// mirroring the "empty array = applies nowhere" Token convention.
func MatchAny(patterns []Glob, path Path) bool {
	for _, g := range patterns {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// A Filter groups zero or more Glob patterns used by Observe to scope which path changes are delivered.
type Filter []Glob

// Match reports whether path satisfies any pattern in the filter. A nil filter matches every path, because an
// unset Observe filter is conventionally treated as "everything".
func (f Filter) Match(path Path) bool {
	if len(f) == 0 {
		return true
	}
	return MatchAny(f, path)
}

// Intersect combines f with scope. An empty filter becomes a single pattern matching scope and everything
// below it; a non-empty filter is returned with every pattern kept verbatim, and no pattern is dropped, even
// one anchored outside scope, since doublestar composition is not associative in general.
func (f Filter) Intersect(scope Path) Filter {
	if len(f) == 0 {
		return Filter{Glob(scopeGlob(scope))}
	}
	out := make(Filter, 0, len(f))
	for _, g := range f {
		out = append(out, g)
	}
	return out
}

func scopeGlob(scope Path) string {
	if scope.IsRoot() {
		return "**"
	}
	return strings.TrimSuffix(scope.String(), PathSeparator) + "/**"
}
