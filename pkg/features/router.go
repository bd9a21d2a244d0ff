package features

import (
	"fmt"
	"strings"

	"github.com/wayneeseguin/sluice/pkg/types"
)

type compiledRoute struct {
	prefix   string
	appender string
	level    types.Level
}

// Router maps a record's target to an appender name and enforces each
// route's level threshold. The table is built once and never mutated, so
// the dispatch worker reads it without locks.
//
// Resolution picks the longest matching prefix; between equal-length
// matches the later-registered route wins. Prefixes match on segment
// boundaries only: "a" matches "a", "a.b" and "a::b" but never "ab".
// The two separators are interchangeable, so a rule for "a::b" also
// covers "a.b.c". Targets matching no route fall back to the root
// appender and the root level passed to Resolve, which lets the engine
// keep its default level dynamic without touching the table.
type Router struct {
	routes       []compiledRoute
	rootAppender string
}

// NewRouter compiles a route table. Every route must reference a known
// appender and carry a non-empty prefix; trailing separators on prefixes
// are dropped and "::" is canonicalized to ".". Errors here are
// configuration errors surfaced before the engine starts.
func NewRouter(rootAppender string, routes []types.Route, known map[string]bool) (*Router, error) {
	if !known[rootAppender] {
		return nil, fmt.Errorf("root appender %q is not registered", rootAppender)
	}

	compiled := make([]compiledRoute, 0, len(routes))
	for i, rt := range routes {
		prefix := strings.TrimRight(strings.TrimSpace(rt.Prefix), ".:")
		prefix = strings.ReplaceAll(prefix, "::", ".")
		if prefix == "" {
			return nil, fmt.Errorf("route %d: empty prefix (unmatched targets already use the root appender)", i)
		}
		if !known[rt.Appender] {
			return nil, fmt.Errorf("route %d (%q): unknown appender %q", i, rt.Prefix, rt.Appender)
		}
		compiled = append(compiled, compiledRoute{
			prefix:   prefix,
			appender: rt.Appender,
			level:    rt.Level,
		})
	}

	return &Router{
		routes:       compiled,
		rootAppender: rootAppender,
	}, nil
}

// Resolve returns the appender responsible for target. rootLevel is the
// threshold applied when no route matches. ok is false when the record's
// level is below the winning route's threshold, in which case the event
// must be discarded without further processing.
func (r *Router) Resolve(target string, level, rootLevel types.Level) (appender string, ok bool) {
	best := -1
	bestLen := -1
	for i := range r.routes {
		rt := &r.routes[i]
		if !prefixMatches(target, rt.prefix) {
			continue
		}
		// >= lets a later route of equal length take precedence.
		if len(rt.prefix) >= bestLen {
			best = i
			bestLen = len(rt.prefix)
		}
	}

	if best < 0 {
		return r.rootAppender, level >= rootLevel
	}
	rt := &r.routes[best]
	return rt.appender, level >= rt.level
}

// MinLevel returns the lowest threshold across all routes and ok=true
// when at least one route exists. The engine folds this into its
// producer-side level check so a permissive route is never starved by a
// stricter default level.
func (r *Router) MinLevel() (types.Level, bool) {
	if len(r.routes) == 0 {
		return 0, false
	}
	min := r.routes[0].level
	for _, rt := range r.routes[1:] {
		if rt.level < min {
			min = rt.level
		}
	}
	return min, true
}

// prefixMatches reports whether the canonical prefix matches target on
// a segment boundary. The target may mix "." and "::" separators; each
// "." in the prefix consumes either form. No allocation: the worker
// calls this per record.
func prefixMatches(target, prefix string) bool {
	ti := 0
	for pi := 0; pi < len(prefix); pi++ {
		if ti >= len(target) {
			return false
		}
		if prefix[pi] == '.' {
			n := separatorLen(target[ti:])
			if n == 0 {
				return false
			}
			ti += n
			continue
		}
		if target[ti] != prefix[pi] {
			return false
		}
		ti++
	}
	if ti == len(target) {
		return true
	}
	return separatorLen(target[ti:]) > 0
}

// separatorLen returns the byte length of the segment separator at the
// start of s, or zero when s does not begin with one.
func separatorLen(s string) int {
	if strings.HasPrefix(s, "::") {
		return 2
	}
	if s != "" && s[0] == '.' {
		return 1
	}
	return 0
}
