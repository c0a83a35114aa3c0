// Package reserved classifies tenant identifiers the platform keeps for
// itself. Reserved identifiers never resolve to a customer tenant and never
// reach the verification service.
package reserved

import "strings"

// Entry is the special behavior attached to a reserved identifier. The two
// variants are Gateway and Redirect; a reserved identifier may also carry no
// entry at all, in which case traffic is sent back to the root domain.
type Entry interface {
	reservedEntry()
}

// Gateway exposes a reserved identifier as an API-style surface: only the
// allowed path prefixes are served, optionally rewritten under
// RewriteTarget.
type Gateway struct {
	AllowedPrefixes []string
	RewriteTarget   string
}

// Redirect sends all traffic for the identifier to a path on the root
// domain.
type Redirect struct {
	Target string
}

func (Gateway) reservedEntry()  {}
func (Redirect) reservedEntry() {}

// Registry is the fixed reserved-identifier set, built once at startup and
// read-only afterwards.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry builds a registry from the identifier→Entry map. Identifiers
// mapped to nil are reserved without special behavior.
func NewRegistry(entries map[string]Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for id, e := range entries {
		r.entries[strings.ToLower(id)] = e
	}
	return r
}

// Default returns the platform's compiled-in reserved set.
func Default() *Registry {
	return NewRegistry(map[string]Entry{
		"api": Gateway{
			AllowedPrefixes: []string{"/v1", "/v2", "/docs", "/health"},
			RewriteTarget:   "/gateway",
		},
		"admin": Redirect{Target: "/admin"},
		"app":   Redirect{Target: "/login"},

		"dashboard": nil,
		"mail":      nil,
		"blog":      nil,
		"status":    nil,
		"support":   nil,
		"docs":      nil,
		"help":      nil,
		"ftp":       nil,
		"cdn":       nil,
		"staging":   nil,
	})
}

// Lookup returns the entry for id and whether id is reserved at all. A
// reserved identifier without special behavior yields (nil, true).
func (r *Registry) Lookup(id string) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// PathAllowed reports whether path falls under one of the gateway's allowed
// prefixes.
func (g Gateway) PathAllowed(path string) bool {
	for _, prefix := range g.AllowedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
