package component

import (
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCaser canonicalizes attribute keys the way `.circ` files spell them
// inconsistently (e.g. "width", "WIDTH", "Width"), following the teacher's
// core/emu.go toTitleCase helper built on the same golang.org/x/text
// packages.
var titleCaser = cases.Title(language.English)

// canonicalAttr normalizes an attribute key to Title case.
func canonicalAttr(key string) string {
	return titleCaser.String(key)
}

// Get looks up an attribute, trying the key as given, then its canonical
// Title-cased form, then any stored key with the same canonical form.
func (a AttrMap) Get(key string) (string, bool) {
	if v, ok := a[key]; ok {
		return v, true
	}
	want := canonicalAttr(key)
	if v, ok := a[want]; ok {
		return v, true
	}
	for k, v := range a {
		if canonicalAttr(k) == want {
			return v, true
		}
	}
	return "", false
}

// Width reads a "Width" attribute, defaulting to def when absent or
// unparseable.
func (a AttrMap) Width(def int) int {
	s, ok := a.Get("Width")
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Int reads an integer attribute, defaulting to def when absent or
// unparseable.
func (a AttrMap) Int(key string, def int) int {
	s, ok := a.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Factory builds one Component instance from builder-supplied attributes
// (spec §4.5 Builder API, §9's "registry is a mapping kind_string ->
// factory_callable").
type Factory func(attrs AttrMap) (Component, error)

// ErrUnknownKind is returned by Registry.New when no factory is registered
// for the requested kind (spec §7 UnknownKind).
type ErrUnknownKind struct{ Kind string }

func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("component: unknown kind %q", e.Kind)
}

// Registry maps factory keys to constructors. The zero value is usable but
// empty; call stdlib.RegisterAll to populate it with the required standard
// library (spec §4.5).
type Registry struct {
	mu       sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for kind. User-registered
// factories (spec §9) use the same call.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}
	r.factories[kind] = f
}

// New builds a component of the given kind, or ErrUnknownKind.
func (r *Registry) New(kind string, attrs AttrMap) (Component, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownKind{Kind: kind}
	}
	return f(attrs)
}

// Kinds lists every registered factory key.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	return out
}
