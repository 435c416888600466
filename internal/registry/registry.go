// Package registry provides an ordered grammar registry for dispatching
// item lines to the grammar that understands them.
package registry

import (
	"sort"
	"sync"

	"koabot/internal/item"
)

// Grammar is implemented by each item-line layout.
type Grammar interface {
	// Name returns the grammar's unique identifier.
	Name() string

	// QuickCheck performs a fast string check before any regex.
	// Returns true if the line MIGHT be handled (false = definitely skip).
	QuickCheck(line string) bool

	// Priority determines dispatch order. Lower number = tried first.
	Priority() int

	// Match extracts raw fields from a trimmed, non-empty line.
	// (nil, nil) means the grammar does not apply. A non-nil error means
	// the grammar claims the line but it is malformed.
	Match(line string) (*item.Fields, error)
}

// Registry holds registered grammars in priority order.
type Registry struct {
	mu       sync.RWMutex
	grammars []Grammar
	sorted   bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a grammar to the default registry.
// Called during init() in each grammar package.
func Register(g Grammar) {
	defaultRegistry.Register(g)
}

// Register adds a grammar to the registry. Registering a second grammar
// with an existing name replaces the first.
func (r *Registry) Register(g Grammar) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.grammars {
		if existing.Name() == g.Name() {
			r.grammars[i] = g
			r.sorted = false
			return
		}
	}
	r.grammars = append(r.grammars, g)
	r.sorted = false
}

// Sort orders grammars by priority. Dispatch sorts lazily, so calling this
// up front only moves the cost to startup.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortLocked()
}

func (r *Registry) sortLocked() {
	if r.sorted {
		return
	}
	// Stable so equal priorities keep registration order.
	sort.SliceStable(r.grammars, func(i, j int) bool {
		return r.grammars[i].Priority() < r.grammars[j].Priority()
	})
	r.sorted = true
}

func (r *Registry) ordered() []Grammar {
	r.mu.RLock()
	if r.sorted {
		gs := r.grammars
		r.mu.RUnlock()
		return gs
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortLocked()
	return r.grammars
}

// DispatchFirst returns the fields from the first grammar that claims line,
// or the error from that grammar. (nil, nil) means no grammar applied.
func (r *Registry) DispatchFirst(line string) (*item.Fields, error) {
	for _, g := range r.ordered() {
		if !g.QuickCheck(line) {
			continue
		}
		f, err := g.Match(line)
		if err != nil {
			return nil, err
		}
		if f != nil {
			if f.Grammar == "" {
				f.Grammar = g.Name()
			}
			return f, nil
		}
	}
	return nil, nil
}

// Count returns the number of registered grammars.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.grammars)
}

// AllGrammars returns the registered grammars in dispatch order.
func (r *Registry) AllGrammars() []Grammar {
	gs := r.ordered()
	out := make([]Grammar, len(gs))
	copy(out, gs)
	return out
}

// Lookup returns the grammar registered under name.
func (r *Registry) Lookup(name string) (Grammar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.grammars {
		if g.Name() == name {
			return g, true
		}
	}
	return nil, false
}
