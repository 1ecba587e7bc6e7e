package physics

import "fmt"

// registry maps engine handles back to the wrapper that owns them. Entries
// keep insertion order for iteration; lookups go through the index.
type registry[H comparable, E any] struct {
	kind    string
	entries []registryEntry[H, E]
	index   map[H]E
}

type registryEntry[H comparable, E any] struct {
	handle H
	value  E
}

func newRegistry[H comparable, E any](kind string) *registry[H, E] {
	return &registry[H, E]{kind: kind, index: make(map[H]E)}
}

// insert adds an entry. It reports false if the handle is already present.
func (r *registry[H, E]) insert(h H, e E) bool {
	if _, ok := r.index[h]; ok {
		return false
	}
	r.entries = append(r.entries, registryEntry[H, E]{handle: h, value: e})
	r.index[h] = e
	return true
}

// erase removes the entry for h, keeping the order of the rest.
func (r *registry[H, E]) erase(h H) bool {
	if _, ok := r.index[h]; !ok {
		return false
	}
	delete(r.index, h)
	for i := range r.entries {
		if r.entries[i].handle != h {
			continue
		}
		copy(r.entries[i:], r.entries[i+1:])
		var zero registryEntry[H, E]
		r.entries[len(r.entries)-1] = zero
		r.entries = r.entries[:len(r.entries)-1]
		break
	}
	return true
}

// lookup resolves a handle. A nil handle resolves to the zero wrapper; an
// unknown non-nil handle is a bookkeeping bug and reported as ErrNotRegistered.
func (r *registry[H, E]) lookup(h H) (E, error) {
	var zero H
	if h == zero {
		var none E
		return none, nil
	}
	e, ok := r.index[h]
	if !ok {
		return e, fmt.Errorf("%w: %s %v", ErrNotRegistered, r.kind, h)
	}
	return e, nil
}

func (r *registry[H, E]) contains(h H) bool {
	_, ok := r.index[h]
	return ok
}

func (r *registry[H, E]) len() int {
	return len(r.entries)
}

// values returns a copy of the wrappers in insertion order.
func (r *registry[H, E]) values() []E {
	out := make([]E, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.value)
	}
	return out
}

func (r *registry[H, E]) clear() {
	r.entries = nil
	r.index = make(map[H]E)
}
