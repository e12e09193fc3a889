package observer

import (
	"slices"
	"sync"
)

// registry is an ordered list of handles.
//
// The backing slice is copy-on-write: it is replaced, never modified in
// place, so a snapshot taken by Publish stays valid while subscribers are
// added or removed. The mutex is only used when the owning publisher was
// built with WithThreadSafety.
type registry[H comparable] struct {
	mu   sync.RWMutex
	safe bool
	subs []H
}

// add appends h and returns the new size.
func (r *registry[H]) add(h H) int {
	if r.safe {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	// subs is always clipped, so append allocates a fresh array.
	r.subs = append(r.subs, h)
	r.subs = slices.Clip(r.subs)
	return len(r.subs)
}

// remove drops every occurrence of h and returns how many were removed
// together with the new size.
func (r *registry[H]) remove(h H) (removed, n int) {
	if r.safe {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	if !slices.Contains(r.subs, h) {
		return 0, len(r.subs)
	}

	before := len(r.subs)
	next := slices.DeleteFunc(slices.Clone(r.subs), func(s H) bool { return s == h })
	if len(next) == 0 {
		next = nil
	}
	r.subs = slices.Clip(next)
	return before - len(r.subs), len(r.subs)
}

// snapshot returns the current handles. The result must not be modified.
func (r *registry[H]) snapshot() []H {
	if r.safe {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	return r.subs
}

func (r *registry[H]) len() int {
	return len(r.snapshot())
}
