package tracegc

// Weak is a non-owning handle to a registered object of type T. It does not
// keep the object alive; Get fails once a cycle has swept it, even if the slot
// has since been reused.
//
// Weak is a small value type and is safe to copy and compare.
type Weak[T any] struct {
	c *Collector
	h Handle
}

// MakeWeak wraps h, for example a handle returned by Track.
func MakeWeak[T any](c *Collector, h Handle) Weak[T] {
	return Weak[T]{c: c, h: h}
}

// Get returns the object if it is still registered under the same generation
// and has type *T.
func (w Weak[T]) Get() (*T, bool) {
	if w.c == nil {
		return nil, false
	}
	obj, ok := w.c.resolveWeak(w.h)
	if !ok {
		return nil, false
	}
	p, ok := obj.(*T)
	return p, ok
}

// IsValid reports whether Get would succeed.
func (w Weak[T]) IsValid() bool {
	_, ok := w.Get()
	return ok
}

// Upgrade returns a strong handle if the object is still alive. Resolution and
// pinning happen atomically, so a cycle cannot sweep the object in between.
func (w Weak[T]) Upgrade() (*Strong[T], bool) {
	if w.c == nil {
		return nil, false
	}
	obj, ok := w.c.resolveAndPin(w.h)
	if !ok {
		return nil, false
	}
	p, ok := obj.(*T)
	if !ok {
		_ = w.c.Unpin(w.h)
		return nil, false
	}
	return newStrong(w.c, w.h, p), true
}

// Handle returns the underlying handle.
func (w Weak[T]) Handle() Handle { return w.h }

// Reset clears w.
func (w *Weak[T]) Reset() { *w = Weak[T]{} }
