package tracegc

import (
	"runtime"
	"sync/atomic"
)

// Strong is an owning handle to a registered object of type T. It holds one
// pin, which keeps the object alive across cycles until Release.
//
// A Strong dropped without Release has its pin released once the Go runtime
// collects it. Release it explicitly to make lifetimes deterministic.
type Strong[T any] struct {
	c        *Collector
	h        Handle
	obj      *T
	released atomic.Bool
	cleanup  runtime.Cleanup
}

type leakedPin struct {
	c *Collector
	h Handle
}

func newStrong[T any](c *Collector, h Handle, obj *T) *Strong[T] {
	s := &Strong[T]{c: c, h: h, obj: obj}
	s.cleanup = runtime.AddCleanup(s, func(p leakedPin) {
		p.c.releaseLeaked(p.h)
	}, leakedPin{c: c, h: h})
	return s
}

// Get returns the object, or nil once the handle has been released or moved.
func (s *Strong[T]) Get() *T {
	if s == nil || s.released.Load() {
		return nil
	}
	return s.obj
}

// Handle returns the underlying handle.
func (s *Strong[T]) Handle() Handle {
	if s == nil {
		return Handle{}
	}
	return s.h
}

// IsValid reports whether the handle is still held and its object registered.
func (s *Strong[T]) IsValid() bool {
	return s != nil && !s.released.Load() && s.c.IsAlive(s.h)
}

// Clone returns a second strong handle to the same object with its own pin.
func (s *Strong[T]) Clone() (*Strong[T], error) {
	if s == nil || s.released.Load() {
		return nil, ErrInvalidHandle
	}
	if err := s.c.Pin(s.h); err != nil {
		return nil, err
	}
	return newStrong(s.c, s.h, s.obj), nil
}

// Move transfers the pin to a new Strong and invalidates s. The pin count is
// unchanged. Moving a released handle returns nil.
func (s *Strong[T]) Move() *Strong[T] {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return nil
	}
	s.cleanup.Stop()
	return newStrong(s.c, s.h, s.obj)
}

// Weak returns a non-owning handle to the same object.
func (s *Strong[T]) Weak() Weak[T] {
	if s == nil {
		return Weak[T]{}
	}
	return Weak[T]{c: s.c, h: s.h}
}

// Release drops the pin. Releasing twice is a no-op.
func (s *Strong[T]) Release() error {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return nil
	}
	s.cleanup.Stop()
	return s.c.Unpin(s.h)
}
