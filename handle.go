package tracegc

import (
	"context"
	"fmt"
)

// TypeTag identifies the engine-level type of a managed object. The collector
// never interprets it; it is handed back to finalizers and diagnostics.
type TypeTag uint32

// Handle is an opaque, generation-stamped reference to a table slot.
//
// Handles are comparable. The zero Handle never resolves.
type Handle struct {
	index uint32
	gen   uint32
}

// Index returns the slot index.
func (h Handle) Index() uint32 { return h.index }

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint32 { return h.gen }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Equal reports whether h and o name the same slot generation.
func (h Handle) Equal(o Handle) bool { return h == o }

func (h Handle) String() string {
	return fmt.Sprintf("handle(%d@%d)", h.index, h.gen)
}

// Tracer is implemented by managed objects that reference other managed
// objects. TraceReferences must call yield once per outgoing reference.
//
// It is called with the collector lock held and must not call back into the
// collector.
type Tracer interface {
	TraceReferences(yield func(Handle))
}

// Finalizer is implemented by objects that need cleanup when collected and no
// FinalizeFunc is configured.
//
// The context marks the call as a finalizer. It is the only way the collector
// can detect re-entrancy: registrations made with it fail with
// ErrReentrantFinalize, while registrations made with an unrelated context
// are not detected.
type Finalizer interface {
	Finalize(ctx context.Context)
}

// FinalizeFunc runs an object's destructor once it has been swept. It returns
// the number of bytes reclaimed.
//
// The context marks the call as a finalizer and is the only way the collector
// can detect re-entrancy. Registering with it fails with ErrReentrantFinalize;
// registering with an unrelated context is not detected.
type FinalizeFunc func(ctx context.Context, obj any, tag TypeTag) (int64, error)

// SizeFunc estimates the bytes an object accounts for against the memory limit.
type SizeFunc func(obj any, tag TypeTag) int64

// RootProvider produces the current root set. Roots is called once per cycle,
// without the collector lock held, and must not mutate collector state.
type RootProvider interface {
	Roots(ctx context.Context) ([]Handle, error)
}

// RootProviderFunc adapts a function to RootProvider.
type RootProviderFunc func(ctx context.Context) ([]Handle, error)

// Roots implements RootProvider.
func (f RootProviderFunc) Roots(ctx context.Context) ([]Handle, error) { return f(ctx) }

// StaticRoots is a RootProvider returning a fixed set of handles.
type StaticRoots []Handle

// Roots implements RootProvider.
func (s StaticRoots) Roots(context.Context) ([]Handle, error) { return s, nil }

type finalizingKey struct{}

func withFinalizing(ctx context.Context) context.Context {
	return context.WithValue(ctx, finalizingKey{}, true)
}

func isFinalizing(ctx context.Context) bool {
	v, _ := ctx.Value(finalizingKey{}).(bool)
	return v
}
