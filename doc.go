// Package tracegc provides a tracing mark/sweep garbage collector for objects
// referenced through generation-stamped handles.
//
// Objects are registered with a Collector and addressed by a Handle, a slot
// index paired with a generation. When a slot is reclaimed its generation is
// bumped, so every handle issued for the previous occupant stops resolving
// even after the slot is reused.
//
// # Quick Start
//
//	ctx := context.Background()
//	gc := tracegc.New(tracegc.WithFinalizerWorkers(4))
//
//	// Register pins the object once. The Strong handle owns that pin.
//	s, _ := tracegc.Register(ctx, gc, &Node{Name: "root"}, TagNode)
//	w := s.Weak()
//
//	_ = s.Release()
//	stats, _ := gc.Collect(ctx) // the node is unreachable and is finalized
//
//	_, ok := w.Get() // false
//
// # Roots and Edges
//
// A cycle marks everything reachable from the roots. Roots are the handles
// returned by every RootProvider plus every slot with a non-zero pin count.
// Edges are discovered by calling TraceReferences on payloads that implement
// Tracer. Handles that no longer resolve are ignored wherever they appear.
//
// # Strong and Weak Handles
//
// Strong holds a pin and keeps its object alive until Release. Weak holds no
// pin; Get returns the object only while it is still registered under the
// same generation, and Upgrade atomically turns it back into a Strong.
//
// # Finalization
//
// Swept objects stop resolving before their finalizers run. Finalizers run
// without the collector lock, in parallel up to WithFinalizerWorkers, and must
// not register new objects: Register called with the finalizer context fails
// with ErrReentrantFinalize.
//
// # Thread Safety
//
// All Collector methods are safe for concurrent use. Only one cycle runs at a
// time; a concurrent Collect returns ErrCollectionInProgress. Objects
// registered while a cycle is running survive that cycle.
package tracegc
