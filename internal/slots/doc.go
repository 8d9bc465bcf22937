// Package slots implements the handle table: a segmented arena of object slots
// addressed by dense uint32 indices.
//
// Each slot carries a generation counter. Freeing a slot bumps the generation
// exactly once, so an (index, generation) pair captured before the slot was
// reused never resolves to the new occupant.
//
// # Layout
//
//	segments ─┬─► [SegmentSize]Slot   indices [0, 1023]
//	          ├─► [SegmentSize]Slot   indices [1024, 2047]
//	          └─► ...
//
// Segments are never moved or released, so a *Slot obtained from At stays
// valid for the lifetime of the table.
//
// # Concurrency
//
// Table is not safe for concurrent use. The collector guards it with its own
// lock.
package slots
