// Package clearqueue holds the slot indices a sweep has condemned and that
// still need their finalizers run.
//
// The queue keeps insertion order in a slice and membership in a roaring
// bitmap, so an index enqueued twice within one cycle is finalized once.
// Drain hands the whole batch to the finalization step and leaves the queue
// empty for the next cycle.
package clearqueue
