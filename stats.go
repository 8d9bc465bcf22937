package tracegc

import "time"

// CollectionStats describes one completed cycle.
type CollectionStats struct {
	Cycle          uint64        // 1-based index of the completed cycle
	Roots          int           // live roots supplied by providers
	Marked         int           // slots reached during marking, pinned slots included
	Swept          int           // slots reclaimed
	PinnedRetained int           // unmarked slots kept because they were pinned after marking
	BornRetained   int           // unmarked slots kept because they were registered mid-cycle
	Live           int           // live slots after the sweep
	BytesReclaimed int64         // bytes reported by finalization
	Duration       time.Duration // wall time of the cycle
}

// Stats is a point-in-time view of a Collector.
type Stats struct {
	TotalObjects int    // live registered objects
	LastSwept    int    // objects reclaimed by the most recent cycle
	TotalSwept   uint64 // objects reclaimed since creation
	Cycles       uint64 // completed cycles
	Capacity     uint32 // maximum number of slots
	Slots        uint32 // slots ever allocated
	FreeSlots    uint32 // slots waiting on the free-list
	MemoryUsage  int64  // accounted bytes of live objects
	Collecting   bool   // a cycle is running
}
