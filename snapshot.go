package tracegc

import "github.com/hupe1980/tracegc/internal/slots"

// SlotInfo describes one occupied slot.
type SlotInfo struct {
	Handle Handle
	Tag    TypeTag
	Pins   uint32
	Addr   uintptr
	Size   int64

	// Finalizing is set for slots swept by a running cycle whose finalizer has
	// not completed.
	Finalizing bool

	// Refs are the outgoing edges reported by a Tracer payload.
	Refs []Handle
}

// Snapshot returns every occupied slot in index order.
//
// Tracer payloads are walked with the read lock held, so TraceReferences must
// not call back into the collector.
func (c *Collector) Snapshot() []SlotInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]SlotInfo, 0, c.table.Len()-c.table.FreeCount())
	for idx := range c.table.Len() {
		s := c.table.At(idx)
		if s.State == slots.StateFree {
			continue
		}
		info := SlotInfo{
			Handle:     Handle{index: idx, gen: s.Gen},
			Tag:        TypeTag(s.Tag),
			Pins:       s.Pins,
			Addr:       s.Addr,
			Size:       s.Size,
			Finalizing: s.State == slots.StateFinalizing,
		}
		if tr, ok := s.Obj.(Tracer); ok {
			tr.TraceReferences(func(h Handle) {
				info.Refs = append(info.Refs, h)
			})
		}
		out = append(out, info)
	}
	return out
}

// NewHandle rebuilds a handle from its index and generation, for example when
// reading a heap dump. The handle only resolves if the slot still carries that
// generation.
func NewHandle(index, generation uint32) Handle {
	return Handle{index: index, gen: generation}
}
