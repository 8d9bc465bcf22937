package slots

import (
	"errors"
	"math"
)

const (
	// SegmentBits determines how many slots share one segment.
	SegmentBits = 10
	// SegmentSize is the number of slots per segment.
	SegmentSize = 1 << SegmentBits
	segmentMask = SegmentSize - 1

	// FirstGeneration is the generation of a slot that has never been freed.
	// Generation 0 is reserved so the zero handle never resolves.
	FirstGeneration uint32 = 1

	// DefaultMaxSlots is the slot cap used when none is configured.
	DefaultMaxSlots = 1 << 24

	noFree = math.MaxUint32
)

// ErrFull is returned when the table has reached its slot cap and the
// free-list is empty.
var ErrFull = errors.New("slots: table full")

// State describes the lifecycle phase of a slot.
type State uint8

const (
	// StateFree marks a slot that sits on the free-list.
	StateFree State = iota
	// StateLive marks a slot holding a registered object.
	StateLive
	// StateFinalizing marks a swept slot whose finalizer has not completed.
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateLive:
		return "live"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Slot is one entry of the table.
type Slot struct {
	Obj   any
	Addr  uintptr
	Tag   uint32
	Gen   uint32
	Pins  uint32
	Born  uint64 // collector epoch at allocation
	Size  int64  // accounted bytes
	State State

	nextFree uint32
}

// Table is the handle table.
type Table struct {
	segments []*[SegmentSize]Slot
	length   uint32 // high-water mark of allocated indices
	freeHead uint32
	free     uint32
	live     uint32
	maxSlots uint32
	reuses   uint64
}

// New creates a table that never holds more than maxSlots slots.
// A zero maxSlots selects DefaultMaxSlots.
func New(maxSlots uint32) *Table {
	if maxSlots == 0 {
		maxSlots = DefaultMaxSlots
	}
	return &Table{
		freeHead: noFree,
		maxSlots: maxSlots,
	}
}

// Allocate returns a live slot index, reusing the most recently freed slot
// when one is available. The slot's generation is left untouched.
func (t *Table) Allocate() (uint32, error) {
	if t.freeHead != noFree {
		idx := t.freeHead
		s := t.at(idx)
		t.freeHead = s.nextFree
		t.free--
		t.reuses++
		s.nextFree = noFree
		s.State = StateLive
		t.live++
		return idx, nil
	}

	if t.length >= t.maxSlots {
		return 0, ErrFull
	}

	idx := t.length
	if int(idx>>SegmentBits) >= len(t.segments) {
		t.segments = append(t.segments, new([SegmentSize]Slot))
	}
	t.length++

	s := t.at(idx)
	s.Gen = FirstGeneration
	s.nextFree = noFree
	s.State = StateLive
	t.live++
	return idx, nil
}

// Detach moves a live slot into the finalizing state and clears its payload.
// It returns the payload so the caller can finalize it. The slot keeps its
// index and generation until Free is called.
func (t *Table) Detach(idx uint32) (any, bool) {
	s := t.At(idx)
	if s == nil || s.State != StateLive {
		return nil, false
	}
	obj := s.Obj
	s.Obj = nil
	s.State = StateFinalizing
	t.live--
	return obj, true
}

// Free clears the slot, bumps its generation and pushes it onto the
// free-list. Freeing a slot that is already free is a no-op.
func (t *Table) Free(idx uint32) {
	s := t.At(idx)
	if s == nil || s.State == StateFree {
		return
	}
	if s.State == StateLive {
		t.live--
	}

	gen := s.Gen + 1
	if gen == 0 {
		gen = FirstGeneration
	}

	*s = Slot{
		Gen:      gen,
		State:    StateFree,
		nextFree: t.freeHead,
	}
	t.freeHead = idx
	t.free++
}

// Resolve returns the payload of a live slot if gen matches its generation.
func (t *Table) Resolve(idx, gen uint32) (any, bool) {
	s := t.At(idx)
	if s == nil || s.Gen != gen || s.State != StateLive || s.Obj == nil {
		return nil, false
	}
	return s.Obj, true
}

// Valid reports whether (idx, gen) names a live slot.
func (t *Table) Valid(idx, gen uint32) bool {
	s := t.At(idx)
	return s != nil && s.Gen == gen && s.State == StateLive
}

// At returns the slot at idx, or nil when idx was never allocated.
func (t *Table) At(idx uint32) *Slot {
	if idx >= t.length {
		return nil
	}
	return t.at(idx)
}

func (t *Table) at(idx uint32) *Slot {
	return &t.segments[idx>>SegmentBits][idx&segmentMask]
}

// ForEachLive calls fn for each live slot in index order.
// Iteration stops when fn returns false.
func (t *Table) ForEachLive(fn func(idx uint32, s *Slot) bool) {
	for idx := uint32(0); idx < t.length; idx++ {
		s := t.at(idx)
		if s.State != StateLive {
			continue
		}
		if !fn(idx, s) {
			return
		}
	}
}

// Len returns the number of indices ever allocated (live, finalizing or free).
func (t *Table) Len() uint32 { return t.length }

// Live returns the number of live slots.
func (t *Table) Live() uint32 { return t.live }

// FreeCount returns the number of slots on the free-list.
func (t *Table) FreeCount() uint32 { return t.free }

// Cap returns the configured slot cap.
func (t *Table) Cap() uint32 { return t.maxSlots }

// Reuses returns how many allocations were served from the free-list.
func (t *Table) Reuses() uint64 { return t.reuses }
