package markbits

import (
	"github.com/bits-and-blooms/bitset"
)

// Set is a dense mark bitset. It is not safe for concurrent use.
type Set struct {
	bits *bitset.BitSet
}

// New creates a set able to hold n bits without growing.
func New(n uint) *Set {
	return &Set{bits: bitset.New(n)}
}

// Grow ensures the set holds at least n bits. New bits are unmarked.
func (s *Set) Grow(n uint) {
	if n == 0 || n <= s.bits.Len() {
		return
	}
	// Setting the last bit extends the underlying words.
	s.bits.Set(n - 1)
	s.bits.Clear(n - 1)
}

// ResetAll clears every bit.
func (s *Set) ResetAll() {
	s.bits.ClearAll()
}

// Mark sets the bit for idx and returns true if it was not already set.
func (s *Set) Mark(idx uint32) bool {
	i := uint(idx)
	if s.bits.Test(i) {
		return false
	}
	s.bits.Set(i)
	return true
}

// Unmark clears the bit for idx.
func (s *Set) Unmark(idx uint32) {
	s.bits.Clear(uint(idx))
}

// IsMarked reports whether idx is marked. Indices beyond Len are unmarked.
func (s *Set) IsMarked(idx uint32) bool {
	return s.bits.Test(uint(idx))
}

// Len returns the number of bits the set currently holds.
func (s *Set) Len() uint {
	return s.bits.Len()
}

// Count returns the number of marked bits.
func (s *Set) Count() uint {
	return s.bits.Count()
}
