package markbits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_MarkOnce(t *testing.T) {
	s := New(16)

	assert.True(t, s.Mark(3))
	assert.False(t, s.Mark(3))
	assert.True(t, s.IsMarked(3))
	assert.False(t, s.IsMarked(4))
	assert.Equal(t, uint(1), s.Count())
}

func TestSet_ResetAll(t *testing.T) {
	s := New(128)
	for i := uint32(0); i < 128; i += 3 {
		s.Mark(i)
	}
	assert.NotZero(t, s.Count())

	s.ResetAll()
	assert.Zero(t, s.Count())
	for i := uint32(0); i < 128; i++ {
		assert.False(t, s.IsMarked(i))
	}
	assert.Equal(t, uint(128), s.Len())
}

func TestSet_Grow(t *testing.T) {
	s := New(0)
	assert.Equal(t, uint(0), s.Len())

	s.Grow(1000)
	assert.GreaterOrEqual(t, s.Len(), uint(1000))
	assert.Zero(t, s.Count())
	assert.False(t, s.IsMarked(999))

	s.Mark(999)
	s.Grow(10) // never shrinks
	assert.True(t, s.IsMarked(999))
	assert.GreaterOrEqual(t, s.Len(), uint(1000))
}

func TestSet_OutOfRange(t *testing.T) {
	s := New(8)
	assert.False(t, s.IsMarked(1<<20))

	// Marking beyond Len extends the set.
	assert.True(t, s.Mark(100))
	assert.True(t, s.IsMarked(100))
}

func TestSet_Unmark(t *testing.T) {
	s := New(8)
	s.Mark(5)
	s.Unmark(5)
	assert.False(t, s.IsMarked(5))
	assert.True(t, s.Mark(5))
}
