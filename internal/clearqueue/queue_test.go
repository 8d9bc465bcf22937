package clearqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_OrderAndDedup(t *testing.T) {
	q := New()
	assert.True(t, q.IsEmpty())

	assert.True(t, q.Enqueue(7))
	assert.True(t, q.Enqueue(2))
	assert.False(t, q.Enqueue(7))
	assert.True(t, q.Enqueue(9))

	assert.Equal(t, 3, q.Len())
	assert.True(t, q.Contains(2))
	assert.False(t, q.Contains(3))

	assert.Equal(t, []uint32{7, 2, 9}, q.Drain())
	assert.True(t, q.IsEmpty())
	assert.False(t, q.Contains(7))
	assert.Equal(t, uint64(1), q.Drains())
	assert.Equal(t, uint64(3), q.Total())
}

func TestQueue_DrainEmpty(t *testing.T) {
	q := New()
	assert.Empty(t, q.Drain())
	assert.Equal(t, uint64(1), q.Drains())
}

func TestQueue_ReenqueueAfterDrain(t *testing.T) {
	q := New()
	q.Enqueue(4)
	q.Drain()

	assert.True(t, q.Enqueue(4))
	assert.Equal(t, []uint32{4}, q.Drain())
	assert.Equal(t, uint64(2), q.Drains())
}
