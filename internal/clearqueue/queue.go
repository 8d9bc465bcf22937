package clearqueue

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Queue is an ordered, de-duplicated index queue. It is not safe for
// concurrent use.
type Queue struct {
	order   []uint32
	members *roaring.Bitmap
	drains  uint64
	total   uint64
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{members: roaring.New()}
}

// Enqueue appends idx unless it is already queued.
// It reports whether idx was added.
func (q *Queue) Enqueue(idx uint32) bool {
	if !q.members.CheckedAdd(idx) {
		return false
	}
	q.order = append(q.order, idx)
	q.total++
	return true
}

// Drain returns the queued indices in enqueue order and empties the queue.
func (q *Queue) Drain() []uint32 {
	out := q.order
	q.order = nil
	q.members.Clear()
	q.drains++
	return out
}

// Contains reports whether idx is queued.
func (q *Queue) Contains(idx uint32) bool {
	return q.members.Contains(idx)
}

// Len returns the number of queued indices.
func (q *Queue) Len() int {
	return len(q.order)
}

// IsEmpty reports whether nothing is queued.
func (q *Queue) IsEmpty() bool {
	return len(q.order) == 0
}

// Drains returns how many times Drain was called.
func (q *Queue) Drains() uint64 {
	return q.drains
}

// Total returns how many indices were ever enqueued.
func (q *Queue) Total() uint64 {
	return q.total
}
