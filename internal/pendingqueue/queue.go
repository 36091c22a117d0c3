// Package pendingqueue implements the context's ordered pending-dispatch
// queue on top of github.com/eapache/queue's ring buffer, avoiding a
// hand-rolled growable slice for what is a classic FIFO producer during
// check() and consumer during dispatch().
package pendingqueue

import "github.com/eapache/queue"

// Queue is a FIFO of arbitrary entries. Not safe for concurrent use; callers
// serialize access under the owning context's mutex.
type Queue struct {
	q *queue.Queue
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{q: queue.New()}
}

// Push appends an entry.
func (q *Queue) Push(v interface{}) {
	q.q.Add(v)
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return q.q.Length()
}

// Pop removes and returns the oldest entry, or nil if empty.
func (q *Queue) Pop() interface{} {
	if q.q.Length() == 0 {
		return nil
	}
	return q.q.Remove()
}

// Clear drops all queued entries, invoking drop for each so callers can
// release references (mirrors the context dropping pending-dispatch
// references at the start of prepare).
func (q *Queue) Clear(drop func(v interface{})) {
	for q.q.Length() > 0 {
		v := q.q.Remove()
		if drop != nil {
			drop(v)
		}
	}
}
