// Package queue implements the bounded request backlog that serializes
// outstanding requests for a single REQ socket.
package queue

import "github.com/sirupsen/logrus"

// DefaultCapacity bounds a queue when the caller does not specify one.
// Sustained producer pressure drops the oldest pending request rather
// than blocking the loop or rejecting the newest arrival, since a
// dropped outbound request is simply re-issued by the next resync.
const DefaultCapacity = 256

// Queue is a bounded FIFO of arbitrary payloads, drained one-at-a-time as
// its socket becomes idle.
type Queue struct {
	items    []interface{}
	capacity int
	dropped  int
}

// New returns an empty Queue bounded at capacity. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Push appends an item, dropping the oldest queued item first if the
// queue is already at capacity.
func (q *Queue) Push(item interface{}) {
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		q.dropped++
		logrus.WithField("capacity", q.capacity).Warn("request queue full, dropping oldest entry")
	}
	q.items = append(q.items, item)
}

// Pop removes and returns the front item, or nil, false if empty.
func (q *Queue) Pop() (interface{}, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len reports the number of queued items.
func (q *Queue) Len() int {
	return len(q.items)
}

// Clear empties the queue, used on resync initiation and on socket
// timeout-reconnect for the affected REQ role.
func (q *Queue) Clear() {
	q.items = nil
}

// Dropped reports the cumulative number of items evicted by overflow.
func (q *Queue) Dropped() int {
	return q.dropped
}
