package sim

import (
	"time"
)

// Structs

// InFlight is one message travelling the simulated network: an operation
// tagged with its origin and the simulation time it becomes deliverable.
type InFlight[O any] struct {
	Origin string
	Op     O
	DueAt  time.Duration
}

// DeliveryQueue orders in-flight messages by insertion, which equals
// emission order. Messages due in the same tick are flushed in that order;
// no ordering is guaranteed across different origins beyond it.
type DeliveryQueue[O any] struct {
	msgs []InFlight[O]
}

// Functions

// Push appends a message to the queue.
func (q *DeliveryQueue[O]) Push(msg InFlight[O]) {
	q.msgs = append(q.msgs, msg)
}

// TakeDue removes and returns all messages whose due time has passed at the
// supplied simulation time, preserving queue order among them as well as
// among the messages left behind.
func (q *DeliveryQueue[O]) TakeDue(now time.Duration) []InFlight[O] {

	var due []InFlight[O]

	remaining := q.msgs[:0]
	for _, msg := range q.msgs {

		if msg.DueAt <= now {
			due = append(due, msg)
			continue
		}

		remaining = append(remaining, msg)
	}

	q.msgs = remaining

	return due
}

// Len returns the number of messages still in flight.
func (q *DeliveryQueue[O]) Len() int {
	return len(q.msgs)
}
