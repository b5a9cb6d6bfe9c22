package sim

import (
	"time"
)

// Structs

// ApplyFunc is a variant's effect function: a pure mapping of an operation
// and a state to a successor state. It must be safe to invoke on any
// operation another replica could legally have produced; an error reports an
// operation whose dependency has not arrived yet, never a side effect.
type ApplyFunc[S any, O any] func(op O, state S) (S, error)

// HistoryEntry records one operation a replica emitted
// and the simulation time it was handed to the network.
type HistoryEntry[O any] struct {
	Op        O
	EmittedAt time.Duration
}

// Replica holds one participant's copy of the shared state together with its
// inbound buffer of received operations, its backlog of locally produced
// operations awaiting broadcast, its emission history, its connectivity flag
// and its outbound delay. All queues are FIFO. A replica never touches
// another replica; cross-replica traffic flows through the simulator's
// delivery queue only.
type Replica[S any, O any] struct {
	ID        string
	State     S
	Inbound   []O
	Pending   []O
	Deferred  []O
	History   []HistoryEntry[O]
	Connected bool
	Delay     time.Duration

	apply ApplyFunc[S, O]
}

// Functions

// NewReplica returns a replica over the supplied initial
// state, bound to the variant's apply function.
func NewReplica[S any, O any](id string, initial S, delay time.Duration, connected bool, apply ApplyFunc[S, O]) *Replica[S, O] {

	return &Replica[S, O]{
		ID:        id,
		State:     initial,
		Connected: connected,
		Delay:     delay,
		apply:     apply,
	}
}

// Enqueue appends a received operation to the inbound buffer. Delivery is
// attempted regardless of connectivity; the flag only gates draining.
func (r *Replica[S, O]) Enqueue(op O) {
	r.Inbound = append(r.Inbound, op)
}

// Submit appends a locally produced operation to the backlog.
func (r *Replica[S, O]) Submit(op O) {
	r.Pending = append(r.Pending, op)
}

// Poll performs one replica turn at the supplied simulation time. While
// disconnected it is a no-op: buffer and backlog queue up untouched and are
// processed in full once reconnected. Otherwise the inbound buffer is
// drained completely in FIFO order, then at most one backlogged operation is
// dequeued, applied at the source, recorded in the history and returned for
// broadcast.
func (r *Replica[S, O]) Poll(now time.Duration) (O, bool) {

	var none O

	if !r.Connected {
		return none, false
	}

	r.drainInbound()

	if len(r.Pending) == 0 {
		return none, false
	}

	op := r.Pending[0]
	r.Pending = r.Pending[1:]

	// Source application: the emitting replica folds its own operation
	// through apply here, so apply stays the single source of truth for
	// all state mutation and the network only carries the operation to
	// the other replicas.
	r.applyOne(op)

	r.History = append(r.History, HistoryEntry[O]{
		Op:        op,
		EmittedAt: now,
	})

	return op, true
}

// drainInbound replays all buffered received operations in arrival order.
func (r *Replica[S, O]) drainInbound() {

	for _, op := range r.Inbound {
		r.applyOne(op)
	}

	r.Inbound = r.Inbound[:0]
}

// applyOne folds one operation into the state. An operation whose dependency
// is missing is parked in the deferred queue instead of being dropped; each
// successful apply retriggers the deferred queue because it may have
// delivered the missing dependency.
func (r *Replica[S, O]) applyOne(op O) {

	next, err := r.apply(op, r.State)
	if err != nil {
		r.Deferred = append(r.Deferred, op)
		return
	}

	r.State = next
	r.retryDeferred()
}

// retryDeferred re-attempts parked operations until a full pass makes no
// progress. Operations that still fail stay parked for a later retry.
func (r *Replica[S, O]) retryDeferred() {

	for {

		if len(r.Deferred) == 0 {
			return
		}

		progressed := false
		remaining := r.Deferred[:0]

		for _, op := range r.Deferred {

			next, err := r.apply(op, r.State)
			if err != nil {
				remaining = append(remaining, op)
				continue
			}

			r.State = next
			progressed = true
		}

		r.Deferred = remaining

		if !progressed {
			return
		}
	}
}
