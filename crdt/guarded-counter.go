package crdt

// Functions

// PrepareGuardedDecrement is the prepare part of a decrement in the guarded
// counter variant. The source replica refuses to produce the operation while
// its own local state is already zero, so the second return value reports
// whether an operation was produced at all.
//
// The guard is checked against source state only. Receivers apply a delivered
// decrement unconditionally (see ApplyGuardedCounter), which is exactly why
// this variant is not a valid operation-based CRDT: two replicas each locally
// above zero can emit decrements whose combined effect takes a receiver below
// zero, and final states then depend on delivery order.
func PrepareGuardedDecrement(state int) (CounterOp, bool) {

	if state <= 0 {
		return 0, false
	}

	return Decrement, true
}

// ApplyGuardedCounter is the effect part of the guarded counter variant. It
// decrements unconditionally and never re-checks the source-side guard; a
// receiver at zero is pushed to minus one. Clamping here would mask the
// divergence this variant exists to demonstrate.
func ApplyGuardedCounter(op CounterOp, state int) (int, error) {
	return state + int(op), nil
}
