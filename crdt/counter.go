package crdt

// Structs

// CounterOp is the operation alphabet of the counter
// variant. Its value is the delta contributed to the
// shared total, so applying a multiset of operations
// reduces to integer addition.
type CounterOp int

// Constants

const (
	// Increment raises the counter by one.
	Increment CounterOp = 1

	// Decrement lowers the counter by one.
	Decrement CounterOp = -1
)

// Functions

// NewCounter returns the initial counter state.
func NewCounter(initial int) int {
	return initial
}

// PrepareIncrement is the prepare part of an update
// executed at the source replica. It never consults
// local state because incrementing is always legal.
func PrepareIncrement() CounterOp {
	return Increment
}

// PrepareDecrement is the prepare part of a decrement.
// The plain counter places no precondition on it.
func PrepareDecrement() CounterOp {
	return Decrement
}

// ApplyCounter is the effect part of an update executed
// at all replicas including the source. Integer addition
// is commutative and associative, therefore any delivery
// order of the same operation multiset converges to the
// same total. ApplyCounter never fails.
func ApplyCounter(op CounterOp, state int) (int, error) {
	return state + int(op), nil
}
