package workload

import (
	"math/rand"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/alpaylan/crdt-demo/crdt"
	"github.com/alpaylan/crdt-demo/sim"
)

// Structs

// Generator produces and submits one operation per invocation.
type Generator func() error

// Driver adapts a Generator to the scheduler's Stepper interface so the
// same tick loop machinery can pace a workload. A failed generation is
// logged and the driver continues; one bad operation must not stall the
// remaining replicas.
type Driver struct {
	gen    Generator
	logger log.Logger
}

// Variables

// letters is the alphabet both text workloads type from.
var letters = []rune("abcdefghijklmnopqrstuvwxyz")

// palette is the color set the grid workload paints with.
var palette = []string{"red", "green", "blue", "yellow", "purple", "orange"}

// Functions

// NewDriver wraps a generator for use with sim.Scheduler.
func NewDriver(gen Generator, logger log.Logger) *Driver {

	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Driver{
		gen:    gen,
		logger: logger,
	}
}

// Step implements sim.Stepper.
func (d *Driver) Step(now time.Duration) {

	if err := d.gen(); err != nil {
		level.Warn(d.logger).Log(
			"msg", "workload failed to submit operation",
			"err", err,
		)
	}
}

// Counter submits random increments and decrements, biased towards
// increments so totals drift upwards over time.
func Counter(svc sim.Service[int, crdt.CounterOp], replicas []string, rng *rand.Rand) Generator {

	return func() error {

		target := replicas[rng.Intn(len(replicas))]

		op := crdt.PrepareIncrement()
		if rng.Intn(3) == 0 {
			op = crdt.PrepareDecrement()
		}

		return svc.SubmitOperation(target, op)
	}
}

// GuardedCounter behaves like Counter but runs decrements through the
// source-side guard against the submitting replica's own current state. A
// suppressed decrement submits nothing, mirroring a user whose button press
// is refused locally.
func GuardedCounter(svc sim.Service[int, crdt.CounterOp], replicas []string, rng *rand.Rand) Generator {

	return func() error {

		target := replicas[rng.Intn(len(replicas))]

		if rng.Intn(3) != 0 {
			return svc.SubmitOperation(target, crdt.PrepareIncrement())
		}

		state, found := snapshotState(svc.Snapshot(), target)
		if !found {
			return nil
		}

		op, ok := crdt.PrepareGuardedDecrement(state)
		if !ok {
			return nil
		}

		return svc.SubmitOperation(target, op)
	}
}

// Grid paints random in-bounds cells with random palette colors.
func Grid(svc sim.Service[crdt.Grid, crdt.GridOp], replicas []string, rng *rand.Rand) Generator {

	return func() error {

		target := replicas[rng.Intn(len(replicas))]

		state, found := snapshotState(svc.Snapshot(), target)
		if !found {
			return nil
		}

		op, ok := crdt.PreparePaint(state, rng.Intn(state.Width), rng.Intn(state.Height), palette[rng.Intn(len(palette))])
		if !ok {
			return nil
		}

		return svc.SubmitOperation(target, op)
	}
}

// NaiveText simulates a user editing the replica's currently visible
// content: it derives a randomly edited successor, diffs the two and
// submits the resulting operation run.
func NaiveText(svc sim.Service[string, crdt.NaiveTextOp], replicas []string, rng *rand.Rand) Generator {

	return func() error {

		target := replicas[rng.Intn(len(replicas))]

		prev, found := snapshotState(svc.Snapshot(), target)
		if !found {
			return nil
		}

		for _, op := range crdt.DiffNaiveText(prev, mutateContent(prev, rng)) {

			if err := svc.SubmitOperation(target, op); err != nil {
				return err
			}
		}

		return nil
	}
}

// SequenceText simulates typing and deleting at each replica's own cursor,
// minting operation ids through a per-replica editor.
func SequenceText(svc sim.Service[crdt.SeqText, crdt.SeqTextOp], replicas []string, rng *rand.Rand) Generator {

	editors := make(map[string]*crdt.SeqEditor, len(replicas))
	for _, id := range replicas {
		editors[id] = crdt.NewSeqEditor(id)
	}

	return func() error {

		target := replicas[rng.Intn(len(replicas))]

		state, found := snapshotState(svc.Snapshot(), target)
		if !found {
			return nil
		}

		// Mostly type, occasionally delete at the cursor.
		if rng.Intn(4) == 0 {

			op, ok := editors[target].Delete(state)
			if !ok {
				return nil
			}

			return svc.SubmitOperation(target, crdt.SeqTextOp(op))
		}

		op := editors[target].Insert(state, letters[rng.Intn(len(letters))])

		return svc.SubmitOperation(target, crdt.SeqTextOp(op))
	}
}

// mutateContent applies one random local edit: an insertion at a random
// offset or, for non-empty content, occasionally a removal.
func mutateContent(content string, rng *rand.Rand) string {

	runes := []rune(content)

	if (len(runes) > 0) && (rng.Intn(4) == 0) {

		pos := rng.Intn(len(runes))

		return string(append(runes[:pos:pos], runes[(pos+1):]...))
	}

	pos := 0
	if len(runes) > 0 {
		pos = rng.Intn(len(runes) + 1)
	}

	out := make([]rune, 0, (len(runes) + 1))
	out = append(out, runes[:pos]...)
	out = append(out, letters[rng.Intn(len(letters))])
	out = append(out, runes[pos:]...)

	return string(out)
}

// snapshotState extracts one replica's state from a snapshot set.
func snapshotState[S any](snapshots []sim.ReplicaSnapshot[S], id string) (S, bool) {

	for _, snap := range snapshots {

		if snap.ID == id {
			return snap.State, true
		}
	}

	var none S
	return none, false
}
