package crdt

import (
	"testing"

	"github.com/pkg/errors"
)

// Functions

// applySeqAll folds a delivery order of sequence operations into a state and
// fails the test on any apply error.
func applySeqAll(t *testing.T, ops []SeqTextOp, state SeqText) SeqText {

	for _, op := range ops {

		next, err := ApplySequenceText(op, state)
		if err != nil {
			t.Fatalf("[crdt.applySeqAll] Expected apply to succeed but received: '%s'\n", err.Error())
		}

		state = next
	}

	return state
}

// TestSeqInsertAtRoot checks insertion after the sentinel root anchor.
func TestSeqInsertAtRoot(t *testing.T) {

	alice := NewSeqEditor("alice")
	state := NewSequenceText("alice")

	op := alice.Insert(state, 'h')
	if op.AfterID != RootAnchor {
		t.Fatalf("[crdt.TestSeqInsertAtRoot] Expected root anchor but received '%s'\n", op.AfterID)
	}

	state = applySeqAll(t, []SeqTextOp{op}, state)

	if state.String() != "h" {
		t.Fatalf("[crdt.TestSeqInsertAtRoot] Expected 'h' but received '%s'\n", state.String())
	}

	// The authoring replica's cursor follows the insert.
	if state.Cursor != op.OpID {
		t.Fatalf("[crdt.TestSeqInsertAtRoot] Expected cursor '%s' but received '%s'\n", op.OpID, state.Cursor)
	}
}

// TestSeqTyping checks that consecutive inserts by one editor chain on the
// moving cursor and produce the typed string.
func TestSeqTyping(t *testing.T) {

	alice := NewSeqEditor("alice")
	state := NewSequenceText("alice")

	for _, ch := range "hello" {
		op := alice.Insert(state, ch)
		state = applySeqAll(t, []SeqTextOp{op}, state)
	}

	if state.String() != "hello" {
		t.Fatalf("[crdt.TestSeqTyping] Expected 'hello' but received '%s'\n", state.String())
	}
}

// TestSeqConcurrentRootInsertConverges replays the canonical conflict: two
// replicas concurrently insert after the root anchor. Both delivery orders
// must produce the identical id order on both replicas.
func TestSeqConcurrentRootInsertConverges(t *testing.T) {

	opX := SeqInsert{OpID: "1@alice", AfterID: RootAnchor, Char: 'x'}
	opY := SeqInsert{OpID: "1@bob", AfterID: RootAnchor, Char: 'y'}

	first := applySeqAll(t, []SeqTextOp{opX, opY}, NewSequenceText("carol"))
	second := applySeqAll(t, []SeqTextOp{opY, opX}, NewSequenceText("carol"))

	firstIDs := first.IDOrder()
	secondIDs := second.IDOrder()

	if len(firstIDs) != 2 || len(secondIDs) != 2 {
		t.Fatalf("[crdt.TestSeqConcurrentRootInsertConverges] Expected 2 entries on both replicas but received %d and %d\n", len(firstIDs), len(secondIDs))
	}

	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Fatalf("[crdt.TestSeqConcurrentRootInsertConverges] Expected identical id order but received %v and %v\n", firstIDs, secondIDs)
		}
	}

	if first.String() != second.String() {
		t.Fatalf("[crdt.TestSeqConcurrentRootInsertConverges] Expected identical content but received '%s' and '%s'\n", first.String(), second.String())
	}
}

// TestSeqAnchorTieBreak checks the placement rule directly: entries sharing
// an anchor sit in descending id order, whatever order they arrived in.
func TestSeqAnchorTieBreak(t *testing.T) {

	// Both arrival orders of the two root-anchored inserts must yield
	// the same sibling order, with alice's chained child staying glued
	// to its parent.
	orders := [][]SeqTextOp{
		{
			SeqInsert{OpID: "1@alice", AfterID: RootAnchor, Char: 'a'},
			SeqInsert{OpID: "2@alice", AfterID: "1@alice", Char: 'b'},
			SeqInsert{OpID: "1@bob", AfterID: RootAnchor, Char: 'c'},
		},
		{
			SeqInsert{OpID: "1@bob", AfterID: RootAnchor, Char: 'c'},
			SeqInsert{OpID: "1@alice", AfterID: RootAnchor, Char: 'a'},
			SeqInsert{OpID: "2@alice", AfterID: "1@alice", Char: 'b'},
		},
	}

	wantIDs := []string{"1@bob", "1@alice", "2@alice"}

	for n, order := range orders {

		state := applySeqAll(t, order, NewSequenceText("carol"))

		gotIDs := state.IDOrder()
		for i := range wantIDs {
			if gotIDs[i] != wantIDs[i] {
				t.Fatalf("[crdt.TestSeqAnchorTieBreak] Expected id order %v for arrival order %d but received %v\n", wantIDs, n, gotIDs)
			}
		}

		if state.String() != "cab" {
			t.Fatalf("[crdt.TestSeqAnchorTieBreak] Expected 'cab' but received '%s'\n", state.String())
		}
	}
}

// TestSeqInsertBetween checks editing behavior when the cursor moves back: a
// fresh insert at an anchor with an existing chained child lands directly
// after the anchor because its id dominates the older sibling's.
func TestSeqInsertBetween(t *testing.T) {

	alice := NewSeqEditor("alice")
	state := NewSequenceText("alice")

	first := alice.Insert(state, 'a')
	state = applySeqAll(t, []SeqTextOp{first}, state)
	state = applySeqAll(t, []SeqTextOp{alice.Insert(state, 'b')}, state)

	// Move the caret back behind 'a' and type 'c'.
	state.Cursor = first.OpID
	state = applySeqAll(t, []SeqTextOp{alice.Insert(state, 'c')}, state)

	if state.String() != "acb" {
		t.Fatalf("[crdt.TestSeqInsertBetween] Expected 'acb' but received '%s'\n", state.String())
	}
}

// TestSeqPermutationConvergence delivers a mixed insert/delete operation set
// in several orders that respect per-origin FIFO and checks all final states
// agree.
func TestSeqPermutationConvergence(t *testing.T) {

	a1 := SeqInsert{OpID: "1@alice", AfterID: RootAnchor, Char: 'a'}
	a2 := SeqInsert{OpID: "2@alice", AfterID: "1@alice", Char: 'b'}
	b1 := SeqInsert{OpID: "1@bob", AfterID: RootAnchor, Char: 'c'}
	b2 := SeqDelete{OpID: "2@bob", RemoveID: "1@bob"}

	orders := [][]SeqTextOp{
		{a1, a2, b1, b2},
		{b1, b2, a1, a2},
		{a1, b1, a2, b2},
		{b1, a1, b2, a2},
		{a1, b1, b2, a2},
	}

	var want SeqText
	for i, order := range orders {

		got := applySeqAll(t, order, NewSequenceText("carol"))

		if i == 0 {
			want = got
			continue
		}

		if got.String() != want.String() {
			t.Fatalf("[crdt.TestSeqPermutationConvergence] Expected '%s' for order %d but received '%s'\n", want.String(), i, got.String())
		}

		gotIDs := got.IDOrder()
		wantIDs := want.IDOrder()
		for j := range wantIDs {
			if gotIDs[j] != wantIDs[j] {
				t.Fatalf("[crdt.TestSeqPermutationConvergence] Expected id order %v for order %d but received %v\n", wantIDs, i, gotIDs)
			}
		}
	}
}

// TestSeqSubtreeIntegrity checks that a concurrent low-priority sibling
// lands behind a dominating sibling's whole subtree instead of splitting it.
func TestSeqSubtreeIntegrity(t *testing.T) {

	x := SeqInsert{OpID: "5@alice", AfterID: RootAnchor, Char: 'x'}
	child := SeqInsert{OpID: "6@alice", AfterID: "5@alice", Char: 'c'}
	y := SeqInsert{OpID: "3@bob", AfterID: RootAnchor, Char: 'y'}

	first := applySeqAll(t, []SeqTextOp{x, child, y}, NewSequenceText("carol"))
	second := applySeqAll(t, []SeqTextOp{y, x, child}, NewSequenceText("carol"))

	wantIDs := []string{"5@alice", "6@alice", "3@bob"}

	for n, state := range []SeqText{first, second} {

		gotIDs := state.IDOrder()
		for i := range wantIDs {
			if gotIDs[i] != wantIDs[i] {
				t.Fatalf("[crdt.TestSeqSubtreeIntegrity] Expected id order %v for arrival order %d but received %v\n", wantIDs, n, gotIDs)
			}
		}

		if state.String() != "xcy" {
			t.Fatalf("[crdt.TestSeqSubtreeIntegrity] Expected 'xcy' but received '%s'\n", state.String())
		}
	}
}

// TestSeqDeleteIdempotent checks that delivering the same delete twice
// equals delivering it once.
func TestSeqDeleteIdempotent(t *testing.T) {

	ins := SeqInsert{OpID: "1@alice", AfterID: RootAnchor, Char: 'a'}
	del := SeqDelete{OpID: "2@alice", RemoveID: "1@alice"}

	once := applySeqAll(t, []SeqTextOp{ins, del}, NewSequenceText("bob"))
	twice := applySeqAll(t, []SeqTextOp{ins, del, del}, NewSequenceText("bob"))

	if once.String() != twice.String() {
		t.Fatalf("[crdt.TestSeqDeleteIdempotent] Expected '%s' but received '%s'\n", once.String(), twice.String())
	}

	if !twice.Chars[0].Deleted {
		t.Fatal("[crdt.TestSeqDeleteIdempotent] Expected entry to stay tombstoned.")
	}
}

// TestSeqTombstoneAnchor checks that a tombstoned entry remains a usable
// anchor: inserting after a deleted id succeeds and places the new entry at
// the tombstone's position.
func TestSeqTombstoneAnchor(t *testing.T) {

	// bob has seen alice's edits, so his insert id dominates them.
	ops := []SeqTextOp{
		SeqInsert{OpID: "1@alice", AfterID: RootAnchor, Char: 'a'},
		SeqInsert{OpID: "2@alice", AfterID: "1@alice", Char: 'b'},
		SeqDelete{OpID: "3@alice", RemoveID: "1@alice"},
		SeqInsert{OpID: "4@bob", AfterID: "1@alice", Char: 'x'},
	}

	state := applySeqAll(t, ops, NewSequenceText("carol"))

	if state.String() != "xb" {
		t.Fatalf("[crdt.TestSeqTombstoneAnchor] Expected 'xb' but received '%s'\n", state.String())
	}

	// The tombstone is still physically present as the first entry.
	if (state.Chars[0].ID != "1@alice") || !state.Chars[0].Deleted {
		t.Fatal("[crdt.TestSeqTombstoneAnchor] Expected tombstone to remain at its position.")
	}
}

// TestSeqMissingDependency checks the error taxonomy for operations whose
// dependency has not arrived yet.
func TestSeqMissingDependency(t *testing.T) {

	state := NewSequenceText("alice")

	_, err := ApplySequenceText(SeqInsert{OpID: "5@bob", AfterID: "4@bob", Char: 'q'}, state)
	if errors.Cause(err) != ErrMissingAnchor {
		t.Fatalf("[crdt.TestSeqMissingDependency] Expected ErrMissingAnchor but received: '%v'\n", err)
	}

	_, err = ApplySequenceText(SeqDelete{OpID: "6@bob", RemoveID: "4@bob"}, state)
	if errors.Cause(err) != ErrMissingTarget {
		t.Fatalf("[crdt.TestSeqMissingDependency] Expected ErrMissingTarget but received: '%v'\n", err)
	}
}

// TestSeqRemoteOpKeepsCursor checks that receiving an operation authored
// elsewhere never moves the receiver's cursor.
func TestSeqRemoteOpKeepsCursor(t *testing.T) {

	alice := NewSeqEditor("alice")
	state := NewSequenceText("alice")

	own := alice.Insert(state, 'a')
	state = applySeqAll(t, []SeqTextOp{own}, state)

	before := state.Cursor

	remote := SeqInsert{OpID: "1@bob", AfterID: RootAnchor, Char: 'z'}
	state = applySeqAll(t, []SeqTextOp{remote}, state)

	if state.Cursor != before {
		t.Fatalf("[crdt.TestSeqRemoteOpKeepsCursor] Expected cursor to stay '%s' but received '%s'\n", before, state.Cursor)
	}
}

// TestSeqEditorDelete checks delete preparation against the editor's cursor
// and the cursor's retreat to the preceding entry.
func TestSeqEditorDelete(t *testing.T) {

	alice := NewSeqEditor("alice")
	state := NewSequenceText("alice")

	// Nothing under the cursor at the root anchor.
	if _, ok := alice.Delete(state); ok {
		t.Fatal("[crdt.TestSeqEditorDelete] Expected delete at root anchor to be suppressed.")
	}

	first := alice.Insert(state, 'a')
	state = applySeqAll(t, []SeqTextOp{first}, state)
	second := alice.Insert(state, 'b')
	state = applySeqAll(t, []SeqTextOp{second}, state)

	del, ok := alice.Delete(state)
	if !ok {
		t.Fatal("[crdt.TestSeqEditorDelete] Expected delete to be produced.")
	}
	if del.RemoveID != second.OpID {
		t.Fatalf("[crdt.TestSeqEditorDelete] Expected target '%s' but received '%s'\n", second.OpID, del.RemoveID)
	}

	state = applySeqAll(t, []SeqTextOp{del}, state)

	if state.String() != "a" {
		t.Fatalf("[crdt.TestSeqEditorDelete] Expected 'a' but received '%s'\n", state.String())
	}
	if state.Cursor != first.OpID {
		t.Fatalf("[crdt.TestSeqEditorDelete] Expected cursor '%s' but received '%s'\n", first.OpID, state.Cursor)
	}

	// Deleting on a tombstoned cursor target is suppressed.
	state.Cursor = second.OpID
	if _, ok := alice.Delete(state); ok {
		t.Fatal("[crdt.TestSeqEditorDelete] Expected delete of tombstoned entry to be suppressed.")
	}
}

// TestSeqOpAuthor checks author extraction from operation ids.
func TestSeqOpAuthor(t *testing.T) {

	if got := SeqOpAuthor("12@alice"); got != "alice" {
		t.Fatalf("[crdt.TestSeqOpAuthor] Expected 'alice' but received '%s'\n", got)
	}

	if got := SeqOpAuthor("malformed"); got != "" {
		t.Fatalf("[crdt.TestSeqOpAuthor] Expected empty author but received '%s'\n", got)
	}
}
