package crdt

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Variables

// ErrMissingAnchor is reported by ApplySequenceText when an insert references
// an anchor id that is not present in the supplied state. Under FIFO
// same-origin delivery this indicates a genuinely out-of-order arrival; the
// replica layer parks such operations and retries them once the dependency
// has been applied.
var ErrMissingAnchor = errors.New("insert references unknown anchor id")

// ErrMissingTarget is the delete-side counterpart of ErrMissingAnchor.
var ErrMissingTarget = errors.New("delete references unknown target id")

// Constants

// RootAnchor is the sentinel anchor id that is always present and denotes
// the position before the first entry of the sequence.
const RootAnchor = "start"

// Structs

// SeqChar is one entry of the replicated sequence. The anchor it was inserted
// after is retained because the concurrent-insert tie-break is decided by
// comparing anchors, and a tombstoned entry is retained forever because later
// inserts may still anchor on it.
type SeqChar struct {
	ID      string
	AfterID string
	Char    rune
	Deleted bool
}

// SeqText is the sequence variant's state: the full entry sequence including
// tombstones, the id of the replica owning this copy, and that replica's own
// cursor. The cursor names the entry the caret sits behind, RootAnchor when
// it sits at the very beginning. Applying an operation authored elsewhere
// never moves the cursor.
type SeqText struct {
	Owner  string
	Chars  []SeqChar
	Cursor string
}

// SeqTextOp is the operation alphabet of the sequence variant.
type SeqTextOp interface {
	seqTextOp()
}

// SeqInsert places one character immediately after the
// entry identified by AfterID, subject to the tie-break
// for concurrent inserts sharing that anchor.
type SeqInsert struct {
	OpID    string
	AfterID string
	Char    rune
}

// SeqDelete tombstones the entry identified by RemoveID.
type SeqDelete struct {
	OpID     string
	RemoveID string
}

func (op SeqInsert) seqTextOp() {}
func (op SeqDelete) seqTextOp() {}

// SeqEditor produces operations on behalf of one replica. Operation ids are
// formed from a per-editor monotonically increasing counter plus the replica
// id, which makes them globally unique without coordination. The editor lives
// on the presentation side of the engine boundary: it reads replica state but
// all mutation flows through the operations it hands to SubmitOperation.
type SeqEditor struct {
	replica string
	counter uint64
}

// Functions

// NewSequenceText returns an empty sequence owned by the supplied replica.
func NewSequenceText(owner string) SeqText {

	return SeqText{
		Owner:  owner,
		Chars:  nil,
		Cursor: RootAnchor,
	}
}

// NewSeqEditor returns an operation producer for the supplied replica.
func NewSeqEditor(replica string) *SeqEditor {
	return &SeqEditor{replica: replica}
}

// Insert prepares the insertion of one character behind the replica's own
// cursor in the supplied state.
func (e *SeqEditor) Insert(state SeqText, ch rune) SeqInsert {

	return SeqInsert{
		OpID:    e.nextOpID(state),
		AfterID: state.Cursor,
		Char:    ch,
	}
}

// nextOpID mints a fresh operation id. The counter is advanced past the
// largest counter visible in the supplied state so an operation's id always
// dominates the ids of everything in its causal past; sibling ordering in
// applySeqInsert depends on this.
func (e *SeqEditor) nextOpID(state SeqText) string {

	for _, c := range state.Chars {

		counter, _ := splitSeqID(c.ID)
		if counter > e.counter {
			e.counter = counter
		}
	}

	e.counter++

	return fmt.Sprintf("%d@%s", e.counter, e.replica)
}

// Delete prepares the removal of the entry under the replica's own cursor in
// the supplied state. It reports false when the cursor sits at the root
// anchor or on an already-tombstoned entry, in which case no operation is
// produced.
func (e *SeqEditor) Delete(state SeqText) (SeqDelete, bool) {

	if state.Cursor == RootAnchor {
		return SeqDelete{}, false
	}

	idx := indexOfSeqChar(state.Chars, state.Cursor)
	if (idx < 0) || state.Chars[idx].Deleted {
		return SeqDelete{}, false
	}

	return SeqDelete{
		OpID:     e.nextOpID(state),
		RemoveID: state.Cursor,
	}, true
}

// SeqOpAuthor extracts the replica id an operation id was minted by.
func SeqOpAuthor(opID string) string {

	sep := strings.LastIndex(opID, "@")
	if sep < 0 {
		return ""
	}

	return opID[(sep + 1):]
}

// ApplySequenceText is the effect part of the sequence variant, executed at
// all replicas including the source.
//
// Insert placement: locate the anchor entry, then scan forward over the
// entries already inserted after that same anchor. Entries sharing an anchor
// are kept in descending id order, so the new entry goes behind the last
// dominating sibling's subtree, or immediately behind the anchor when no
// sibling dominates it. Placement therefore depends only on the anchor graph
// and the total order on ids, never on arrival time, so replicas that
// received the same insert set agree on the id order regardless of delivery
// interleaving.
//
// Delete is a monotone one-way flag on the target entry. It commutes with
// everything, including repeated delivery of itself.
//
// A duplicate insert id is a broken uniqueness contract, not a recoverable
// condition, and panics.
func ApplySequenceText(op SeqTextOp, state SeqText) (SeqText, error) {

	switch op := op.(type) {

	case SeqInsert:
		return applySeqInsert(op, state)

	case SeqDelete:
		return applySeqDelete(op, state)
	}

	return state, nil
}

func applySeqInsert(op SeqInsert, state SeqText) (SeqText, error) {

	if indexOfSeqChar(state.Chars, op.OpID) >= 0 {
		panic(fmt.Sprintf("duplicate sequence entry id '%s'", op.OpID))
	}

	// Index of the anchor entry; the root anchor sits
	// virtually before index zero.
	anchorIdx := -1
	if op.AfterID != RootAnchor {

		anchorIdx = indexOfSeqChar(state.Chars, op.AfterID)
		if anchorIdx < 0 {
			return state, errors.Wrapf(ErrMissingAnchor, "anchor '%s'", op.AfterID)
		}
	}

	// Tie-break for concurrent inserts sharing the anchor: siblings sit in
	// descending id order, and a sibling owns the contiguous run of its
	// descendants. Walk forward from the anchor, stepping over every
	// sibling whose id dominates the new one together with that sibling's
	// subtree, and stop at the first sibling the new id dominates.
	pos := (anchorIdx + 1)
	for pos < len(state.Chars) {

		e := state.Chars[pos]

		if (e.AfterID != op.AfterID) || !seqIDGreater(e.ID, op.OpID) {
			break
		}

		// Step over this sibling and its descendants.
		subtree := map[string]bool{e.ID: true}
		pos++
		for (pos < len(state.Chars)) && subtree[state.Chars[pos].AfterID] {
			subtree[state.Chars[pos].ID] = true
			pos++
		}
	}

	entry := SeqChar{
		ID:      op.OpID,
		AfterID: op.AfterID,
		Char:    op.Char,
	}

	next := make([]SeqChar, 0, (len(state.Chars) + 1))
	next = append(next, state.Chars[:pos]...)
	next = append(next, entry)
	next = append(next, state.Chars[pos:]...)

	out := SeqText{
		Owner:  state.Owner,
		Chars:  next,
		Cursor: state.Cursor,
	}

	// The authoring replica's caret follows its own insert.
	if SeqOpAuthor(op.OpID) == state.Owner {
		out.Cursor = op.OpID
	}

	return out, nil
}

func applySeqDelete(op SeqDelete, state SeqText) (SeqText, error) {

	idx := indexOfSeqChar(state.Chars, op.RemoveID)
	if idx < 0 {
		return state, errors.Wrapf(ErrMissingTarget, "target '%s'", op.RemoveID)
	}

	next := make([]SeqChar, len(state.Chars))
	copy(next, state.Chars)
	next[idx].Deleted = true

	out := SeqText{
		Owner:  state.Owner,
		Chars:  next,
		Cursor: state.Cursor,
	}

	// The authoring replica's caret moves to the entry
	// preceding the one it tombstoned. Tombstones remain
	// legal cursor positions because they remain anchors.
	if SeqOpAuthor(op.OpID) == state.Owner {

		if idx == 0 {
			out.Cursor = RootAnchor
		} else {
			out.Cursor = next[(idx - 1)].ID
		}
	}

	return out, nil
}

// String renders the visible content of the sequence,
// skipping tombstoned entries.
func (s SeqText) String() string {

	var b strings.Builder

	for _, c := range s.Chars {

		if c.Deleted {
			continue
		}

		b.WriteRune(c.Char)
	}

	return b.String()
}

// IDOrder returns the ids of all entries, tombstones included, in sequence
// order. Two replicas that have received the same insert set report the
// identical id order; tests rely on this projection.
func (s SeqText) IDOrder() []string {

	ids := make([]string, len(s.Chars))
	for i, c := range s.Chars {
		ids[i] = c.ID
	}

	return ids
}

// splitSeqID decomposes an operation id into its counter and replica parts.
// A malformed id yields counter zero and the raw id as replica part, which
// keeps comparisons total.
func splitSeqID(id string) (uint64, string) {

	sep := strings.LastIndex(id, "@")
	if sep < 0 {
		return 0, id
	}

	var counter uint64
	if _, err := fmt.Sscanf(id[:sep], "%d", &counter); err != nil {
		return 0, id
	}

	return counter, id[(sep + 1):]
}

// seqIDGreater reports whether id a dominates id b in the total order used
// for sibling placement: higher counter wins, equal counters fall back to
// the replica id.
func seqIDGreater(a string, b string) bool {

	counterA, replicaA := splitSeqID(a)
	counterB, replicaB := splitSeqID(b)

	if counterA != counterB {
		return counterA > counterB
	}

	return replicaA > replicaB
}

// indexOfSeqChar returns the position of the entry with
// the supplied id, or -1 if no such entry exists.
func indexOfSeqChar(chars []SeqChar, id string) int {

	for i := range chars {

		if chars[i].ID == id {
			return i
		}
	}

	return -1
}
