package crdt

// Structs

// NaiveTextOp is the operation alphabet of the position-indexed
// text variant: a character insert or a range delete, both
// addressed by absolute offset into the current content.
type NaiveTextOp interface {
	naiveTextOp()
}

// NaiveInsert places one character at an absolute position.
type NaiveInsert struct {
	Position int
	Char     rune
}

// NaiveDelete removes Length characters starting
// at an absolute position.
type NaiveDelete struct {
	Position int
	Length   int
}

func (op NaiveInsert) naiveTextOp() {}
func (op NaiveDelete) naiveTextOp() {}

// Functions

// NewNaiveText returns the initial content of the naive text variant.
func NewNaiveText(initial string) string {
	return initial
}

// DiffNaiveText derives the operations that turn content prev into content
// next: the longest common prefix of both strings is kept, the remainder of
// prev is removed with one delete, and the remainder of next is emitted as
// one insert per character. The loop is deliberately iterative so arbitrarily
// long content cannot exhaust the stack.
func DiffNaiveText(prev string, next string) []NaiveTextOp {

	prevRunes := []rune(prev)
	nextRunes := []rune(next)

	// Determine length of longest common prefix.
	common := 0
	for (common < len(prevRunes)) && (common < len(nextRunes)) {

		if prevRunes[common] != nextRunes[common] {
			break
		}

		common++
	}

	ops := make([]NaiveTextOp, 0, (1 + (len(nextRunes) - common)))

	// Remove the divergent suffix of the previous content.
	if common < len(prevRunes) {
		ops = append(ops, NaiveDelete{
			Position: common,
			Length:   (len(prevRunes) - common),
		})
	}

	// Emit the divergent suffix of the new content
	// one character at a time.
	for i := common; i < len(nextRunes); i++ {
		ops = append(ops, NaiveInsert{
			Position: i,
			Char:     nextRunes[i],
		})
	}

	return ops
}

// ApplyNaiveText interprets the operation's absolute position against the
// current local content. This is precisely what makes the variant unsafe
// under concurrency: a position computed against one replica's content is
// applied to another replica's possibly already-mutated content, shifting or
// corrupting unrelated text. Offsets are clamped into the valid range so a
// hostile position cannot fault the process, but no attempt is made to
// repair the semantics.
func ApplyNaiveText(op NaiveTextOp, state string) (string, error) {

	runes := []rune(state)

	switch op := op.(type) {

	case NaiveInsert:

		pos := clampOffset(op.Position, len(runes))

		next := make([]rune, 0, (len(runes) + 1))
		next = append(next, runes[:pos]...)
		next = append(next, op.Char)
		next = append(next, runes[pos:]...)

		return string(next), nil

	case NaiveDelete:

		pos := clampOffset(op.Position, len(runes))

		length := op.Length
		if length < 0 {
			length = 0
		}
		if (pos + length) > len(runes) {
			length = (len(runes) - pos)
		}

		next := make([]rune, 0, (len(runes) - length))
		next = append(next, runes[:pos]...)
		next = append(next, runes[(pos+length):]...)

		return string(next), nil
	}

	return state, nil
}

// clampOffset confines an absolute position to [0, limit].
func clampOffset(pos int, limit int) int {

	if pos < 0 {
		return 0
	}

	if pos > limit {
		return limit
	}

	return pos
}
