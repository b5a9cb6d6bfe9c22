package crdt

// Structs

// Cell addresses one position on the paint grid.
type Cell struct {
	X int
	Y int
}

// Grid is the state of the paint variant: a fixed-bounds
// mapping of cell to color. Unset cells carry no entry.
type Grid struct {
	Width  int
	Height int
	Cells  map[Cell]string
}

// GridOp paints one cell with one color.
type GridOp struct {
	X     int
	Y     int
	Color string
}

// Constants

const (
	// DefaultGridWidth is the horizontal bound used
	// when the configuration does not override it.
	DefaultGridWidth = 50

	// DefaultGridHeight is the vertical bound used
	// when the configuration does not override it.
	DefaultGridHeight = 50
)

// Functions

// NewGrid returns an empty grid of the supplied bounds.
func NewGrid(width int, height int) Grid {

	return Grid{
		Width:  width,
		Height: height,
		Cells:  make(map[Cell]string),
	}
}

// PreparePaint constructs a paint operation for the supplied
// coordinates. It reports false for coordinates outside the
// grid bounds, in which case no operation is produced.
func PreparePaint(state Grid, x int, y int, color string) (GridOp, bool) {

	if (x < 0) || (x >= state.Width) || (y < 0) || (y >= state.Height) {
		return GridOp{}, false
	}

	return GridOp{
		X:     x,
		Y:     y,
		Color: color,
	}, true
}

// ApplyGrid overwrites the addressed cell with the operation's color,
// last-applied-wins. "Last" is determined purely by local delivery order:
// concurrent writes to the same cell from different replicas may therefore
// leave replicas in different final states, while writes to distinct cells
// always converge. No tie-break rule exists on purpose.
func ApplyGrid(op GridOp, state Grid) (Grid, error) {

	// Copy the cell mapping so the supplied state
	// stays untouched for snapshot readers.
	next := Grid{
		Width:  state.Width,
		Height: state.Height,
		Cells:  make(map[Cell]string, (len(state.Cells) + 1)),
	}

	for cell, color := range state.Cells {
		next.Cells[cell] = color
	}

	next.Cells[Cell{X: op.X, Y: op.Y}] = op.Color

	return next, nil
}

// ColorAt returns the color of the addressed cell and
// whether the cell has been painted at all.
func (g Grid) ColorAt(x int, y int) (string, bool) {
	color, found := g.Cells[Cell{X: x, Y: y}]
	return color, found
}
