package layout

import (
	"errors"
	"image"
)

// Print canvas geometry: an 8.5x11in sheet at 300 dpi.
const (
	CanvasWidth  = 2550
	CanvasHeight = 3300
	CanvasMargin = 100
	PrintDPI     = 300
)

var (
	// ErrNothingToLayOut is returned when no usable image reaches the engine.
	ErrNothingToLayOut = errors.New("layout: nothing to lay out")
	// ErrNoSpace is returned when the margins consume the whole canvas.
	ErrNoSpace = errors.New("layout: margins leave no space")
)

// GridSpec describes how n square cells are packed on a canvas.
type GridSpec struct {
	Columns int
	Rows    int
	Cell    int
	// Left is the x offset of the first column; the row block is centred.
	Left int
	// Top is the y offset of the first row.
	Top int
}

// ColumnsFor returns the default number of columns for n images.
// The thresholds are fixed: n up to 4, then 4 up to 8, then at most 6.
func ColumnsFor(n int) int {
	switch {
	case n <= 4:
		return n
	case n <= 8:
		return 4
	default:
		return min(6, n)
	}
}

// ComputeGrid derives the grid for n images on a width x height canvas with
// the given margin on all four sides. columns <= 0 selects ColumnsFor(n).
func ComputeGrid(n, columns, width, height, margin int) (GridSpec, error) {
	if n <= 0 {
		return GridSpec{}, ErrNothingToLayOut
	}
	if columns <= 0 {
		columns = ColumnsFor(n)
	}
	rows := (n + columns - 1) / columns

	availW := width - 2*margin
	availH := height - 2*margin
	if availW <= 0 || availH <= 0 {
		return GridSpec{}, ErrNoSpace
	}
	cell := min(availW/columns, availH/rows)
	if cell <= 0 {
		return GridSpec{}, ErrNoSpace
	}

	return GridSpec{
		Columns: columns,
		Rows:    rows,
		Cell:    cell,
		Left:    (width - columns*cell) / 2,
		Top:     margin,
	}, nil
}

// Origin returns the top-left corner of the cell holding image i.
func (g GridSpec) Origin(i int) image.Point {
	row := i / g.Columns
	col := i % g.Columns
	return image.Pt(g.Left+col*g.Cell, g.Top+row*g.Cell)
}

// Capacity is the number of cells in the grid.
func (g GridSpec) Capacity() int {
	return g.Columns * g.Rows
}
