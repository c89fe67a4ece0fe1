// Package layout resolves the grid geometry of a sprite sheet: how many rows
// and columns are needed to hold a number of equally sized tiles and where
// each tile ends up.
package layout

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when arrangement cannot be computed for the
// requested number of images.
var ErrInvalidInput = errors.New("invalid input")

// TileSize is the size of a single tile in pixels. It applies uniformly to
// every tile of the sheet.
type TileSize struct {
	Width  int
	Height int
}

func (s TileSize) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Request carries optional hints for the grid shape. Zero (or any value
// outside of 1..count) means "not supplied".
type Request struct {
	Rows int
	Cols int
}

// Arrangement is a resolved grid shape. For n images it always satisfies
// Cols*Rows >= n and Cols*(Rows-1) < n.
type Arrangement struct {
	Rows int
	Cols int
}

// Resolve produces grid shape for count images. Column count has priority:
// when usable column hint is present it is taken as is, otherwise it is
// derived from row hint or from near-square grid. Row count is always
// recomputed from the final column count.
func Resolve(count int, req Request) (Arrangement, error) {
	if count <= 0 {
		return Arrangement{}, fmt.Errorf("%w: number of images must be positive, got %d", ErrInvalidInput, count)
	}

	cols := req.Cols
	if !usable(cols, count) {
		rows := req.Rows
		if !usable(rows, count) {
			rows = ceilSqrt(count)
		}
		cols = ceilDiv(count, rows)
	}
	return Arrangement{Cols: cols, Rows: ceilDiv(count, cols)}, nil
}

// Cell returns column and row of the tile with ordinal index i, tiles are
// placed row-major, left to right, top to bottom.
func (a Arrangement) Cell(i int) (col, row int) {
	return i % a.Cols, i / a.Cols
}

// Offset returns background offset of the tile with ordinal index i. Both
// values are non-positive since the sheet origin is top-left.
func (a Arrangement) Offset(i int, size TileSize) (left, top int) {
	col, row := a.Cell(i)
	return -size.Width * col, -size.Height * row
}

// Capacity is the number of tiles the grid can hold.
func (a Arrangement) Capacity() int {
	return a.Rows * a.Cols
}

// SheetSize returns expected pixel size of the composed sheet.
func (a Arrangement) SheetSize(size TileSize) (width, height int) {
	return a.Cols * size.Width, a.Rows * size.Height
}

func (a Arrangement) String() string {
	return fmt.Sprintf("%dx%d", a.Cols, a.Rows)
}

func usable(hint, count int) bool {
	return hint > 0 && hint <= count
}

// ceilDiv does not overflow for any positive a and b.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

// ceilSqrt returns the smallest r such that r*r >= n. Comparisons go through
// division so squares near math.MaxInt are never computed.
func ceilSqrt(n int) int {
	r := max(int(math.Sqrt(float64(n))), 1)
	for r > 1 && r-1 >= ceilDiv(n, r-1) {
		r--
	}
	for r < ceilDiv(n, r) {
		r++
	}
	return r
}
