package geom

import (
	"math"
)

// CellBounds represents a bounding box aligned to grid cells. Cells run from
// Origin[i] to Origin[i] + Width[i] - 1 along each axis. Unused axes have an
// origin of zero and a width of one.
type CellBounds struct {
	Origin, Width [3]int
}

// Cell returns the cell containing x in a grid of the given inverse cell
// size. Axes past dim are set to zero.
func Cell(x Vec, invSize float64, dim int) [3]int {
	c := [3]int{}
	for i := 0; i < dim; i++ {
		c[i] = int(math.Floor(x[i] * invSize))
	}
	return c
}

// SphereBounds returns the cells of a grid with spacing size which could hold
// the center of any sphere of radius at most size/2 that might overlap a
// sphere at x with radius r.
func SphereBounds(x Vec, r, size float64, dim int, out *CellBounds) {
	inv := 1 / size
	for i := 0; i < 3; i++ {
		if i >= dim {
			out.Origin[i], out.Width[i] = 0, 1
			continue
		}
		lo := int(math.Floor((x[i]-r)*inv - 0.5))
		hi := int(math.Floor((x[i]+r)*inv + 0.5))
		out.Origin[i], out.Width[i] = lo, hi-lo+1
	}
}

// Volume returns the number of cells in the bounds.
func (cb *CellBounds) Volume() int {
	return cb.Width[0] * cb.Width[1] * cb.Width[2]
}

// Coords returns the x, y, z coordinates of the idx-th cell in the bounds,
// where idx runs from 0 to cb.Volume() - 1 with x varying fastest.
func (cb *CellBounds) Coords(idx int) [3]int {
	length, area := cb.Width[0], cb.Width[0]*cb.Width[1]
	return [3]int{
		cb.Origin[0] + idx%length,
		cb.Origin[1] + (idx%area)/length,
		cb.Origin[2] + idx/area,
	}
}

// BoundsCheck returns true if the given coordinates are within the bounds and
// false otherwise.
func (cb *CellBounds) BoundsCheck(c [3]int) bool {
	for i := 0; i < 3; i++ {
		if c[i] < cb.Origin[i] || c[i] >= cb.Origin[i]+cb.Width[i] {
			return false
		}
	}
	return true
}

// HalfNeighbors returns the offsets to half of the cells touching a cell:
// those whose first non-zero component is positive. Visiting a cell and these
// neighbors from every cell visits each adjacent pair of cells exactly once.
func HalfNeighbors(dim int) [][3]int {
	cb := &CellBounds{[3]int{-1, -1, -1}, [3]int{3, 3, 3}}
	if dim == 2 {
		cb.Origin[2], cb.Width[2] = 0, 1
	}

	offsets := [][3]int{}
	for idx := 0; idx < cb.Volume(); idx++ {
		c := cb.Coords(idx)
		if positive(c) {
			offsets = append(offsets, c)
		}
	}
	return offsets
}

func positive(c [3]int) bool {
	for i := 0; i < 3; i++ {
		if c[i] != 0 {
			return c[i] > 0
		}
	}
	return false
}
