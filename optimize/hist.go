/*package optimize chooses the cell sizes of a multi-level hash grid by
minimizing an analytic estimate of the work done by a traversal pass.

The estimate only needs a histogram of particle radii and the volume of the
domain, so the grid never has to be built while searching.
*/
package optimize

import (
	"math"
)

// Histogram counts particle radii in equal-width bins spanning
// [RMin, RMax]. The density is treated as constant within each bin, which
// lets every integral the cost model needs be evaluated in closed form.
type Histogram struct {
	RMin, RMax float64
	Counts     []float64
	N          int

	width float64
}

// NewHistogram bins the given radii into the requested number of bins.
func NewHistogram(radii []float64, bins int) *Histogram {
	if bins < 1 {
		bins = 1
	}
	h := &Histogram{Counts: make([]float64, bins), N: len(radii)}
	if len(radii) == 0 {
		return h
	}

	h.RMin, h.RMax = radii[0], radii[0]
	for _, r := range radii {
		h.RMin, h.RMax = math.Min(h.RMin, r), math.Max(h.RMax, r)
	}
	h.width = (h.RMax - h.RMin) / float64(bins)

	for _, r := range radii {
		h.Counts[h.bin(r)]++
	}
	return h
}

// bin returns the index of the bin containing r, clamped to the valid range.
func (h *Histogram) bin(r float64) int {
	if h.width == 0 {
		return 0
	}
	i := int(math.Floor((r - h.RMin) / h.width))
	if i < 0 {
		return 0
	} else if i >= len(h.Counts) {
		return len(h.Counts) - 1
	}
	return i
}

// DistinctBins returns the number of non-empty bins.
func (h *Histogram) DistinctBins() int {
	n := 0
	for _, c := range h.Counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// Degenerate returns true if the histogram has no particles or if every
// particle has the same radius.
func (h *Histogram) Degenerate() bool { return h.N == 0 || h.width == 0 }

// Density returns the number of particles per unit radius at r.
func (h *Histogram) Density(r float64) float64 {
	if h.Degenerate() || r < h.RMin || r > h.RMax {
		return 0
	}
	return h.Counts[h.bin(r)] / h.width
}

// each calls fn for every bin overlapping [a, b] with the overlapping
// interval [u, v] and the bin's density.
func (h *Histogram) each(a, b float64, fn func(u, v, density float64)) {
	if h.Degenerate() {
		return
	}
	a, b = math.Max(a, h.RMin), math.Min(b, h.RMax)
	if a >= b {
		return
	}

	for i := h.bin(a); i <= h.bin(b); i++ {
		lo := h.RMin + float64(i)*h.width
		u, v := math.Max(a, lo), math.Min(b, lo+h.width)
		if i == len(h.Counts)-1 {
			v = b
		}
		if v > u && h.Counts[i] > 0 {
			fn(u, v, h.Counts[i]/h.width)
		}
	}
}

// Count returns the number of particles with radii in [a, b].
func (h *Histogram) Count(a, b float64) float64 {
	sum := 0.0
	h.each(a, b, func(u, v, n float64) { sum += n * (v - u) })
	return sum
}

// CellMoment returns the sum over particles with radii in [a, b] of
// (2r/size + 2)^dim, the expected number of cells of width size which a
// search around each particle visits.
func (h *Histogram) CellMoment(a, b, size float64, dim int) float64 {
	d := float64(dim)
	sum := 0.0
	h.each(a, b, func(u, v, n float64) {
		sum += n * size / (2 * (d + 1)) *
			(math.Pow(2*v/size+2, d+1) - math.Pow(2*u/size+2, d+1))
	})
	return sum
}

// CellMomentDh returns the derivative of CellMoment with respect to size.
func (h *Histogram) CellMomentDh(a, b, size float64, dim int) float64 {
	d := float64(dim)
	prim := func(r float64) float64 {
		x := 2*r/size + 2
		return math.Pow(x, d+1)/(d+1) - 2*math.Pow(x, d)/d
	}

	sum := 0.0
	h.each(a, b, func(u, v, n float64) {
		sum -= n * d / 2 * (prim(v) - prim(u))
	})
	return sum
}

// cellsAt returns (2r/size + 2)^dim.
func cellsAt(r, size float64, dim int) float64 {
	return math.Pow(2*r/size+2, float64(dim))
}
