package optimize

import (
	"math"

	"github.com/phil-mansfield/hgrid"
	"github.com/phil-mansfield/hgrid/geom"
)

// Model estimates the work a traversal pass does for a given set of level
// boundaries. Work is measured in pair tests, with K giving the cost of
// visiting a cell relative to one pair test.
type Model struct {
	Hist     *Histogram
	Dim      int
	Volume   float64
	Ratio    float64
	K        float64
	Strategy hgrid.Strategy

	// Width is used as the cell size when there are no particles.
	Width float64
}

// NewModel returns a Model for the particles binned into hist which live in
// dom. ratio is the grid's cell oversize ratio.
func NewModel(
	hist *Histogram, dom geom.Domain, ratio, k float64, strat hgrid.Strategy,
) *Model {
	return &Model{
		Hist: hist, Dim: dom.Dim, Volume: dom.Volume(),
		Ratio: ratio, K: k, Strategy: strat, Width: dom.MaxWidth(),
	}
}

// Top returns the cell size of the coarsest level, which is fixed by the
// largest particle.
func (m *Model) Top() float64 { return 2 * m.Ratio * m.Hist.RMax }

// Bottom returns the smallest useful cell size.
func (m *Model) Bottom() float64 { return 2 * m.Ratio * m.Hist.RMin }

// layout describes the levels implied by a set of boundaries. Level l holds
// radii in (a[l], b[l]].
type layout struct {
	sizes, a, b, n, density []float64
}

func (m *Model) layout(bounds []float64) *layout {
	L := len(bounds) + 1
	s := 2 * m.Ratio
	lay := &layout{
		sizes: append(append(make([]float64, 0, L), bounds...), m.Top()),
		a:     make([]float64, L), b: make([]float64, L),
		n: make([]float64, L), density: make([]float64, L),
	}

	for l := 0; l < L; l++ {
		if l == 0 {
			lay.a[l] = m.Hist.RMin
		} else {
			lay.a[l] = lay.sizes[l-1] / s
		}
		if l == L-1 {
			lay.b[l] = m.Hist.RMax
		} else {
			lay.b[l] = lay.sizes[l] / s
		}

		lay.n[l] = m.Hist.Count(lay.a[l], lay.b[l])
		lay.density[l] = lay.n[l] * math.Pow(lay.sizes[l], float64(m.Dim)) /
			m.Volume
	}
	return lay
}

// eachCross calls fn for every pair of levels where particles in level l
// search the cells of level k.
func (m *Model) eachCross(levels int, fn func(l, k int)) {
	for l := 0; l < levels; l++ {
		if m.Strategy == hgrid.TopDown {
			for k := 0; k < l; k++ {
				fn(l, k)
			}
		} else {
			for k := l + 1; k < levels; k++ {
				fn(l, k)
			}
		}
	}
}

// Work returns the estimated work of a traversal pass when the cell sizes of
// every level but the coarsest are given by bounds.
func (m *Model) Work(bounds []float64) float64 {
	for _, h := range bounds {
		if !(h > 0) {
			return math.Inf(1)
		}
	}

	lay := m.layout(bounds)
	omega := math.Pow(3, float64(m.Dim))

	w := 0.0
	for l := range lay.sizes {
		w += omega/2*lay.n[l]*lay.density[l] + m.K*(omega+1)/2*lay.n[l]
	}
	m.eachCross(len(lay.sizes), func(l, k int) {
		g := m.Hist.CellMoment(lay.a[l], lay.b[l], lay.sizes[k], m.Dim)
		w += g * (lay.density[k] + m.K)
	})
	return w
}

// Gradient writes the partial derivatives of Work with respect to each
// element of bounds into grad.
func (m *Model) Gradient(bounds, grad []float64) {
	lay := m.layout(bounds)
	L := len(lay.sizes)
	d := float64(m.Dim)
	omega := math.Pow(3, d)
	s := 2 * m.Ratio

	da, db, dh := make([]float64, L), make([]float64, L), make([]float64, L)
	dN, dD := make([]float64, L), make([]float64, L)

	for j := range bounds {
		for l := range da {
			da[l], db[l], dh[l] = 0, 0, 0
		}
		// Moving boundary j resizes level j and shifts the edge between
		// levels j and j+1.
		db[j], dh[j], da[j+1] = 1/s, 1, 1/s

		for l := 0; l < L; l++ {
			dN[l] = m.Hist.Density(lay.b[l])*db[l] -
				m.Hist.Density(lay.a[l])*da[l]
			hd := math.Pow(lay.sizes[l], d)
			dD[l] = (dN[l]*hd + lay.n[l]*d*hd/lay.sizes[l]*dh[l]) / m.Volume
		}

		g := 0.0
		for l := 0; l < L; l++ {
			g += omega/2*(dN[l]*lay.density[l]+lay.n[l]*dD[l]) +
				m.K*(omega+1)/2*dN[l]
		}
		m.eachCross(L, func(l, k int) {
			a, b, h := lay.a[l], lay.b[l], lay.sizes[k]
			G := m.Hist.CellMoment(a, b, h, m.Dim)
			dG := m.Hist.Density(b)*cellsAt(b, h, m.Dim)*db[l] -
				m.Hist.Density(a)*cellsAt(a, h, m.Dim)*da[l] +
				m.Hist.CellMomentDh(a, b, h, m.Dim)*dh[k]
			g += dG*(lay.density[k]+m.K) + G*dD[k]
		})
		grad[j] = g
	}
}
