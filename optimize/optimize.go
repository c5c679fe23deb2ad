package optimize

import (
	"log"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/hgrid"
	"github.com/phil-mansfield/hgrid/geom"
)

// Options control Optimize. Zero values are replaced by the values in
// DefaultOptions.
type Options struct {
	MaxIter int
	// Tol is the relative improvement in work below which iteration stops.
	Tol float64
	// MergeTol is the gap between neighboring boundaries, relative to the
	// coarsest cell size, below which they are merged into one.
	MergeTol float64
	// LineTol is the width of the final golden-section bracket relative to
	// the largest feasible step.
	LineTol float64
	// Bins is the number of histogram bins used by ForParticles.
	Bins int
	// Logger receives warnings about degenerate inputs. nil is silent.
	Logger *log.Logger
}

// DefaultOptions returns the default optimizer options.
func DefaultOptions() Options {
	return Options{
		MaxIter: 100, Tol: 1e-8, MergeTol: 1e-3, LineTol: 1e-10, Bins: 64,
	}
}

func (opt Options) withDefaults() Options {
	def := DefaultOptions()
	if opt.MaxIter <= 0 {
		opt.MaxIter = def.MaxIter
	}
	if opt.Tol <= 0 {
		opt.Tol = def.Tol
	}
	if opt.MergeTol <= 0 {
		opt.MergeTol = def.MergeTol
	}
	if opt.LineTol <= 0 {
		opt.LineTol = def.LineTol
	}
	if opt.Bins <= 0 {
		opt.Bins = def.Bins
	}
	return opt
}

func (opt Options) warnf(format string, args ...interface{}) {
	if opt.Logger != nil {
		opt.Logger.Printf(format, args...)
	}
}

// Result is the outcome of Optimize.
type Result struct {
	// CellSizes are the optimized cell sizes of every level, coarsest last.
	CellSizes []float64
	// Work is the estimated work after each iteration, starting with the
	// initial guess. It never increases.
	Work       []float64
	Iterations int
	// Merged is the number of levels removed because their boundaries
	// converged onto a neighbor.
	Merged int
}

// Optimize searches for the cell sizes of a grid with at most the given
// number of levels which minimize m.Work. It starts from exponentially
// spaced levels and does steepest descent with a golden-section line
// search, merging levels which collapse onto each other.
func Optimize(m *Model, levels int, opt Options) Result {
	opt = opt.withDefaults()

	if m.Hist.N == 0 {
		opt.warnf("No particles to optimize over: using a single level "+
			"of width %g.", m.Width)
		return Result{CellSizes: []float64{m.Width}, Work: []float64{0}}
	} else if m.Hist.Degenerate() {
		opt.warnf("All particles have radius %g: using a single level.",
			m.Hist.RMax)
		return Result{CellSizes: []float64{m.Top()}, Work: []float64{m.Work(nil)}}
	}

	if distinct := m.Hist.DistinctBins(); levels > distinct {
		opt.warnf("Only %d distinct radius bins: reducing level count "+
			"from %d.", distinct, levels)
		levels = distinct
	}
	if levels > hgrid.MaxLevelCount {
		levels = hgrid.MaxLevelCount
	}

	sizes := hgrid.CellSizes(
		hgrid.Exponential, levels, 2*m.Hist.RMin, 2*m.Hist.RMax, m.Ratio,
	)
	bounds := sizes[:len(sizes)-1]

	res := Result{Work: []float64{m.Work(bounds)}}
	for res.Iterations < opt.MaxIter && len(bounds) > 0 {
		res.Iterations++
		w0 := res.Work[len(res.Work)-1]

		w := m.descend(bounds, w0, opt.LineTol)

		merged := false
		bounds, w, merged = m.merge(bounds, w, opt.MergeTol)
		if merged {
			res.Merged++
		}

		res.Work = append(res.Work, w)
		if !merged && w0-w <= opt.Tol*w0 {
			break
		}
	}

	res.CellSizes = append(append([]float64{}, bounds...), m.Top())
	return res
}

// descend takes one steepest-descent step from bounds in place and returns
// the new work. bounds are left untouched if no step lowers the work.
func (m *Model) descend(bounds []float64, w0, lineTol float64) float64 {
	p := make([]float64, len(bounds))
	m.Gradient(bounds, p)
	floats.Scale(-1, p)
	if floats.Norm(p, 2) == 0 {
		return w0
	}

	tMax := m.maxStep(bounds, p)
	if !(tMax > 0) || math.IsInf(tMax, 0) {
		return w0
	}

	trial := make([]float64, len(bounds))
	t, w := GoldenSection(func(t float64) float64 {
		floats.AddScaledTo(trial, bounds, t, p)
		return m.Work(trial)
	}, 0, tMax, lineTol*tMax)

	if t <= 0 || w > w0 {
		return w0
	}
	floats.AddScaledTo(trial, bounds, t, p)
	m.order(trial)
	if w = m.Work(trial); w > w0 {
		return w0
	}
	copy(bounds, trial)
	return w
}

// maxStep returns the largest t for which bounds + t*p stays ordered inside
// [Bottom(), Top()].
func (m *Model) maxStep(bounds, p []float64) float64 {
	n := len(bounds)
	tMax := math.Inf(1)
	for j := 0; j <= n; j++ {
		left, pLeft := m.Bottom(), 0.0
		if j > 0 {
			left, pLeft = bounds[j-1], p[j-1]
		}
		right, pRight := m.Top(), 0.0
		if j < n {
			right, pRight = bounds[j], p[j]
		}

		if rate := pRight - pLeft; rate < 0 {
			tMax = math.Min(tMax, (right-left)/-rate)
		}
	}
	return tMax
}

// order clamps away the rounding error left by a step to the edge of the
// feasible region.
func (m *Model) order(bounds []float64) {
	lo := m.Bottom()
	for j := range bounds {
		bounds[j] = math.Min(math.Max(bounds[j], lo), m.Top())
		lo = bounds[j]
	}
}

// merge removes one boundary from the first pair of neighbors closer than
// tol, choosing whichever of the two removals gives the lower work. Nothing
// is removed if both removals would increase the work.
func (m *Model) merge(
	bounds []float64, w, tol float64,
) ([]float64, float64, bool) {
	n := len(bounds)
	for j := 0; j <= n; j++ {
		left, right := m.Bottom(), m.Top()
		if j > 0 {
			left = bounds[j-1]
		}
		if j < n {
			right = bounds[j]
		}
		if right-left >= tol*m.Top() {
			continue
		}

		var best []float64
		bestW := math.Inf(1)
		for _, k := range []int{j - 1, j} {
			if k < 0 || k >= n {
				continue
			}
			trial := append(append([]float64{}, bounds[:k]...), bounds[k+1:]...)
			if tw := m.Work(trial); tw < bestW {
				best, bestW = trial, tw
			}
		}
		if best != nil && bestW <= w {
			return best, bestW, true
		}
	}
	return bounds, w, false
}

// ForParticles returns the optimized cell sizes for the live particles of ps
// in dom, using the level count, oversize ratio, and strategy of cfg. k is
// the relative cost of visiting a cell.
func ForParticles(
	ps *hgrid.Particles, dom geom.Domain, cfg hgrid.Config, k float64,
	opt Options,
) Result {
	opt = opt.withDefaults()
	hist := NewHistogram(ps.Radii(), opt.Bins)
	m := NewModel(hist, dom, cfg.CellOversizeRatio, k, cfg.Strategy)
	return Optimize(m, cfg.MaxLevels, opt)
}
