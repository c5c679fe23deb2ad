package optimize

import (
	"math"
)

const (
	invPhi = 0.6180339887498949
	// maxGoldenSteps bounds the search when tol is too small to ever reach.
	maxGoldenSteps = 200
)

// GoldenSection searches [a, b] for the minimum of f, stopping once the
// bracket is narrower than tol. It returns the best point evaluated, which
// may be one of the endpoints. NaN values are treated as +Inf.
func GoldenSection(
	f func(float64) float64, a, b, tol float64,
) (x, fx float64) {
	x, fx = a, math.Inf(1)
	eval := func(t float64) float64 {
		ft := f(t)
		if math.IsNaN(ft) {
			ft = math.Inf(1)
		}
		if ft < fx {
			x, fx = t, ft
		}
		return ft
	}

	eval(a)
	eval(b)
	c, d := b-invPhi*(b-a), a+invPhi*(b-a)
	fc, fd := eval(c), eval(d)

	for i := 0; i < maxGoldenSteps && b-a > tol; i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = eval(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = eval(d)
		}
	}

	return x, fx
}
