package geom

import (
	"fmt"
)

// Domain is an axis-aligned box which the particles live in. Only the first
// Dim axes are used.
type Domain struct {
	Min, Max Vec
	Dim      int
}

// NewDomain returns a Domain with the given bounds.
func NewDomain(min, max Vec, dim int) (Domain, error) {
	d := Domain{min, max, dim}
	return d, d.Check()
}

// Check returns an error if the domain has an unsupported dimension or an
// axis with non-positive width.
func (d Domain) Check() error {
	if d.Dim != 2 && d.Dim != 3 {
		return fmt.Errorf("Domain dimension must be 2 or 3, but is %d.", d.Dim)
	}
	for i := 0; i < d.Dim; i++ {
		if d.Max[i] <= d.Min[i] {
			return fmt.Errorf(
				"Domain axis %d has max %g <= min %g.", i, d.Max[i], d.Min[i],
			)
		}
	}
	return nil
}

// Width returns the width of axis i.
func (d Domain) Width(i int) float64 { return d.Max[i] - d.Min[i] }

// MaxWidth returns the width of the widest axis.
func (d Domain) MaxWidth() float64 {
	w := 0.0
	for i := 0; i < d.Dim; i++ {
		if d.Width(i) > w {
			w = d.Width(i)
		}
	}
	return w
}

// Volume returns the volume of the domain (its area in 2D).
func (d Domain) Volume() float64 {
	v := 1.0
	for i := 0; i < d.Dim; i++ {
		v *= d.Width(i)
	}
	return v
}

// Contains returns true if x is inside the domain.
func (d Domain) Contains(x Vec) bool {
	for i := 0; i < d.Dim; i++ {
		if x[i] < d.Min[i] || x[i] > d.Max[i] {
			return false
		}
	}
	return true
}
