package io

import (
	"fmt"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/hgrid"
	"github.com/phil-mansfield/hgrid/geom"
)

// ReadParticles reads a whitespace-separated catalog with the columns
// x y r (dim = 2) or x y z r (dim = 3).
func ReadParticles(fname string, dim int) ([]geom.Vec, []float64, error) {
	if dim != 2 && dim != 3 {
		return nil, nil, fmt.Errorf(
			"Catalogs must be 2 or 3 dimensional, not %d dimensional.", dim,
		)
	}

	colIdxs := make([]int, dim+1)
	for i := range colIdxs {
		colIdxs[i] = i
	}
	cols, err := table.ReadTable(fname, colIdxs, nil)
	if err != nil {
		return nil, nil, err
	}

	rs := cols[dim]
	for k := 0; k < dim; k++ {
		if len(cols[k]) != len(rs) {
			return nil, nil, fmt.Errorf(
				"Column %d of '%s' has %d rows, but the radius column has %d.",
				k, fname, len(cols[k]), len(rs),
			)
		}
	}

	xs := make([]geom.Vec, len(rs))
	for i := range xs {
		for k := 0; k < dim; k++ {
			xs[i][k] = cols[k][i]
		}
		if !(rs[i] > 0) {
			return nil, nil, fmt.Errorf(
				"Particle %d in '%s' has non-positive radius %g.",
				i, fname, rs[i],
			)
		}
	}

	return xs, rs, nil
}

// ReadArena reads a catalog with ReadParticles and adds every particle in
// it to a new arena. Particles outside dom are an error.
func ReadArena(fname string, dom geom.Domain) (*hgrid.Particles, error) {
	xs, rs, err := ReadParticles(fname, dom.Dim)
	if err != nil {
		return nil, err
	}

	ps := hgrid.NewParticles(len(xs))
	for i := range xs {
		if !dom.Contains(xs[i]) {
			return nil, fmt.Errorf(
				"Particle %d in '%s' at %v is outside the domain.",
				i, fname, xs[i],
			)
		}
		ps.Add(xs[i], rs[i])
	}
	return ps, nil
}
