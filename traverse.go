package hgrid

import (
	"github.com/phil-mansfield/hgrid/geom"
)

// PairFunc receives candidate pairs. It is called once per unordered pair
// in each traversal pass and is expected to do the exact contact test.
type PairFunc func(a, b int)

// BeginTraversal clears the checked flags of every bucket and the traversal
// statistics. BeginStep calls it, so it is only needed when traversing the
// same step twice.
func (g *Grid) BeginTraversal() {
	for b := range g.checked {
		g.checked[b] = false
	}
	g.Stats.Candidates, g.Stats.CellsVisited = 0, 0
}

// FindAllPairs starts a new traversal pass and reports every candidate pair
// in the grid to fn.
func (g *Grid) FindAllPairs(fn PairFunc) {
	g.BeginTraversal()
	for i := range g.ps.ps {
		if g.ps.ps[i].inGrid {
			g.FindCandidatePairs(i, fn)
		}
	}
}

// FindCandidatePairs reports to fn the candidate pairs which are the
// responsibility of particle i. Calling it once for every particle in the
// grid between calls to BeginTraversal reports each pair which might overlap
// exactly once. Particles which are not in the grid have no pairs.
func (g *Grid) FindCandidatePairs(i int, fn PairFunc) {
	if !g.ps.Alive(i) || !g.ps.ps[i].inGrid {
		return
	}
	p := &g.ps.ps[i]
	level := p.level

	g.scanSelfBucket(p.bucket, fn)
	for _, off := range g.half {
		cell := [3]int{
			p.cell[0] + off[0], p.cell[1] + off[1], p.cell[2] + off[2],
		}
		g.scanCell(i, cell, level, fn)
	}

	switch g.strategy {
	case BottomUp:
		for l := level + 1; l < len(g.sizes); l++ {
			if g.Occupied(l) {
				g.scanLevel(i, l, fn)
			}
		}
	case TopDown:
		for l := level - 1; l >= 0; l-- {
			if g.Occupied(l) {
				g.scanLevel(i, l, fn)
			}
		}
	}
}

// scanSelfBucket compares every particle in bucket b against every later
// particle in the same cell. All the cells which hash to b are handled at
// once, so the bucket is not scanned again until the next BeginTraversal.
func (g *Grid) scanSelfBucket(b int, fn PairFunc) {
	if g.checked[b] {
		return
	}
	g.checked[b] = true
	g.Stats.CellsVisited++

	ps := g.ps.ps
	for i := g.head[b]; i != None; i = ps[i].next {
		for j := ps[i].next; j != None; j = ps[j].next {
			if ps[j].level == ps[i].level && ps[j].cell == ps[i].cell {
				g.Stats.Candidates++
				fn(i, j)
			}
		}
	}
}

// scanCell compares particle i against the particles in the given cell.
// Other cells which hash to the same bucket are skipped.
func (g *Grid) scanCell(i int, cell [3]int, level int, fn PairFunc) {
	g.Stats.CellsVisited++

	ps := g.ps.ps
	for j := g.head[g.Hash(cell, level)]; j != None; j = ps[j].next {
		if j != i && ps[j].level == level && ps[j].cell == cell {
			g.Stats.Candidates++
			fn(i, j)
		}
	}
}

// scanLevel compares particle i against every cell of another level which
// could hold a particle overlapping it.
func (g *Grid) scanLevel(i, level int, fn PairFunc) {
	p := &g.ps.ps[i]
	geom.SphereBounds(
		g.local(p.anchor), p.rAnchor+2*g.delta, g.sizes[level], g.dim, &g.cb,
	)

	cb := g.cb
	for idx := 0; idx < cb.Volume(); idx++ {
		g.scanCell(i, cb.Coords(idx), level, fn)
	}
}

// Overlaps returns true if the interaction spheres of particles a and b
// overlap. It does not need the grid's chains to be current.
func (g *Grid) Overlaps(a, b int) bool {
	pa, pb := &g.ps.ps[a], &g.ps.ps[b]
	r := pa.r + pb.r
	return geom.Dist2(pa.x, pb.x, g.dim) < r*r
}

// HasOverlap returns true if a sphere at x with radius r overlaps any
// particle in the grid other than ignore. It is meant for checking that a
// new particle can be placed without intersecting existing ones.
func (g *Grid) HasOverlap(x geom.Vec, r float64, ignore int) bool {
	ps := g.ps.ps
	cb := &geom.CellBounds{}

	for l := range g.sizes {
		if !g.Occupied(l) {
			continue
		}
		geom.SphereBounds(g.local(x), r+g.delta, g.sizes[l], g.dim, cb)

		for idx := 0; idx < cb.Volume(); idx++ {
			cell := cb.Coords(idx)
			for j := g.head[g.Hash(cell, l)]; j != None; j = ps[j].next {
				if j == ignore || ps[j].level != l || ps[j].cell != cell {
					continue
				}
				rSum := r + ps[j].r
				if geom.Dist2(x, ps[j].x, g.dim) < rSum*rSum {
					return true
				}
			}
		}
	}
	return false
}
