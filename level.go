package hgrid

import (
	"fmt"
)

// AssignLevel returns the lowest level whose cells are at least the oversize
// ratio times the given diameter. A diameter exactly at a boundary goes to
// the smaller of the two levels.
func (g *Grid) AssignLevel(diameter float64) (int, error) {
	for l, h := range g.sizes {
		if h >= diameter*g.ratio {
			return l, nil
		}
	}
	return -1, fmt.Errorf(
		"%w: diameter %g needs a cell size of %g, but the coarsest cell "+
			"size is %g", ErrTooLarge, diameter, diameter*g.ratio,
		g.sizes[len(g.sizes)-1],
	)
}

// Insert adds particle i to the grid.
func (g *Grid) Insert(i int) error {
	if !g.ps.Alive(i) {
		return fmt.Errorf("%w: particle %d", ErrNotAlive, i)
	}
	p := &g.ps.ps[i]
	if p.inGrid {
		return fmt.Errorf("%w: particle %d", ErrInGrid, i)
	}

	l, err := g.AssignLevel(2 * p.r)
	if err != nil {
		return fmt.Errorf("particle %d: %w", i, err)
	}
	g.insertAt(i, l, g.CellOf(p.x, l))
	return nil
}

// insertAt prepends i to the chain of its bucket.
func (g *Grid) insertAt(i, level int, cell [3]int) {
	p := &g.ps.ps[i]
	b := g.Hash(cell, level)

	p.level, p.cell, p.bucket = level, cell, b
	p.prev, p.next = None, g.head[b]
	if p.next != None {
		g.ps.ps[p.next].prev = i
	}
	g.head[b] = i

	p.inGrid = true
	p.anchor, p.rAnchor = p.x, p.r

	g.pop[level]++
	g.occupancy |= 1 << uint(level)
}

// Remove takes particle i out of the grid. Particles not in the grid are
// ignored.
func (g *Grid) Remove(i int) {
	if !g.ps.Alive(i) || !g.ps.ps[i].inGrid {
		return
	}
	p := &g.ps.ps[i]

	if p.prev != None {
		g.ps.ps[p.prev].next = p.next
	} else {
		g.head[p.bucket] = p.next
	}
	if p.next != None {
		g.ps.ps[p.next].prev = p.prev
	}

	g.pop[p.level]--
	if g.pop[p.level] == 0 {
		g.occupancy &^= 1 << uint(p.level)
	}

	p.prev, p.next, p.bucket, p.level = None, None, -1, -1
	p.inGrid = false
}

// Relocate moves particle i to the chain matching its current position and
// radius, inserting it if it isn't in the grid yet. If neither its level nor
// its cell has changed, the chains are left alone.
func (g *Grid) Relocate(i int) error {
	if !g.ps.Alive(i) {
		return fmt.Errorf("%w: particle %d", ErrNotAlive, i)
	}
	p := &g.ps.ps[i]

	l, err := g.AssignLevel(2 * p.r)
	if err != nil {
		return fmt.Errorf("particle %d: %w", i, err)
	}
	g.relocateAt(i, l)
	return nil
}

func (g *Grid) relocateAt(i, l int) {
	p := &g.ps.ps[i]
	cell := g.CellOf(p.x, l)

	if !p.inGrid {
		g.insertAt(i, l, cell)
		return
	} else if p.level == l && p.cell == cell {
		p.anchor, p.rAnchor = p.x, p.r
		return
	}

	g.Remove(i)
	g.insertAt(i, l, cell)
	g.Stats.Relocations++
}

// Rebuild relocates every live particle. Levels are checked for every
// particle before any chain is changed, so a failed rebuild leaves the grid
// exactly as it was.
func (g *Grid) Rebuild() error {
	levels, err := g.checkLevels(func(p *particle) bool { return true })
	if err != nil {
		return err
	}

	for _, pl := range levels {
		g.relocateAt(pl.i, pl.level)
	}
	g.delta = 0
	g.Stats.RelativeDisplacement = 0
	g.Stats.Rebuilds++
	return nil
}

type particleLevel struct {
	i, level int
}

// checkLevels finds the level of every live particle for which use returns
// true, stopping at the first one which does not fit.
func (g *Grid) checkLevels(
	use func(p *particle) bool,
) ([]particleLevel, error) {
	levels := []particleLevel{}
	for i := range g.ps.ps {
		p := &g.ps.ps[i]
		if !p.alive || !use(p) {
			continue
		}

		l, err := g.AssignLevel(2 * p.r)
		if err != nil {
			return nil, fmt.Errorf("particle %d: %w", i, err)
		}
		levels = append(levels, particleLevel{i, l})
	}
	return levels, nil
}

// Margin returns the relative displacement particles may accumulate before
// BeginStep needs to rebuild the grid.
func (g *Grid) Margin() float64 { return 1 - 1/g.ratio }

// BeginStep prepares the grid for a new traversal pass after the particles
// have moved. If the grid rebuilds every step, every particle is relocated.
// Otherwise particles are only relocated once their largest displacement
// since the last rebuild uses up the margin given by the oversize ratio;
// particles which are new to the grid or have changed radius are always
// placed. Afterwards the checked flags of all buckets are cleared.
//
// On error no particle has been moved.
func (g *Grid) BeginStep() error {
	defer g.BeginTraversal()

	if g.rebuildEvery {
		return g.Rebuild()
	}

	delta := 0.0
	for i := range g.ps.ps {
		p := &g.ps.ps[i]
		if !p.alive || !p.inGrid {
			continue
		}
		if d := p.x.Sub(p.anchor).Norm(g.dim); d > delta {
			delta = d
		}
	}

	rel := 2 * delta / g.sizes[0]
	if rel > g.Margin() {
		return g.Rebuild()
	}

	stale := func(p *particle) bool { return !p.inGrid || p.r != p.rAnchor }
	levels, err := g.checkLevels(stale)
	if err != nil {
		return err
	}
	for _, pl := range levels {
		g.relocateAt(pl.i, pl.level)
	}

	g.delta = delta
	g.Stats.RelativeDisplacement = rel
	return nil
}

// Clear removes every particle from the grid.
func (g *Grid) Clear() {
	for i := range g.ps.ps {
		g.Remove(i)
	}
	g.delta = 0
	g.Stats.RelativeDisplacement = 0
}
