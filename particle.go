package hgrid

import (
	"fmt"

	"github.com/phil-mansfield/hgrid/geom"
)

// None is the index used for "no particle" in bucket chains.
const None = -1

type particle struct {
	x       geom.Vec
	r       float64
	anchor  geom.Vec // position at the last relocation
	rAnchor float64  // radius at the last relocation

	level, bucket int
	cell          [3]int
	prev, next    int

	alive, inGrid bool
}

// Particles is an arena of particles addressed by stable integer indices.
// Indices of deleted particles are recycled by later calls to Add.
//
// A Grid threads particles into its bucket chains by writing to the link
// fields of the arena, but never adds or deletes particles itself.
type Particles struct {
	ps   []particle
	free []int
	n    int
}

// NewParticles returns an empty arena with room for capacity particles
// before it needs to grow.
func NewParticles(capacity int) *Particles {
	return &Particles{ps: make([]particle, 0, capacity)}
}

// Add creates a particle with position x and interaction radius r and
// returns its index.
func (a *Particles) Add(x geom.Vec, r float64) int {
	p := particle{
		x: x, r: r, anchor: x, rAnchor: r,
		level: -1, bucket: -1, prev: None, next: None, alive: true,
	}

	a.n++
	if len(a.free) > 0 {
		i := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		a.ps[i] = p
		return i
	}

	a.ps = append(a.ps, p)
	return len(a.ps) - 1
}

// Delete frees the slot of particle i. A particle which is still in a grid
// must be removed from it first.
func (a *Particles) Delete(i int) error {
	if !a.Alive(i) {
		return fmt.Errorf("%w: particle %d", ErrNotAlive, i)
	} else if a.ps[i].inGrid {
		return fmt.Errorf("%w: cannot delete particle %d", ErrInGrid, i)
	}

	a.ps[i] = particle{level: -1, bucket: -1, prev: None, next: None}
	a.free = append(a.free, i)
	a.n--
	return nil
}

// Alive returns true if i is the index of a live particle.
func (a *Particles) Alive(i int) bool {
	return i >= 0 && i < len(a.ps) && a.ps[i].alive
}

// Len returns the number of live particles.
func (a *Particles) Len() int { return a.n }

// Slots returns one more than the largest index the arena has handed out.
func (a *Particles) Slots() int { return len(a.ps) }

// Each calls fn on every live particle in index order.
func (a *Particles) Each(fn func(i int)) {
	for i := range a.ps {
		if a.ps[i].alive {
			fn(i)
		}
	}
}

func (a *Particles) Position(i int) geom.Vec { return a.ps[i].x }
func (a *Particles) Radius(i int) float64    { return a.ps[i].r }

// SetPosition moves particle i. Grids notice the move on their next call to
// BeginStep.
func (a *Particles) SetPosition(i int, x geom.Vec) { a.ps[i].x = x }

// SetRadius changes the interaction radius of particle i. Grids notice the
// change on their next call to BeginStep.
func (a *Particles) SetRadius(i int, r float64) { a.ps[i].r = r }

// Level returns the grid level of particle i, or -1 if it is not in a grid.
func (a *Particles) Level(i int) int {
	if !a.ps[i].inGrid {
		return -1
	}
	return a.ps[i].level
}

// InGrid returns true if particle i is threaded into a grid.
func (a *Particles) InGrid(i int) bool { return a.ps[i].inGrid }

// MinMaxDiameter returns the smallest and largest interaction diameters of
// the live particles. ok is false if there are none.
func (a *Particles) MinMaxDiameter() (min, max float64, ok bool) {
	a.Each(func(i int) {
		d := 2 * a.ps[i].r
		if !ok {
			min, max, ok = d, d, true
		} else if d < min {
			min = d
		} else if d > max {
			max = d
		}
	})
	return min, max, ok
}

// Radii returns the interaction radii of all live particles.
func (a *Particles) Radii() []float64 {
	rs := make([]float64, 0, a.n)
	a.Each(func(i int) { rs = append(rs, a.ps[i].r) })
	return rs
}
