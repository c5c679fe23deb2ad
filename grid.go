/*package hgrid is a multi-level hash grid for finding the pairs of particles
which might be in contact in simulations where particle sizes span orders of
magnitude.

Each particle is placed in the finest level whose cells are large enough to
hold it, and each level's cells are hashed into a bucket table shared by all
levels. Every timestep the simulation calls BeginStep after moving its
particles and then FindCandidatePairs for each particle (or FindAllPairs
once). Candidate pairs are a superset of the pairs whose interaction spheres
overlap.
*/
package hgrid

import (
	"fmt"

	"github.com/phil-mansfield/hgrid/geom"
)

// Hashing constants. Each is a large odd number.
const (
	hashX     = 73856093
	hashY     = 19349663
	hashZ     = 83492791
	hashLevel = 67867979
)

// Grid is a multi-level spatial hash grid over the particles of an arena.
type Grid struct {
	ps  *Particles
	dom geom.Domain
	dim int

	sizes, invSizes []float64
	ratio           float64
	strategy        Strategy
	rebuildEvery    bool

	head    []int
	checked []bool

	occupancy uint64
	pop       []int

	half [][3]int
	cb   geom.CellBounds

	// delta is the largest distance any particle has moved since its last
	// relocation.
	delta float64

	Stats Stats
}

// Stats records what the grid did during the most recent step.
type Stats struct {
	// Rebuilds counts full relocations since the grid was created.
	Rebuilds int
	// Relocations counts particles moved to a new cell since the grid was
	// created.
	Relocations int
	// RelativeDisplacement is twice the largest displacement since the last
	// rebuild over the smallest cell size.
	RelativeDisplacement float64
	// Candidates and CellsVisited are reset by BeginTraversal.
	Candidates, CellsVisited int
}

// NewGrid creates a grid over the particles in ps inside the domain dom. If
// cfg.CellSizes is empty, cell sizes are chosen from the particles currently
// in ps with cfg.Distribution. The particles are not inserted: call Rebuild
// or BeginStep for that.
func NewGrid(cfg Config, dom geom.Domain, ps *Particles) (*Grid, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	} else if err := dom.Check(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfig, err.Error())
	}

	sizes := cfg.CellSizes
	if len(sizes) == 0 {
		min, max, ok := ps.MinMaxDiameter()
		if !ok || max <= 0 {
			return nil, fmt.Errorf(
				"%w: no CellSizes given and no sized particles to choose " +
					"them from", ErrConfig,
			)
		}
		sizes = CellSizes(
			cfg.Distribution, cfg.MaxLevels, min, max, cfg.CellOversizeRatio,
		)
	}
	if err := checkCellSizes(sizes); err != nil {
		return nil, err
	}

	g := &Grid{
		ps: ps, dom: dom, dim: dom.Dim,
		sizes:        append([]float64{}, sizes...),
		invSizes:     make([]float64, len(sizes)),
		ratio:        cfg.CellOversizeRatio,
		strategy:     cfg.Strategy,
		rebuildEvery: cfg.RebuildEveryStep,
		head:         make([]int, cfg.BucketCount),
		checked:      make([]bool, cfg.BucketCount),
		pop:          make([]int, len(sizes)),
		half:         geom.HalfNeighbors(dom.Dim),
	}
	for l, h := range g.sizes {
		g.invSizes[l] = 1 / h
	}
	for b := range g.head {
		g.head[b] = None
	}

	return g, nil
}

// Hash maps the cell at the given coordinates and level to a bucket index in
// [0, BucketCount()).
func (g *Grid) Hash(cell [3]int, level int) int {
	h := uint64(int64(cell[0]))*hashX +
		uint64(int64(cell[1]))*hashY +
		uint64(int64(cell[2]))*hashZ +
		uint64(level)*hashLevel
	return int(h % uint64(len(g.head)))
}

// local returns x relative to the lower corner of the domain.
func (g *Grid) local(x geom.Vec) geom.Vec { return x.Sub(g.dom.Min) }

// CellOf returns the cell which position x falls in at the given level.
func (g *Grid) CellOf(x geom.Vec, level int) [3]int {
	return geom.Cell(g.local(x), g.invSizes[level], g.dim)
}

func (g *Grid) Levels() int { return len(g.sizes) }
func (g *Grid) CellSize(level int) float64 { return g.sizes[level] }
func (g *Grid) BucketCount() int { return len(g.head) }
func (g *Grid) Dim() int { return g.dim }
func (g *Grid) Strategy() Strategy { return g.strategy }
func (g *Grid) Particles() *Particles { return g.ps }

// CellSizes returns a copy of the cell sizes of every level.
func (g *Grid) CellSizes() []float64 { return append([]float64{}, g.sizes...) }

// Occupancy returns a mask whose l-th bit is set if level l holds a particle.
func (g *Grid) Occupancy() uint64 { return g.occupancy }

// Occupied returns true if any particle is in the given level.
func (g *Grid) Occupied(level int) bool {
	return g.occupancy&(1<<uint(level)) != 0
}

// LevelPopulation returns the number of particles in the given level.
func (g *Grid) LevelPopulation(level int) int { return g.pop[level] }

// Bucket returns the particles chained in bucket b, head first.
func (g *Grid) Bucket(b int) []int {
	out := []int{}
	for i := g.head[b]; i != None; i = g.ps.ps[i].next {
		out = append(out, i)
	}
	return out
}
