package hgrid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/hgrid/geom"
)

func TestAssignLevel(t *testing.T) {
	table := []struct {
		ratio, diameter float64
		level           int
	}{
		{1, 0.5, 0},
		{1, 1, 0}, // boundary goes to the smaller level
		{1, 1.0001, 1},
		{1, 2, 1},
		{1, 3.9, 2},
		{1, 4, 2},
		{2, 0.5, 0},
		{2, 0.6, 1},
		{2, 2, 2},
		{1, 0, 0},
	}

	for i, test := range table {
		cfg := configWith(1, 2, 4)
		cfg.CellOversizeRatio = test.ratio
		g, err := NewGrid(cfg, box(10, 3), NewParticles(0))
		require.NoError(t, err)

		for rep := 0; rep < 3; rep++ {
			l, err := g.AssignLevel(test.diameter)
			assert.NoError(t, err, "%d", i)
			assert.Equal(t, test.level, l, "%d) diameter %g, ratio %g",
				i, test.diameter, test.ratio)
		}
	}

	g, err := NewGrid(configWith(1, 2, 4), box(10, 3), NewParticles(0))
	require.NoError(t, err)
	_, err = g.AssignLevel(4.01)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

// chains returns the contents of every non-empty bucket.
func chains(g *Grid) map[int][]int {
	out := map[int][]int{}
	for b := 0; b < g.BucketCount(); b++ {
		if chain := g.Bucket(b); len(chain) > 0 {
			out[b] = chain
		}
	}
	return out
}

// checkLinks verifies that the forward and backward links of every chain
// agree and that every particle is in the bucket its cell hashes to.
func checkLinks(t *testing.T, g *Grid) {
	ps := g.ps.ps
	total := 0
	for b := 0; b < g.BucketCount(); b++ {
		prev := None
		for i := g.head[b]; i != None; i = ps[i].next {
			require.Equal(t, prev, ps[i].prev, "bucket %d", b)
			require.True(t, ps[i].inGrid)
			require.Equal(t, b, ps[i].bucket)
			require.Equal(t, b, g.Hash(ps[i].cell, ps[i].level))
			prev = i
			total++
		}
	}

	pop := 0
	for l := 0; l < g.Levels(); l++ {
		pop += g.LevelPopulation(l)
		assert.Equal(t, g.LevelPopulation(l) > 0, g.Occupied(l), "level %d", l)
	}
	assert.Equal(t, total, pop)
}

func TestInsertRemove(t *testing.T) {
	ps := NewParticles(4)
	a := ps.Add(geom.Vec{0.5, 0.5, 0.5}, 0.25)
	b := ps.Add(geom.Vec{0.7, 0.5, 0.5}, 0.25)
	c := ps.Add(geom.Vec{5, 5, 5}, 1.5)

	cfg := configWith(1, 2, 4)
	cfg.BucketCount = 3
	g, err := NewGrid(cfg, box(10, 3), ps)
	require.NoError(t, err)

	require.NoError(t, g.Insert(a))
	require.NoError(t, g.Insert(b))
	require.NoError(t, g.Insert(c))
	checkLinks(t, g)
	assert.True(t, errors.Is(g.Insert(a), ErrInGrid))

	assert.Equal(t, 0, ps.Level(a))
	assert.Equal(t, 2, ps.Level(c))
	assert.Equal(t, uint64(0x5), g.Occupancy())
	assert.Equal(t, 2, g.LevelPopulation(0))

	// a and b share a cell, so b was prepended in front of a.
	chain := g.Bucket(g.Hash(g.CellOf(ps.Position(a), 0), 0))
	assert.Equal(t, []int{b, a}, without(chain, c))

	g.Remove(b)
	checkLinks(t, g)
	assert.Equal(t, uint64(0x5), g.Occupancy())
	g.Remove(a)
	g.Remove(a)
	checkLinks(t, g)
	assert.Equal(t, uint64(0x4), g.Occupancy())
	assert.Equal(t, -1, ps.Level(a))

	assert.True(t, errors.Is(ps.Delete(c), ErrInGrid))
	g.Remove(c)
	assert.NoError(t, ps.Delete(c))
	assert.True(t, errors.Is(ps.Delete(c), ErrNotAlive))
	assert.True(t, errors.Is(g.Insert(c), ErrNotAlive))
	assert.Equal(t, uint64(0), g.Occupancy())

	// Freed indices are recycled.
	d := ps.Add(geom.Vec{1, 1, 1}, 0.1)
	assert.Equal(t, c, d)
	assert.Equal(t, 3, ps.Len())
}

func without(xs []int, x int) []int {
	out := []int{}
	for _, y := range xs {
		if y != x {
			out = append(out, y)
		}
	}
	return out
}

func TestInsertTooLarge(t *testing.T) {
	ps := NewParticles(1)
	i := ps.Add(geom.Vec{1, 1, 1}, 3)

	g, err := NewGrid(configWith(1, 2, 4), box(10, 3), ps)
	require.NoError(t, err)
	assert.True(t, errors.Is(g.Insert(i), ErrTooLarge))
	assert.False(t, ps.InGrid(i))
}

func TestRelocateIdempotent(t *testing.T) {
	ps := NewParticles(50)
	for i := 0; i < 50; i++ {
		ps.Add(geom.Vec{float64(i % 7), float64(i % 5), float64(i % 3)}, 0.4)
	}

	cfg := configWith(1, 2, 4)
	cfg.BucketCount = 5
	g, err := NewGrid(cfg, box(10, 3), ps)
	require.NoError(t, err)
	require.NoError(t, g.Rebuild())
	checkLinks(t, g)

	before := chains(g)
	for rep := 0; rep < 2; rep++ {
		for i := 0; i < 50; i++ {
			require.NoError(t, g.Relocate(i))
		}
		assert.Equal(t, before, chains(g))
	}
	assert.Equal(t, 0, g.Stats.Relocations)
}

func TestRelocateMoves(t *testing.T) {
	ps := NewParticles(2)
	i := ps.Add(geom.Vec{0.5, 0.5, 0.5}, 0.25)

	g, err := NewGrid(configWith(1, 2, 4), box(10, 3), ps)
	require.NoError(t, err)
	require.NoError(t, g.Relocate(i))
	assert.True(t, ps.InGrid(i))

	ps.SetPosition(i, geom.Vec{3.5, 0.5, 0.5})
	require.NoError(t, g.Relocate(i))
	assert.Equal(t, [3]int{3, 0, 0}, g.ps.ps[i].cell)
	assert.Equal(t, 1, g.Stats.Relocations)

	ps.SetRadius(i, 0.75)
	require.NoError(t, g.Relocate(i))
	assert.Equal(t, 1, ps.Level(i))
	assert.Equal(t, uint64(0x2), g.Occupancy())
	checkLinks(t, g)

	ps.SetRadius(i, 5)
	assert.True(t, errors.Is(g.Relocate(i), ErrTooLarge))
	assert.Equal(t, 1, ps.Level(i))
}

func TestRebuildTransactional(t *testing.T) {
	ps := NewParticles(3)
	ps.Add(geom.Vec{1, 1, 1}, 0.2)
	ps.Add(geom.Vec{2, 2, 2}, 0.9)

	g, err := NewGrid(configWith(1, 2, 4), box(10, 3), ps)
	require.NoError(t, err)
	require.NoError(t, g.BeginStep())
	before := chains(g)

	ps.SetPosition(0, geom.Vec{8, 8, 8})
	ps.Add(geom.Vec{5, 5, 5}, 10)

	err = g.BeginStep()
	assert.True(t, errors.Is(err, ErrTooLarge))
	assert.Equal(t, before, chains(g))
	assert.Equal(t, 2, g.LevelPopulation(0)+g.LevelPopulation(1))
}

func TestDeferredRebuild(t *testing.T) {
	ps := NewParticles(2)
	a := ps.Add(geom.Vec{1.1, 1.1, 1.1}, 0.25)
	ps.Add(geom.Vec{5, 5, 5}, 0.25)

	cfg := configWith(1, 2, 4)
	cfg.CellOversizeRatio = 2
	cfg.RebuildEveryStep = false
	g, err := NewGrid(cfg, box(10, 3), ps)
	require.NoError(t, err)
	assert.Equal(t, 0.5, g.Margin())

	require.NoError(t, g.BeginStep())
	assert.Equal(t, 2, g.LevelPopulation(0))
	assert.Equal(t, 0, g.Stats.Rebuilds)

	// 2 * 0.2 / 1 is inside the margin: the particle keeps its stale cell.
	ps.SetPosition(a, geom.Vec{0.9, 1.1, 1.1})
	require.NoError(t, g.BeginStep())
	assert.Equal(t, 0, g.Stats.Rebuilds)
	assert.InDelta(t, 0.4, g.Stats.RelativeDisplacement, 1e-9)
	assert.Equal(t, [3]int{1, 1, 1}, g.ps.ps[a].cell)

	ps.SetPosition(a, geom.Vec{0.8, 1.1, 1.1})
	require.NoError(t, g.BeginStep())
	assert.Equal(t, 1, g.Stats.Rebuilds)
	assert.Equal(t, [3]int{0, 1, 1}, g.ps.ps[a].cell)
	assert.Equal(t, 0.0, g.Stats.RelativeDisplacement)

	// A change in radius is picked up without a rebuild.
	ps.SetRadius(a, 0.75)
	require.NoError(t, g.BeginStep())
	assert.Equal(t, 1, g.Stats.Rebuilds)
	assert.Equal(t, 2, ps.Level(a))
	checkLinks(t, g)
}

func TestClear(t *testing.T) {
	ps := NewParticles(10)
	for i := 0; i < 10; i++ {
		ps.Add(geom.Vec{float64(i), 1, 1}, 0.3)
	}
	g, err := NewGrid(configWith(1, 2), box(10, 3), ps)
	require.NoError(t, err)
	require.NoError(t, g.Rebuild())
	assert.Equal(t, 10, g.LevelPopulation(0))

	g.Clear()
	assert.Equal(t, 0, len(chains(g)))
	assert.Equal(t, uint64(0), g.Occupancy())
	for i := 0; i < 10; i++ {
		assert.False(t, ps.InGrid(i))
	}
}
