package hgrid

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/hgrid/geom"
)

type pairSet map[[2]int]int

func key(a, b int) [2]int {
	if a > b {
		return [2]int{b, a}
	}
	return [2]int{a, b}
}

func candidates(g *Grid) pairSet {
	pairs := pairSet{}
	g.FindAllPairs(func(a, b int) {
		pairs[key(a, b)]++
	})
	return pairs
}

func bruteForce(g *Grid) pairSet {
	pairs := pairSet{}
	n := g.ps.Slots()
	for i := 0; i < n; i++ {
		if !g.ps.Alive(i) {
			continue
		}
		for j := i + 1; j < n; j++ {
			if g.ps.Alive(j) && g.Overlaps(i, j) {
				pairs[key(i, j)]++
			}
		}
	}
	return pairs
}

// checkSuperset verifies that every overlapping pair is a candidate and that
// no candidate is reported twice.
func checkSuperset(t *testing.T, cand, truth pairSet, msg string) {
	for pair, n := range cand {
		require.Equal(t, 1, n, "%s: pair %v reported %d times", msg, pair, n)
	}
	for pair := range truth {
		require.Contains(t, cand, pair, "%s: overlapping pair missed", msg)
	}
}

func TestCompleteness(t *testing.T) {
	strategies := []Strategy{BottomUp, TopDown}
	dists := []LevelDistribution{Linear, Exponential, LegacyDoubling}

	for _, dim := range []int{2, 3} {
		for _, strat := range strategies {
			for _, dist := range dists {
				for _, ratio := range []float64{1, 1.5} {
					msg := fmt.Sprintf("%dD %s %s ratio=%g",
						dim, strat, dist, ratio)

					gen := rand.New(rand.NewSource(int64(dim*100) + 7))
					n := 300
					if dim == 2 {
						n = 150
					}
					ps := randomParticles(gen, n, 20, 0.05, 2, dim)

					cfg := configWith()
					cfg.BucketCount = 97
					cfg.MaxLevels = 4
					cfg.Distribution = dist
					cfg.Strategy = strat
					cfg.CellOversizeRatio = ratio

					g, err := NewGrid(cfg, box(20, dim), ps)
					require.NoError(t, err, msg)
					require.NoError(t, g.BeginStep(), msg)

					truth := bruteForce(g)
					require.True(t, len(truth) > 10, msg)
					checkSuperset(t, candidates(g), truth, msg)
				}
			}
		}
	}
}

func TestCompletenessDeferred(t *testing.T) {
	for _, strat := range []Strategy{BottomUp, TopDown} {
		gen := rand.New(rand.NewSource(3))
		ps := randomParticles(gen, 300, 20, 0.05, 2, 3)

		cfg := configWith()
		cfg.MaxLevels = 4
		cfg.Strategy = strat
		cfg.CellOversizeRatio = 2
		cfg.RebuildEveryStep = false

		g, err := NewGrid(cfg, box(20, 3), ps)
		require.NoError(t, err)

		steps := 10
		for step := 0; step < steps; step++ {
			ps.Each(func(i int) {
				x := ps.Position(i)
				for k := 0; k < 3; k++ {
					x[k] += 0.04 * (gen.Float64() - 0.5)
				}
				ps.SetPosition(i, x)
			})
			require.NoError(t, g.BeginStep())

			msg := fmt.Sprintf("%s step %d", strat, step)
			checkSuperset(t, candidates(g), bruteForce(g), msg)
		}
		assert.True(t, g.Stats.Rebuilds < steps, "%d rebuilds", g.Stats.Rebuilds)
	}
}

func TestSelfCellCount(t *testing.T) {
	// With a single bucket every cell collides with every other.
	cells := []struct {
		x geom.Vec
		n int
	}{
		{geom.Vec{1, 1, 1}, 5},
		{geom.Vec{11, 11, 11}, 4},
		{geom.Vec{1, 11, 1}, 1},
		{geom.Vec{17, 3, 9}, 7},
	}

	for _, strat := range []Strategy{BottomUp, TopDown} {
		ps := NewParticles(20)
		owner := map[int]int{}
		for c, cell := range cells {
			for k := 0; k < cell.n; k++ {
				x := cell.x
				x[0] += 0.1 * float64(k)
				owner[ps.Add(x, 0.1)] = c
			}
		}

		cfg := configWith(2, 4)
		cfg.BucketCount = 1
		cfg.Strategy = strat
		g, err := NewGrid(cfg, box(20, 3), ps)
		require.NoError(t, err)
		require.NoError(t, g.BeginStep())

		// Running the pass twice over the same flags adds nothing.
		pairs := candidates(g)
		ps.Each(func(i int) {
			g.FindCandidatePairs(i, func(a, b int) {
				t.Errorf("pair (%d, %d) repeated", a, b)
			})
		})

		perCell := make([]int, len(cells))
		for pair, n := range pairs {
			assert.Equal(t, 1, n)
			assert.Equal(t, owner[pair[0]], owner[pair[1]],
				"pair %v crosses cells", pair)
			perCell[owner[pair[0]]]++
		}
		for c, cell := range cells {
			assert.Equal(t, cell.n*(cell.n-1)/2, perCell[c], "cell %d", c)
		}
	}
}

// collidingCells returns two cells two or more cells apart which hash to the
// same bucket of g at level 0.
func collidingCells(g *Grid) (c1, c2 [3]int) {
	c1 = [3]int{2, 2, 2}
	b := g.Hash(c1, 0)
	for x := 5; x < 1000; x++ {
		c2 = [3]int{x, 2, 2}
		if g.Hash(c2, 0) == b {
			return c1, c2
		}
	}
	panic("no colliding cells")
}

func TestHashCollisionSafety(t *testing.T) {
	for _, strat := range []Strategy{BottomUp, TopDown} {
		ps := NewParticles(4)
		cfg := configWith(1, 8)
		cfg.BucketCount = 7
		cfg.Strategy = strat
		g, err := NewGrid(cfg, box(2000, 3), ps)
		require.NoError(t, err)

		c1, c2 := collidingCells(g)
		require.NotEqual(t, c1, c2)

		center := func(c [3]int) geom.Vec {
			return geom.Vec{
				float64(c[0]) + 0.5, float64(c[1]) + 0.5, float64(c[2]) + 0.5,
			}
		}
		a := ps.Add(center(c1), 0.3)
		b := ps.Add(center(c2), 0.3)
		// A large particle which hashes somewhere at level 1.
		big := ps.Add(geom.Vec{1500, 1500, 1500}, 2)

		require.NoError(t, g.BeginStep())
		assert.Equal(t, g.ps.ps[a].bucket, g.ps.ps[b].bucket)

		pairs := candidates(g)
		assert.NotContains(t, pairs, key(a, b), "%s", strat)
		assert.NotContains(t, pairs, key(a, big), "%s", strat)
		assert.Equal(t, 0, len(pairs), "%s", strat)
	}
}

func TestHandCheckedPairs(t *testing.T) {
	// Ten well-separated clumps, each holding one small and one large
	// particle which overlap. Every candidate should be a real contact.
	offsets := []geom.Vec{
		{1.2, 0, 0}, {0, 1.2, 0}, {0, 0, -1.2}, {0.8, 0.8, 0},
		{-1.4, 0, 0}, {0, -1, 0.5}, {0.5, 0.5, 0.5}, {0, 0, 1.45},
		{-0.7, -0.7, -0.7}, {1, 0, -1},
	}

	for _, strat := range []Strategy{BottomUp, TopDown} {
		ps := NewParticles(20)
		for k, off := range offsets {
			c := geom.Vec{10 + 20*float64(k), 10, 10}
			ps.Add(c, 0.5)
			ps.Add(geom.Vec{c[0] + off[0], c[1] + off[1], c[2] + off[2]}, 1)
		}

		cfg := configWith(1, 2)
		cfg.Strategy = strat
		dom := geom.Domain{Max: geom.Vec{220, 20, 20}, Dim: 3}
		g, err := NewGrid(cfg, dom, ps)
		require.NoError(t, err)
		require.NoError(t, g.BeginStep())
		assert.Equal(t, 10, g.LevelPopulation(0))
		assert.Equal(t, 10, g.LevelPopulation(1))

		truth := bruteForce(g)
		pairs := candidates(g)
		assert.Equal(t, 10, len(truth))
		assert.Equal(t, truth, pairs, "%s", strat)
		assert.Equal(t, 10, g.Stats.Candidates)
	}
}

func TestOverlapPredicates(t *testing.T) {
	ps := NewParticles(3)
	a := ps.Add(geom.Vec{1, 1, 1}, 0.5)
	b := ps.Add(geom.Vec{1.75, 1, 1}, 0.5)
	c := ps.Add(geom.Vec{3, 1, 1}, 0.5)

	g, err := NewGrid(configWith(1, 2, 4), box(10, 3), ps)
	require.NoError(t, err)
	require.NoError(t, g.BeginStep())

	assert.True(t, g.Overlaps(a, b))
	assert.True(t, g.Overlaps(b, a))
	assert.False(t, g.Overlaps(a, c))
	// Touching spheres do not overlap.
	assert.False(t, g.Overlaps(b, ps.Add(geom.Vec{2.75, 1, 1}, 0.5)))

	assert.True(t, g.HasOverlap(geom.Vec{2, 2, 1}, 1.2, None))
	assert.False(t, g.HasOverlap(geom.Vec{7, 7, 7}, 1.9, None))
	assert.True(t, g.HasOverlap(geom.Vec{7, 7, 7}, 9, None))
	assert.False(t, g.HasOverlap(geom.Vec{3, 1, 1}, 0.55, c))
	assert.True(t, g.HasOverlap(geom.Vec{3, 1, 1}, 0.8, c))

	// HasOverlap never reports candidates.
	assert.Equal(t, 0, g.Stats.Candidates)
}

func TestHasOverlapMatchesBruteForce(t *testing.T) {
	gen := rand.New(rand.NewSource(11))
	ps := randomParticles(gen, 200, 20, 0.05, 1.5, 3)

	cfg := configWith()
	cfg.MaxLevels = 3
	g, err := NewGrid(cfg, box(20, 3), ps)
	require.NoError(t, err)
	require.NoError(t, g.BeginStep())

	for trial := 0; trial < 200; trial++ {
		x := geom.Vec{gen.Float64() * 20, gen.Float64() * 20, gen.Float64() * 20}
		r := 0.05 + gen.Float64()

		expected := false
		ps.Each(func(i int) {
			rSum := r + ps.Radius(i)
			if geom.Dist2(x, ps.Position(i), 3) < rSum*rSum {
				expected = true
			}
		})
		assert.Equal(t, expected, g.HasOverlap(x, r, None), "trial %d", trial)
	}
}

func BenchmarkFindAllPairs(b *testing.B) {
	gen := rand.New(rand.NewSource(1))
	ps := randomParticles(gen, 10000, 100, 0.1, 3, 3)

	cfg := DefaultConfig()
	cfg.MaxLevels = 4
	g, err := NewGrid(cfg, box(100, 3), ps)
	if err != nil {
		b.Fatal(err.Error())
	}
	if err := g.BeginStep(); err != nil {
		b.Fatal(err.Error())
	}

	n := 0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.FindAllPairs(func(i, j int) { n++ })
	}
}
