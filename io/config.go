/*package io reads the configuration files and particle catalogs used by the
hgrid command line tool.
*/
package io

import (
	"fmt"
	"math"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/hgrid"
	"github.com/phil-mansfield/hgrid/geom"
)

const ExampleGridFile = `[Grid]

#######################
# Required Parameters #
#######################

# The box which contains every particle. ZMin and ZMax are ignored when
# Dim = 2.
XMin = 0
YMin = 0
ZMin = 0
XMax = 100
YMax = 100
ZMax = 100

#######################
# Optional Parameters #
#######################

# Dimension of the simulation. Must be 2 or 3.
# Dim = 3

# Number of buckets in the hash table shared by every level. Larger tables
# have fewer collisions between cells and use more memory.
# BucketCount = 1048576

# How many times larger than a particle's diameter the cells of its level
# must be. Values above 1 let particles move some distance before the grid
# needs to be rebuilt.
# CellOversizeRatio = 1.0

# Number of levels, and how their cell sizes are spaced between the smallest
# and largest particles. LevelDistribution must be one of
# [ linear | exponential | legacy-doubling ].
# MaxLevels = 3
# LevelDistribution = exponential

# Explicit cell sizes, smallest first. If any are given, MaxLevels and
# LevelDistribution are ignored.
# CellSize = 1.0
# CellSize = 4.0
# CellSize = 10.0

# Whether particles search coarser levels (bottom-up) or finer levels
# (top-down) for neighbors. Must be one of [ bottom-up | top-down ].
# TraversalStrategy = bottom-up

# When false, particles are only moved between cells once their displacement
# has used up the margin given by CellOversizeRatio.
# RebuildEveryStep = true

# Choose the cell sizes of MaxLevels levels by minimizing a cost model
# instead of using LevelDistribution. OverheadRatio is the cost of visiting
# an empty cell relative to testing one pair.
# Optimize = false
# OverheadRatio = 1.0
# OptimizerIterations = 100
# HistogramBins = 64

# Output files which are useful for profiling and debugging.
# ProfileFile = prof.out
# LogFile = log.out`

type GridConfig struct {
	// Required
	XMin, YMin, ZMin float64
	XMax, YMax, ZMax float64

	// Optional
	Dim               int
	BucketCount       int
	CellOversizeRatio float64
	MaxLevels         int
	LevelDistribution string
	CellSize          []float64
	TraversalStrategy string
	RebuildEveryStep  bool

	Optimize            bool
	OverheadRatio       float64
	OptimizerIterations int
	HistogramBins       int

	LogFile, ProfileFile string
}

type GridWrapper struct {
	Grid GridConfig
}

func DefaultGridWrapper() *GridWrapper {
	def := hgrid.DefaultConfig()
	con := GridConfig{
		Dim:                 3,
		BucketCount:         def.BucketCount,
		CellOversizeRatio:   def.CellOversizeRatio,
		MaxLevels:           def.MaxLevels,
		LevelDistribution:   def.Distribution.String(),
		TraversalStrategy:   def.Strategy.String(),
		RebuildEveryStep:    def.RebuildEveryStep,
		OverheadRatio:       1,
		OptimizerIterations: 100,
		HistogramBins:       64,
	}
	return &GridWrapper{con}
}

func (con *GridConfig) ValidDim() bool { return con.Dim == 2 || con.Dim == 3 }
func (con *GridConfig) ValidBucketCount() bool {
	return con.BucketCount > 0
}
func (con *GridConfig) ValidCellOversizeRatio() bool {
	return con.CellOversizeRatio >= 1
}
func (con *GridConfig) ValidMaxLevels() bool {
	return con.MaxLevels > 0 && con.MaxLevels <= hgrid.MaxLevelCount
}
func (con *GridConfig) ValidLevelDistribution() bool {
	_, err := hgrid.ParseLevelDistribution(con.LevelDistribution)
	return err == nil
}
func (con *GridConfig) ValidTraversalStrategy() bool {
	_, err := hgrid.ParseStrategy(con.TraversalStrategy)
	return err == nil
}
func (con *GridConfig) ValidCellSize() bool { return len(con.CellSize) > 0 }
func (con *GridConfig) ValidOverheadRatio() bool {
	return con.OverheadRatio >= 0 && !math.IsInf(con.OverheadRatio, 0)
}
func (con *GridConfig) ValidOptimizerIterations() bool {
	return con.OptimizerIterations > 0
}
func (con *GridConfig) ValidHistogramBins() bool {
	return con.HistogramBins > 0
}
func (con *GridConfig) ValidLogFile() bool     { return con.LogFile != "" }
func (con *GridConfig) ValidProfileFile() bool { return con.ProfileFile != "" }

// Check returns an error describing the first invalid option.
func (con *GridConfig) Check() error {
	switch {
	case !con.ValidDim():
		return fmt.Errorf("Dim must be 2 or 3, but is %d.", con.Dim)
	case !con.ValidBucketCount():
		return fmt.Errorf(
			"BucketCount must be positive, but is %d.", con.BucketCount,
		)
	case !con.ValidCellOversizeRatio():
		return fmt.Errorf(
			"CellOversizeRatio must be at least 1, but is %g.",
			con.CellOversizeRatio,
		)
	case !con.ValidCellSize() && !con.ValidMaxLevels():
		return fmt.Errorf(
			"MaxLevels must be in the range [1, %d], but is %d.",
			hgrid.MaxLevelCount, con.MaxLevels,
		)
	case !con.ValidLevelDistribution():
		return fmt.Errorf(
			"LevelDistribution must be one of [linear | exponential | "+
				"legacy-doubling]. '%s' is not recognized.",
			con.LevelDistribution,
		)
	case !con.ValidTraversalStrategy():
		return fmt.Errorf(
			"TraversalStrategy must be one of [bottom-up | top-down]. '%s' "+
				"is not recognized.", con.TraversalStrategy,
		)
	case con.Optimize && con.ValidCellSize():
		return fmt.Errorf("Optimize cannot be set alongside CellSize values.")
	case !con.ValidOverheadRatio():
		return fmt.Errorf(
			"OverheadRatio must be non-negative, but is %g.", con.OverheadRatio,
		)
	case !con.ValidOptimizerIterations():
		return fmt.Errorf(
			"OptimizerIterations must be positive, but is %d.",
			con.OptimizerIterations,
		)
	case !con.ValidHistogramBins():
		return fmt.Errorf(
			"HistogramBins must be positive, but is %d.", con.HistogramBins,
		)
	}

	_, err := con.Domain()
	return err
}

// Domain returns the box given by the bounds in the configuration.
func (con *GridConfig) Domain() (geom.Domain, error) {
	dom := geom.Domain{
		Min: geom.Vec{con.XMin, con.YMin, con.ZMin},
		Max: geom.Vec{con.XMax, con.YMax, con.ZMax},
		Dim: con.Dim,
	}
	if err := dom.Check(); err != nil {
		return dom, err
	}
	return dom, nil
}

// Config converts the file's options into a grid configuration. The
// configuration is checked first.
func (con *GridConfig) Config() (hgrid.Config, error) {
	if err := con.Check(); err != nil {
		return hgrid.Config{}, err
	}

	dist, _ := hgrid.ParseLevelDistribution(con.LevelDistribution)
	strat, _ := hgrid.ParseStrategy(con.TraversalStrategy)
	var sizes []float64
	if con.ValidCellSize() {
		sizes = append(sizes, con.CellSize...)
	}
	cfg := hgrid.Config{
		BucketCount:       con.BucketCount,
		CellSizes:         sizes,
		MaxLevels:         con.MaxLevels,
		CellOversizeRatio: con.CellOversizeRatio,
		Distribution:      dist,
		Strategy:          strat,
		RebuildEveryStep:  con.RebuildEveryStep,
	}
	if err := cfg.Check(); err != nil {
		return hgrid.Config{}, err
	}
	return cfg, nil
}

// ReadGridConfig reads the [Grid] section of a config file. Unset options
// take their default values.
func ReadGridConfig(fname string) (*GridConfig, error) {
	wrap := DefaultGridWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Grid.Check(); err != nil {
		return nil, fmt.Errorf("Config file '%s': %s", fname, err.Error())
	}
	return &wrap.Grid, nil
}

// ParseGridConfig is identical to ReadGridConfig, except that it reads the
// config from a string.
func ParseGridConfig(text string) (*GridConfig, error) {
	wrap := DefaultGridWrapper()
	if err := gcfg.ReadStringInto(wrap, text); err != nil {
		return nil, err
	}
	if err := wrap.Grid.Check(); err != nil {
		return nil, err
	}
	return &wrap.Grid, nil
}
