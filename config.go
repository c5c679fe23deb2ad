package hgrid

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrConfig is wrapped by every grid configuration error.
	ErrConfig = errors.New("invalid grid configuration")
	// ErrTooLarge is returned when a particle does not fit into the
	// coarsest level of a grid.
	ErrTooLarge = errors.New("particle too large for grid")
	// ErrInGrid is returned when a particle is unexpectedly already
	// threaded into a grid.
	ErrInGrid = errors.New("particle already in grid")
	// ErrNotAlive is returned for indices of deleted particles.
	ErrNotAlive = errors.New("particle not alive")
)

// MaxLevelCount is the largest number of levels the occupancy mask can track.
const MaxLevelCount = 64

// Strategy selects how cross-level cells are searched.
type Strategy int

const (
	// BottomUp has every particle search the coarser levels.
	BottomUp Strategy = iota
	// TopDown has every particle search the finer levels.
	TopDown
)

var strategyNames = map[Strategy]string{
	BottomUp: "bottom-up",
	TopDown:  "top-down",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy converts "bottom-up" or "top-down" into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, sName := range strategyNames {
		if strings.EqualFold(sName, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf(
		"%w: unrecognized traversal strategy '%s'", ErrConfig, name,
	)
}

// LevelDistribution selects how initial cell sizes are spaced between the
// smallest and largest particles.
type LevelDistribution int

const (
	Linear LevelDistribution = iota
	Exponential
	// LegacyDoubling halves the cell size starting from the coarsest level.
	LegacyDoubling
)

var distributionNames = map[LevelDistribution]string{
	Linear:         "linear",
	Exponential:    "exponential",
	LegacyDoubling: "legacy-doubling",
}

func (d LevelDistribution) String() string {
	if name, ok := distributionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("LevelDistribution(%d)", int(d))
}

// ParseLevelDistribution converts "linear", "exponential", or
// "legacy-doubling" into a LevelDistribution.
func ParseLevelDistribution(name string) (LevelDistribution, error) {
	for d, dName := range distributionNames {
		if strings.EqualFold(dName, strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf(
		"%w: unrecognized level distribution '%s'", ErrConfig, name,
	)
}

// Config holds everything needed to construct a Grid.
type Config struct {
	// BucketCount is the size of the hash table shared by all levels.
	BucketCount int
	// CellSizes are the strictly increasing cell sizes of each level. If
	// empty, NewGrid chooses MaxLevels sizes with Distribution.
	CellSizes []float64
	MaxLevels int
	// CellOversizeRatio is how many times larger than a particle's diameter
	// the cells of its level must be. Must be at least 1.
	CellOversizeRatio float64
	Distribution      LevelDistribution
	Strategy          Strategy
	// RebuildEveryStep relocates every particle in BeginStep. Otherwise
	// relocation waits until particles have moved far enough to use up the
	// oversize margin.
	RebuildEveryStep bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BucketCount:       1 << 20,
		MaxLevels:         3,
		CellOversizeRatio: 1.0,
		Distribution:      Exponential,
		Strategy:          BottomUp,
		RebuildEveryStep:  true,
	}
}

// Check returns an error describing the first invalid field of the
// configuration. Empty CellSizes are allowed.
func (c *Config) Check() error {
	if c.BucketCount <= 0 {
		return fmt.Errorf(
			"%w: BucketCount must be positive, but is %d",
			ErrConfig, c.BucketCount,
		)
	} else if !(c.CellOversizeRatio >= 1) {
		return fmt.Errorf(
			"%w: CellOversizeRatio must be at least 1, but is %g",
			ErrConfig, c.CellOversizeRatio,
		)
	} else if _, ok := strategyNames[c.Strategy]; !ok {
		return fmt.Errorf("%w: unknown %s", ErrConfig, c.Strategy)
	} else if _, ok := distributionNames[c.Distribution]; !ok {
		return fmt.Errorf("%w: unknown %s", ErrConfig, c.Distribution)
	}

	if len(c.CellSizes) == 0 {
		if c.MaxLevels <= 0 || c.MaxLevels > MaxLevelCount {
			return fmt.Errorf(
				"%w: MaxLevels must be in [1, %d], but is %d",
				ErrConfig, MaxLevelCount, c.MaxLevels,
			)
		}
		return nil
	}
	return checkCellSizes(c.CellSizes)
}

func checkCellSizes(sizes []float64) error {
	if len(sizes) > MaxLevelCount {
		return fmt.Errorf(
			"%w: %d levels given, but at most %d are supported",
			ErrConfig, len(sizes), MaxLevelCount,
		)
	}
	for l, h := range sizes {
		if !(h > 0) || math.IsInf(h, 0) {
			return fmt.Errorf(
				"%w: cell size of level %d must be positive and finite, "+
					"but is %g", ErrConfig, l, h,
			)
		} else if l > 0 && h <= sizes[l-1] {
			return fmt.Errorf(
				"%w: cell sizes must be strictly increasing, but level %d "+
					"has size %g and level %d has size %g",
				ErrConfig, l-1, sizes[l-1], l, h,
			)
		}
	}
	return nil
}
