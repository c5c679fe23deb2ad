package hgrid

import (
	"math"
)

// CellSizes returns the cell sizes of levels spaced according to dist between
// particles of diameter minDiam and maxDiam. The coarsest level always holds
// maxDiam exactly. Fewer than levels sizes are returned if the diameters are
// equal or if LegacyDoubling runs out of room. Exponential spacing falls back
// to Linear when minDiam is not positive.
func CellSizes(
	dist LevelDistribution, levels int, minDiam, maxDiam, ratio float64,
) []float64 {
	top := ratio * maxDiam
	if levels <= 1 || minDiam >= maxDiam {
		return []float64{top}
	}

	sizes := make([]float64, levels)
	switch {
	case dist == LegacyDoubling:
		return doublingSizes(levels, ratio*minDiam, top)
	case dist == Exponential && minDiam > 0:
		for l := range sizes {
			frac := float64(l+1) / float64(levels)
			sizes[l] = ratio * minDiam * math.Pow(maxDiam/minDiam, frac)
		}
	default:
		for l := range sizes {
			frac := float64(l+1) / float64(levels)
			sizes[l] = ratio * (minDiam + (maxDiam-minDiam)*frac)
		}
	}
	sizes[levels-1] = top

	return dedupe(sizes)
}

func doublingSizes(levels int, low, top float64) []float64 {
	sizes := []float64{top}
	for len(sizes) < levels && sizes[len(sizes)-1]/2 >= low {
		sizes = append(sizes, sizes[len(sizes)-1]/2)
	}

	for i, j := 0, len(sizes)-1; i < j; i, j = i+1, j-1 {
		sizes[i], sizes[j] = sizes[j], sizes[i]
	}
	return sizes
}

// dedupe removes sizes which rounding has made non-increasing.
func dedupe(sizes []float64) []float64 {
	out := sizes[:1]
	for _, h := range sizes[1:] {
		if h > out[len(out)-1] {
			out = append(out, h)
		}
	}
	return out
}
