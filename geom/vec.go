/*package geom contains the small amount of geometry the hash grid needs:
vectors, the axis-aligned simulation domain, and rectangular ranges of
integer cells.
*/
package geom

import (
	"math"
)

// Vec is a position or displacement. Two dimensional code ignores the final
// component.
type Vec [3]float64

// Sub returns v1 - v2.
func (v1 Vec) Sub(v2 Vec) Vec {
	return Vec{v1[0] - v2[0], v1[1] - v2[1], v1[2] - v2[2]}
}

// Dot returns the dot product of the first dim components v1 and v2.
func (v1 Vec) Dot(v2 Vec, dim int) float64 {
	sum := 0.0
	for i := 0; i < dim; i++ {
		sum += v1[i] * v2[i]
	}
	return sum
}

// Norm2 returns the squared length of the first dim components of v.
func (v Vec) Norm2(dim int) float64 { return v.Dot(v, dim) }

// Norm returns the length of the first dim components of v.
func (v Vec) Norm(dim int) float64 { return math.Sqrt(v.Norm2(dim)) }

// Dist2 returns the squared distance between v1 and v2.
func Dist2(v1, v2 Vec, dim int) float64 {
	return v1.Sub(v2).Norm2(dim)
}
