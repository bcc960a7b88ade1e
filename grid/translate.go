package grid

import (
	"math"
)

// PointToIndex returns the index of the cell containing p. Points lying on a
// cell edge belong to the cell that starts at that edge.
func (g *Grid[H]) PointToIndex(p []float64) Index {
	g.mustDims(len(p))

	i := make(Index, len(g.h))
	for k, h := range g.h {
		i[k] = floorIndex(p[k] / h)
	}
	return i
}

// PointToIndexOffset returns the index of the cell containing p along with the
// position of p relative to the lower corner of that cell. Each offset
// component lies in [0, CellSize()[k]).
func (g *Grid[H]) PointToIndexOffset(p []float64) (Index, []float64) {
	g.mustDims(len(p))

	i := make(Index, len(g.h))
	u := make([]float64, len(g.h))
	for k, h := range g.h {
		f := math.Floor(p[k] / h)
		i[k] = floorIndex(f)
		u[k] = cellOffset(p[k], f, h)
	}
	return i, u
}

// floorIndex returns floor(x) as an index component, clamped to the int
// range. Cells beyond that range collapse onto the outermost ones.
func floorIndex(x float64) int {
	f := math.Floor(x)
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	default:
		return int(f)
	}
}

// addIndex returns i+d, saturating at the int range.
func addIndex(i, d int) int {
	switch {
	case d > 0 && i > math.MaxInt-d:
		return math.MaxInt
	case d < 0 && i < math.MinInt-d:
		return math.MinInt
	default:
		return i + d
	}
}

// cellOffset keeps the offset inside [0, h) despite rounding in p/h.
func cellOffset(p, f, h float64) float64 {
	u := p - f*h
	if u < 0 {
		return 0
	}
	if u >= h {
		return math.Nextafter(h, 0)
	}
	return u
}

// IndexBucketBounds returns the lower and upper corners of the cell at i. The
// cell covers [min[k], max[k]) on each axis.
func (g *Grid[H]) IndexBucketBounds(i Index) (min, max []float64) {
	g.mustDims(len(i))

	min = make([]float64, len(g.h))
	max = make([]float64, len(g.h))
	for k, h := range g.h {
		min[k] = float64(i[k]) * h
		max[k] = min[k] + h
	}
	return min, max
}

// Range returns the componentwise lowest and highest occupied cell indices.
// Both are all zeros when the grid is empty.
func (g *Grid[H]) Range() (imin, imax Index) {
	imin = make(Index, len(g.h))
	imax = make(Index, len(g.h))

	first := true
	g.buckets.each(func(e *entry[H]) bool {
		if first {
			copy(imin, e.index)
			copy(imax, e.index)
			first = false
			return true
		}

		for k, c := range e.index {
			if c < imin[k] {
				imin[k] = c
			}
			if c > imax[k] {
				imax[k] = c
			}
		}
		return true
	})
	return imin, imax
}

// Bounds returns the physical extent covered by Range: from the lower corner
// of imin to the upper corner of imax. Both are all zeros when the grid is
// empty.
func (g *Grid[H]) Bounds() (min, max []float64) {
	min = make([]float64, len(g.h))
	max = make([]float64, len(g.h))
	if g.Len() == 0 {
		return min, max
	}

	imin, imax := g.Range()
	for k, h := range g.h {
		min[k] = h * float64(imin[k])
		max[k] = h * (float64(imax[k]) + 1)
	}
	return min, max
}
