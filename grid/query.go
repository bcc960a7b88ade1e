package grid

import (
	"math"
)

// Visitor receives the handles found by a query. Returning false stops the
// query; no further handle or cell is visited.
type Visitor[H comparable] func(H) bool

// IndexQuery visits the handles of every occupied cell in [imin, imax], cell
// by cell in odometer order and in bucket order within a cell. It returns
// false when visit stopped the query and true otherwise.
func (g *Grid[H]) IndexQuery(imin, imax Index, visit Visitor[H]) bool {
	g.mustRange(imin, imax)

	// Small tables are cheaper to scan than large boxes are to walk.
	if g.buckets.entries < boxLen(imin, imax) {
		return g.scanQuery(imin, imax, visit)
	}

	o := NewOdometer(imin, imax)
	for o.Next() {
		e := g.buckets.find(o.Index())
		if e == nil {
			continue
		}
		for _, h := range e.bucket {
			if !visit(h) {
				return false
			}
		}
	}
	return true
}

// BoxQuery visits the handles of every cell overlapped by the box [bmin,
// bmax]. bmin must not lie above bmax on any axis.
func (g *Grid[H]) BoxQuery(bmin, bmax []float64, visit Visitor[H]) bool {
	imin, imax := g.Box(bmin, bmax)
	return g.IndexQuery(imin, imax, visit)
}

// BallQuery visits the handles of every cell overlapped by the bounding box of
// the ball of radius r around center. The result is a superset of the handles
// lying within r: callers that need exact membership test the distance in
// visit.
func (g *Grid[H]) BallQuery(center []float64, r float64, visit Visitor[H]) bool {
	imin, imax := g.BallBox(center, r)
	return g.IndexQuery(imin, imax, visit)
}

// Box returns the index box covering [bmin, bmax].
func (g *Grid[H]) Box(bmin, bmax []float64) (imin, imax Index) {
	return g.PointToIndex(bmin), g.PointToIndex(bmax)
}

// BallBox returns the index box covering the axis aligned bounds of the ball
// of radius r around center. A negative radius is treated as zero.
func (g *Grid[H]) BallBox(center []float64, r float64) (imin, imax Index) {
	if r < 0 {
		r = 0
	}

	i, u := g.PointToIndexOffset(center)
	imin = make(Index, len(i))
	imax = make(Index, len(i))
	for k, h := range g.h {
		frac := u[k] / h
		rh := r / h
		imin[k] = addIndex(i[k], floorIndex(frac-rh))
		imax[k] = addIndex(i[k], floorIndex(frac+rh))
	}
	return imin, imax
}

// IndexItems returns the handles of every occupied cell in [imin, imax], in
// the order IndexQuery would visit them.
func (g *Grid[H]) IndexItems(imin, imax Index) []H {
	return g.AppendIndexItems(nil, imin, imax)
}

// BoxItems returns the handles BoxQuery would visit.
func (g *Grid[H]) BoxItems(bmin, bmax []float64) []H {
	return g.AppendBoxItems(nil, bmin, bmax)
}

// BallItems returns the handles BallQuery would visit.
func (g *Grid[H]) BallItems(center []float64, r float64) []H {
	return g.AppendBallItems(nil, center, r)
}

// AppendIndexItems appends the result of IndexItems to dst.
func (g *Grid[H]) AppendIndexItems(dst []H, imin, imax Index) []H {
	g.IndexQuery(imin, imax, func(h H) bool {
		dst = append(dst, h)
		return true
	})
	return dst
}

// AppendBoxItems appends the result of BoxItems to dst.
func (g *Grid[H]) AppendBoxItems(dst []H, bmin, bmax []float64) []H {
	imin, imax := g.Box(bmin, bmax)
	return g.AppendIndexItems(dst, imin, imax)
}

// AppendBallItems appends the result of BallItems to dst.
func (g *Grid[H]) AppendBallItems(dst []H, center []float64, r float64) []H {
	imin, imax := g.BallBox(center, r)
	return g.AppendIndexItems(dst, imin, imax)
}

// scanQuery answers an index query by filtering the occupied cells instead of
// walking the box. Cells are sorted into odometer order first so both paths
// visit handles in the same order.
func (g *Grid[H]) scanQuery(imin, imax Index, visit Visitor[H]) bool {
	var hits []*entry[H]
	g.buckets.each(func(e *entry[H]) bool {
		if e.index.within(imin, imax) {
			hits = append(hits, e)
		}
		return true
	})

	sortOdometerOrder(hits)

	for _, e := range hits {
		for _, h := range e.bucket {
			if !visit(h) {
				return false
			}
		}
	}
	return true
}

func (i Index) within(imin, imax Index) bool {
	for k, c := range i {
		if c < imin[k] || c > imax[k] {
			return false
		}
	}
	return true
}

// boxLen returns the number of cells in [imin, imax], saturating instead of
// overflowing for huge boxes.
func boxLen(imin, imax Index) int {
	n := 1
	for k := range imin {
		ext := imax[k] - imin[k] + 1
		if ext <= 0 || n > math.MaxInt/ext {
			return math.MaxInt
		}
		n *= ext
	}
	return n
}
