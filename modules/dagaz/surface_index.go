package dagaz

import (
	"math"

	"github.com/aukilabs/cellgrid/grid"
)

// Surface Index
//
// A sparse grid over the horizontal x/z plane implementing the
// SpatialPartition interface. The particularities are:
//   - the resolution defines how large a cell is, in meters. A quad is stored
//     in every cell its footprint overlaps.
//   - the grid only narrows down candidates, every query then runs the exact
//     quad test on them.
//   - there are no bounds: cells exist only while a quad covers them.

const MERGE_EPSILON = (float32)(0.6)

// Occupancy is only reported for ranges up to this many cells.
const maxDebugCells = 1 << 16

// Quads covering more cells than this are rejected.
const maxFootprintCells = 1 << 20

type footprint struct {
	min grid.Index
	max grid.Index
}

type SurfaceIndex struct {
	Resolution uint
	PlaneCount uint32
	MergeCount uint32

	cells      *grid.Grid[*Quad]
	footprints map[*Quad]footprint
	order      []*Quad
}

func NewSurfaceIndex(resolution uint) *SurfaceIndex {
	if resolution == 0 {
		resolution = 1
	}

	cells, err := grid.NewUniform[*Quad](2, (float64)(resolution))
	if err != nil {
		// A positive resolution always makes a valid grid.
		panic(err)
	}

	return &SurfaceIndex{
		Resolution: resolution,
		cells:      cells,
		footprints: make(map[*Quad]footprint),
	}
}

// InsertQuad merges q into the closest overlapping quad lying within
// MERGE_EPSILON of its height, or stores a copy of q when there is none. It
// returns the stored quad, or nil when q is too large to be indexed.
func (s *SurfaceIndex) InsertQuad(q Quad) *Quad {
	if s.footprintOf(&q).cells() > maxFootprintCells {
		return nil
	}

	if target := s.mergeCandidate(q); target != nil {
		s.mergeQuads(target, q)
		return target
	}

	stored := q
	s.place(&stored)
	s.order = append(s.order, &stored)
	s.PlaneCount++
	return &stored
}

// IntersectQuad returns the quad r hits first along with the hit parameter,
// or nil and -1 when r hits nothing.
func (s *SurfaceIndex) IntersectQuad(r Ray) (*Quad, float32) {
	tMin := (float32)(math.Inf(1))
	var resultQuad *Quad

	s.visitUnique(r.From, r.To, func(q *Quad) {
		if hit, t := IntersectQuad(r, *q); hit && t < tMin {
			tMin = t
			resultQuad = q
		}
	})

	if resultQuad == nil {
		return nil, -1
	}
	return resultQuad, tMin
}

// GetRegion returns the quads stored in the cells overlapped by the x/z
// footprint of the box spanned by min and max.
func (s *SurfaceIndex) GetRegion(min Vector3f, max Vector3f) []*Quad {
	var quads []*Quad
	s.visitUnique(min, max, func(q *Quad) {
		quads = append(quads, q)
	})
	return quads
}

func (s *SurfaceIndex) Len() int {
	return len(s.footprints)
}

// Quads returns every stored quad in insertion order.
func (s *SurfaceIndex) Quads() []*Quad {
	return append([]*Quad(nil), s.order...)
}

func (s *SurfaceIndex) GetDebugInfo() SpatialDebugInfo {
	result := SpatialDebugInfo{
		Resolution: (uint32)(s.Resolution),
		PlaneCount: s.PlaneCount,
		MergeCount: s.MergeCount,
	}
	if s.cells.Len() == 0 {
		return result
	}

	bmin, bmax := s.cells.Bounds()
	result.MinPoint = Vector3f{(float32)(bmin[0]), 0, (float32)(bmin[1])}
	result.MaxPoint = Vector3f{(float32)(bmax[0]), 0, (float32)(bmax[1])}

	imin, imax := s.cells.Range()
	result.MinIndex = imin
	result.MaxIndex = imax
	result.ColCount = extent(imin[0], imax[0])
	result.RowCount = extent(imin[1], imax[1])

	n := footprint{min: imin, max: imax}.cells()
	if n > maxDebugCells {
		return result
	}

	// Odometer order walks x first, matching the row-major layout.
	result.Occupancy = make([]uint32, 0, n)
	for i := range grid.Cells(imin, imax) {
		bucket, _ := s.cells.Bucket(i)
		result.Occupancy = append(result.Occupancy, (uint32)(len(bucket)))
	}
	return result
}

func (s *SurfaceIndex) footprintOf(q *Quad) footprint {
	lo, hi := q.Min(), q.Max()
	imin, imax := s.cells.Box(lo.Min(hi).groundPoint(), lo.Max(hi).groundPoint())
	return footprint{min: imin, max: imax}
}

// cells returns the number of cells covered by fp, saturating at
// math.MaxInt.
func (fp footprint) cells() int {
	n := 1
	for k := range fp.min {
		ext := fp.max[k] - fp.min[k] + 1
		if ext <= 0 || n > math.MaxInt/ext {
			return math.MaxInt
		}
		n *= ext
	}
	return n
}

// extent returns the number of cells in [lo, hi], saturating at
// math.MaxUint32.
func extent(lo, hi int) uint32 {
	d := uint64(hi) - uint64(lo)
	if d >= math.MaxUint32 {
		return math.MaxUint32
	}
	return (uint32)(d + 1)
}

func (s *SurfaceIndex) place(q *Quad) {
	fp := s.footprintOf(q)
	for i := range grid.Cells(fp.min, fp.max) {
		s.cells.Insert(i, q)
	}
	s.footprints[q] = fp
}

func (s *SurfaceIndex) unplace(q *Quad) {
	fp, ok := s.footprints[q]
	if !ok {
		return
	}
	for i := range grid.Cells(fp.min, fp.max) {
		s.cells.Erase(i, q)
	}
	delete(s.footprints, q)
}

// visitUnique calls f once per quad stored in the cells overlapped by the
// x/z footprint of the box spanned by a and b, in first encounter order.
func (s *SurfaceIndex) visitUnique(a, b Vector3f, f func(*Quad)) {
	seen := make(map[*Quad]struct{})
	lo, hi := a.Min(b), a.Max(b)
	s.cells.BoxQuery(lo.groundPoint(), hi.groundPoint(), func(q *Quad) bool {
		if _, ok := seen[q]; !ok {
			seen[q] = struct{}{}
			f(q)
		}
		return true
	})
}

func (s *SurfaceIndex) mergeCandidate(q Quad) *Quad {
	var (
		best     *Quad
		bestDist float32
	)

	s.visitUnique(q.Min(), q.Max(), func(c *Quad) {
		dist := (float32)(math.Abs((float64)(c.Center.y - q.Center.y)))
		if dist > MERGE_EPSILON || !doHorizontalPlanesOverlap(*c, q) {
			return
		}
		if best == nil || dist < bestDist {
			best = c
			bestDist = dist
		}
	})
	return best
}

// mergeQuads moves existingQuad a fifth of the way toward newQuad and
// re-indexes it under its new footprint.
func (s *SurfaceIndex) mergeQuads(existingQuad *Quad, newQuad Quad) {
	s.unplace(existingQuad)

	centerDiff := newQuad.Center.Sub(existingQuad.Center)
	extentsDiff := newQuad.Extents.Sub(existingQuad.Extents)
	existingQuad.Center = existingQuad.Center.Add(centerDiff.Mul(0.2))
	existingQuad.Extents = existingQuad.Extents.Add(extentsDiff.Mul(0.2))
	existingQuad.Normal = calculateNormal(existingQuad.Center, existingQuad.Extents)

	s.place(existingQuad)

	existingQuad.MergeCount++
	s.MergeCount++
}
