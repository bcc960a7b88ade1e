package dagaz

import "github.com/aukilabs/cellgrid/grid"

// SpatialDebugInfo describes the cells occupied by a spatial partition.
type SpatialDebugInfo struct {
	Resolution uint32
	RowCount   uint32
	ColCount   uint32
	PlaneCount uint32
	MergeCount uint32

	// The occupied cell range and its physical bounds.
	MinIndex grid.Index
	MaxIndex grid.Index
	MinPoint Vector3f
	MaxPoint Vector3f

	// The number of quads per cell of the occupied range, row by row.
	Occupancy []uint32
}

type SpatialPartition interface {
	// InsertQuad stores q or merges it into a stored quad. It returns the
	// stored quad, or nil when q was rejected.
	InsertQuad(q Quad) *Quad
	IntersectQuad(r Ray) (*Quad, float32)
	GetRegion(min Vector3f, max Vector3f) []*Quad
	Len() int

	GetDebugInfo() SpatialDebugInfo
}
