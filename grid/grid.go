// Package grid implements a sparse spatial hash over N-dimensional space.
//
// Space is cut into uniform rectangular cells. Each non-empty cell keeps the
// handles that callers inserted at its index. Queries turn a point, a box or
// a ball into an inclusive index box, walk it with an Odometer and report the
// handles of every occupied cell they cross.
//
// A Grid is not safe for concurrent use. Callers that share one must guard it
// with a single-writer or exclusive lock.
package grid

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Grid is a sparse mapping from cell indices to buckets of handles. The grid
// only stores handles, it never dereferences or frees what they refer to.
type Grid[H comparable] struct {
	h       []float64
	buckets table[H]
	count   int
}

// Option configures a Grid.
type Option func(*options)

type options struct {
	hashBase uint64
}

// WithHashBase sets the multiplier applied to the hash weight after each
// axis. Values below 2 fall back to DefaultHashBase.
func WithHashBase(base uint64) Option {
	return func(o *options) {
		if base < 2 {
			base = DefaultHashBase
		}
		o.hashBase = base
	}
}

// New creates an empty grid whose cells measure cellSize[k] along axis k.
// The number of axes is len(cellSize).
func New[H comparable](cellSize []float64, opts ...Option) (*Grid[H], error) {
	if len(cellSize) == 0 {
		return nil, errors.New("grid needs at least one axis").
			WithType(ErrTypeInvalidDimension)
	}
	for k, s := range cellSize {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, errors.New("cell size must be positive and finite").
				WithType(ErrTypeInvalidCellSize).
				WithTag("axis", k).
				WithTag("cell_size", s)
		}
	}

	o := options{hashBase: DefaultHashBase}
	for _, opt := range opts {
		opt(&o)
	}

	h := make([]float64, len(cellSize))
	copy(h, cellSize)

	return &Grid[H]{
		h:       h,
		buckets: newTable[H](IndexHasher{Base: o.hashBase}),
	}, nil
}

// NewUniform creates a grid with dims axes that all share the same cell size.
func NewUniform[H comparable](dims int, size float64, opts ...Option) (*Grid[H], error) {
	if dims <= 0 {
		return nil, errors.New("grid needs at least one axis").
			WithType(ErrTypeInvalidDimension).
			WithTag("dims", dims)
	}

	cellSize := make([]float64, dims)
	for k := range cellSize {
		cellSize[k] = size
	}
	return New[H](cellSize, opts...)
}

// Dims returns the number of axes.
func (g *Grid[H]) Dims() int {
	return len(g.h)
}

// CellSize returns a copy of the per-axis cell size.
func (g *Grid[H]) CellSize() []float64 {
	h := make([]float64, len(g.h))
	copy(h, g.h)
	return h
}

// Insert appends handle to the bucket at i. Duplicates are kept.
func (g *Grid[H]) Insert(i Index, handle H) {
	g.mustDims(len(i))

	e := g.buckets.findOrCreate(i)
	e.bucket = append(e.bucket, handle)
	g.count++
}

// Erase removes the first occurrence of handle from the bucket at i and
// reports whether anything was removed. A bucket left empty is dropped.
func (g *Grid[H]) Erase(i Index, handle H) bool {
	g.mustDims(len(i))

	e := g.buckets.find(i)
	if e == nil {
		return false
	}

	removed := false
	for n, v := range e.bucket {
		if v == handle {
			copy(e.bucket[n:], e.bucket[n+1:])
			var zero H
			e.bucket[len(e.bucket)-1] = zero
			e.bucket = e.bucket[:len(e.bucket)-1]
			removed = true
			break
		}
	}

	if removed {
		g.count--
	}
	if len(e.bucket) == 0 {
		g.buckets.remove(i)
	}
	return removed
}

// Bucket returns a copy of the handles stored at i. The boolean is false when
// the cell is empty.
func (g *Grid[H]) Bucket(i Index) ([]H, bool) {
	g.mustDims(len(i))

	e := g.buckets.find(i)
	if e == nil {
		return nil, false
	}

	bucket := make([]H, len(e.bucket))
	copy(bucket, e.bucket)
	return bucket, true
}

// Clear drops every bucket. The geometry is kept.
func (g *Grid[H]) Clear() {
	g.buckets.clear()
	g.count = 0
}

// Len returns the number of occupied cells.
func (g *Grid[H]) Len() int {
	return g.buckets.entries
}

// Count returns the number of stored handles, duplicates included.
func (g *Grid[H]) Count() int {
	return g.count
}

// Cells calls f with the index and the handles of every occupied cell, in no
// particular order, until f returns false. Neither argument may be retained
// or modified.
func (g *Grid[H]) Cells(f func(Index, []H) bool) {
	g.buckets.each(func(e *entry[H]) bool {
		return f(e.index, e.bucket)
	})
}
