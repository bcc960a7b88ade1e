package models

import (
	"math"
	"sync"
	"time"

	"github.com/aukilabs/cellgrid/grid"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeObjectNotFound = "object_not_found"
	ErrTypeInvalidPoint   = "invalid_point"
	ErrTypeInvalidRadius  = "invalid_radius"
)

// Object is a point registered in a space. ID is the handle stored in the
// space grid.
type Object struct {
	ID    uint32     `json:"id"`
	Point []float64  `json:"point"`
	Cell  grid.Index `json:"cell"`
}

func (o *Object) clone() Object {
	return Object{
		ID:    o.ID,
		Point: append([]float64(nil), o.Point...),
		Cell:  o.Cell.Clone(),
	}
}

// Space is a set of points indexed by a spatial grid. It owns the objects
// and hands their ids to the grid as handles. A Space is safe for concurrent
// use: mutations take an exclusive lock and queries a shared one.
type Space struct {
	Name string

	ids     SequentialIDGenerator
	mutex   sync.RWMutex
	grid    *grid.Grid[uint32]
	objects map[uint32]*Object
}

// NewSpace creates an empty space whose grid cells measure cellSize.
func NewSpace(name string, cellSize []float64, opts ...grid.Option) (*Space, error) {
	g, err := grid.New[uint32](cellSize, opts...)
	if err != nil {
		return nil, errors.New("creating space grid failed").
			WithTag("space", name).
			Wrap(err)
	}

	s := &Space{
		Name:    name,
		grid:    g,
		objects: make(map[uint32]*Object),
	}
	instrumentOccupancy(name, 0, 0)
	return s, nil
}

// Dims returns the number of axes of the space.
func (s *Space) Dims() int {
	return s.grid.Dims()
}

// CellSize returns the grid cell size.
func (s *Space) CellSize() []float64 {
	return s.grid.CellSize()
}

// Add registers a new object at p.
func (s *Space) Add(p []float64) (Object, error) {
	if err := s.checkPoint(p); err != nil {
		return Object{}, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	o := &Object{
		ID:    s.ids.New(),
		Point: append([]float64(nil), p...),
		Cell:  s.grid.PointToIndex(p),
	}
	s.objects[o.ID] = o
	s.grid.Insert(o.Cell, o.ID)

	s.instrumentOccupancy()
	return o.clone(), nil
}

// Move relocates the object with the given id to p. The object changes grid
// cell only when p lies in another cell.
func (s *Space) Move(id uint32, p []float64) (Object, error) {
	if err := s.checkPoint(p); err != nil {
		return Object{}, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	o, ok := s.objects[id]
	if !ok {
		return Object{}, errObjectNotFound(id)
	}

	cell := s.grid.PointToIndex(p)
	if !cell.Equal(o.Cell) {
		s.grid.Erase(o.Cell, o.ID)
		s.grid.Insert(cell, o.ID)
		o.Cell = cell
	}
	o.Point = append(o.Point[:0], p...)

	s.instrumentOccupancy()
	return o.clone(), nil
}

// Remove deletes the object with the given id and reports whether it existed.
// Its id may be handed to a later object.
func (s *Space) Remove(id uint32) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	o, ok := s.objects[id]
	if !ok {
		return false
	}

	s.grid.Erase(o.Cell, o.ID)
	delete(s.objects, id)
	s.ids.Reuse(id)

	s.instrumentOccupancy()
	return true
}

// Get returns the object with the given id.
func (s *Space) Get(id uint32) (Object, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, ok := s.objects[id]
	if !ok {
		return Object{}, false
	}
	return o.clone(), true
}

// Clear removes every object.
func (s *Space) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.grid.Clear()
	s.objects = make(map[uint32]*Object)
	s.ids.Reset()

	s.instrumentOccupancy()
}

// Len returns the number of objects.
func (s *Space) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.objects)
}

// Cells returns the number of occupied grid cells.
func (s *Space) Cells() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.grid.Len()
}

// Cell returns the objects stored in the grid cell at i.
func (s *Space) Cell(i grid.Index) ([]Object, error) {
	if err := grid.CheckDims(s.grid.Dims(), len(i)); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids, _ := s.grid.Bucket(i)
	objects := make([]Object, 0, len(ids))
	for _, id := range ids {
		objects = append(objects, s.objects[id].clone())
	}
	return objects, nil
}

// Range returns the lowest and highest occupied cell indices.
func (s *Space) Range() (imin, imax grid.Index) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.grid.Range()
}

// Bounds returns the physical extent of the occupied cells.
func (s *Space) Bounds() (min, max []float64) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.grid.Bounds()
}

// VisitBox calls visit with every object stored in a cell overlapped by the
// box [min, max]. The space is read locked until the visit ends; visit must
// not modify the space. It returns false when visit stopped the query.
func (s *Space) VisitBox(min, max []float64, visit func(Object) bool) (bool, error) {
	if err := s.checkBox(min, max); err != nil {
		return false, err
	}
	defer instrumentQuery(s.Name, "box", time.Now())

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.grid.BoxQuery(min, max, func(id uint32) bool {
		return visit(s.objects[id].clone())
	}), nil
}

// VisitBall calls visit with the objects near center. When exact is false
// every object of a cell overlapped by the bounding box of the ball is
// visited; when true only the objects within r of center are.
func (s *Space) VisitBall(center []float64, r float64, exact bool, visit func(Object) bool) (bool, error) {
	if err := s.checkPoint(center); err != nil {
		return false, err
	}
	if !(r >= 0) || math.IsInf(r, 0) {
		return false, errors.New("radius must be positive and finite").
			WithType(ErrTypeInvalidRadius).
			WithTag("radius", r)
	}
	defer instrumentQuery(s.Name, "ball", time.Now())

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.grid.BallQuery(center, r, func(id uint32) bool {
		o := s.objects[id]
		if exact && distance(o.Point, center) > r {
			return true
		}
		return visit(o.clone())
	}), nil
}

// QueryBox returns up to limit objects found by VisitBox. A limit of zero or
// less means no limit.
func (s *Space) QueryBox(min, max []float64, limit int) ([]Object, error) {
	var objects []Object
	_, err := s.VisitBox(min, max, collectObjects(&objects, limit))
	return objects, err
}

// QueryBall returns up to limit objects found by VisitBall.
func (s *Space) QueryBall(center []float64, r float64, exact bool, limit int) ([]Object, error) {
	var objects []Object
	_, err := s.VisitBall(center, r, exact, collectObjects(&objects, limit))
	return objects, err
}

func collectObjects(objects *[]Object, limit int) func(Object) bool {
	return func(o Object) bool {
		*objects = append(*objects, o)
		return limit <= 0 || len(*objects) < limit
	}
}

func (s *Space) checkPoint(p []float64) error {
	if err := grid.CheckDims(s.grid.Dims(), len(p)); err != nil {
		return err
	}
	for k, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("point components must be finite").
				WithType(ErrTypeInvalidPoint).
				WithTag("axis", k)
		}
	}
	return nil
}

func (s *Space) checkBox(min, max []float64) error {
	if err := s.checkPoint(min); err != nil {
		return err
	}
	if err := s.checkPoint(max); err != nil {
		return err
	}
	return grid.CheckRange(s.grid.PointToIndex(min), s.grid.PointToIndex(max))
}

// instrumentOccupancy must be called with the mutex held.
func (s *Space) instrumentOccupancy() {
	instrumentOccupancy(s.Name, len(s.objects), s.grid.Len())
}

func errObjectNotFound(id uint32) error {
	return errors.New("object not found").
		WithType(ErrTypeObjectNotFound).
		WithTag("object_id", id)
}

func distance(a, b []float64) float64 {
	var sum float64
	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}
