package dagaz

import (
	"sync"
)

// State guards a SpatialPartition shared by concurrent requests.
type State struct {
	mutex            sync.RWMutex
	SpatialPartition SpatialPartition
}

func NewState(resolution uint) *State {
	return &State{
		SpatialPartition: NewSurfaceIndex(resolution),
	}
}

func (s *State) InsertQuads(quads ...Quad) (inserted int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, q := range quads {
		if s.SpatialPartition.InsertQuad(q) != nil {
			inserted++
		}
	}
	return inserted
}

// IntersectQuad returns a copy of the quad hit by r.
func (s *State) IntersectQuad(r Ray) (Quad, float32, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	q, t := s.SpatialPartition.IntersectQuad(r)
	if q == nil {
		return Quad{}, t, false
	}
	return *q, t, true
}

// GetRegion returns copies of the quads found in the region.
func (s *State) GetRegion(min Vector3f, max Vector3f) []Quad {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	found := s.SpatialPartition.GetRegion(min, max)
	quads := make([]Quad, len(found))
	for i, q := range found {
		quads[i] = *q
	}
	return quads
}

func (s *State) GetDebugInfo() SpatialDebugInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.SpatialPartition.GetDebugInfo()
}

func (s *State) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.SpatialPartition.Len()
}
