package models

import "sync"

// A sequential id generator. Released ids are handed out again before new
// ones, most recently released first, which keeps handles dense like arena
// slots.
type SequentialIDGenerator struct {
	mutex     sync.Mutex
	currentID uint32
	released  []uint32
}

// New returns an unused id. Ids start at 1.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if n := len(g.released); n != 0 {
		id := g.released[n-1]
		g.released = g.released[:n-1]
		return id
	}

	g.currentID++
	return g.currentID
}

// Reuse marks the given id as free to be returned by New.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.released = append(g.released, id)
}

// Reset forgets every id handed out so far.
func (g *SequentialIDGenerator) Reset() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.currentID = 0
	g.released = nil
}
