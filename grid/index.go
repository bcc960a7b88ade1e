package grid

// Index is the integer coordinate of a grid cell, one component per axis.
type Index []int

// Equal reports whether both indices have the same components.
func (i Index) Equal(o Index) bool {
	if len(i) != len(o) {
		return false
	}
	for k := range i {
		if i[k] != o[k] {
			return false
		}
	}
	return true
}

// Clone returns a copy of i that shares no memory with it.
func (i Index) Clone() Index {
	if i == nil {
		return nil
	}
	c := make(Index, len(i))
	copy(c, i)
	return c
}

// DefaultHashBase is the axis weight multiplier used when no other base is
// configured.
const DefaultHashBase = 31

// IndexHasher combines the components of an index into a hash code. Each axis
// is scaled by a different power of Base so that axis-aligned neighbors do
// not collapse onto the same code.
type IndexHasher struct {
	Base uint64
}

// Hash returns the hash code of i. Equal indices always hash equally.
func (h IndexHasher) Hash(i Index) uint64 {
	var res uint64
	weight := uint64(1)
	for _, c := range i {
		res ^= weight * uint64(int64(c))
		weight *= h.Base
	}
	return res
}

type entry[H comparable] struct {
	index  Index
	bucket []H
}

// table maps cell indices to their buckets. Entries sharing a hash code are
// chained and told apart by componentwise equality.
type table[H comparable] struct {
	hasher  IndexHasher
	chains  map[uint64][]*entry[H]
	entries int
}

func newTable[H comparable](hasher IndexHasher) table[H] {
	return table[H]{
		hasher: hasher,
		chains: make(map[uint64][]*entry[H]),
	}
}

func (t *table[H]) find(i Index) *entry[H] {
	for _, e := range t.chains[t.hasher.Hash(i)] {
		if e.index.Equal(i) {
			return e
		}
	}
	return nil
}

func (t *table[H]) findOrCreate(i Index) *entry[H] {
	code := t.hasher.Hash(i)
	for _, e := range t.chains[code] {
		if e.index.Equal(i) {
			return e
		}
	}

	e := &entry[H]{index: i.Clone()}
	t.chains[code] = append(t.chains[code], e)
	t.entries++
	return e
}

func (t *table[H]) remove(i Index) {
	code := t.hasher.Hash(i)
	chain := t.chains[code]
	for n, e := range chain {
		if !e.index.Equal(i) {
			continue
		}

		chain[n] = chain[len(chain)-1]
		chain[len(chain)-1] = nil
		chain = chain[:len(chain)-1]
		if len(chain) == 0 {
			delete(t.chains, code)
		} else {
			t.chains[code] = chain
		}
		t.entries--
		return
	}
}

func (t *table[H]) each(f func(*entry[H]) bool) {
	for _, chain := range t.chains {
		for _, e := range chain {
			if !f(e) {
				return
			}
		}
	}
}

func (t *table[H]) clear() {
	t.chains = make(map[uint64][]*entry[H])
	t.entries = 0
}
