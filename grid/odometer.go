package grid

import (
	"iter"
	"slices"
)

// Odometer enumerates every index of an inclusive box exactly once. Axis 0
// advances first and carries into the next axis when it passes its upper
// bound, like the wheels of a mileage counter.
//
//	o := NewOdometer(imin, imax)
//	for o.Next() {
//		use(o.Index())
//	}
type Odometer struct {
	min     Index
	max     Index
	cur     Index
	started bool
	done    bool
}

// NewOdometer returns an odometer over [imin, imax]. Both bounds must have the
// same length and imin must be componentwise lower or equal to imax.
func NewOdometer(imin, imax Index) *Odometer {
	if checksEnabled {
		if err := CheckRange(imin, imax); err != nil {
			panic(err)
		}
	}

	return &Odometer{
		min: imin.Clone(),
		max: imax.Clone(),
		cur: make(Index, len(imin)),
	}
}

// Next advances to the following index and reports whether there was one.
func (o *Odometer) Next() bool {
	if o.done {
		return false
	}

	if !o.started {
		copy(o.cur, o.min)
		o.started = true
		return true
	}

	for k := range o.cur {
		if o.cur[k] < o.max[k] {
			o.cur[k]++
			return true
		}
		o.cur[k] = o.min[k]
	}

	o.done = true
	return false
}

// Index returns the current index. The slice is reused by Next and must be
// cloned to be retained.
func (o *Odometer) Index() Index {
	return o.cur
}

// Reset rewinds the odometer to the start of its box.
func (o *Odometer) Reset() {
	o.started = false
	o.done = false
}

// Len returns the number of indices in the box, saturating at math.MaxInt.
func (o *Odometer) Len() int {
	return boxLen(o.min, o.max)
}

// Cells returns a sequence over every index of [imin, imax], in odometer
// order. The yielded index is reused between iterations.
func Cells(imin, imax Index) iter.Seq[Index] {
	return func(yield func(Index) bool) {
		o := NewOdometer(imin, imax)
		for o.Next() {
			if !yield(o.Index()) {
				return
			}
		}
	}
}

// sortOdometerOrder orders entries the way an Odometer reaches them: the
// highest axis is the most significant.
func sortOdometerOrder[H comparable](entries []*entry[H]) {
	slices.SortFunc(entries, func(a, b *entry[H]) int {
		for k := len(a.index) - 1; k >= 0; k-- {
			if a.index[k] != b.index[k] {
				if a.index[k] < b.index[k] {
					return -1
				}
				return 1
			}
		}
		return 0
	})
}
