package grid

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeInvalidDimension  = "grid_invalid_dimension"
	ErrTypeInvalidCellSize   = "grid_invalid_cell_size"
	ErrTypeDimensionMismatch = "grid_dimension_mismatch"
	ErrTypeInvertedRange     = "grid_inverted_range"
)

// CheckDims returns an error when v does not have n components.
func CheckDims(n, got int) error {
	if got != n {
		return errors.New("dimension mismatch").
			WithType(ErrTypeDimensionMismatch).
			WithTag("expected", n).
			WithTag("got", got)
	}
	return nil
}

// CheckRange returns an error when imin is not componentwise lower or equal
// to imax.
func CheckRange(imin, imax Index) error {
	if err := CheckDims(len(imin), len(imax)); err != nil {
		return err
	}
	for k := range imin {
		if imin[k] > imax[k] {
			return errors.New("inverted index range").
				WithType(ErrTypeInvertedRange).
				WithTag("axis", k).
				WithTag("min", imin[k]).
				WithTag("max", imax[k])
		}
	}
	return nil
}

func (g *Grid[H]) mustDims(got int) {
	if !checksEnabled {
		return
	}
	if err := CheckDims(len(g.h), got); err != nil {
		panic(err)
	}
}

func (g *Grid[H]) mustRange(imin, imax Index) {
	if !checksEnabled {
		return
	}
	g.mustDims(len(imin))
	if err := CheckRange(imin, imax); err != nil {
		panic(err)
	}
}
