package grid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPointToIndex(t *testing.T) {
	g := newTestGrid(t, 1, 1)

	require.Equal(t, Index{0, 0}, g.PointToIndex([]float64{0.5, 0.5}))
	require.Equal(t, Index{1, 0}, g.PointToIndex([]float64{1.5, 0.2}))
	require.Equal(t, Index{-1, 2}, g.PointToIndex([]float64{-0.5, 2}))

	t.Run("edges belong to the upper cell", func(t *testing.T) {
		require.Equal(t, Index{1, 1}, g.PointToIndex([]float64{1, 1}))
		require.Equal(t, Index{-1, 0}, g.PointToIndex([]float64{-1, 0}))
	})

	t.Run("anisotropic cells", func(t *testing.T) {
		g := newTestGrid(t, 2, 0.5, 10)
		require.Equal(t, Index{1, -3, 0}, g.PointToIndex([]float64{3, -1.25, 9.99}))
	})

	t.Run("far points saturate", func(t *testing.T) {
		require.Equal(t, Index{math.MinInt, math.MaxInt}, g.PointToIndex([]float64{-1e19, 1e19}))
		require.Equal(t, Index{math.MaxInt, math.MinInt}, g.PointToIndex([]float64{math.MaxFloat64, -math.MaxFloat64}))

		i, u := g.PointToIndexOffset([]float64{1e300, -1e300})
		require.Equal(t, Index{math.MaxInt, math.MinInt}, i)
		for _, c := range u {
			require.GreaterOrEqual(t, c, 0.0)
			require.Less(t, c, 1.0)
		}
	})
}

func TestFloorIndex(t *testing.T) {
	require.Equal(t, -1, floorIndex(-0.5))
	require.Equal(t, 2, floorIndex(2.999))
	require.Equal(t, math.MaxInt, floorIndex(9.3e18))
	require.Equal(t, math.MinInt, floorIndex(-9.3e18))
	require.Equal(t, 1<<52, floorIndex(1<<52))

	require.Equal(t, 3, addIndex(1, 2))
	require.Equal(t, math.MaxInt, addIndex(math.MaxInt-1, 5))
	require.Equal(t, math.MinInt, addIndex(math.MinInt+1, -5))
	require.Equal(t, -1, addIndex(math.MaxInt, math.MinInt))
}

func TestPointToIndexOffset(t *testing.T) {
	g := newTestGrid(t, 2, 0.5)

	i, u := g.PointToIndexOffset([]float64{3, -0.25})
	require.Equal(t, Index{1, -1}, i)
	require.InDeltaSlice(t, []float64{1, 0.25}, u, 1e-12)

	t.Run("offsets stay inside the cell", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(7))
		h := g.CellSize()

		for n := 0; n < 1000; n++ {
			p := []float64{rnd.NormFloat64() * 100, rnd.NormFloat64() * 100}
			_, u := g.PointToIndexOffset(p)
			for k := range u {
				require.GreaterOrEqual(t, u[k], 0.0)
				require.Less(t, u[k], h[k])
			}
		}
	})
}

func TestIndexBucketBounds(t *testing.T) {
	g := newTestGrid(t, 0.25, 2, 1)

	min, max := g.IndexBucketBounds(Index{-1, 3, 0})
	require.Equal(t, []float64{-0.25, 6, 0}, min)
	require.Equal(t, []float64{0, 8, 1}, max)

	t.Run("bounds contain the point", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(42))

		for n := 0; n < 1000; n++ {
			p := []float64{
				rnd.Float64()*200 - 100,
				rnd.Float64()*200 - 100,
				rnd.Float64()*200 - 100,
			}

			min, max := g.IndexBucketBounds(g.PointToIndex(p))
			for k := range p {
				require.LessOrEqual(t, min[k], p[k])
				require.Less(t, p[k], max[k])
			}
		}
	})
}

func TestGridRange(t *testing.T) {
	t.Run("empty grid", func(t *testing.T) {
		g := newTestGrid(t, 1, 2)

		imin, imax := g.Range()
		require.Equal(t, Index{0, 0}, imin)
		require.Equal(t, Index{0, 0}, imax)

		min, max := g.Bounds()
		require.Equal(t, []float64{0, 0}, min)
		require.Equal(t, []float64{0, 0}, max)
	})

	t.Run("scans every axis", func(t *testing.T) {
		g := newTestGrid(t, 1, 2)
		g.Insert(Index{3, -1}, "a")
		g.Insert(Index{-2, 5}, "b")
		g.Insert(Index{0, 0}, "c")

		imin, imax := g.Range()
		require.Equal(t, Index{-2, -1}, imin)
		require.Equal(t, Index{3, 5}, imax)

		min, max := g.Bounds()
		require.Equal(t, []float64{-2, -2}, min)
		require.Equal(t, []float64{4, 12}, max)
	})

	t.Run("single cell", func(t *testing.T) {
		g := newTestGrid(t, 1, 1)
		g.Insert(Index{7, -7}, "a")

		imin, imax := g.Range()
		require.Equal(t, Index{7, -7}, imin)
		require.Equal(t, Index{7, -7}, imax)
	})

	t.Run("follows erasures", func(t *testing.T) {
		g := newTestGrid(t, 1)
		g.Insert(Index{-4}, "a")
		g.Insert(Index{9}, "b")
		g.Erase(Index{9}, "b")

		imin, imax := g.Range()
		require.Equal(t, Index{-4}, imin)
		require.Equal(t, Index{-4}, imax)
	})
}
