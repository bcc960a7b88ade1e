package dagaz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualWithEpsilon(t *testing.T) {
	require.True(t, EqualWithEpsilon(0.1, 0.2, 0.11))
	require.False(t, EqualWithEpsilon(0.1, 0.3, 0.11))
}

func TestVectorClass(t *testing.T) {
	zeroVector := Vector3f{0, 0, 0}
	oneVector := Vector3f{1, 1, 1}
	xAxis := Vector3f{1, 0, 0}
	yAxis := Vector3f{0, 1, 0}
	zAxis := Vector3f{0, 0, 1}

	require.True(t, oneVector.EqualWithEpsilon(Vector3f{0.9, 1.1, 1}, 0.11))
	require.True(t, oneVector.Equal(zeroVector.Add(oneVector)))
	require.True(t, oneVector.Equal(oneVector.Sub(zeroVector)))
	require.True(t, zeroVector.Equal(oneVector.Mul(0)))

	require.Equal(t, (float32)(0), xAxis.Dot(yAxis))
	require.True(t, zAxis.Equal(xAxis.Cross(yAxis)))
	require.Equal(t, 1.0, xAxis.Length())

	require.True(t, EqualWithEpsilon((float32)(oneVector.Normalized().Length()), 1, 0.001))
	require.True(t, zeroVector.Equal(zeroVector.Normalized()))

	a := NewVector3f(1, -2, 3)
	b := NewVector3f(-1, 5, 0)
	require.Equal(t, NewVector3f(-1, -2, 0), a.Min(b))
	require.Equal(t, NewVector3f(1, 5, 3), a.Max(b))
}

func TestIntersectQuad(t *testing.T) {
	quad := Quad{
		Center:  Vector3f{0, 0, 0},
		Extents: Vector3f{1, 0, 1},
		Normal:  Vector3f{0, 1, 0},
	}

	t.Run("hit", func(t *testing.T) {
		hit, at := IntersectQuad(Ray{From: Vector3f{0, 10, 0}, To: Vector3f{0, -10, 0}}, quad)
		require.True(t, hit)
		require.Equal(t, (float32)(0.5), at)
	})

	t.Run("segment too short", func(t *testing.T) {
		hit, _ := IntersectQuad(Ray{From: Vector3f{0, 10, 0}, To: Vector3f{0, 5, 0}}, quad)
		require.False(t, hit)
	})

	t.Run("parallel", func(t *testing.T) {
		hit, at := IntersectQuad(Ray{From: Vector3f{-5, 0, 0}, To: Vector3f{5, 0, 0}}, quad)
		require.False(t, hit)
		require.Equal(t, (float32)(-1), at)
	})
}

func TestDoHorizontalPlanesOverlap(t *testing.T) {
	quad := NewQuad(Vector3f{0, 0, 0}, Vector3f{1, 0, 1})
	require.True(t, doHorizontalPlanesOverlap(quad, quad))

	anotherQuad := NewQuad(Vector3f{10, 0, 0}, Vector3f{1, 0, 1})
	require.False(t, doHorizontalPlanesOverlap(quad, anotherQuad))
}

func TestCalculateNormal(t *testing.T) {
	normal := calculateNormal(Vector3f{0, 0, 0}, Vector3f{1, 0, 1})

	upVector := Vector3f{0, 1, 0}
	require.True(t, upVector.EqualWithEpsilon(normal, 0.0001))
}

func TestQuadProtobuf(t *testing.T) {
	quad := NewQuad(Vector3f{1, 2, 3}, Vector3f{4, 0, 5})
	quad.MergeCount = 7

	converted := NewQuadFromProtobuf(quad.ToProtobuf())
	require.Equal(t, quad, converted)

	require.Equal(t, Vector3f{}, NewVector3fFromProtobuf(nil))
}
