package dagaz

import (
	"math"

	"github.com/aukilabs/hagall-common/messages/dagazpb"
)

func EqualWithEpsilon(a float32, b float32, epsilon float64) bool {
	return math.Abs((float64)(a-b)) <= epsilon
}

func InRangeWithEpsilon(value float32, min float32, max float32, epsilon float32) bool {
	return value+epsilon >= min && value-epsilon <= max
}

type Vector3f struct {
	x float32
	y float32
	z float32
}

func NewVector3f(x, y, z float32) Vector3f {
	return Vector3f{x, y, z}
}

func (v Vector3f) X() float32 { return v.x }
func (v Vector3f) Y() float32 { return v.y }
func (v Vector3f) Z() float32 { return v.z }

func (v Vector3f) Equal(o Vector3f) bool {
	return v == o
}

func (v Vector3f) EqualWithEpsilon(o Vector3f, epsilon float64) bool {
	return EqualWithEpsilon(v.x, o.x, epsilon) &&
		EqualWithEpsilon(v.y, o.y, epsilon) &&
		EqualWithEpsilon(v.z, o.z, epsilon)
}

func (v Vector3f) Add(o Vector3f) Vector3f {
	return Vector3f{v.x + o.x, v.y + o.y, v.z + o.z}
}

func (v Vector3f) Sub(o Vector3f) Vector3f {
	return Vector3f{v.x - o.x, v.y - o.y, v.z - o.z}
}

func (v Vector3f) Mul(s float32) Vector3f {
	return Vector3f{v.x * s, v.y * s, v.z * s}
}

func (v Vector3f) Dot(o Vector3f) float32 {
	return v.x*o.x + v.y*o.y + v.z*o.z
}

func (v Vector3f) Cross(o Vector3f) Vector3f {
	return Vector3f{v.y*o.z - v.z*o.y, v.z*o.x - v.x*o.z, v.x*o.y - v.y*o.x}
}

func (v Vector3f) Length() float64 {
	return math.Sqrt((float64)(v.Dot(v)))
}

// Normalized returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vector3f) Normalized() Vector3f {
	l := (float32)(v.Length())
	if l == 0 {
		return v
	}
	return Vector3f{v.x / l, v.y / l, v.z / l}
}

// Min returns the componentwise minimum of v and o.
func (v Vector3f) Min(o Vector3f) Vector3f {
	return Vector3f{min(v.x, o.x), min(v.y, o.y), min(v.z, o.z)}
}

// Max returns the componentwise maximum of v and o.
func (v Vector3f) Max(o Vector3f) Vector3f {
	return Vector3f{max(v.x, o.x), max(v.y, o.y), max(v.z, o.z)}
}

// groundPoint projects v on the horizontal x/z plane used to index quads.
func (v Vector3f) groundPoint() []float64 {
	return []float64{(float64)(v.x), (float64)(v.z)}
}

func NewVector3fFromProtobuf(point *dagazpb.Point) Vector3f {
	return Vector3f{
		x: point.GetX(),
		y: point.GetY(),
		z: point.GetZ(),
	}
}

func (v Vector3f) ToProtobuf() *dagazpb.Point {
	return &dagazpb.Point{
		X: v.x,
		Y: v.y,
		Z: v.z,
	}
}

type Quad struct {
	Center  Vector3f
	Extents Vector3f // Half-Extents!

	// implicit
	Normal Vector3f

	MergeCount uint32
}

func NewQuad(center, extents Vector3f) Quad {
	return Quad{
		Center:  center,
		Extents: extents,
		Normal:  calculateNormal(center, extents),
	}
}

func NewQuadFromProtobuf(protoQuad *dagazpb.Quad) Quad {
	q := NewQuad(
		NewVector3fFromProtobuf(protoQuad.GetCenter()),
		NewVector3fFromProtobuf(protoQuad.GetExtents()),
	)
	q.MergeCount = protoQuad.GetMergeCount()
	return q
}

func (q *Quad) ToProtobuf() *dagazpb.Quad {
	return &dagazpb.Quad{
		Center:     q.Center.ToProtobuf(),
		Extents:    q.Extents.ToProtobuf(),
		MergeCount: q.MergeCount,
	}
}

func (q *Quad) Min() Vector3f {
	return q.Center.Sub(q.Extents)
}

func (q *Quad) Max() Vector3f {
	return q.Center.Add(q.Extents)
}

func doHorizontalPlanesOverlap(a Quad, b Quad) bool {
	minA, maxA := a.Min(), a.Max()
	minB, maxB := b.Min(), b.Max()

	if minA.x >= maxB.x || maxA.x <= minB.x {
		return false
	}
	if minA.z >= maxB.z || maxA.z <= minB.z {
		return false
	}

	// overlap on both axes -> must overlap
	return true
}

func calculateNormal(c Vector3f, e Vector3f) Vector3f {
	vectorA := c.Add(Vector3f{e.x, e.y, 0}).Sub(c)
	vectorB := c.Add(Vector3f{0, e.y, e.z}).Sub(c)
	return vectorB.Cross(vectorA).Normalized()
}

type Ray struct {
	From Vector3f
	To   Vector3f
}

func NewRayFromProtobuf(protoRay *dagazpb.Ray) Ray {
	return Ray{
		From: NewVector3fFromProtobuf(protoRay.GetFrom()),
		To:   NewVector3fFromProtobuf(protoRay.GetTo()),
	}
}

// IntersectQuad tests the segment r against q. It returns the hit parameter
// along r, in [0, 1], or -1 when r misses q.
func IntersectQuad(r Ray, q Quad) (bool, float32) {
	rayDir := r.To.Sub(r.From)

	denominator := q.Normal.Dot(rayDir)
	if denominator == 0 {
		return false, -1
	}

	t := (q.Normal.Dot(q.Center) - q.Normal.Dot(r.From)) / denominator
	if t < 0 || t > 1 {
		return false, -1
	}

	hitPoint := r.From.Add(rayDir.Mul(t))
	minPoint, maxPoint := q.Min(), q.Max()
	if InRangeWithEpsilon(hitPoint.x, minPoint.x, maxPoint.x, 0.0001) &&
		InRangeWithEpsilon(hitPoint.y, minPoint.y, maxPoint.y, 0.0001) &&
		InRangeWithEpsilon(hitPoint.z, minPoint.z, maxPoint.z, 0.0001) {
		return true, t
	}
	return false, -1
}
