package route

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/geom"
)

// splineSamplesPerSegment is how finely each spline segment is flattened
// before arc-length resampling.
const splineSamplesPerSegment = 32

// Spline is a Catmull-Rom spline through a sequence of control points. The
// end tangents default to mirrored phantom points; setting StartTangent or
// EndTangent overrides them, which is how a spline continues an existing
// road smoothly.
type Spline struct {
	Points []r2.Vec

	// StartTangent is the direction the curve leaves the first point.
	StartTangent *r2.Vec
	// EndTangent is the direction the curve travels through the last
	// point.
	EndTangent *r2.Vec
}

// catmullRom evaluates the segment between p1 and p2 at t in [0, 1], with
// p0 and p3 shaping the tangents.
func catmullRom(p0, p1, p2, p3 r2.Vec, t float64) r2.Vec {
	t2 := t * t
	t3 := t2 * t
	a := r2.Scale(2, p1)
	b := r2.Scale(t, r2.Sub(p2, p0))
	c := r2.Scale(t2, geom.Sum(r2.Scale(2, p0), r2.Scale(-5, p1), r2.Scale(4, p2), r2.Scale(-1, p3)))
	d := r2.Scale(t3, geom.Sum(r2.Scale(-1, p0), r2.Scale(3, p1), r2.Scale(-3, p2), p3))
	return r2.Scale(0.5, geom.Sum(a, b, c, d))
}

// phantoms returns the virtual points before the first and after the last
// control point. Without tangent overrides they mirror the neighbors, so
// the spline runs straight into its ends.
func (s Spline) phantoms() (r2.Vec, r2.Vec) {
	first, last := s.Points[0], s.Points[len(s.Points)-1]
	head := r2.Sub(r2.Scale(2, first), s.Points[1])
	tail := r2.Sub(r2.Scale(2, last), s.Points[len(s.Points)-2])
	if s.StartTangent != nil {
		scale := geom.Dist(first, s.Points[1])
		head = r2.Sub(first, r2.Scale(scale, geom.Unit(*s.StartTangent)))
	}
	if s.EndTangent != nil {
		scale := geom.Dist(last, s.Points[len(s.Points)-2])
		tail = r2.Add(last, r2.Scale(scale, geom.Unit(*s.EndTangent)))
	}
	return head, tail
}

// Sample flattens the whole spline into a dense polyline, control points
// included exactly.
func (s Spline) Sample() []r2.Vec {
	switch len(s.Points) {
	case 0:
		return nil
	case 1:
		return []r2.Vec{s.Points[0]}
	}
	head, tail := s.phantoms()
	ext := make([]r2.Vec, 0, len(s.Points)+2)
	ext = append(ext, head)
	ext = append(ext, s.Points...)
	ext = append(ext, tail)

	var out []r2.Vec
	for i := 1; i < len(ext)-2; i++ {
		for j := 0; j < splineSamplesPerSegment; j++ {
			t := float64(j) / splineSamplesPerSegment
			out = append(out, catmullRom(ext[i-1], ext[i], ext[i+1], ext[i+2], t))
		}
	}
	out = append(out, s.Points[len(s.Points)-1])
	return out
}

// Length returns the arc length of the flattened spline.
func (s Spline) Length() float64 {
	return PolylineLength(s.Sample())
}

// PointsByCount returns count points along the spline at equal arc
// spacing.
func (s Spline) PointsByCount(count int) []r2.Vec {
	return ResampleByCount(s.Sample(), count)
}

// PointsBySpacing returns points along the spline spaced at most spacing
// apart.
func (s Spline) PointsBySpacing(spacing float64) []r2.Vec {
	return ResampleBySpacing(s.Sample(), spacing)
}
