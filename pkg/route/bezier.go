package route

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/geom"
)

// bezierSamples is how many points a Bézier is flattened into before
// arc-length resampling.
const bezierSamples = 32

// QuadBezier is a quadratic Bézier with one control point.
type QuadBezier struct {
	P0, Control, P1 r2.Vec
}

// NewQuadBezier builds a quadratic curve between two anchors. With a start
// tangent the control point sits along it at half the chord length;
// without one the curve starts as a straight segment.
func NewQuadBezier(p0, p1 r2.Vec, startTangent *r2.Vec) QuadBezier {
	b := QuadBezier{P0: p0, P1: p1, Control: geom.Mid(p0, p1)}
	if startTangent != nil {
		b.Control = r2.Add(p0, r2.Scale(geom.Dist(p0, p1)/2, geom.Unit(*startTangent)))
	}
	return b
}

// Point evaluates the curve at t in [0, 1].
func (b QuadBezier) Point(t float64) r2.Vec {
	u := 1 - t
	return geom.Sum(
		r2.Scale(u*u, b.P0),
		r2.Scale(2*u*t, b.Control),
		r2.Scale(t*t, b.P1))
}

// Apex returns the curve point at t = 0.5, the handle shown for dragging.
func (b QuadBezier) Apex() r2.Vec {
	return b.Point(0.5)
}

// SetApex moves the control point so the curve passes through a at t = 0.5.
func (b *QuadBezier) SetApex(a r2.Vec) {
	// B(0.5) = (P0 + 2C + P1)/4, solved for C.
	b.Control = r2.Scale(0.5, geom.Sum(r2.Scale(4, a), r2.Scale(-1, b.P0), r2.Scale(-1, b.P1)))
}

// Sample flattens the curve into n+1 points from t = 0 to 1.
func (b QuadBezier) Sample(n int) []r2.Vec {
	return sampleCurve(b.Point, n)
}

// CubicBezier is a cubic Bézier with two control points. C1 hangs off P0,
// C2 off P1.
type CubicBezier struct {
	P0, C1, C2, P1 r2.Vec

	// Fixed tangent directions, set when a control point was derived from
	// an existing road. Apex edits keep fixed tangents and only adjust
	// their lengths.
	startDir *r2.Vec
	endDir   *r2.Vec
}

// NewCubicBezier builds a cubic curve between two anchors. Tangents are
// optional: startTangent is the direction the curve leaves P0, endTangent
// the direction the road continues past P1 (the curve arrives along it).
// Missing tangents default the control points to the chord thirds.
func NewCubicBezier(p0, p1 r2.Vec, startTangent, endTangent *r2.Vec) CubicBezier {
	b := CubicBezier{
		P0: p0,
		P1: p1,
		C1: geom.Lerp(p0, p1, 1.0/3),
		C2: geom.Lerp(p0, p1, 2.0/3),
	}
	third := geom.Dist(p0, p1) / 3
	if startTangent != nil {
		d := geom.Unit(*startTangent)
		b.C1 = r2.Add(p0, r2.Scale(third, d))
		b.startDir = &d
	}
	if endTangent != nil {
		// The control point sits against the continuation direction.
		d := r2.Scale(-1, geom.Unit(*endTangent))
		b.C2 = r2.Add(p1, r2.Scale(third, d))
		b.endDir = &d
	}
	return b
}

// Point evaluates the curve at t in [0, 1].
func (b CubicBezier) Point(t float64) r2.Vec {
	u := 1 - t
	return geom.Sum(
		r2.Scale(u*u*u, b.P0),
		r2.Scale(3*u*u*t, b.C1),
		r2.Scale(3*u*t*t, b.C2),
		r2.Scale(t*t*t, b.P1))
}

// Apex returns the curve point at t = 0.5, the handle shown for dragging.
func (b CubicBezier) Apex() r2.Vec {
	// B(0.5) = (P0 + 3C1 + 3C2 + P1)/8.
	return r2.Scale(1.0/8, geom.Sum(b.P0, r2.Scale(3, b.C1), r2.Scale(3, b.C2), b.P1))
}

// SetApex moves the control points so the curve passes through a at
// t = 0.5. Control points on a fixed tangent stay on it; free control
// points move symmetrically around the chord.
func (b *CubicBezier) SetApex(a r2.Vec) {
	switch {
	case b.startDir != nil && b.endDir != nil:
		if b.setApexBothFixed(a) {
			return
		}
		// Parallel tangents leave the system singular; fall back to the
		// symmetric solution.
		b.setApexFree(a)
	case b.startDir != nil:
		// C1 held, solve for C2.
		b.C2 = r2.Scale(1.0/3, geom.Sum(
			r2.Scale(8, a), r2.Scale(-1, b.P0), r2.Scale(-3, b.C1), r2.Scale(-1, b.P1)))
	case b.endDir != nil:
		// C2 held, solve for C1.
		b.C1 = r2.Scale(1.0/3, geom.Sum(
			r2.Scale(8, a), r2.Scale(-1, b.P0), r2.Scale(-3, b.C2), r2.Scale(-1, b.P1)))
	default:
		b.setApexFree(a)
	}
}

// setApexFree spreads both control points symmetrically along the chord
// around the midpoint that realizes the apex.
func (b *CubicBezier) setApexFree(a r2.Vec) {
	m := r2.Scale(1.0/6, geom.Sum(r2.Scale(8, a), r2.Scale(-1, b.P0), r2.Scale(-1, b.P1)))
	chord := r2.Sub(b.P1, b.P0)
	b.C1 = r2.Sub(m, r2.Scale(1.0/6, chord))
	b.C2 = r2.Add(m, r2.Scale(1.0/6, chord))
}

// setApexBothFixed keeps both tangent directions and solves for their
// lengths. Reports false when the directions are parallel.
func (b *CubicBezier) setApexBothFixed(a r2.Vec) bool {
	d1, d2 := *b.startDir, *b.endDir
	// 3s·d1 + 3u·d2 = 8A - 4P0 - 4P1, solved for s and u.
	r := geom.Sum(r2.Scale(8, a), r2.Scale(-4, b.P0), r2.Scale(-4, b.P1))
	det := 9 * r2.Cross(d1, d2)
	if math.Abs(det) < 1e-9 {
		return false
	}
	s := 3 * r2.Cross(r, d2) / det
	u := 3 * r2.Cross(d1, r) / det
	b.C1 = r2.Add(b.P0, r2.Scale(s, d1))
	b.C2 = r2.Add(b.P1, r2.Scale(u, d2))
	return true
}

// Sample flattens the curve into n+1 points from t = 0 to 1.
func (b CubicBezier) Sample(n int) []r2.Vec {
	return sampleCurve(b.Point, n)
}

func sampleCurve(point func(float64) r2.Vec, n int) []r2.Vec {
	if n < 1 {
		n = 1
	}
	out := make([]r2.Vec, n+1)
	for i := 0; i <= n; i++ {
		out[i] = point(float64(i) / float64(n))
	}
	return out
}
