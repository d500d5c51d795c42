package route

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/geom"
)

func vecNear(t *testing.T, got, want r2.Vec, tol float64) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestQuadBezier(t *testing.T) {
	t.Run("default control degenerates to the chord", func(t *testing.T) {
		b := NewQuadBezier(r2.Vec{X: 0}, r2.Vec{X: 10}, nil)
		vecNear(t, b.Point(0.25), r2.Vec{X: 2.5}, 1e-9)
		vecNear(t, b.Apex(), r2.Vec{X: 5}, 1e-9)
	})

	t.Run("apex drag is exact", func(t *testing.T) {
		b := NewQuadBezier(r2.Vec{X: 0}, r2.Vec{X: 10}, nil)
		target := r2.Vec{X: 5, Y: 4}
		b.SetApex(target)
		vecNear(t, b.Apex(), target, 1e-9)
		vecNear(t, b.Point(0), r2.Vec{X: 0}, 1e-9)
		vecNear(t, b.Point(1), r2.Vec{X: 10}, 1e-9)
	})

	t.Run("start tangent bends the curve", func(t *testing.T) {
		tan := r2.Vec{X: 0, Y: 1}
		b := NewQuadBezier(r2.Vec{X: 0}, r2.Vec{X: 10}, &tan)
		// The curve must initially head along the tangent.
		early := b.Point(0.01)
		if early.Y <= 0 || early.Y < early.X {
			t.Fatalf("curve does not follow the start tangent: %v", early)
		}
	})
}

func TestCubicBezier(t *testing.T) {
	p0, p1 := r2.Vec{X: 0}, r2.Vec{X: 12}

	t.Run("defaults are the chord thirds", func(t *testing.T) {
		b := NewCubicBezier(p0, p1, nil, nil)
		vecNear(t, b.C1, r2.Vec{X: 4}, 1e-9)
		vecNear(t, b.C2, r2.Vec{X: 8}, 1e-9)
	})

	t.Run("free apex drag is exact and symmetric", func(t *testing.T) {
		b := NewCubicBezier(p0, p1, nil, nil)
		target := r2.Vec{X: 6, Y: 3}
		b.SetApex(target)
		vecNear(t, b.Apex(), target, 1e-9)
		// Control points stay mirrored across the apex normal.
		if math.Abs(b.C1.Y-b.C2.Y) > 1e-9 {
			t.Fatalf("asymmetric control points: %v, %v", b.C1, b.C2)
		}
	})

	t.Run("free apex at the chord midpoint restores the thirds", func(t *testing.T) {
		b := NewCubicBezier(p0, p1, nil, nil)
		b.SetApex(r2.Vec{X: 6})
		vecNear(t, b.C1, r2.Vec{X: 4}, 1e-9)
		vecNear(t, b.C2, r2.Vec{X: 8}, 1e-9)
	})

	t.Run("fixed start tangent survives apex drag", func(t *testing.T) {
		tan := r2.Vec{X: 1, Y: 1}
		b := NewCubicBezier(p0, p1, &tan, nil)
		target := r2.Vec{X: 6, Y: 2}
		b.SetApex(target)
		vecNear(t, b.Apex(), target, 1e-9)
		// C1 still sits on the tangent ray from P0.
		d := geom.Unit(r2.Sub(b.C1, p0))
		vecNear(t, d, geom.Unit(tan), 1e-9)
	})

	t.Run("both tangents fixed solves lengths only", func(t *testing.T) {
		startTan := r2.Vec{X: 1, Y: 1}
		endCont := r2.Vec{X: 1, Y: -1} // road continues down-right past P1
		b := NewCubicBezier(p0, p1, &startTan, &endCont)
		target := r2.Vec{X: 6, Y: 3}
		b.SetApex(target)
		vecNear(t, b.Apex(), target, 1e-9)
		vecNear(t, geom.Unit(r2.Sub(b.C1, p0)), geom.Unit(startTan), 1e-9)
		// C2 hangs against the continuation direction.
		vecNear(t, geom.Unit(r2.Sub(b.C2, p1)), geom.Unit(r2.Vec{X: -1, Y: 1}), 1e-9)
	})

	t.Run("parallel tangents fall back to the symmetric solution", func(t *testing.T) {
		tan := r2.Vec{X: 1}
		cont := r2.Vec{X: -1}
		b := NewCubicBezier(p0, p1, &tan, &cont)
		target := r2.Vec{X: 6, Y: 5}
		b.SetApex(target)
		vecNear(t, b.Apex(), target, 1e-9)
	})
}
