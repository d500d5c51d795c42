// Package geom provides small 2D helpers on top of gonum's r2.Vec.
//
// The editor works in the game's top-down plane: X grows east, Y holds the
// game's Z coordinate (south). Angles are radians from atan2(dy, dx).
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Dist returns the Euclidean distance between a and b.
func Dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Dist2 returns the squared Euclidean distance between a and b.
func Dist2(a, b r2.Vec) float64 {
	return r2.Norm2(r2.Sub(a, b))
}

// Lerp linearly interpolates between a and b at parameter t in [0, 1].
func Lerp(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

// Mid returns the midpoint of a and b.
func Mid(a, b r2.Vec) r2.Vec {
	return r2.Scale(0.5, r2.Add(a, b))
}

// Sum adds any number of vectors, which keeps curve evaluation readable
// where several scaled terms pile up.
func Sum(vs ...r2.Vec) r2.Vec {
	var out r2.Vec
	for _, v := range vs {
		out = r2.Add(out, v)
	}
	return out
}

// FromAngle returns the unit vector pointing along the given angle (radians).
func FromAngle(angle float64) r2.Vec {
	return r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
}

// AngleOf returns the angle of the directed chord from a to b.
func AngleOf(a, b r2.Vec) float64 {
	d := r2.Sub(b, a)
	return math.Atan2(d.Y, d.X)
}

// Unit returns v normalized, or the zero vector if v has no length.
func Unit(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n < 1e-12 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}
