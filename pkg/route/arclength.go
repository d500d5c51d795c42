package route

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/geom"
)

// arcTable is a cumulative arc-length table over a polyline, used to place
// resampled points at exact arc distances.
type arcTable struct {
	pts []r2.Vec
	cum []float64
}

func newArcTable(pts []r2.Vec) arcTable {
	cum := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		cum[i] = cum[i-1] + geom.Dist(pts[i-1], pts[i])
	}
	return arcTable{pts: pts, cum: cum}
}

func (t arcTable) length() float64 {
	if len(t.cum) == 0 {
		return 0
	}
	return t.cum[len(t.cum)-1]
}

// at returns the point at arc distance s from the start, clamped to the
// polyline's ends.
func (t arcTable) at(s float64) r2.Vec {
	if len(t.pts) == 0 {
		return r2.Vec{}
	}
	if s <= 0 {
		return t.pts[0]
	}
	if s >= t.length() {
		return t.pts[len(t.pts)-1]
	}
	// Binary search for the segment containing s.
	lo, hi := 0, len(t.cum)-1
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if t.cum[mid] <= s {
			lo = mid
		} else {
			hi = mid
		}
	}
	seg := t.cum[hi] - t.cum[lo]
	if seg <= 0 {
		return t.pts[lo]
	}
	return geom.Lerp(t.pts[lo], t.pts[hi], (s-t.cum[lo])/seg)
}

// PolylineLength returns the total arc length of a polyline.
func PolylineLength(pts []r2.Vec) float64 {
	return newArcTable(pts).length()
}

// ResampleByCount places count points along the polyline at equal arc
// spacing, keeping both endpoints exact. Count is clamped to at least 2.
func ResampleByCount(pts []r2.Vec, count int) []r2.Vec {
	if len(pts) == 0 {
		return nil
	}
	if len(pts) == 1 {
		return []r2.Vec{pts[0]}
	}
	if count < 2 {
		count = 2
	}
	t := newArcTable(pts)
	out := make([]r2.Vec, count)
	step := t.length() / float64(count-1)
	for i := 0; i < count; i++ {
		out[i] = t.at(float64(i) * step)
	}
	out[0] = pts[0]
	out[count-1] = pts[len(pts)-1]
	return out
}

// ResampleBySpacing places points along the polyline so that consecutive
// points are at most spacing apart, at equal arc increments, endpoints
// included.
func ResampleBySpacing(pts []r2.Vec, spacing float64) []r2.Vec {
	cfg := SegmentConfig{Distance: spacing}
	return ResampleByCount(pts, cfg.NodeCountFor(PolylineLength(pts)))
}
