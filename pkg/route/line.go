package route

import "gonum.org/v1/gonum/spatial/r2"

// LinePoints samples a straight segment from a to b according to the
// segment configuration, endpoints included.
func LinePoints(a, b r2.Vec, cfg SegmentConfig) []r2.Vec {
	return ResampleByCount([]r2.Vec{a, b}, cfg.NodeCountFor(PolylineLength([]r2.Vec{a, b})))
}
