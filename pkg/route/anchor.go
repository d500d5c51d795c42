package route

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/course"
	"github.com/sanholz/waycourse/pkg/geom"
)

// Anchor is a tool endpoint: either a free position or an existing waypoint
// the endpoint snapped to.
type Anchor struct {
	Pos    r2.Vec
	NodeID uint64
}

// Snapped reports whether the anchor references an existing waypoint.
func (a Anchor) Snapped() bool { return a.NodeID != 0 }

// SnapAnchor resolves a pointer position to an anchor, snapping to the
// nearest waypoint within snapRadius when one exists.
func SnapAnchor(rm *course.RoadMap, pos r2.Vec, snapRadius float64) Anchor {
	if n, ok := rm.NearestNode(pos); ok && geom.Dist(pos, n.Position) <= snapRadius {
		return Anchor{Pos: n.Position, NodeID: n.ID}
	}
	return Anchor{Pos: pos}
}

// SuggestTangent proposes a tangent for a curve leaving the anchor toward
// chordDir, continuing the existing road that lines up best with the
// chord. At a curve's start the road arrives at the anchor, so incoming
// edges are preferred; at the end (preferOutgoing) the road carries on
// past it. When the anchor has no edge on the preferred side, the other
// side is considered instead. Returns false when the anchor is free, has
// no edges, or no continuation points even loosely along the chord; the
// caller then falls back to chord-derived control points.
func SuggestTangent(rm *course.RoadMap, a Anchor, chordDir r2.Vec, preferOutgoing bool) (r2.Vec, bool) {
	if !a.Snapped() {
		return r2.Vec{}, false
	}
	neighbors := rm.ConnectedNeighbors(a.NodeID)
	if len(neighbors) == 0 {
		return r2.Vec{}, false
	}
	candidates := make([]course.ConnectedNeighbor, 0, len(neighbors))
	for _, nb := range neighbors {
		if nb.IsOutgoing == preferOutgoing {
			candidates = append(candidates, nb)
		}
	}
	if len(candidates) == 0 {
		candidates = neighbors
	}

	chord := geom.Unit(chordDir)
	best := r2.Vec{}
	bestDot := 0.0
	for _, nb := range candidates {
		// The road arrives from the neighbor; the curve should carry
		// straight on, away from it.
		dir := r2.Scale(-1, geom.FromAngle(nb.Angle))
		if d := r2.Dot(dir, chord); d > bestDot {
			best, bestDot = dir, d
		}
	}
	if bestDot <= 0 {
		// Every continuation points away from the chord; a suggested
		// tangent would bend the curve backward.
		return r2.Vec{}, false
	}
	return best, true
}
