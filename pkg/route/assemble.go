package route

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/course"
	"github.com/sanholz/waycourse/pkg/geom"
)

// mergeEpsilon is how close a sampled point must be to its predecessor or
// to a snapped anchor to be treated as the same waypoint.
const mergeEpsilon = 0.01

// InternalEdge connects two of the result's new waypoints, by index.
type InternalEdge struct {
	From, To int
}

// ExternalEdge connects a new waypoint to an existing one. NewIsStart
// tells the applier which endpoint the new waypoint takes in the stored
// connection, so one-way roads flow the right way through the joint.
type ExternalEdge struct {
	NewIndex   int
	ExistingID uint64
	NewIsStart bool
}

// DirectJoint connects two existing waypoints, used when every sampled
// point collapsed onto the anchors and nothing new is created in between.
type DirectJoint struct {
	FromID, ToID uint64
}

// ToolResult is the outcome of executing a tool: waypoint positions to
// create plus the connections wiring them up and into the existing map.
type ToolResult struct {
	Points    []r2.Vec
	Internal  []InternalEdge
	External  []ExternalEdge
	Direct    []DirectJoint
	Direction course.ConnectionDirection
	Priority  course.ConnectionPriority
}

// Empty reports whether applying the result would change nothing.
func (r ToolResult) Empty() bool {
	return len(r.Points) == 0 && len(r.External) == 0 && len(r.Direct) == 0
}

// Assemble turns sampled curve points into a ToolResult. Points within
// mergeEpsilon of their predecessor collapse; when an end is anchored to
// an existing waypoint, the coinciding sample is dropped and replaced by
// an external edge oriented so travel runs start anchor to end anchor.
func Assemble(points []r2.Vec, start, end Anchor, dir course.ConnectionDirection, prio course.ConnectionPriority) ToolResult {
	res := ToolResult{Direction: dir, Priority: prio}

	for _, p := range points {
		if n := len(res.Points); n > 0 && geom.Dist(res.Points[n-1], p) < mergeEpsilon {
			continue
		}
		res.Points = append(res.Points, p)
	}
	if start.Snapped() && len(res.Points) > 0 && geom.Dist(res.Points[0], start.Pos) < mergeEpsilon {
		res.Points = res.Points[1:]
	}
	if end.Snapped() && len(res.Points) > 0 && geom.Dist(res.Points[len(res.Points)-1], end.Pos) < mergeEpsilon {
		res.Points = res.Points[:len(res.Points)-1]
	}

	if len(res.Points) == 0 {
		// Every sample collapsed onto the anchors; all that may remain
		// is a direct joint between the two existing waypoints.
		if start.Snapped() && end.Snapped() && start.NodeID != end.NodeID {
			res.Direct = append(res.Direct, DirectJoint{FromID: start.NodeID, ToID: end.NodeID})
		}
		return res
	}

	for i := 1; i < len(res.Points); i++ {
		res.Internal = append(res.Internal, InternalEdge{From: i - 1, To: i})
	}
	if start.Snapped() {
		// Travel enters the new chain here: existing node is the start.
		res.External = append(res.External, ExternalEdge{
			NewIndex:   0,
			ExistingID: start.NodeID,
			NewIsStart: false,
		})
	}
	if end.Snapped() {
		// Travel leaves the new chain here: new node is the start.
		res.External = append(res.External, ExternalEdge{
			NewIndex:   len(res.Points) - 1,
			ExistingID: end.NodeID,
			NewIsStart: true,
		})
	}
	return res
}
