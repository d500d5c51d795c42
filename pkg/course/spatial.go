package course

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/geom"
)

// nodePoint adapts a waypoint to gonum's kd-tree interfaces. Distance is the
// squared Euclidean distance, so tree queries compare against squared radii.
type nodePoint struct {
	id  uint64
	pos r2.Vec
}

func (p nodePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(nodePoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	default:
		return p.pos.Y - q.pos.Y
	}
}

func (p nodePoint) Dims() int { return 2 }

func (p nodePoint) Distance(c kdtree.Comparable) float64 {
	return geom.Dist2(p.pos, c.(nodePoint).pos)
}

// nodePoints implements kdtree.Interface over a slice of nodePoint.
type nodePoints []nodePoint

func (p nodePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p nodePoints) Len() int                      { return len(p) }
func (p nodePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p nodePoints) Pivot(d kdtree.Dim) int {
	return nodePlane{points: p, dim: d}.Pivot()
}

// nodePlane sorts nodePoints along one axis for median selection.
type nodePlane struct {
	points nodePoints
	dim    kdtree.Dim
}

func (p nodePlane) Less(i, j int) bool {
	switch p.dim {
	case 0:
		return p.points[i].pos.X < p.points[j].pos.X
	default:
		return p.points[i].pos.Y < p.points[j].pos.Y
	}
}
func (p nodePlane) Len() int { return len(p.points) }
func (p nodePlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
func (p nodePlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p nodePlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// SpatialMatch is a single query hit.
type SpatialMatch struct {
	NodeID   uint64
	Position r2.Vec
	// Dist is the Euclidean distance to the query point. Zero for rect
	// queries, which have no meaningful single distance.
	Dist float64
}

// SpatialIndex answers nearest-neighbor, radius and rectangle queries over a
// static snapshot of waypoint positions. It does not observe later mutations;
// the owning RoadMap rebuilds it lazily when its contents are stale.
type SpatialIndex struct {
	tree *kdtree.Tree
	size int
}

// BuildSpatialIndex constructs an index over the given nodes. An index over
// zero nodes is valid and answers every query with no results.
func BuildSpatialIndex(nodes []Node) *SpatialIndex {
	pts := make(nodePoints, len(nodes))
	for i, n := range nodes {
		pts[i] = nodePoint{id: n.ID, pos: n.Position}
	}
	idx := &SpatialIndex{size: len(pts)}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, true)
	}
	return idx
}

// Len returns the number of indexed points.
func (s *SpatialIndex) Len() int { return s.size }

// Nearest returns the closest indexed point to q, or false if the index is
// empty.
func (s *SpatialIndex) Nearest(q r2.Vec) (SpatialMatch, bool) {
	if s.tree == nil {
		return SpatialMatch{}, false
	}
	got, _ := s.tree.Nearest(nodePoint{pos: q})
	if got == nil {
		return SpatialMatch{}, false
	}
	p := got.(nodePoint)
	return SpatialMatch{NodeID: p.id, Position: p.pos, Dist: geom.Dist(q, p.pos)}, true
}

// WithinRadius returns all indexed points with distance <= radius from q,
// sorted by ascending distance (ties broken by node id).
func (s *SpatialIndex) WithinRadius(q r2.Vec, radius float64) []SpatialMatch {
	if s.tree == nil || radius < 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	s.tree.NearestSet(keep, nodePoint{pos: q})

	var out []SpatialMatch
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(nodePoint)
		out = append(out, SpatialMatch{NodeID: p.id, Position: p.pos, Dist: geom.Dist(q, p.pos)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dist != out[j].Dist {
			return out[i].Dist < out[j].Dist
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}

// WithinRect returns all indexed points inside the axis-aligned rectangle
// spanned by min and max (inclusive), sorted by node id. The lookup runs a
// radius query on the rectangle's bounding circle and filters exactly.
func (s *SpatialIndex) WithinRect(min, max r2.Vec) []SpatialMatch {
	if s.tree == nil || min.X > max.X || min.Y > max.Y {
		return nil
	}
	center := geom.Mid(min, max)
	keep := kdtree.NewDistKeeper(geom.Dist2(center, max))
	s.tree.NearestSet(keep, nodePoint{pos: center})

	var out []SpatialMatch
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(nodePoint)
		if p.pos.X < min.X || p.pos.X > max.X || p.pos.Y < min.Y || p.pos.Y > max.Y {
			continue
		}
		out = append(out, SpatialMatch{NodeID: p.id, Position: p.pos})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}
