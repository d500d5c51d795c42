package course

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/geom"
)

// ConnectionDirection describes which way a connection may be driven.
type ConnectionDirection uint8

const (
	// DirRegular is a one-way road from start to end.
	DirRegular ConnectionDirection = iota
	// DirDual is drivable in both directions.
	DirDual
	// DirReverse is drivable only against the stored orientation, end to
	// start. The game renders these as reverse-driving segments.
	DirReverse
)

// String implements fmt.Stringer for log output.
func (d ConnectionDirection) String() string {
	switch d {
	case DirDual:
		return "dual"
	case DirReverse:
		return "reverse"
	default:
		return "regular"
	}
}

// ConnectionPriority distinguishes main roads from sub-priority roads.
type ConnectionPriority uint8

const (
	// PrioRegular is a main road.
	PrioRegular ConnectionPriority = iota
	// PrioSubPrio is a sub-priority road, used by the game for yields.
	PrioSubPrio
)

// String implements fmt.Stringer for log output.
func (p ConnectionPriority) String() string {
	if p == PrioSubPrio {
		return "subprio"
	}
	return "regular"
}

// Connection is a directed edge between two waypoints. Midpoint and Angle
// are derived from the endpoint positions and kept in sync by the owning
// RoadMap whenever an endpoint moves.
type Connection struct {
	StartID   uint64
	EndID     uint64
	Direction ConnectionDirection
	Priority  ConnectionPriority

	// Derived geometry, recomputed via UpdateGeometry.
	Midpoint r2.Vec
	Angle    float64
}

// NewConnection creates a connection with derived geometry filled in.
func NewConnection(start, end Node, dir ConnectionDirection, prio ConnectionPriority) Connection {
	c := Connection{StartID: start.ID, EndID: end.ID, Direction: dir, Priority: prio}
	c.UpdateGeometry(start.Position, end.Position)
	return c
}

// UpdateGeometry recomputes the cached midpoint and angle from the given
// endpoint positions.
func (c *Connection) UpdateGeometry(start, end r2.Vec) {
	c.Midpoint = geom.Mid(start, end)
	c.Angle = geom.AngleOf(start, end)
}

// Traversable reports whether the connection can be driven from the node
// with the given id to its opposite endpoint.
func (c Connection) Traversable(from uint64) bool {
	switch {
	case from == c.StartID:
		return c.Direction == DirRegular || c.Direction == DirDual
	case from == c.EndID:
		return c.Direction == DirDual || c.Direction == DirReverse
	default:
		return false
	}
}

// Opposite returns the endpoint id that is not from, and whether from is an
// endpoint of the connection at all.
func (c Connection) Opposite(from uint64) (uint64, bool) {
	switch from {
	case c.StartID:
		return c.EndID, true
	case c.EndID:
		return c.StartID, true
	default:
		return 0, false
	}
}
