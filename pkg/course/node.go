package course

import "gonum.org/v1/gonum/spatial/r2"

// NodeFlag classifies a waypoint. The raw values match the AutoDrive config
// format; the generated flags (2 and 4) only exist on disk and are folded
// into FlagRegular at the import boundary.
type NodeFlag uint32

const (
	// FlagRegular is a normal waypoint.
	FlagRegular NodeFlag = 0
	// FlagSubPrio marks a waypoint that only touches sub-priority roads.
	FlagSubPrio NodeFlag = 1
	// FlagWarning marks a waypoint the game flagged as problematic.
	FlagWarning NodeFlag = 3
	// FlagReserved is kept for forward compatibility with newer configs.
	FlagReserved NodeFlag = 5

	// On-disk only: folded into FlagRegular by NodeFlagFromRaw.
	rawAutoGenerated   uint32 = 2
	rawSplineGenerated uint32 = 4
)

// NodeFlagFromRaw converts a raw config flag value, normalizing the
// generated flags to FlagRegular. Unknown values map to FlagRegular.
func NodeFlagFromRaw(raw uint32) NodeFlag {
	switch raw {
	case uint32(FlagSubPrio):
		return FlagSubPrio
	case uint32(FlagWarning):
		return FlagWarning
	case uint32(FlagReserved):
		return FlagReserved
	case rawAutoGenerated, rawSplineGenerated:
		return FlagRegular
	default:
		return FlagRegular
	}
}

// Raw returns the on-disk value of the flag.
func (f NodeFlag) Raw() uint32 { return uint32(f) }

// String implements fmt.Stringer for log output.
func (f NodeFlag) String() string {
	switch f {
	case FlagSubPrio:
		return "subprio"
	case FlagWarning:
		return "warning"
	case FlagReserved:
		return "reserved"
	default:
		return "regular"
	}
}

// Node is a single waypoint of the course.
type Node struct {
	// ID is unique within a RoadMap and monotonically assigned.
	ID uint64
	// Position in the top-down world plane (x, z).
	Position r2.Vec
	Flag     NodeFlag
}

// NewNode creates a waypoint.
func NewNode(id uint64, pos r2.Vec, flag NodeFlag) Node {
	return Node{ID: id, Position: pos, Flag: flag}
}
