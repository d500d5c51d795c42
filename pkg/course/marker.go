package course

// MapMarker names a waypoint as a routing destination. Markers belong to a
// marker group, which the game uses to fold destinations into submenus.
type MapMarker struct {
	// NodeID references an existing node; the RoadMap enforces this.
	NodeID uint64
	Name   string
	Group  string
	// MarkerIndex is the marker's running number in the course file,
	// 1-based. SetMarker assigns the next free number when it is zero.
	MarkerIndex uint32
	// IsDebug marks editor-internal markers that carry no game meaning.
	IsDebug bool
}
