// Package course implements the road network of an AutoDrive waypoint
// course: waypoints, directed connections with cached geometry, map markers
// and the spatial index used by the editing tools.
package course

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tidwall/btree"

	"github.com/sanholz/waycourse/pkg/geom"
)

// connKey orders the reverse edge index by (end, start).
type connKey struct {
	end   uint64
	start uint64
}

func connLess(a, b Connection) bool {
	if a.StartID != b.StartID {
		return a.StartID < b.StartID
	}
	return a.EndID < b.EndID
}

func connKeyLess(a, b connKey) bool {
	if a.end != b.end {
		return a.end < b.end
	}
	return a.start < b.start
}

// ConnectedNeighbor describes one edge incident to a node, seen from that
// node: the opposite endpoint, the chord angle from the node toward it, and
// whether the stored edge leaves the node.
type ConnectedNeighbor struct {
	NeighborID uint64
	Angle      float64
	IsOutgoing bool
}

// RoadMap is the owning aggregate of a course: nodes, connections, markers
// and meta data, plus a lazily rebuilt spatial index over node positions.
//
// A RoadMap has a single logical owner; it is not safe for concurrent use.
// Clone is O(1) through copy-on-write trees and is how the undo history
// takes snapshots.
type RoadMap struct {
	nodes    *btree.Map[uint64, Node]
	conns    *btree.BTreeG[Connection]
	incoming *btree.BTreeG[connKey]
	markers  []MapMarker
	meta     Meta

	nextID uint64

	spatial      *SpatialIndex
	spatialDirty bool
	onRebuild    func()
}

// NewRoadMap returns an empty road map. Node ids start at 1.
func NewRoadMap() *RoadMap {
	return &RoadMap{
		nodes:        new(btree.Map[uint64, Node]),
		conns:        btree.NewBTreeG(connLess),
		incoming:     btree.NewBTreeG(connKeyLess),
		nextID:       1,
		spatialDirty: true,
	}
}

// Clone returns an independent copy sharing structure with the receiver
// until either side mutates. The clone starts with a stale spatial index.
func (rm *RoadMap) Clone() *RoadMap {
	return &RoadMap{
		nodes:        rm.nodes.Copy(),
		conns:        rm.conns.Copy(),
		incoming:     rm.incoming.Copy(),
		markers:      append([]MapMarker(nil), rm.markers...),
		meta:         rm.meta.Clone(),
		nextID:       rm.nextID,
		spatialDirty: true,
	}
}

// Meta returns the course-level header data.
func (rm *RoadMap) Meta() Meta { return rm.meta }

// SetMeta replaces the course-level header data.
func (rm *RoadMap) SetMeta(m Meta) { rm.meta = m.Clone() }

// NextNodeID returns the id the next AddNode call will assign.
func (rm *RoadMap) NextNodeID() uint64 { return rm.nextID }

// AdvanceNodeID raises the id allocator to at least id. Lower values are
// ignored, so restoring state can never reuse a handed-out id.
func (rm *RoadMap) AdvanceNodeID(id uint64) {
	if id > rm.nextID {
		rm.nextID = id
	}
}

// NodeCount returns the number of waypoints.
func (rm *RoadMap) NodeCount() int { return rm.nodes.Len() }

// ConnectionCount returns the number of stored connections.
func (rm *RoadMap) ConnectionCount() int { return rm.conns.Len() }

// MarkerCount returns the number of map markers.
func (rm *RoadMap) MarkerCount() int { return len(rm.markers) }

// AddNode creates a waypoint at pos and returns it.
func (rm *RoadMap) AddNode(pos r2.Vec, flag NodeFlag) Node {
	n := NewNode(rm.nextID, pos, flag)
	rm.nextID++
	rm.nodes.Set(n.ID, n)
	rm.spatialDirty = true
	return n
}

// InsertNode stores a waypoint with a caller-chosen id, bumping the id
// allocator past it. Used by bulk import; returns false if the id is taken
// or zero.
func (rm *RoadMap) InsertNode(n Node) bool {
	if n.ID == 0 {
		return false
	}
	if _, ok := rm.nodes.Get(n.ID); ok {
		return false
	}
	rm.nodes.Set(n.ID, n)
	if n.ID >= rm.nextID {
		rm.nextID = n.ID + 1
	}
	rm.spatialDirty = true
	return true
}

// Node looks up a waypoint by id.
func (rm *RoadMap) Node(id uint64) (Node, bool) {
	return rm.nodes.Get(id)
}

// Nodes returns all waypoints in ascending id order.
func (rm *RoadMap) Nodes() []Node {
	out := make([]Node, 0, rm.nodes.Len())
	rm.nodes.Scan(func(_ uint64, n Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// RemoveNode deletes a waypoint together with every connection and marker
// referencing it. Returns false if the node does not exist.
func (rm *RoadMap) RemoveNode(id uint64) bool {
	if _, ok := rm.nodes.Get(id); !ok {
		return false
	}
	for _, c := range rm.OutgoingConnections(id) {
		rm.deleteConn(c.StartID, c.EndID)
	}
	for _, c := range rm.IncomingConnections(id) {
		rm.deleteConn(c.StartID, c.EndID)
	}
	rm.markers = deleteMarkers(rm.markers, id)
	rm.nodes.Delete(id)
	rm.spatialDirty = true
	return true
}

// RemoveNodes deletes a batch of waypoints, returning how many existed.
func (rm *RoadMap) RemoveNodes(ids []uint64) int {
	removed := 0
	for _, id := range ids {
		if rm.RemoveNode(id) {
			removed++
		}
	}
	return removed
}

// UpdateNodePosition moves a waypoint and synchronously recomputes the
// cached geometry of every connection incident to it. Returns false if the
// node does not exist.
func (rm *RoadMap) UpdateNodePosition(id uint64, pos r2.Vec) bool {
	n, ok := rm.nodes.Get(id)
	if !ok {
		return false
	}
	n.Position = pos
	rm.nodes.Set(id, n)
	rm.spatialDirty = true

	refresh := func(c Connection) {
		s, _ := rm.nodes.Get(c.StartID)
		e, _ := rm.nodes.Get(c.EndID)
		c.UpdateGeometry(s.Position, e.Position)
		rm.conns.Set(c)
	}
	for _, c := range rm.OutgoingConnections(id) {
		refresh(c)
	}
	for _, c := range rm.IncomingConnections(id) {
		refresh(c)
	}
	return true
}

// SetNodeFlag overwrites a waypoint's flag. Returns false if the node does
// not exist.
func (rm *RoadMap) SetNodeFlag(id uint64, flag NodeFlag) bool {
	n, ok := rm.nodes.Get(id)
	if !ok {
		return false
	}
	n.Flag = flag
	rm.nodes.Set(id, n)
	return true
}

// AddConnection stores a directed connection from start to end, replacing
// any existing connection with the same orientation. Self loops and dangling
// endpoints are rejected.
func (rm *RoadMap) AddConnection(start, end uint64, dir ConnectionDirection, prio ConnectionPriority) (Connection, bool) {
	if start == end {
		return Connection{}, false
	}
	s, ok := rm.nodes.Get(start)
	if !ok {
		return Connection{}, false
	}
	e, ok := rm.nodes.Get(end)
	if !ok {
		return Connection{}, false
	}
	c := NewConnection(s, e, dir, prio)
	rm.conns.Set(c)
	rm.incoming.Set(connKey{end: end, start: start})
	return c, true
}

// Connection looks up the connection stored as start→end.
func (rm *RoadMap) Connection(start, end uint64) (Connection, bool) {
	return rm.conns.Get(Connection{StartID: start, EndID: end})
}

// Connections returns every stored connection ordered by (start, end).
func (rm *RoadMap) Connections() []Connection {
	out := make([]Connection, 0, rm.conns.Len())
	rm.conns.Scan(func(c Connection) bool {
		out = append(out, c)
		return true
	})
	return out
}

// SetConnectionDirection changes how the stored start→end connection may
// be driven. Returns false if no such connection exists.
func (rm *RoadMap) SetConnectionDirection(start, end uint64, dir ConnectionDirection) bool {
	c, ok := rm.conns.Get(Connection{StartID: start, EndID: end})
	if !ok {
		return false
	}
	c.Direction = dir
	rm.conns.Set(c)
	return true
}

// SetConnectionPriority switches the stored start→end connection between
// main and sub-priority. Returns false if no such connection exists.
func (rm *RoadMap) SetConnectionPriority(start, end uint64, prio ConnectionPriority) bool {
	c, ok := rm.conns.Get(Connection{StartID: start, EndID: end})
	if !ok {
		return false
	}
	c.Priority = prio
	rm.conns.Set(c)
	return true
}

// RemoveConnection deletes the connection stored as start→end.
func (rm *RoadMap) RemoveConnection(start, end uint64) bool {
	return rm.deleteConn(start, end)
}

func (rm *RoadMap) deleteConn(start, end uint64) bool {
	_, ok := rm.conns.Delete(Connection{StartID: start, EndID: end})
	if ok {
		rm.incoming.Delete(connKey{end: end, start: start})
	}
	return ok
}

// FindConnectionsBetween returns the connections stored in either
// orientation between a and b.
func (rm *RoadMap) FindConnectionsBetween(a, b uint64) []Connection {
	var out []Connection
	if c, ok := rm.conns.Get(Connection{StartID: a, EndID: b}); ok {
		out = append(out, c)
	}
	if c, ok := rm.conns.Get(Connection{StartID: b, EndID: a}); ok {
		out = append(out, c)
	}
	return out
}

// RemoveConnectionsBetween deletes the connections in both orientations
// between a and b, returning how many existed.
func (rm *RoadMap) RemoveConnectionsBetween(a, b uint64) int {
	n := 0
	if rm.deleteConn(a, b) {
		n++
	}
	if rm.deleteConn(b, a) {
		n++
	}
	return n
}

// InvertConnection swaps the stored orientation of the start→end connection
// while keeping direction and priority, so a one-way road flips its driving
// direction. Returns the re-stored connection.
func (rm *RoadMap) InvertConnection(start, end uint64) (Connection, bool) {
	c, ok := rm.conns.Get(Connection{StartID: start, EndID: end})
	if !ok {
		return Connection{}, false
	}
	rm.deleteConn(start, end)
	return rm.AddConnection(end, start, c.Direction, c.Priority)
}

// OutgoingConnections returns connections stored with start == id, ordered
// by end id.
func (rm *RoadMap) OutgoingConnections(id uint64) []Connection {
	var out []Connection
	rm.conns.Ascend(Connection{StartID: id}, func(c Connection) bool {
		if c.StartID != id {
			return false
		}
		out = append(out, c)
		return true
	})
	return out
}

// IncomingConnections returns connections stored with end == id, ordered by
// start id.
func (rm *RoadMap) IncomingConnections(id uint64) []Connection {
	var out []Connection
	rm.incoming.Ascend(connKey{end: id}, func(k connKey) bool {
		if k.end != id {
			return false
		}
		if c, ok := rm.conns.Get(Connection{StartID: k.start, EndID: k.end}); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Successors returns the ids reachable from id in one traversable hop,
// deduplicated and sorted ascending.
func (rm *RoadMap) Successors(id uint64) []uint64 {
	seen := make(map[uint64]struct{})
	for _, c := range rm.OutgoingConnections(id) {
		if c.Traversable(id) {
			seen[c.EndID] = struct{}{}
		}
	}
	for _, c := range rm.IncomingConnections(id) {
		if c.Traversable(id) {
			seen[c.StartID] = struct{}{}
		}
	}
	return sortedIDs(seen)
}

// ConnectedNeighbors describes every edge incident to id, outgoing edges
// first, each ordered by the opposite endpoint's id.
func (rm *RoadMap) ConnectedNeighbors(id uint64) []ConnectedNeighbor {
	n, ok := rm.nodes.Get(id)
	if !ok {
		return nil
	}
	var out []ConnectedNeighbor
	for _, c := range rm.OutgoingConnections(id) {
		if other, okN := rm.nodes.Get(c.EndID); okN {
			out = append(out, ConnectedNeighbor{
				NeighborID: other.ID,
				Angle:      angleBetween(n, other),
				IsOutgoing: true,
			})
		}
	}
	for _, c := range rm.IncomingConnections(id) {
		if other, okN := rm.nodes.Get(c.StartID); okN {
			out = append(out, ConnectedNeighbor{
				NeighborID: other.ID,
				Angle:      angleBetween(n, other),
				IsOutgoing: false,
			})
		}
	}
	return out
}

// RecalculateNodeFlags rederives the Regular/SubPrio flag of the given
// nodes (all nodes when none are given) from their incident connections.
// Warning and Reserved flags are user data and stay untouched. A node with
// no connections, or with at least one regular-priority connection, is
// Regular; otherwise it is SubPrio.
func (rm *RoadMap) RecalculateNodeFlags(ids ...uint64) {
	if len(ids) == 0 {
		rm.nodes.Scan(func(id uint64, _ Node) bool {
			ids = append(ids, id)
			return true
		})
	}
	for _, id := range ids {
		n, ok := rm.nodes.Get(id)
		if !ok || n.Flag == FlagWarning || n.Flag == FlagReserved {
			continue
		}
		incident := append(rm.OutgoingConnections(id), rm.IncomingConnections(id)...)
		flag := FlagRegular
		if len(incident) > 0 {
			flag = FlagSubPrio
			for _, c := range incident {
				if c.Priority == PrioRegular {
					flag = FlagRegular
					break
				}
			}
		}
		if n.Flag != flag {
			n.Flag = flag
			rm.nodes.Set(id, n)
		}
	}
}

// Markers returns the map markers in insertion order.
func (rm *RoadMap) Markers() []MapMarker {
	return append([]MapMarker(nil), rm.markers...)
}

// SetMarker stores a marker, replacing any marker already on the same node.
// A zero MarkerIndex gets the next running number. Returns false if the
// node does not exist.
func (rm *RoadMap) SetMarker(m MapMarker) bool {
	if _, ok := rm.nodes.Get(m.NodeID); !ok {
		return false
	}
	for i := range rm.markers {
		if rm.markers[i].NodeID == m.NodeID {
			if m.MarkerIndex == 0 {
				m.MarkerIndex = rm.markers[i].MarkerIndex
			}
			rm.markers[i] = m
			return true
		}
	}
	if m.MarkerIndex == 0 {
		m.MarkerIndex = rm.nextMarkerIndex()
	}
	rm.markers = append(rm.markers, m)
	return true
}

// nextMarkerIndex returns one past the highest assigned running number.
func (rm *RoadMap) nextMarkerIndex() uint32 {
	var max uint32
	for _, m := range rm.markers {
		if m.MarkerIndex > max {
			max = m.MarkerIndex
		}
	}
	return max + 1
}

// Marker returns the marker on the given node, if any.
func (rm *RoadMap) Marker(nodeID uint64) (MapMarker, bool) {
	for _, m := range rm.markers {
		if m.NodeID == nodeID {
			return m, true
		}
	}
	return MapMarker{}, false
}

// RemoveMarker deletes the marker on the given node.
func (rm *RoadMap) RemoveMarker(nodeID uint64) bool {
	before := len(rm.markers)
	rm.markers = deleteMarkers(rm.markers, nodeID)
	return len(rm.markers) != before
}

// remapMarkers retargets markers from old node ids to their replacements.
// Markers already present on a replacement node win; the remapped duplicate
// is dropped.
func (rm *RoadMap) remapMarkers(remap map[uint64]uint64) int {
	moved := 0
	kept := rm.markers[:0]
	for _, m := range rm.markers {
		target, ok := remap[m.NodeID]
		if !ok {
			kept = append(kept, m)
			continue
		}
		dup := false
		for _, k := range kept {
			if k.NodeID == target {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		m.NodeID = target
		kept = append(kept, m)
		moved++
	}
	rm.markers = kept
	return moved
}

// EnsureSpatialIndex returns a spatial index matching the current node set,
// rebuilding it only when nodes were added, removed or moved since the last
// build.
func (rm *RoadMap) EnsureSpatialIndex() *SpatialIndex {
	if rm.spatial == nil || rm.spatialDirty {
		rm.spatial = BuildSpatialIndex(rm.Nodes())
		rm.spatialDirty = false
		if rm.onRebuild != nil {
			rm.onRebuild()
		}
	}
	return rm.spatial
}

// SetRebuildHook registers a callback invoked after each spatial index
// rebuild, used for instrumentation. Clones do not inherit the hook.
func (rm *RoadMap) SetRebuildHook(fn func()) { rm.onRebuild = fn }

// SpatialIndexDirty reports whether the next spatial query will rebuild.
func (rm *RoadMap) SpatialIndexDirty() bool {
	return rm.spatial == nil || rm.spatialDirty
}

// NearestNode returns the waypoint closest to pos.
func (rm *RoadMap) NearestNode(pos r2.Vec) (Node, bool) {
	m, ok := rm.EnsureSpatialIndex().Nearest(pos)
	if !ok {
		return Node{}, false
	}
	return rm.nodes.Get(m.NodeID)
}

// NodesWithinRadius returns the waypoints within radius of pos, closest
// first.
func (rm *RoadMap) NodesWithinRadius(pos r2.Vec, radius float64) []Node {
	matches := rm.EnsureSpatialIndex().WithinRadius(pos, radius)
	out := make([]Node, 0, len(matches))
	for _, m := range matches {
		if n, ok := rm.nodes.Get(m.NodeID); ok {
			out = append(out, n)
		}
	}
	return out
}

// NodesWithinRect returns the waypoints inside the axis-aligned rectangle,
// ordered by id.
func (rm *RoadMap) NodesWithinRect(min, max r2.Vec) []Node {
	matches := rm.EnsureSpatialIndex().WithinRect(min, max)
	out := make([]Node, 0, len(matches))
	for _, m := range matches {
		if n, ok := rm.nodes.Get(m.NodeID); ok {
			out = append(out, n)
		}
	}
	return out
}

func angleBetween(from, to Node) float64 {
	return geom.AngleOf(from.Position, to.Position)
}

func sortedIDs(set map[uint64]struct{}) []uint64 {
	if len(set) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func deleteMarkers(markers []MapMarker, nodeID uint64) []MapMarker {
	kept := markers[:0]
	for _, m := range markers {
		if m.NodeID != nodeID {
			kept = append(kept, m)
		}
	}
	return kept
}
