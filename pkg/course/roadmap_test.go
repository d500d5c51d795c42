package course

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestRoadMapNodes(t *testing.T) {
	rm := NewRoadMap()

	t.Run("ids are monotonic from one", func(t *testing.T) {
		a := rm.AddNode(r2.Vec{X: 1, Y: 2}, FlagRegular)
		b := rm.AddNode(r2.Vec{X: 3, Y: 4}, FlagSubPrio)
		if a.ID != 1 || b.ID != 2 {
			t.Fatalf("got ids %d, %d, want 1, 2", a.ID, b.ID)
		}
		if rm.NextNodeID() != 3 {
			t.Fatalf("NextNodeID = %d, want 3", rm.NextNodeID())
		}
	})

	t.Run("lookup", func(t *testing.T) {
		n, ok := rm.Node(1)
		if !ok || n.Position.X != 1 {
			t.Fatalf("Node(1) = %+v, %v", n, ok)
		}
		if _, ok := rm.Node(99); ok {
			t.Fatal("Node(99) should not exist")
		}
	})

	t.Run("insert bumps allocator", func(t *testing.T) {
		if !rm.InsertNode(NewNode(10, r2.Vec{}, FlagRegular)) {
			t.Fatal("InsertNode(10) failed")
		}
		if rm.InsertNode(NewNode(10, r2.Vec{}, FlagRegular)) {
			t.Fatal("duplicate InsertNode should fail")
		}
		if rm.NextNodeID() != 11 {
			t.Fatalf("NextNodeID = %d, want 11", rm.NextNodeID())
		}
	})
}

func TestRoadMapConnections(t *testing.T) {
	rm := NewRoadMap()
	a := rm.AddNode(r2.Vec{X: 0, Y: 0}, FlagRegular)
	b := rm.AddNode(r2.Vec{X: 10, Y: 0}, FlagRegular)

	t.Run("geometry derived on create", func(t *testing.T) {
		c, ok := rm.AddConnection(a.ID, b.ID, DirRegular, PrioRegular)
		if !ok {
			t.Fatal("AddConnection failed")
		}
		if c.Midpoint.X != 5 || c.Midpoint.Y != 0 {
			t.Fatalf("midpoint = %v, want (5,0)", c.Midpoint)
		}
		if c.Angle != 0 {
			t.Fatalf("angle = %v, want 0", c.Angle)
		}
	})

	t.Run("rejects self loop and dangling endpoints", func(t *testing.T) {
		if _, ok := rm.AddConnection(a.ID, a.ID, DirRegular, PrioRegular); ok {
			t.Fatal("self loop accepted")
		}
		if _, ok := rm.AddConnection(a.ID, 99, DirRegular, PrioRegular); ok {
			t.Fatal("dangling end accepted")
		}
	})

	t.Run("move recomputes incident geometry", func(t *testing.T) {
		if !rm.UpdateNodePosition(b.ID, r2.Vec{X: 0, Y: 10}) {
			t.Fatal("UpdateNodePosition failed")
		}
		c, _ := rm.Connection(a.ID, b.ID)
		if c.Midpoint.X != 0 || c.Midpoint.Y != 5 {
			t.Fatalf("midpoint = %v, want (0,5)", c.Midpoint)
		}
		if math.Abs(c.Angle-math.Pi/2) > 1e-12 {
			t.Fatalf("angle = %v, want pi/2", c.Angle)
		}
	})

	t.Run("invert swaps orientation", func(t *testing.T) {
		inv, ok := rm.InvertConnection(a.ID, b.ID)
		if !ok {
			t.Fatal("InvertConnection failed")
		}
		if inv.StartID != b.ID || inv.EndID != a.ID {
			t.Fatalf("inverted = %d->%d", inv.StartID, inv.EndID)
		}
		if _, ok := rm.Connection(a.ID, b.ID); ok {
			t.Fatal("old orientation still stored")
		}
	})

	t.Run("between queries see both orientations", func(t *testing.T) {
		if got := rm.FindConnectionsBetween(a.ID, b.ID); len(got) != 1 {
			t.Fatalf("FindConnectionsBetween = %d entries, want 1", len(got))
		}
		if got := rm.RemoveConnectionsBetween(a.ID, b.ID); got != 1 {
			t.Fatalf("RemoveConnectionsBetween = %d, want 1", got)
		}
		if rm.ConnectionCount() != 0 {
			t.Fatalf("ConnectionCount = %d, want 0", rm.ConnectionCount())
		}
	})
}

func TestRoadMapConnectionMutators(t *testing.T) {
	rm := NewRoadMap()
	a := rm.AddNode(r2.Vec{X: 0}, FlagRegular)
	b := rm.AddNode(r2.Vec{X: 10}, FlagRegular)
	rm.AddConnection(a.ID, b.ID, DirRegular, PrioRegular)

	t.Run("direction change flips traversability in place", func(t *testing.T) {
		if !rm.SetConnectionDirection(a.ID, b.ID, DirDual) {
			t.Fatal("SetConnectionDirection failed")
		}
		c, ok := rm.Connection(a.ID, b.ID)
		if !ok || c.Direction != DirDual {
			t.Fatalf("connection = %+v", c)
		}
		if !c.Traversable(b.ID) {
			t.Fatal("dual connection not drivable from the end")
		}
		// Orientation and geometry stay as stored.
		if c.StartID != a.ID || c.EndID != b.ID || c.Midpoint.X != 5 {
			t.Fatalf("connection = %+v", c)
		}
		if rm.ConnectionCount() != 1 {
			t.Fatalf("ConnectionCount = %d, want 1", rm.ConnectionCount())
		}
	})

	t.Run("priority change keeps the direction", func(t *testing.T) {
		if !rm.SetConnectionPriority(a.ID, b.ID, PrioSubPrio) {
			t.Fatal("SetConnectionPriority failed")
		}
		c, _ := rm.Connection(a.ID, b.ID)
		if c.Priority != PrioSubPrio || c.Direction != DirDual {
			t.Fatalf("connection = %+v", c)
		}
	})

	t.Run("missing connections are refused", func(t *testing.T) {
		if rm.SetConnectionDirection(b.ID, a.ID, DirRegular) {
			t.Fatal("changed a connection stored in the other orientation")
		}
		if rm.SetConnectionPriority(a.ID, 99, PrioRegular) {
			t.Fatal("changed a connection to an unknown node")
		}
	})
}

func TestRoadMapRemoveNodeCascade(t *testing.T) {
	rm := NewRoadMap()
	a := rm.AddNode(r2.Vec{X: 0, Y: 0}, FlagRegular)
	b := rm.AddNode(r2.Vec{X: 1, Y: 0}, FlagRegular)
	c := rm.AddNode(r2.Vec{X: 2, Y: 0}, FlagRegular)
	rm.AddConnection(a.ID, b.ID, DirRegular, PrioRegular)
	rm.AddConnection(b.ID, c.ID, DirRegular, PrioRegular)
	rm.AddConnection(c.ID, a.ID, DirRegular, PrioRegular)
	rm.SetMarker(MapMarker{NodeID: b.ID, Name: "Yard", Group: "Farm"})

	if !rm.RemoveNode(b.ID) {
		t.Fatal("RemoveNode failed")
	}
	if rm.NodeCount() != 2 {
		t.Fatalf("NodeCount = %d, want 2", rm.NodeCount())
	}
	if rm.ConnectionCount() != 1 {
		t.Fatalf("ConnectionCount = %d, want 1 (only c->a survives)", rm.ConnectionCount())
	}
	if rm.MarkerCount() != 0 {
		t.Fatalf("MarkerCount = %d, want 0", rm.MarkerCount())
	}
	if _, ok := rm.Connection(c.ID, a.ID); !ok {
		t.Fatal("unrelated connection was dropped")
	}
}

func TestRoadMapDirectionSemantics(t *testing.T) {
	rm := NewRoadMap()
	a := rm.AddNode(r2.Vec{X: 0}, FlagRegular)
	b := rm.AddNode(r2.Vec{X: 1}, FlagRegular)
	c := rm.AddNode(r2.Vec{X: 2}, FlagRegular)
	d := rm.AddNode(r2.Vec{X: 3}, FlagRegular)
	rm.AddConnection(a.ID, b.ID, DirRegular, PrioRegular)
	rm.AddConnection(b.ID, c.ID, DirDual, PrioRegular)
	rm.AddConnection(c.ID, d.ID, DirReverse, PrioRegular)

	cases := []struct {
		name string
		from uint64
		want []uint64
	}{
		{"regular only forward", a.ID, []uint64{b.ID}},
		{"dual both ways plus regular target", b.ID, []uint64{c.ID}},
		{"reverse traversed against storage", d.ID, []uint64{c.ID}},
		{"reverse not traversable forward", c.ID, []uint64{b.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rm.Successors(tc.from)
			if len(got) != len(tc.want) {
				t.Fatalf("Successors(%d) = %v, want %v", tc.from, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Successors(%d) = %v, want %v", tc.from, got, tc.want)
				}
			}
		})
	}
}

func TestRoadMapConnectedNeighbors(t *testing.T) {
	rm := NewRoadMap()
	center := rm.AddNode(r2.Vec{X: 0, Y: 0}, FlagRegular)
	east := rm.AddNode(r2.Vec{X: 5, Y: 0}, FlagRegular)
	north := rm.AddNode(r2.Vec{X: 0, Y: 5}, FlagRegular)
	rm.AddConnection(center.ID, east.ID, DirRegular, PrioRegular)
	rm.AddConnection(north.ID, center.ID, DirRegular, PrioRegular)

	got := rm.ConnectedNeighbors(center.ID)
	if len(got) != 2 {
		t.Fatalf("got %d neighbors, want 2", len(got))
	}
	if !got[0].IsOutgoing || got[0].NeighborID != east.ID || got[0].Angle != 0 {
		t.Fatalf("outgoing neighbor = %+v", got[0])
	}
	if got[1].IsOutgoing || got[1].NeighborID != north.ID {
		t.Fatalf("incoming neighbor = %+v", got[1])
	}
	if math.Abs(got[1].Angle-math.Pi/2) > 1e-12 {
		t.Fatalf("incoming angle = %v, want pi/2", got[1].Angle)
	}
}

func TestRecalculateNodeFlags(t *testing.T) {
	rm := NewRoadMap()
	iso := rm.AddNode(r2.Vec{X: 0}, FlagSubPrio)
	a := rm.AddNode(r2.Vec{X: 1}, FlagRegular)
	b := rm.AddNode(r2.Vec{X: 2}, FlagRegular)
	c := rm.AddNode(r2.Vec{X: 3}, FlagRegular)
	warn := rm.AddNode(r2.Vec{X: 4}, FlagWarning)
	rm.AddConnection(a.ID, b.ID, DirRegular, PrioSubPrio)
	rm.AddConnection(b.ID, c.ID, DirRegular, PrioRegular)
	rm.AddConnection(c.ID, warn.ID, DirRegular, PrioSubPrio)

	rm.RecalculateNodeFlags()

	want := map[uint64]NodeFlag{
		iso.ID:  FlagRegular, // no connections
		a.ID:    FlagSubPrio, // only subprio edges
		b.ID:    FlagRegular, // one regular edge wins
		c.ID:    FlagRegular,
		warn.ID: FlagWarning, // untouched
	}
	for id, flag := range want {
		n, _ := rm.Node(id)
		if n.Flag != flag {
			t.Errorf("node %d flag = %v, want %v", id, n.Flag, flag)
		}
	}
}

func TestRoadMapMarkers(t *testing.T) {
	rm := NewRoadMap()
	a := rm.AddNode(r2.Vec{}, FlagRegular)

	if rm.SetMarker(MapMarker{NodeID: 99, Name: "x"}) {
		t.Fatal("marker on missing node accepted")
	}
	if !rm.SetMarker(MapMarker{NodeID: a.ID, Name: "Silo", Group: "Farm"}) {
		t.Fatal("SetMarker failed")
	}
	// Same node again replaces, not appends.
	rm.SetMarker(MapMarker{NodeID: a.ID, Name: "Silo 2", Group: "Farm"})
	if rm.MarkerCount() != 1 {
		t.Fatalf("MarkerCount = %d, want 1", rm.MarkerCount())
	}
	m, ok := rm.Marker(a.ID)
	if !ok || m.Name != "Silo 2" {
		t.Fatalf("Marker = %+v, %v", m, ok)
	}
	// The running number was assigned on first insert and survives the
	// replacement.
	if m.MarkerIndex != 1 {
		t.Fatalf("MarkerIndex = %d, want 1", m.MarkerIndex)
	}
	b := rm.AddNode(r2.Vec{X: 1}, FlagRegular)
	rm.SetMarker(MapMarker{NodeID: b.ID, Name: "Gate", Group: "Farm", IsDebug: true})
	mb, _ := rm.Marker(b.ID)
	if mb.MarkerIndex != 2 || !mb.IsDebug {
		t.Fatalf("Marker = %+v", mb)
	}
	if !rm.RemoveMarker(a.ID) || rm.MarkerCount() != 1 {
		t.Fatal("RemoveMarker failed")
	}
}

func TestRoadMapSpatialLaziness(t *testing.T) {
	rm := NewRoadMap()
	rm.AddNode(r2.Vec{X: 0, Y: 0}, FlagRegular)

	if !rm.SpatialIndexDirty() {
		t.Fatal("index should start dirty")
	}
	if _, ok := rm.NearestNode(r2.Vec{X: 1, Y: 1}); !ok {
		t.Fatal("NearestNode failed")
	}
	if rm.SpatialIndexDirty() {
		t.Fatal("index should be clean after a query")
	}

	rm.AddNode(r2.Vec{X: 100, Y: 100}, FlagRegular)
	if !rm.SpatialIndexDirty() {
		t.Fatal("mutation should mark the index dirty")
	}
	n, _ := rm.NearestNode(r2.Vec{X: 99, Y: 99})
	if n.Position.X != 100 {
		t.Fatalf("nearest after rebuild = %+v", n)
	}
}

func TestRoadMapCloneIsolation(t *testing.T) {
	rm := NewRoadMap()
	a := rm.AddNode(r2.Vec{X: 0}, FlagRegular)
	b := rm.AddNode(r2.Vec{X: 1}, FlagRegular)
	rm.AddConnection(a.ID, b.ID, DirRegular, PrioRegular)
	rm.SetMarker(MapMarker{NodeID: a.ID, Name: "Start"})

	snap := rm.Clone()

	rm.UpdateNodePosition(a.ID, r2.Vec{X: 42})
	rm.RemoveConnection(a.ID, b.ID)
	rm.RemoveMarker(a.ID)
	rm.AddNode(r2.Vec{X: 7}, FlagRegular)

	if n, _ := snap.Node(a.ID); n.Position.X != 0 {
		t.Fatalf("snapshot node moved: %+v", n)
	}
	if _, ok := snap.Connection(a.ID, b.ID); !ok {
		t.Fatal("snapshot lost a connection")
	}
	if snap.MarkerCount() != 1 {
		t.Fatal("snapshot lost a marker")
	}
	if snap.NodeCount() != 2 {
		t.Fatalf("snapshot NodeCount = %d, want 2", snap.NodeCount())
	}
	if snap.NextNodeID() != 3 {
		t.Fatalf("snapshot NextNodeID = %d, want 3", snap.NextNodeID())
	}
}
