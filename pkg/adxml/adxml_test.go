package adxml

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/course"
)

const sampleDoc = `<AutoDrive configVersion="0.1" routeVersion="2" routeAuthor="sam">
	<MapName>Felsbrunn</MapName>
	<ExportName>felsbrunn_v2</ExportName>
	<waypoints c="4">
		<id>1,2,3,4</id>
		<x>0.000,10.000,20.000,30.000</x>
		<y>0.000,0.000,0.000,0.000</y>
		<z>0.000,0.000,0.000,5.000</z>
		<out>2;1,3;4;-1</out>
		<incoming>2;1,-1;2;-1</incoming>
		<flags>0,0,4,1</flags>
	</waypoints>
	<mapmarker>
		<mm1>
			<id>2.000000</id>
			<name>Farm &amp; Yard</name>
			<group>All</group>
		</mm1>
	</mapmarker>
</AutoDrive>
`

func TestParseSampleDocument(t *testing.T) {
	rm, err := Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("meta and options", func(t *testing.T) {
		meta := rm.Meta()
		if meta.ConfigVersion != "0.1" || meta.RouteVersion != "2" || meta.RouteAuthor != "sam" {
			t.Fatalf("meta = %+v", meta)
		}
		if meta.MapName != "Felsbrunn" {
			t.Fatalf("map name = %q", meta.MapName)
		}
		if v, ok := meta.Option("ExportName"); !ok || v != "felsbrunn_v2" {
			t.Fatalf("option = %q, %v", v, ok)
		}
	})

	t.Run("nodes and flags", func(t *testing.T) {
		if rm.NodeCount() != 4 {
			t.Fatalf("NodeCount = %d", rm.NodeCount())
		}
		n, _ := rm.Node(4)
		if n.Position.X != 30 || n.Position.Y != 5 {
			t.Fatalf("node 4 = %+v", n)
		}
		// Raw flag 4 (generated) folds to regular on import.
		n3, _ := rm.Node(3)
		if n3.Flag != course.FlagRegular {
			t.Fatalf("node 3 flag = %v", n3.Flag)
		}
	})

	t.Run("direction inference", func(t *testing.T) {
		// 1 and 2 list each other as out: one dual edge from the lower
		// id.
		c, ok := rm.Connection(1, 2)
		if !ok || c.Direction != course.DirDual {
			t.Fatalf("1-2 = %+v, %v", c, ok)
		}
		// 2 -> 3 is a plain one-way: 3 has 2 incoming.
		c, ok = rm.Connection(2, 3)
		if !ok || c.Direction != course.DirRegular {
			t.Fatalf("2-3 = %+v, %v", c, ok)
		}
		// 3 -> 4: 4 does not list 3 incoming, so it is reverse.
		c, ok = rm.Connection(3, 4)
		if !ok || c.Direction != course.DirReverse {
			t.Fatalf("3-4 = %+v, %v", c, ok)
		}
	})

	t.Run("markers", func(t *testing.T) {
		m, ok := rm.Marker(2)
		if !ok || m.Name != "Farm & Yard" || m.Group != "All" {
			t.Fatalf("marker = %+v, %v", m, ok)
		}
		if m.MarkerIndex != 1 || m.IsDebug {
			t.Fatalf("marker = %+v, want running number 1", m)
		}
	})
}

func TestParseMalformed(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"wrong root", `<Drive></Drive>`},
		{"column length mismatch", `<AutoDrive><waypoints><id>1,2</id><x>0.0</x><y>0.0</y><z>0.0</z><out>-1</out><incoming>-1</incoming><flags>0</flags></waypoints></AutoDrive>`},
		{"unknown link target", `<AutoDrive><waypoints><id>1</id><x>0.0</x><y>0.0</y><z>0.0</z><out>9</out><incoming>-1</incoming><flags>0</flags></waypoints></AutoDrive>`},
		{"marker on unknown waypoint", `<AutoDrive><mapmarker><mm1><id>5.000000</id><name>x</name><group>g</group></mm1></mapmarker></AutoDrive>`},
		{"truncated document", `<AutoDrive><waypoints><id>1`},
		{"bad number", `<AutoDrive><waypoints><id>a</id><x>0.0</x><y>0.0</y><z>0.0</z><out>-1</out><incoming>-1</incoming><flags>0</flags></waypoints></AutoDrive>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.doc))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestWriteRenumbers(t *testing.T) {
	rm := course.NewRoadMap()
	rm.InsertNode(course.NewNode(3, r2.Vec{X: 1}, course.FlagRegular))
	rm.InsertNode(course.NewNode(7, r2.Vec{X: 2}, course.FlagRegular))
	rm.InsertNode(course.NewNode(9, r2.Vec{X: 3}, course.FlagSubPrio))
	rm.AddConnection(3, 7, course.DirRegular, course.PrioRegular)
	rm.AddConnection(9, 7, course.DirDual, course.PrioRegular)
	rm.SetMarker(course.MapMarker{NodeID: 7, Name: "Mid", Group: "All"})

	var buf bytes.Buffer
	if err := Write(&buf, rm, nil); err != nil {
		t.Fatal(err)
	}
	doc := buf.String()

	if !strings.Contains(doc, "<id>1,2,3</id>") {
		t.Fatalf("ids not renumbered:\n%s", doc)
	}
	if !strings.Contains(doc, "<out>2;3;2</out>") {
		t.Fatalf("out column wrong:\n%s", doc)
	}
	if !strings.Contains(doc, "<incoming>-1;1,3;2</incoming>") {
		t.Fatalf("incoming column wrong:\n%s", doc)
	}
	if !strings.Contains(doc, "<id>2.000000</id>") {
		t.Fatalf("marker id not renumbered as float:\n%s", doc)
	}
	if !strings.Contains(doc, "<x>1.000,2.000,3.000</x>") {
		t.Fatalf("x column wrong:\n%s", doc)
	}
}

func TestRoundTrip(t *testing.T) {
	rm := course.NewRoadMap()
	a := rm.AddNode(r2.Vec{X: 0, Y: 0}, course.FlagRegular)
	b := rm.AddNode(r2.Vec{X: 10, Y: 0}, course.FlagRegular)
	c := rm.AddNode(r2.Vec{X: 20, Y: 4}, course.FlagRegular)
	rm.AddConnection(a.ID, b.ID, course.DirRegular, course.PrioRegular)
	rm.AddConnection(b.ID, c.ID, course.DirDual, course.PrioRegular)
	rm.AddConnection(a.ID, c.ID, course.DirReverse, course.PrioRegular)
	rm.SetMarker(course.MapMarker{NodeID: b.ID, Name: "Depot", Group: "South"})
	meta := rm.Meta()
	meta.MapName = "TestMap"
	meta.RouteAuthor = "<author>"
	rm.SetMeta(meta)

	var buf bytes.Buffer
	if err := Write(&buf, rm, nil); err != nil {
		t.Fatal(err)
	}
	got, err := Parse(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got.NodeCount() != 3 || got.ConnectionCount() != 3 {
		t.Fatalf("counts = %d nodes, %d connections", got.NodeCount(), got.ConnectionCount())
	}
	if got.Meta().MapName != "TestMap" || got.Meta().RouteAuthor != "<author>" {
		t.Fatalf("meta = %+v", got.Meta())
	}
	for _, want := range []struct {
		s, e uint64
		dir  course.ConnectionDirection
	}{
		{1, 2, course.DirRegular},
		{2, 3, course.DirDual},
		{1, 3, course.DirReverse},
	} {
		conn, ok := got.Connection(want.s, want.e)
		if !ok || conn.Direction != want.dir {
			t.Fatalf("connection %d-%d = %+v, %v, want %v", want.s, want.e, conn, ok, want.dir)
		}
	}
	m, ok := got.Marker(2)
	if !ok || m.Name != "Depot" {
		t.Fatalf("marker = %+v, %v", m, ok)
	}
}
