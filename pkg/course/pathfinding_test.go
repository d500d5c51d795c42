package course

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

// chainMap builds 1 -> 2 -> ... -> n with the given direction.
func chainMap(t *testing.T, n int, dir ConnectionDirection) *RoadMap {
	t.Helper()
	rm := NewRoadMap()
	for i := 0; i < n; i++ {
		rm.AddNode(r2.Vec{X: float64(i)}, FlagRegular)
	}
	for i := 1; i < n; i++ {
		if _, ok := rm.AddConnection(uint64(i), uint64(i+1), dir, PrioRegular); !ok {
			t.Fatalf("AddConnection(%d,%d) failed", i, i+1)
		}
	}
	return rm
}

func wantPath(t *testing.T, got []uint64, want ...uint64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("path = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("path = %v, want %v", got, want)
		}
	}
}

func TestShortestPath(t *testing.T) {
	t.Run("chain forward", func(t *testing.T) {
		rm := chainMap(t, 5, DirRegular)
		path, ok := rm.ShortestPath(1, 5)
		if !ok {
			t.Fatal("no path")
		}
		wantPath(t, path, 1, 2, 3, 4, 5)
	})

	t.Run("chain has no backward route", func(t *testing.T) {
		rm := chainMap(t, 5, DirRegular)
		if _, ok := rm.ShortestPath(5, 1); ok {
			t.Fatal("one-way chain should not route backwards")
		}
	})

	t.Run("dual chain routes both ways", func(t *testing.T) {
		rm := chainMap(t, 4, DirDual)
		path, ok := rm.ShortestPath(4, 1)
		if !ok {
			t.Fatal("no path")
		}
		wantPath(t, path, 4, 3, 2, 1)
	})

	t.Run("reverse edges route against storage", func(t *testing.T) {
		rm := chainMap(t, 3, DirReverse)
		path, ok := rm.ShortestPath(3, 1)
		if !ok {
			t.Fatal("no path")
		}
		wantPath(t, path, 3, 2, 1)
		if _, ok := rm.ShortestPath(1, 3); ok {
			t.Fatal("reverse chain should not route forwards")
		}
	})

	t.Run("start equals goal", func(t *testing.T) {
		rm := chainMap(t, 2, DirRegular)
		path, ok := rm.ShortestPath(1, 1)
		if !ok {
			t.Fatal("no path")
		}
		wantPath(t, path, 1)
	})

	t.Run("missing endpoints", func(t *testing.T) {
		rm := chainMap(t, 2, DirRegular)
		if _, ok := rm.ShortestPath(1, 99); ok {
			t.Fatal("path to missing node")
		}
		if _, ok := rm.ShortestPath(99, 1); ok {
			t.Fatal("path from missing node")
		}
	})

	t.Run("picks the shorter branch", func(t *testing.T) {
		rm := NewRoadMap()
		for i := 0; i < 6; i++ {
			rm.AddNode(r2.Vec{X: float64(i)}, FlagRegular)
		}
		// Long way 1->2->3->4->6, short way 1->5->6.
		rm.AddConnection(1, 2, DirRegular, PrioRegular)
		rm.AddConnection(2, 3, DirRegular, PrioRegular)
		rm.AddConnection(3, 4, DirRegular, PrioRegular)
		rm.AddConnection(4, 6, DirRegular, PrioRegular)
		rm.AddConnection(1, 5, DirRegular, PrioRegular)
		rm.AddConnection(5, 6, DirRegular, PrioRegular)

		path, ok := rm.ShortestPath(1, 6)
		if !ok {
			t.Fatal("no path")
		}
		wantPath(t, path, 1, 5, 6)
	})
}
