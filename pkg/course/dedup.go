package course

import "sort"

// DeduplicationResult reports what a Deduplicate call changed.
type DeduplicationResult struct {
	// RemovedNodes lists the deleted duplicate ids, ascending.
	RemovedNodes []uint64
	// DuplicateGroups lists each merged cluster, members ascending, so the
	// first entry is the surviving canonical node.
	DuplicateGroups [][]uint64
	// RemappedConnections counts connections rewritten onto a canonical
	// endpoint.
	RemappedConnections int
	// RemovedSelfConnections counts connections dropped because both
	// endpoints collapsed onto the same canonical node.
	RemovedSelfConnections int
	// RemappedMarkers counts markers moved onto a canonical node.
	RemappedMarkers int
}

// HadDuplicates reports whether the run removed anything.
func (r DeduplicationResult) HadDuplicates() bool {
	return len(r.RemovedNodes) > 0
}

// dupFind is a union-find over node ids with path compression.
type dupFind struct {
	parent map[uint64]uint64
}

func newDupFind() *dupFind {
	return &dupFind{parent: make(map[uint64]uint64)}
}

func (d *dupFind) find(id uint64) uint64 {
	p, ok := d.parent[id]
	if !ok || p == id {
		return id
	}
	root := d.find(p)
	d.parent[id] = root
	return root
}

// union merges two clusters, keeping the lower root so the canonical node
// of a cluster is always its lowest id.
func (d *dupFind) union(a, b uint64) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if ra > rb {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
}

// duplicateGroups clusters all nodes whose pairwise distance is strictly
// below epsilon, using the spatial index for candidate generation. Each
// group has at least two members and is sorted ascending.
func (rm *RoadMap) duplicateGroups(epsilon float64) [][]uint64 {
	if epsilon <= 0 || rm.NodeCount() < 2 {
		return nil
	}
	idx := rm.EnsureSpatialIndex()
	uf := newDupFind()
	rm.nodes.Scan(func(id uint64, n Node) bool {
		for _, m := range idx.WithinRadius(n.Position, epsilon) {
			if m.NodeID != id && m.Dist < epsilon {
				uf.union(id, m.NodeID)
			}
		}
		return true
	})

	members := make(map[uint64][]uint64)
	for id := range uf.parent {
		root := uf.find(id)
		members[root] = append(members[root], id)
	}
	var groups [][]uint64
	for root, ids := range members {
		g := append(ids, root)
		sort.Slice(g, func(i, j int) bool { return g[i] < g[j] })
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

// CountDuplicates reports how many nodes Deduplicate would remove at the
// given epsilon, and in how many clusters, without mutating anything.
func (rm *RoadMap) CountDuplicates(epsilon float64) (nodes, groups int) {
	gs := rm.duplicateGroups(epsilon)
	for _, g := range gs {
		nodes += len(g) - 1
	}
	return nodes, len(gs)
}

// Deduplicate merges every cluster of nodes closer than epsilon into the
// cluster's lowest-id node. Connections and markers of removed nodes are
// rewritten onto the survivor; connections collapsing into self loops are
// dropped, as are rewritten connections that would duplicate an existing
// one. Flags of the surviving nodes are rederived afterwards.
func (rm *RoadMap) Deduplicate(epsilon float64) DeduplicationResult {
	var res DeduplicationResult
	res.DuplicateGroups = rm.duplicateGroups(epsilon)
	if len(res.DuplicateGroups) == 0 {
		return res
	}

	remap := make(map[uint64]uint64)
	survivors := make([]uint64, 0, len(res.DuplicateGroups))
	for _, g := range res.DuplicateGroups {
		canonical := g[0]
		survivors = append(survivors, canonical)
		for _, id := range g[1:] {
			remap[id] = canonical
			res.RemovedNodes = append(res.RemovedNodes, id)
		}
	}
	sort.Slice(res.RemovedNodes, func(i, j int) bool {
		return res.RemovedNodes[i] < res.RemovedNodes[j]
	})

	// Rewrite connections touching a removed node before deleting the
	// nodes, so the cascade in RemoveNode has nothing left to drop.
	for _, c := range rm.Connections() {
		ns, sMapped := remap[c.StartID]
		ne, eMapped := remap[c.EndID]
		if !sMapped && !eMapped {
			continue
		}
		if !sMapped {
			ns = c.StartID
		}
		if !eMapped {
			ne = c.EndID
		}
		rm.deleteConn(c.StartID, c.EndID)
		if ns == ne {
			res.RemovedSelfConnections++
			continue
		}
		if _, ok := rm.AddConnection(ns, ne, c.Direction, c.Priority); ok {
			res.RemappedConnections++
		}
	}

	res.RemappedMarkers = rm.remapMarkers(remap)

	for _, id := range res.RemovedNodes {
		rm.nodes.Delete(id)
	}
	rm.spatialDirty = true
	rm.RecalculateNodeFlags(survivors...)
	return res
}
