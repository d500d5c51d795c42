package course

// Predecessors returns the ids that reach id in one traversable hop,
// deduplicated and sorted ascending. The mirror of Successors.
func (rm *RoadMap) Predecessors(id uint64) []uint64 {
	seen := make(map[uint64]struct{})
	for _, c := range rm.IncomingConnections(id) {
		if c.Traversable(c.StartID) {
			seen[c.StartID] = struct{}{}
		}
	}
	for _, c := range rm.OutgoingConnections(id) {
		if c.Traversable(c.EndID) {
			seen[c.EndID] = struct{}{}
		}
	}
	return sortedIDs(seen)
}

// ShortestPath returns a minimum-hop node sequence from start to goal,
// following connection direction semantics, or false when no route exists.
// The search runs breadth-first from both ends and joins in the middle.
func (rm *RoadMap) ShortestPath(start, goal uint64) ([]uint64, bool) {
	if _, ok := rm.nodes.Get(start); !ok {
		return nil, false
	}
	if _, ok := rm.nodes.Get(goal); !ok {
		return nil, false
	}
	if start == goal {
		return []uint64{start}, true
	}

	parentFwd := map[uint64]uint64{start: start}
	parentBwd := map[uint64]uint64{goal: goal}
	frontFwd := []uint64{start}
	frontBwd := []uint64{goal}

	for len(frontFwd) > 0 && len(frontBwd) > 0 {
		// Expand the smaller frontier.
		if len(frontFwd) <= len(frontBwd) {
			next, meet := expandFrontier(frontFwd, parentFwd, parentBwd, rm.Successors)
			if meet != 0 {
				return joinPaths(meet, parentFwd, parentBwd), true
			}
			frontFwd = next
		} else {
			next, meet := expandFrontier(frontBwd, parentBwd, parentFwd, rm.Predecessors)
			if meet != 0 {
				return joinPaths(meet, parentFwd, parentBwd), true
			}
			frontBwd = next
		}
	}
	return nil, false
}

// expandFrontier advances one BFS layer. It returns the next frontier, or a
// nonzero meeting node the moment the two searches touch.
func expandFrontier(front []uint64, own, other map[uint64]uint64, neighbors func(uint64) []uint64) ([]uint64, uint64) {
	var next []uint64
	for _, id := range front {
		for _, nb := range neighbors(id) {
			if _, seen := own[nb]; seen {
				continue
			}
			own[nb] = id
			if _, met := other[nb]; met {
				return nil, nb
			}
			next = append(next, nb)
		}
	}
	return next, 0
}

// joinPaths stitches the two parent chains together at the meeting node.
func joinPaths(meet uint64, parentFwd, parentBwd map[uint64]uint64) []uint64 {
	var head []uint64
	for at := meet; ; at = parentFwd[at] {
		head = append(head, at)
		if parentFwd[at] == at {
			break
		}
	}
	// head is meet..start, reverse it.
	for i, j := 0, len(head)-1; i < j; i, j = i+1, j-1 {
		head[i], head[j] = head[j], head[i]
	}
	for at := meet; parentBwd[at] != at; {
		at = parentBwd[at]
		head = append(head, at)
	}
	return head
}
