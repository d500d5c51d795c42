// Package history provides bounded undo/redo over road map snapshots.
//
// Snapshots are copy-on-write clones, so taking one is O(1) and the memory
// cost is proportional to the edits made after it, not to the map size.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/sanholz/waycourse/pkg/course"
)

// Snapshot is one recorded state of the road map.
type Snapshot struct {
	ID      uuid.UUID
	Label   string
	TakenAt time.Time
	state   *course.RoadMap
}

// State returns an independent copy of the recorded map.
func (s Snapshot) State() *course.RoadMap {
	return s.state.Clone()
}

// History holds the undo and redo stacks. Both are bounded by the same
// limit; recording past the limit silently drops the oldest undo entry.
type History struct {
	limit int
	undo  []Snapshot
	redo  []Snapshot
}

// DefaultLimit matches the editor's default undo depth.
const DefaultLimit = 64

// New returns a history bounded to limit snapshots per stack. A limit
// below one falls back to DefaultLimit.
func New(limit int) *History {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Record snapshots the given state onto the undo stack and clears the redo
// stack. Call it with the pre-mutation state, labelled by the operation
// about to run.
func (h *History) Record(label string, state *course.RoadMap) Snapshot {
	snap := Snapshot{
		ID:      uuid.New(),
		Label:   label,
		TakenAt: time.Now(),
		state:   state.Clone(),
	}
	h.undo = append(h.undo, snap)
	if len(h.undo) > h.limit {
		h.undo = append(h.undo[:0], h.undo[len(h.undo)-h.limit:]...)
	}
	h.redo = h.redo[:0]
	return snap
}

// Undo exchanges the current state for the most recent snapshot: current is
// pushed onto the redo stack and the restored state is returned. Returns
// false when there is nothing to undo.
func (h *History) Undo(current *course.RoadMap) (*course.RoadMap, Snapshot, bool) {
	if len(h.undo) == 0 {
		return nil, Snapshot{}, false
	}
	snap := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, Snapshot{
		ID:      uuid.New(),
		Label:   snap.Label,
		TakenAt: time.Now(),
		state:   current.Clone(),
	})
	if len(h.redo) > h.limit {
		h.redo = append(h.redo[:0], h.redo[len(h.redo)-h.limit:]...)
	}
	return snap.State(), snap, true
}

// Redo exchanges the current state for the most recently undone one,
// pushing current back onto the undo stack. Returns false when there is
// nothing to redo.
func (h *History) Redo(current *course.RoadMap) (*course.RoadMap, Snapshot, bool) {
	if len(h.redo) == 0 {
		return nil, Snapshot{}, false
	}
	snap := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, Snapshot{
		ID:      uuid.New(),
		Label:   snap.Label,
		TakenAt: time.Now(),
		state:   current.Clone(),
	})
	return snap.State(), snap, true
}

// CanUndo reports whether the undo stack is nonempty.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether the redo stack is nonempty.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// UndoDepth returns the number of undoable snapshots.
func (h *History) UndoDepth() int { return len(h.undo) }

// RedoDepth returns the number of redoable snapshots.
func (h *History) RedoDepth() int { return len(h.redo) }

// Clear drops both stacks. Used after operations that invalidate recorded
// states, such as deduplication or loading a new course.
func (h *History) Clear() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}
