// Package editor is the application boundary of the course editor: it owns
// the road map, the undo history, the edit journal and the options, and
// exposes the use cases a frontend calls. No UI or rendering concerns live
// here.
package editor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/adxml"
	"github.com/sanholz/waycourse/pkg/config"
	"github.com/sanholz/waycourse/pkg/course"
	"github.com/sanholz/waycourse/pkg/history"
	"github.com/sanholz/waycourse/pkg/metrics"
	"github.com/sanholz/waycourse/pkg/persistence"
	"github.com/sanholz/waycourse/pkg/route"
	"github.com/sanholz/waycourse/pkg/session"
)

var (
	// ErrNoActiveTool is returned by tool operations without a session.
	ErrNoActiveTool = errors.New("no active tool")
	// ErrToolNotReady is returned when a tool cannot execute yet.
	ErrToolNotReady = errors.New("tool is not ready")
	// ErrDedupNotPreviewed guards destructive deduplication: the caller
	// must count duplicates first and confirm that exact count.
	ErrDedupNotPreviewed = errors.New("deduplication requires a matching preview")
	// ErrNothingToUndo and ErrNothingToRedo report empty history stacks.
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Editor owns one loaded course and its editing state.
type Editor struct {
	log  *slog.Logger
	opts config.Options

	rm   *course.RoadMap
	hist *history.History
	jrnl *persistence.Journal

	defaultDir  course.ConnectionDirection
	defaultPrio course.ConnectionPriority

	selection map[uint64]struct{}

	tool         *route.Tool
	toolNodes    []uint64
	dedupPreview int
	dedupPrevOK  bool
	lastAutosave time.Time
}

// New creates an editor over an empty course.
func New(opts config.Options, logger *slog.Logger) (*Editor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("editor options: %w", err)
	}
	dir, err := opts.Direction()
	if err != nil {
		return nil, err
	}
	prio, err := opts.Priority()
	if err != nil {
		return nil, err
	}
	e := &Editor{
		log:         logger,
		opts:        opts,
		rm:          course.NewRoadMap(),
		hist:        history.New(opts.UndoDepth),
		defaultDir:  dir,
		defaultPrio: prio,
		selection:   make(map[uint64]struct{}),
	}
	e.adopt(e.rm)
	e.syncMetrics()
	return e, nil
}

// adopt installs a road map as the editor's current state. Restored
// snapshots and freshly parsed courses come without the rebuild hook, so
// it is reattached here.
func (e *Editor) adopt(rm *course.RoadMap) {
	rm.SetRebuildHook(metrics.SpatialRebuilds.Inc)
	e.rm = rm
}

// AttachJournal wires an edit journal; nil detaches.
func (e *Editor) AttachJournal(j *persistence.Journal) { e.jrnl = j }

// OpenJournal opens the journal at the configured path and attaches it.
// The caller owns the returned journal and closes it on shutdown.
func (e *Editor) OpenJournal() (*persistence.Journal, error) {
	j, err := persistence.OpenJournal(e.opts.JournalPath, e.log)
	if err != nil {
		return nil, err
	}
	e.jrnl = j
	return j, nil
}

// Map exposes the course for reading. Mutate only through the editor, or
// the history and journal fall out of step.
func (e *Editor) Map() *course.RoadMap { return e.rm }

// Options returns the active options.
func (e *Editor) Options() config.Options { return e.opts }

// History exposes undo/redo state for UI display.
func (e *Editor) History() *history.History { return e.hist }

func (e *Editor) syncMetrics() {
	metrics.SetGraphSize(e.rm.NodeCount(), e.rm.ConnectionCount(), e.rm.MarkerCount())
}

// record snapshots the pre-mutation state and journals the command.
func (e *Editor) record(op persistence.OpCode, label, detail string) {
	snap := e.hist.Record(label, e.rm)
	e.dedupPrevOK = false
	e.journal(op, detail, snap.ID.String())
}

func (e *Editor) journal(op persistence.OpCode, detail, snapshotID string) {
	if e.jrnl == nil {
		return
	}
	if _, err := e.jrnl.Append(op, detail, snapshotID); err != nil {
		e.log.Error("journal append failed", "op", op.String(), "error", err)
	}
}

// LoadCourse replaces the editor state with a parsed course document.
// History and selection reset; recorded snapshots reference a course that
// no longer exists.
func (e *Editor) LoadCourse(r io.Reader) error {
	rm, err := adxml.Parse(r)
	if err != nil {
		return err
	}
	e.adopt(rm)
	e.hist.Clear()
	e.selection = make(map[uint64]struct{})
	e.tool = nil
	e.toolNodes = nil
	e.dedupPrevOK = false
	e.syncMetrics()
	e.journal(persistence.OpLoadCourse, e.rm.Meta().MapName, "")
	e.log.Info("course loaded",
		"map", e.rm.Meta().MapName,
		"nodes", e.rm.NodeCount(),
		"connections", e.rm.ConnectionCount())
	return nil
}

// SaveCourse writes the course document. A nil sampler writes zero
// heights.
func (e *Editor) SaveCourse(w io.Writer, heights adxml.HeightSampler) error {
	if err := adxml.Write(w, e.rm, heights); err != nil {
		return err
	}
	e.journal(persistence.OpSaveCourse, e.rm.Meta().MapName, "")
	return nil
}

// LoadSession replaces the editor state from an autosaved session file.
func (e *Editor) LoadSession(path string) error {
	rm, err := session.LoadFile(path)
	if err != nil {
		return err
	}
	e.adopt(rm)
	e.hist.Clear()
	e.selection = make(map[uint64]struct{})
	e.tool = nil
	e.toolNodes = nil
	e.dedupPrevOK = false
	e.syncMetrics()
	e.log.Info("session restored", "path", path, "nodes", e.rm.NodeCount())
	return nil
}

// Autosave writes the current state to the configured session path.
func (e *Editor) Autosave() error {
	if err := session.SaveFile(e.opts.AutosavePath, e.rm); err != nil {
		return err
	}
	e.lastAutosave = time.Now()
	return nil
}

// MaybeAutosave runs Autosave when the configured interval has elapsed.
// The owner calls this from its idle loop; a zero interval disables
// autosaving. Reports whether a save ran.
func (e *Editor) MaybeAutosave() (bool, error) {
	if e.opts.AutosaveInterval <= 0 {
		return false, nil
	}
	if time.Since(e.lastAutosave) < e.opts.AutosaveInterval {
		return false, nil
	}
	if err := e.Autosave(); err != nil {
		return false, err
	}
	return true, nil
}

// AddNode creates a free waypoint.
func (e *Editor) AddNode(pos r2.Vec) course.Node {
	e.record(persistence.OpApplyTool, "add node", fmt.Sprintf("node at (%.1f, %.1f)", pos.X, pos.Y))
	n := e.rm.AddNode(pos, course.FlagRegular)
	e.rm.RecalculateNodeFlags(n.ID)
	e.syncMetrics()
	return n
}

// ConnectNodes joins two waypoints with the default direction and
// priority.
func (e *Editor) ConnectNodes(a, b uint64) (course.Connection, error) {
	e.record(persistence.OpConnect, "connect nodes", fmt.Sprintf("%d -> %d", a, b))
	c, ok := e.rm.AddConnection(a, b, e.defaultDir, e.defaultPrio)
	if !ok {
		return course.Connection{}, fmt.Errorf("cannot connect %d -> %d", a, b)
	}
	e.rm.RecalculateNodeFlags(a, b)
	e.syncMetrics()
	return c, nil
}

// DisconnectNodes removes the connections between two waypoints in both
// orientations.
func (e *Editor) DisconnectNodes(a, b uint64) int {
	e.record(persistence.OpDisconnect, "disconnect nodes", fmt.Sprintf("%d <-> %d", a, b))
	n := e.rm.RemoveConnectionsBetween(a, b)
	e.rm.RecalculateNodeFlags(a, b)
	e.syncMetrics()
	return n
}

// SetConnectionPriority switches a connection between main and
// sub-priority, rederiving the endpoint flags.
func (e *Editor) SetConnectionPriority(start, end uint64, prio course.ConnectionPriority) error {
	if _, ok := e.rm.Connection(start, end); !ok {
		return fmt.Errorf("no connection %d -> %d", start, end)
	}
	e.record(persistence.OpSetPriority, "set priority", fmt.Sprintf("%d -> %d %s", start, end, prio))
	e.rm.SetConnectionPriority(start, end, prio)
	e.rm.RecalculateNodeFlags(start, end)
	return nil
}

// SetConnectionDirection changes how an existing connection may be driven.
func (e *Editor) SetConnectionDirection(start, end uint64, dir course.ConnectionDirection) error {
	if _, ok := e.rm.Connection(start, end); !ok {
		return fmt.Errorf("no connection %d -> %d", start, end)
	}
	e.record(persistence.OpSetDirection, "set direction", fmt.Sprintf("%d -> %d %s", start, end, dir))
	e.rm.SetConnectionDirection(start, end, dir)
	return nil
}

// DeleteNodes removes waypoints and everything hanging off them.
func (e *Editor) DeleteNodes(ids ...uint64) int {
	if len(ids) == 0 {
		return 0
	}
	e.record(persistence.OpDeleteNodes, "delete nodes", fmt.Sprintf("%d nodes", len(ids)))
	touched := e.neighborsOf(ids)
	removed := e.rm.RemoveNodes(ids)
	for _, id := range ids {
		delete(e.selection, id)
	}
	e.rm.RecalculateNodeFlags(touched...)
	e.syncMetrics()
	return removed
}

// MoveSelection shifts every selected waypoint by delta, keeping the
// connection geometry in sync.
func (e *Editor) MoveSelection(delta r2.Vec) int {
	if len(e.selection) == 0 {
		return 0
	}
	e.record(persistence.OpMoveNodes, "move selection", fmt.Sprintf("%d nodes", len(e.selection)))
	moved := 0
	for _, id := range e.Selection() {
		if n, ok := e.rm.Node(id); ok {
			if e.rm.UpdateNodePosition(id, r2.Add(n.Position, delta)) {
				moved++
			}
		}
	}
	return moved
}

// Select adds waypoints to the selection, ignoring unknown ids.
func (e *Editor) Select(ids ...uint64) {
	for _, id := range ids {
		if _, ok := e.rm.Node(id); ok {
			e.selection[id] = struct{}{}
		}
	}
}

// SelectRect replaces the selection with the waypoints inside a rectangle.
func (e *Editor) SelectRect(min, max r2.Vec) int {
	e.selection = make(map[uint64]struct{})
	for _, n := range e.rm.NodesWithinRect(min, max) {
		e.selection[n.ID] = struct{}{}
	}
	return len(e.selection)
}

// SelectRoute replaces the selection with the waypoints on the shortest
// route between two anchors. Returns false when no route exists.
func (e *Editor) SelectRoute(from, to uint64) bool {
	path, ok := e.rm.ShortestPath(from, to)
	if !ok {
		return false
	}
	e.selection = make(map[uint64]struct{})
	for _, id := range path {
		e.selection[id] = struct{}{}
	}
	return true
}

// ClearSelection empties the selection.
func (e *Editor) ClearSelection() { e.selection = make(map[uint64]struct{}) }

// Selection returns the selected ids, ascending.
func (e *Editor) Selection() []uint64 {
	out := make([]uint64, 0, len(e.selection))
	for id := range e.selection {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ShortestPath routes between two waypoints respecting drive directions.
func (e *Editor) ShortestPath(from, to uint64) ([]uint64, bool) {
	return e.rm.ShortestPath(from, to)
}

// StartTool begins a curve tool session with the editor defaults.
func (e *Editor) StartTool(kind route.Kind) *route.Tool {
	cfg := route.DefaultSegmentConfig()
	cfg.SetDistance(e.opts.SegmentSpacing)
	e.tool = route.NewTool(kind, cfg, e.defaultDir, e.defaultPrio)
	e.toolNodes = nil
	return e.tool
}

// ActiveTool returns the running tool session, if any.
func (e *Editor) ActiveTool() *route.Tool { return e.tool }

// AddToolAnchor snaps a pointer position and hands it to the active tool.
func (e *Editor) AddToolAnchor(pos r2.Vec) (route.Anchor, error) {
	if e.tool == nil {
		return route.Anchor{}, ErrNoActiveTool
	}
	a := route.SnapAnchor(e.rm, pos, e.opts.SnapRadius)
	if !e.tool.AddAnchor(a) {
		return route.Anchor{}, ErrToolNotReady
	}
	return a, nil
}

// ExecuteTool runs the active tool and applies its result. Executing the
// same session again after Rearm replaces the previously created
// waypoints instead of appending a second copy.
func (e *Editor) ExecuteTool() (route.ToolResult, error) {
	if e.tool == nil {
		return route.ToolResult{}, ErrNoActiveTool
	}
	res, ok := e.tool.Execute(e.rm)
	if !ok {
		return route.ToolResult{}, ErrToolNotReady
	}
	label := fmt.Sprintf("%s tool", e.tool.Kind())
	e.record(persistence.OpApplyTool, label,
		fmt.Sprintf("%s: %d nodes", e.tool.Kind(), len(res.Points)))

	if len(e.toolNodes) > 0 {
		// Re-execution of a retuned session: drop the previous result.
		e.rm.RemoveNodes(e.toolNodes)
	}
	e.toolNodes = e.applyResult(res)
	metrics.ToolExecutions.WithLabelValues(e.tool.Kind().String()).Inc()
	e.syncMetrics()
	return res, nil
}

// RetuneTool re-arms an executed session, adjusts its segmenting and runs
// it again, replacing the previous result.
func (e *Editor) RetuneTool(adjust func(*route.SegmentConfig)) (route.ToolResult, error) {
	if e.tool == nil {
		return route.ToolResult{}, ErrNoActiveTool
	}
	if !e.tool.Rearm() {
		return route.ToolResult{}, ErrToolNotReady
	}
	adjust(&e.tool.Segments)
	return e.ExecuteTool()
}

// applyResult materializes a tool result: new nodes, the chain between
// them, the joints into the existing map, and rederived flags.
func (e *Editor) applyResult(res route.ToolResult) []uint64 {
	created := make([]uint64, 0, len(res.Points))
	for _, p := range res.Points {
		n := e.rm.AddNode(p, course.FlagRegular)
		created = append(created, n.ID)
	}
	touched := append([]uint64(nil), created...)
	for _, edge := range res.Internal {
		e.rm.AddConnection(created[edge.From], created[edge.To], res.Direction, res.Priority)
	}
	for _, ext := range res.External {
		if ext.NewIsStart {
			e.rm.AddConnection(created[ext.NewIndex], ext.ExistingID, res.Direction, res.Priority)
		} else {
			e.rm.AddConnection(ext.ExistingID, created[ext.NewIndex], res.Direction, res.Priority)
		}
		touched = append(touched, ext.ExistingID)
	}
	for _, dj := range res.Direct {
		e.rm.AddConnection(dj.FromID, dj.ToID, res.Direction, res.Priority)
		touched = append(touched, dj.FromID, dj.ToID)
	}
	e.rm.RecalculateNodeFlags(touched...)
	return created
}

// PreviewDedup counts what a deduplication pass would remove and arms the
// confirmation gate.
func (e *Editor) PreviewDedup() (nodes, groups int) {
	nodes, groups = e.rm.CountDuplicates(e.opts.DedupEpsilon)
	e.dedupPreview = nodes
	e.dedupPrevOK = true
	return nodes, groups
}

// Deduplicate merges near-duplicate waypoints. The caller confirms the
// count reported by PreviewDedup; a stale or missing preview is refused.
// Deduplication clears the history, since recorded snapshots would
// resurrect the merged nodes.
func (e *Editor) Deduplicate(confirmed int) (course.DeduplicationResult, error) {
	if !e.dedupPrevOK || confirmed != e.dedupPreview {
		return course.DeduplicationResult{}, ErrDedupNotPreviewed
	}
	e.dedupPrevOK = false
	res := e.rm.Deduplicate(e.opts.DedupEpsilon)
	e.hist.Clear()
	for _, id := range res.RemovedNodes {
		delete(e.selection, id)
	}
	metrics.DedupRuns.Inc()
	metrics.DedupRemovedNodes.Add(float64(len(res.RemovedNodes)))
	e.syncMetrics()
	e.journal(persistence.OpDeduplicate,
		fmt.Sprintf("removed %d nodes in %d groups", len(res.RemovedNodes), len(res.DuplicateGroups)), "")
	e.log.Info("deduplication finished",
		"removed", len(res.RemovedNodes),
		"groups", len(res.DuplicateGroups),
		"epsilon", e.opts.DedupEpsilon)
	return res, nil
}

// Undo restores the most recent snapshot.
func (e *Editor) Undo() error {
	restored, snap, ok := e.hist.Undo(e.rm)
	if !ok {
		return ErrNothingToUndo
	}
	e.adopt(restored)
	e.pruneSelection()
	e.dedupPrevOK = false
	metrics.Undos.Inc()
	e.syncMetrics()
	e.journal(persistence.OpUndo, snap.Label, snap.ID.String())
	return nil
}

// Redo reapplies the most recently undone snapshot.
func (e *Editor) Redo() error {
	restored, snap, ok := e.hist.Redo(e.rm)
	if !ok {
		return ErrNothingToRedo
	}
	e.adopt(restored)
	e.pruneSelection()
	e.dedupPrevOK = false
	metrics.Redos.Inc()
	e.syncMetrics()
	e.journal(persistence.OpRedo, snap.Label, snap.ID.String())
	return nil
}

// pruneSelection drops selected ids that no longer exist after a history
// traversal.
func (e *Editor) pruneSelection() {
	for id := range e.selection {
		if _, ok := e.rm.Node(id); !ok {
			delete(e.selection, id)
		}
	}
}

// neighborsOf collects the opposite endpoints of every edge incident to
// the given nodes; their flags need rederiving after a delete.
func (e *Editor) neighborsOf(ids []uint64) []uint64 {
	set := make(map[uint64]struct{})
	for _, id := range ids {
		for _, c := range e.rm.OutgoingConnections(id) {
			set[c.EndID] = struct{}{}
		}
		for _, c := range e.rm.IncomingConnections(id) {
			set[c.StartID] = struct{}{}
		}
	}
	for _, id := range ids {
		delete(set, id)
	}
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
