package route

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/course"
	"github.com/sanholz/waycourse/pkg/geom"
)

// Kind selects a tool's curve family. The set is closed: every editing
// tool is one of these, dispatched by switch.
type Kind uint8

const (
	KindLine Kind = iota
	KindQuadBezier
	KindCubicBezier
	KindSpline
)

// String implements fmt.Stringer for log output.
func (k Kind) String() string {
	switch k {
	case KindQuadBezier:
		return "quad-bezier"
	case KindCubicBezier:
		return "cubic-bezier"
	case KindSpline:
		return "spline"
	default:
		return "line"
	}
}

// anchorsWanted returns how many anchors arm the tool. Splines take any
// number and are armed explicitly via Finish.
func (k Kind) anchorsWanted() int {
	if k == KindSpline {
		return 0
	}
	return 2
}

// Phase is the tool lifecycle. Anchors only land in CollectingAnchors,
// execution only happens in Ready, and a finished tool stays inert.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseCollectingAnchors
	PhaseReady
	PhaseExecuted
	PhaseCancelled
)

// String implements fmt.Stringer for log output.
func (p Phase) String() string {
	switch p {
	case PhaseCollectingAnchors:
		return "collecting-anchors"
	case PhaseReady:
		return "ready"
	case PhaseExecuted:
		return "executed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Tool is one interactive curve-laying session: it collects anchors,
// previews the sampled curve and finally produces a ToolResult.
type Tool struct {
	kind    Kind
	phase   Phase
	anchors []Anchor

	Segments  SegmentConfig
	Direction course.ConnectionDirection
	Priority  course.ConnectionPriority

	// apex, when set, is where the user dragged the Bézier midpoint
	// handle.
	apex *r2.Vec
}

// NewTool starts a tool session in PhaseIdle.
func NewTool(kind Kind, cfg SegmentConfig, dir course.ConnectionDirection, prio course.ConnectionPriority) *Tool {
	return &Tool{kind: kind, Segments: cfg, Direction: dir, Priority: prio}
}

// Kind returns the tool's curve family.
func (t *Tool) Kind() Kind { return t.kind }

// Phase returns the lifecycle phase.
func (t *Tool) Phase() Phase { return t.phase }

// Anchors returns the collected anchors in click order.
func (t *Tool) Anchors() []Anchor {
	return append([]Anchor(nil), t.anchors...)
}

// AddAnchor accepts the next anchor. Returns false once the tool is armed
// or finished.
func (t *Tool) AddAnchor(a Anchor) bool {
	switch t.phase {
	case PhaseIdle:
		t.phase = PhaseCollectingAnchors
	case PhaseCollectingAnchors:
	default:
		return false
	}
	t.anchors = append(t.anchors, a)
	if want := t.kind.anchorsWanted(); want > 0 && len(t.anchors) == want {
		t.phase = PhaseReady
	}
	return true
}

// Finish arms a spline that has collected at least two anchors. Tools with
// a fixed anchor count arm themselves and ignore Finish.
func (t *Tool) Finish() bool {
	if t.kind != KindSpline || t.phase != PhaseCollectingAnchors || len(t.anchors) < 2 {
		return false
	}
	t.phase = PhaseReady
	return true
}

// Rearm returns an executed tool to Ready, keeping its anchors, so it can
// run again with adjusted segmenting. The caller is expected to replace
// the previous result with the new one.
func (t *Tool) Rearm() bool {
	if t.phase != PhaseExecuted {
		return false
	}
	t.phase = PhaseReady
	return true
}

// Cancel abandons the session. A cancelled tool accepts nothing further.
func (t *Tool) Cancel() {
	if t.phase != PhaseExecuted {
		t.phase = PhaseCancelled
	}
}

// IsReady reports whether Execute would produce a result.
func (t *Tool) IsReady() bool { return t.phase == PhaseReady }

// SetApex drags the Bézier midpoint handle. Only meaningful for the
// Bézier kinds on an armed tool.
func (t *Tool) SetApex(a r2.Vec) bool {
	if t.phase != PhaseReady || (t.kind != KindQuadBezier && t.kind != KindCubicBezier) {
		return false
	}
	t.apex = &a
	return true
}

// Apex returns the current midpoint handle position of an armed Bézier.
func (t *Tool) Apex(rm *course.RoadMap) (r2.Vec, bool) {
	if t.phase != PhaseReady {
		return r2.Vec{}, false
	}
	switch t.kind {
	case KindQuadBezier:
		return t.quad(rm).Apex(), true
	case KindCubicBezier:
		return t.cubic(rm).Apex(), true
	default:
		return r2.Vec{}, false
	}
}

// Preview samples the curve the tool would lay down right now, segmented
// per the current configuration. Nil unless the tool is armed.
func (t *Tool) Preview(rm *course.RoadMap) []r2.Vec {
	if t.phase != PhaseReady {
		return nil
	}
	raw := t.flatten(rm)
	t.Segments.Sync(PolylineLength(raw))
	return ResampleByCount(raw, t.Segments.NodeCountFor(PolylineLength(raw)))
}

// Execute produces the tool's result and moves it to PhaseExecuted.
// Refuses (false) unless the tool is armed.
func (t *Tool) Execute(rm *course.RoadMap) (ToolResult, bool) {
	if t.phase != PhaseReady {
		return ToolResult{}, false
	}
	points := t.Preview(rm)
	res := Assemble(points, t.anchors[0], t.anchors[len(t.anchors)-1], t.Direction, t.Priority)
	t.phase = PhaseExecuted
	return res, true
}

// flatten produces the dense pre-segmentation polyline for the current
// kind and anchors.
func (t *Tool) flatten(rm *course.RoadMap) []r2.Vec {
	start, end := t.anchors[0], t.anchors[len(t.anchors)-1]

	switch t.kind {
	case KindQuadBezier:
		return t.quad(rm).Sample(bezierSamples)

	case KindCubicBezier:
		return t.cubic(rm).Sample(bezierSamples)

	case KindSpline:
		s := Spline{Points: anchorPositions(t.anchors)}
		if len(t.anchors) >= 2 {
			first := geom.Unit(r2.Sub(t.anchors[1].Pos, start.Pos))
			if d, ok := SuggestTangent(rm, start, first, false); ok {
				s.StartTangent = &d
			}
			last := geom.Unit(r2.Sub(end.Pos, t.anchors[len(t.anchors)-2].Pos))
			if d, ok := SuggestTangent(rm, end, r2.Scale(-1, last), true); ok {
				cont := r2.Scale(-1, d)
				s.EndTangent = &cont
			}
		}
		return s.Sample()

	default:
		return []r2.Vec{start.Pos, end.Pos}
	}
}

// quad builds the armed quadratic Bézier for the current anchors and apex.
func (t *Tool) quad(rm *course.RoadMap) QuadBezier {
	start, end := t.anchors[0], t.anchors[len(t.anchors)-1]
	chord := r2.Sub(end.Pos, start.Pos)

	var tan *r2.Vec
	if d, ok := SuggestTangent(rm, start, chord, false); ok {
		tan = &d
	}
	b := NewQuadBezier(start.Pos, end.Pos, tan)
	if t.apex != nil {
		b.SetApex(*t.apex)
	}
	return b
}

// cubic builds the armed cubic Bézier for the current anchors and apex.
func (t *Tool) cubic(rm *course.RoadMap) CubicBezier {
	start, end := t.anchors[0], t.anchors[len(t.anchors)-1]
	chord := r2.Sub(end.Pos, start.Pos)

	var startTan, endTan *r2.Vec
	if d, ok := SuggestTangent(rm, start, chord, false); ok {
		startTan = &d
	}
	if d, ok := SuggestTangent(rm, end, r2.Scale(-1, chord), true); ok {
		// SuggestTangent points away from the existing road; the
		// continuation past the end anchor is its opposite.
		cont := r2.Scale(-1, d)
		endTan = &cont
	}
	b := NewCubicBezier(start.Pos, end.Pos, startTan, endTan)
	if t.apex != nil {
		b.SetApex(*t.apex)
	}
	return b
}

func anchorPositions(anchors []Anchor) []r2.Vec {
	out := make([]r2.Vec, len(anchors))
	for i, a := range anchors {
		out[i] = a.Pos
	}
	return out
}
