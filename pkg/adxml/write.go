package adxml

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/course"
)

// HeightSampler supplies terrain heights for the exported Y column. The
// in-memory graph is two-dimensional; heights only exist on disk.
type HeightSampler interface {
	HeightAt(pos r2.Vec) float64
}

// Write serializes the road map as a course document. Waypoint ids are
// renumbered contiguously from 1 in ascending original order, so exported
// files never carry gaps from deleted nodes. A nil sampler writes zero
// heights.
func Write(w io.Writer, rm *course.RoadMap, heights HeightSampler) error {
	bw := bufio.NewWriter(w)
	meta := rm.Meta()

	fmt.Fprintf(bw, "<AutoDrive configVersion=\"%s\" routeVersion=\"%s\" routeAuthor=\"%s\">\n",
		escape(meta.ConfigVersion), escape(meta.RouteVersion), escape(meta.RouteAuthor))
	writeTextElement(bw, 1, "MapName", meta.MapName)
	for _, opt := range meta.Options {
		writeTextElement(bw, 1, opt.Key, opt.Value)
	}

	nodes := rm.Nodes()
	renum := make(map[uint64]uint64, len(nodes))
	for i, n := range nodes {
		renum[n.ID] = uint64(i + 1)
	}

	out := make([][]uint64, len(nodes))
	incoming := make([][]uint64, len(nodes))
	for _, c := range rm.Connections() {
		s := renum[c.StartID] - 1
		e := renum[c.EndID] - 1
		switch c.Direction {
		case course.DirDual:
			out[s] = append(out[s], e+1)
			out[e] = append(out[e], s+1)
			incoming[s] = append(incoming[s], e+1)
			incoming[e] = append(incoming[e], s+1)
		case course.DirReverse:
			// Listed as outgoing without the matching incoming entry;
			// that asymmetry is how the format marks reverse driving.
			out[s] = append(out[s], e+1)
		default:
			out[s] = append(out[s], e+1)
			incoming[e] = append(incoming[e], s+1)
		}
	}
	for i := range out {
		sortIDs(out[i])
		sortIDs(incoming[i])
	}

	fmt.Fprintf(bw, "\t<waypoints c=\"%d\">\n", len(nodes))
	writeColumn(bw, "id", len(nodes), func(i int) string { return fmt.Sprintf("%d", i+1) })
	writeColumn(bw, "x", len(nodes), func(i int) string { return fmt.Sprintf("%.3f", nodes[i].Position.X) })
	writeColumn(bw, "y", len(nodes), func(i int) string {
		if heights == nil {
			return "0.000"
		}
		return fmt.Sprintf("%.3f", heights.HeightAt(nodes[i].Position))
	})
	writeColumn(bw, "z", len(nodes), func(i int) string { return fmt.Sprintf("%.3f", nodes[i].Position.Y) })
	writeColumn(bw, "out", len(nodes), func(i int) string { return joinIDs(out[i]) })
	writeColumn(bw, "incoming", len(nodes), func(i int) string { return joinIDs(incoming[i]) })
	writeColumn(bw, "flags", len(nodes), func(i int) string { return fmt.Sprintf("%d", nodes[i].Flag.Raw()) })
	fmt.Fprint(bw, "\t</waypoints>\n")

	markers := rm.Markers()
	sort.SliceStable(markers, func(i, j int) bool { return renum[markers[i].NodeID] < renum[markers[j].NodeID] })
	fmt.Fprint(bw, "\t<mapmarker>\n")
	for i, m := range markers {
		fmt.Fprintf(bw, "\t\t<mm%d>\n", i+1)
		// Marker ids are floats in the format; kept for compatibility.
		writeTextElement(bw, 3, "id", fmt.Sprintf("%.6f", float64(renum[m.NodeID])))
		writeTextElement(bw, 3, "name", m.Name)
		writeTextElement(bw, 3, "group", m.Group)
		fmt.Fprintf(bw, "\t\t</mm%d>\n", i+1)
	}
	fmt.Fprint(bw, "\t</mapmarker>\n")

	fmt.Fprint(bw, "</AutoDrive>\n")
	return bw.Flush()
}

// writeColumn emits one columnar element, entries separated by ";" for the
// list columns and "," for the scalar ones. The writer callback produces
// each entry; list entries already contain their own commas.
func writeColumn(bw *bufio.Writer, name string, n int, entry func(i int) string) {
	sep := ","
	if name == "out" || name == "incoming" {
		sep = ";"
	}
	fmt.Fprintf(bw, "\t\t<%s>", name)
	for i := 0; i < n; i++ {
		if i > 0 {
			bw.WriteString(sep)
		}
		bw.WriteString(entry(i))
	}
	fmt.Fprintf(bw, "</%s>\n", name)
}

func writeTextElement(bw *bufio.Writer, depth int, name, value string) {
	fmt.Fprintf(bw, "%s<%s>%s</%s>\n", strings.Repeat("\t", depth), name, escape(value), name)
}

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func joinIDs(ids []uint64) string {
	if len(ids) == 0 {
		return "-1"
	}
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", id)
	}
	return sb.String()
}

func sortIDs(ids []uint64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
