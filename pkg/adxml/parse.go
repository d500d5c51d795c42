package adxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/course"
)

// rawColumns holds the waypoint block before cross-referencing.
type rawColumns struct {
	ids      []uint64
	xs, zs   []float64
	flags    []uint32
	out      [][]uint64
	incoming [][]uint64
}

// Parse reads a course document and builds the road map it describes.
// Unknown header elements survive as ordered meta options.
func Parse(r io.Reader) (*course.RoadMap, error) {
	dec := xml.NewDecoder(r)

	var meta course.Meta
	var cols *rawColumns
	var markers []course.MapMarker
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			if start.Name.Local != "AutoDrive" {
				return nil, fmt.Errorf("%w: root element is <%s>, want <AutoDrive>", ErrMalformed, start.Name.Local)
			}
			sawRoot = true
			for _, attr := range start.Attr {
				switch attr.Name.Local {
				case "configVersion":
					meta.ConfigVersion = attr.Value
				case "routeVersion":
					meta.RouteVersion = attr.Value
				case "routeAuthor":
					meta.RouteAuthor = attr.Value
				}
			}
			continue
		}
		switch start.Name.Local {
		case "MapName":
			v, err := textOf(dec, start)
			if err != nil {
				return nil, err
			}
			meta.MapName = v
		case "waypoints":
			c, err := parseWaypoints(dec, start)
			if err != nil {
				return nil, err
			}
			cols = c
		case "mapmarker":
			ms, err := parseMarkers(dec, start)
			if err != nil {
				return nil, err
			}
			markers = ms
		default:
			// Anything else in the header is an option the editor does
			// not interpret; keep it for the round trip.
			v, err := textOf(dec, start)
			if err != nil {
				return nil, err
			}
			meta.Options = append(meta.Options, course.MetaOption{Key: start.Name.Local, Value: v})
		}
	}
	if !sawRoot {
		return nil, fmt.Errorf("%w: no <AutoDrive> root", ErrMalformed)
	}

	rm := course.NewRoadMap()
	rm.SetMeta(meta)
	if cols != nil {
		if err := buildGraph(rm, cols); err != nil {
			return nil, err
		}
	}
	for _, m := range markers {
		if !rm.SetMarker(m) {
			return nil, fmt.Errorf("%w: marker %q references unknown waypoint %d", ErrMalformed, m.Name, m.NodeID)
		}
	}
	rm.RecalculateNodeFlags()
	return rm, nil
}

// parseWaypoints consumes the <waypoints> element into raw columns.
func parseWaypoints(dec *xml.Decoder, open xml.StartElement) (*rawColumns, error) {
	cols := &rawColumns{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == open.Name {
				return cols, cols.validate()
			}
		case xml.StartElement:
			text, err := textOf(dec, t)
			if err != nil {
				return nil, err
			}
			switch t.Name.Local {
			case "id":
				cols.ids, err = parseIDList(text, ",")
			case "x":
				cols.xs, err = parseFloatList(text)
			case "y":
				// Terrain height, irrelevant to the top-down graph.
			case "z":
				cols.zs, err = parseFloatList(text)
			case "flags":
				cols.flags, err = parseFlagList(text)
			case "out":
				cols.out, err = parseIDListPerNode(text)
			case "incoming":
				cols.incoming, err = parseIDListPerNode(text)
			}
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %v", ErrMalformed, t.Name.Local, err)
			}
		}
	}
}

func (c *rawColumns) validate() error {
	n := len(c.ids)
	for name, got := range map[string]int{
		"x":        len(c.xs),
		"z":        len(c.zs),
		"flags":    len(c.flags),
		"out":      len(c.out),
		"incoming": len(c.incoming),
	} {
		if got != n {
			return fmt.Errorf("%w: column %s has %d entries, want %d", ErrMalformed, name, got, n)
		}
	}
	return nil
}

// buildGraph materializes nodes and infers connection directions from the
// out/incoming cross references.
func buildGraph(rm *course.RoadMap, cols *rawColumns) error {
	index := make(map[uint64]int, len(cols.ids))
	for i, id := range cols.ids {
		if _, dup := index[id]; dup {
			return fmt.Errorf("%w: duplicate waypoint id %d", ErrMalformed, id)
		}
		index[id] = i
		if !rm.InsertNode(course.NewNode(id, r2.Vec{X: cols.xs[i], Y: cols.zs[i]}, course.NodeFlagFromRaw(cols.flags[i]))) {
			return fmt.Errorf("%w: waypoint id %d rejected", ErrMalformed, id)
		}
	}

	outSet := make([]map[uint64]bool, len(cols.ids))
	inSet := make([]map[uint64]bool, len(cols.ids))
	for i := range cols.ids {
		outSet[i] = idSet(cols.out[i])
		inSet[i] = idSet(cols.incoming[i])
	}

	for i, src := range cols.ids {
		for _, dst := range cols.out[i] {
			j, ok := index[dst]
			if !ok {
				return fmt.Errorf("%w: waypoint %d links to unknown waypoint %d", ErrMalformed, src, dst)
			}
			switch {
			case outSet[j][src]:
				// Both list each other as outgoing: one dual road,
				// stored once from the lower id.
				if src < dst {
					rm.AddConnection(src, dst, course.DirDual, course.PrioRegular)
				}
			case !inSet[j][src]:
				rm.AddConnection(src, dst, course.DirReverse, course.PrioRegular)
			default:
				rm.AddConnection(src, dst, course.DirRegular, course.PrioRegular)
			}
		}
	}

	// Sub-priority roads are marked on the waypoints; carry the flag onto
	// every connection between two sub-priority endpoints.
	for _, c := range rm.Connections() {
		s, _ := rm.Node(c.StartID)
		e, _ := rm.Node(c.EndID)
		if s.Flag == course.FlagSubPrio && e.Flag == course.FlagSubPrio {
			rm.AddConnection(c.StartID, c.EndID, c.Direction, course.PrioSubPrio)
		}
	}
	return nil
}

// parseMarkers consumes the <mapmarker> element. Marker ids are stored as
// decimal floats in the format, a quirk kept for compatibility.
func parseMarkers(dec *xml.Decoder, open xml.StartElement) ([]course.MapMarker, error) {
	var out []course.MapMarker
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == open.Name {
				return out, nil
			}
		case xml.StartElement:
			m, err := parseMarker(dec, t)
			if err != nil {
				return nil, err
			}
			m.MarkerIndex = uint32(len(out)) + 1
			out = append(out, m)
		}
	}
}

func parseMarker(dec *xml.Decoder, open xml.StartElement) (course.MapMarker, error) {
	var m course.MapMarker
	for {
		tok, err := dec.Token()
		if err != nil {
			return m, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == open.Name {
				return m, nil
			}
		case xml.StartElement:
			text, err := textOf(dec, t)
			if err != nil {
				return m, err
			}
			switch t.Name.Local {
			case "id":
				f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
				if err != nil || f < 1 {
					return m, fmt.Errorf("%w: marker id %q", ErrMalformed, text)
				}
				m.NodeID = uint64(f)
			case "name":
				m.Name = text
			case "group":
				m.Group = text
			}
		}
	}
}

// textOf consumes an element and returns its character data.
func textOf(dec *xml.Decoder, open xml.StartElement) (string, error) {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name == open.Name {
				return strings.TrimSpace(sb.String()), nil
			}
		case xml.StartElement:
			return "", fmt.Errorf("%w: unexpected <%s> inside <%s>", ErrMalformed, t.Name.Local, open.Name.Local)
		}
	}
}

func parseIDList(text, sep string) ([]uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	parts := strings.Split(text, sep)
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "-1" {
			// AutoDrive writes -1 for empty link lists.
			continue
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseIDListPerNode splits a per-node column: entries separated by ";",
// ids within an entry by ",".
func parseIDListPerNode(text string) ([][]uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	parts := strings.Split(text, ";")
	out := make([][]uint64, len(parts))
	for i, p := range parts {
		ids, err := parseIDList(p, ",")
		if err != nil {
			return nil, err
		}
		out[i] = ids
	}
	return out, nil
}

func parseFloatList(text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	parts := strings.Split(text, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFlagList(text string) ([]uint32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	parts := strings.Split(text, ",")
	out := make([]uint32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}

func idSet(ids []uint64) map[uint64]bool {
	s := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
