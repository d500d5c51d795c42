// Package session saves and restores the full editor state as a compact
// binary session file (.wcs), used for autosave between real XML saves.
// The layout is columnar like the course XML, encoded with msgpack.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/sanholz/waycourse/pkg/course"
)

// fileVersion is bumped on incompatible layout changes.
const fileVersion = 1

// ErrVersion reports a session file written by an incompatible version.
var ErrVersion = errors.New("unsupported session version")

type document struct {
	Version int       `msgpack:"v"`
	SavedAt time.Time `msgpack:"saved_at"`

	ConfigVersion string   `msgpack:"config_version"`
	RouteVersion  string   `msgpack:"route_version"`
	RouteAuthor   string   `msgpack:"route_author"`
	MapName       string   `msgpack:"map_name"`
	OptionKeys    []string `msgpack:"option_keys"`
	OptionValues  []string `msgpack:"option_values"`

	NodeIDs   []uint64  `msgpack:"node_ids"`
	NodeXs    []float64 `msgpack:"node_xs"`
	NodeZs    []float64 `msgpack:"node_zs"`
	NodeFlags []uint32  `msgpack:"node_flags"`
	NextID    uint64    `msgpack:"next_id"`

	ConnStarts []uint64 `msgpack:"conn_starts"`
	ConnEnds   []uint64 `msgpack:"conn_ends"`
	ConnDirs   []uint8  `msgpack:"conn_dirs"`
	ConnPrios  []uint8  `msgpack:"conn_prios"`

	MarkerNodes   []uint64 `msgpack:"marker_nodes"`
	MarkerNames   []string `msgpack:"marker_names"`
	MarkerGroups  []string `msgpack:"marker_groups"`
	MarkerIndexes []uint32 `msgpack:"marker_indexes"`
	MarkerDebugs  []bool   `msgpack:"marker_debugs"`
}

// Save encodes the road map to w.
func Save(w io.Writer, rm *course.RoadMap) error {
	meta := rm.Meta()
	doc := document{
		Version:       fileVersion,
		SavedAt:       time.Now(),
		ConfigVersion: meta.ConfigVersion,
		RouteVersion:  meta.RouteVersion,
		RouteAuthor:   meta.RouteAuthor,
		MapName:       meta.MapName,
		NextID:        rm.NextNodeID(),
	}
	for _, opt := range meta.Options {
		doc.OptionKeys = append(doc.OptionKeys, opt.Key)
		doc.OptionValues = append(doc.OptionValues, opt.Value)
	}
	for _, n := range rm.Nodes() {
		doc.NodeIDs = append(doc.NodeIDs, n.ID)
		doc.NodeXs = append(doc.NodeXs, n.Position.X)
		doc.NodeZs = append(doc.NodeZs, n.Position.Y)
		doc.NodeFlags = append(doc.NodeFlags, n.Flag.Raw())
	}
	for _, c := range rm.Connections() {
		doc.ConnStarts = append(doc.ConnStarts, c.StartID)
		doc.ConnEnds = append(doc.ConnEnds, c.EndID)
		doc.ConnDirs = append(doc.ConnDirs, uint8(c.Direction))
		doc.ConnPrios = append(doc.ConnPrios, uint8(c.Priority))
	}
	for _, m := range rm.Markers() {
		doc.MarkerNodes = append(doc.MarkerNodes, m.NodeID)
		doc.MarkerNames = append(doc.MarkerNames, m.Name)
		doc.MarkerGroups = append(doc.MarkerGroups, m.Group)
		doc.MarkerIndexes = append(doc.MarkerIndexes, m.MarkerIndex)
		doc.MarkerDebugs = append(doc.MarkerDebugs, m.IsDebug)
	}
	if err := msgpack.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return nil
}

// Load decodes a session from r and rebuilds the road map.
func Load(r io.Reader) (*course.RoadMap, error) {
	var doc document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if doc.Version != fileVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, doc.Version)
	}
	if len(doc.NodeXs) != len(doc.NodeIDs) || len(doc.NodeZs) != len(doc.NodeIDs) ||
		len(doc.NodeFlags) != len(doc.NodeIDs) {
		return nil, fmt.Errorf("decode session: node columns disagree")
	}
	if len(doc.ConnEnds) != len(doc.ConnStarts) || len(doc.ConnDirs) != len(doc.ConnStarts) ||
		len(doc.ConnPrios) != len(doc.ConnStarts) {
		return nil, fmt.Errorf("decode session: connection columns disagree")
	}
	if len(doc.MarkerNames) != len(doc.MarkerNodes) || len(doc.MarkerGroups) != len(doc.MarkerNodes) ||
		len(doc.MarkerIndexes) != len(doc.MarkerNodes) || len(doc.MarkerDebugs) != len(doc.MarkerNodes) {
		return nil, fmt.Errorf("decode session: marker columns disagree")
	}

	rm := course.NewRoadMap()
	meta := course.Meta{
		ConfigVersion: doc.ConfigVersion,
		RouteVersion:  doc.RouteVersion,
		RouteAuthor:   doc.RouteAuthor,
		MapName:       doc.MapName,
	}
	for i := range doc.OptionKeys {
		meta.Options = append(meta.Options, course.MetaOption{Key: doc.OptionKeys[i], Value: doc.OptionValues[i]})
	}
	rm.SetMeta(meta)

	for i, id := range doc.NodeIDs {
		n := course.NewNode(id, r2.Vec{X: doc.NodeXs[i], Y: doc.NodeZs[i]}, course.NodeFlagFromRaw(doc.NodeFlags[i]))
		if !rm.InsertNode(n) {
			return nil, fmt.Errorf("decode session: bad node id %d", id)
		}
	}
	for i := range doc.ConnStarts {
		if _, ok := rm.AddConnection(doc.ConnStarts[i], doc.ConnEnds[i],
			course.ConnectionDirection(doc.ConnDirs[i]), course.ConnectionPriority(doc.ConnPrios[i])); !ok {
			return nil, fmt.Errorf("decode session: bad connection %d -> %d", doc.ConnStarts[i], doc.ConnEnds[i])
		}
	}
	for i := range doc.MarkerNodes {
		m := course.MapMarker{
			NodeID:      doc.MarkerNodes[i],
			Name:        doc.MarkerNames[i],
			Group:       doc.MarkerGroups[i],
			MarkerIndex: doc.MarkerIndexes[i],
			IsDebug:     doc.MarkerDebugs[i],
		}
		if !rm.SetMarker(m) {
			return nil, fmt.Errorf("decode session: marker on unknown node %d", doc.MarkerNodes[i])
		}
	}
	rm.AdvanceNodeID(doc.NextID)
	return rm, nil
}

// SaveFile writes the session atomically: encode to a temp file, then
// rename over the target so a crash never leaves a half-written autosave.
func SaveFile(path string, rm *course.RoadMap) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wcs-*")
	if err != nil {
		return fmt.Errorf("create session temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := Save(tmp, rm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// LoadFile reads a session file.
func LoadFile(path string) (*course.RoadMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer f.Close()
	return Load(f)
}
