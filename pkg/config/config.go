// Package config holds the editor options and their YAML file form.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanholz/waycourse/pkg/course"
)

// Options are the user-tunable editor settings.
type Options struct {
	// SnapRadius is how close a click must be to snap onto an existing
	// waypoint, in meters.
	SnapRadius float64 `yaml:"snap_radius"`
	// DedupEpsilon is the merge distance for duplicate waypoints.
	DedupEpsilon float64 `yaml:"dedup_epsilon"`
	// UndoDepth bounds the undo and redo stacks.
	UndoDepth int `yaml:"undo_depth"`
	// SegmentSpacing is the default waypoint spacing of new segments.
	SegmentSpacing float64 `yaml:"segment_spacing"`
	// DefaultDirection is regular, dual or reverse.
	DefaultDirection string `yaml:"default_direction"`
	// DefaultPriority is regular or subprio.
	DefaultPriority string `yaml:"default_priority"`
	// AutosaveInterval is how often the session autosave runs; zero
	// disables it.
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	// AutosavePath is where the session autosave is written.
	AutosavePath string `yaml:"autosave_path"`
	// JournalPath is where the edit journal is appended.
	JournalPath string `yaml:"journal_path"`
}

// DefaultOptions returns the settings a fresh install starts with.
func DefaultOptions() Options {
	return Options{
		SnapRadius:       1.5,
		DedupEpsilon:     0.05,
		UndoDepth:        64,
		SegmentSpacing:   6.0,
		DefaultDirection: "regular",
		DefaultPriority:  "regular",
		AutosaveInterval: 2 * time.Minute,
		AutosavePath:     "autosave.wcs",
		JournalPath:      "edits.journal",
	}
}

// Validate reports the first implausible setting.
func (o Options) Validate() error {
	if o.SnapRadius <= 0 {
		return fmt.Errorf("snap_radius must be positive, got %v", o.SnapRadius)
	}
	if o.DedupEpsilon <= 0 {
		return fmt.Errorf("dedup_epsilon must be positive, got %v", o.DedupEpsilon)
	}
	if o.UndoDepth < 1 {
		return fmt.Errorf("undo_depth must be at least 1, got %d", o.UndoDepth)
	}
	if o.SegmentSpacing <= 0 {
		return fmt.Errorf("segment_spacing must be positive, got %v", o.SegmentSpacing)
	}
	if _, err := o.Direction(); err != nil {
		return err
	}
	if _, err := o.Priority(); err != nil {
		return err
	}
	return nil
}

// Direction resolves the default connection direction.
func (o Options) Direction() (course.ConnectionDirection, error) {
	switch o.DefaultDirection {
	case "", "regular":
		return course.DirRegular, nil
	case "dual":
		return course.DirDual, nil
	case "reverse":
		return course.DirReverse, nil
	default:
		return 0, fmt.Errorf("unknown default_direction %q", o.DefaultDirection)
	}
}

// Priority resolves the default connection priority.
func (o Options) Priority() (course.ConnectionPriority, error) {
	switch o.DefaultPriority {
	case "", "regular":
		return course.PrioRegular, nil
	case "subprio":
		return course.PrioSubPrio, nil
	default:
		return 0, fmt.Errorf("unknown default_priority %q", o.DefaultPriority)
	}
}

// Load reads options from a YAML file. A missing file yields the defaults;
// present fields override them.
func Load(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return opts, nil
	}
	if err != nil {
		return opts, fmt.Errorf("read options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid options in %s: %w", path, err)
	}
	return opts, nil
}

// Save writes the options as YAML.
func (o Options) Save(path string) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write options: %w", err)
	}
	return nil
}
