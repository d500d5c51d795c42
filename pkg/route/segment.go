// Package route implements the curve tools that lay new road segments:
// straight lines, quadratic and cubic Béziers and Catmull-Rom splines, all
// sharing one segmenting configuration and one result assembler.
package route

import "math"

// editedField tracks which half of the segment configuration the user set
// last, so the other half can be rederived from the curve length.
type editedField uint8

const (
	editedDistance editedField = iota
	editedCount
)

// SegmentConfig controls how a sampled curve is cut into waypoints. The
// user edits either the spacing or the waypoint count; the other field is
// derived from the curve length on Sync.
type SegmentConfig struct {
	// Distance is the maximum spacing between consecutive waypoints.
	Distance float64
	// Count is the total number of waypoints including both endpoints.
	Count int

	last editedField
}

// DefaultSpacing is the default waypoint spacing in meters.
const DefaultSpacing = 6.0

// DefaultSegmentConfig returns a spacing-driven configuration.
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{Distance: DefaultSpacing, Count: 2}
}

// SetDistance sets the target spacing and makes it the driving field.
func (c *SegmentConfig) SetDistance(d float64) {
	if d > 0 {
		c.Distance = d
	}
	c.last = editedDistance
}

// SetCount sets the target waypoint count and makes it the driving field.
func (c *SegmentConfig) SetCount(n int) {
	if n >= 2 {
		c.Count = n
	}
	c.last = editedCount
}

// CountDriven reports whether the waypoint count is the driving field.
func (c SegmentConfig) CountDriven() bool { return c.last == editedCount }

// NodeCountFor returns the waypoint count the configuration yields for a
// curve of the given length. Spacing-driven configs round the segment count
// up, so the actual spacing never exceeds Distance.
func (c SegmentConfig) NodeCountFor(length float64) int {
	if c.last == editedCount {
		if c.Count < 2 {
			return 2
		}
		return c.Count
	}
	if length <= 0 || c.Distance <= 0 {
		return 2
	}
	segments := int(math.Ceil(length/c.Distance - 1e-9))
	if segments < 1 {
		segments = 1
	}
	return segments + 1
}

// Sync rederives the non-driving field from the given curve length, keeping
// both halves of the configuration consistent for display.
func (c *SegmentConfig) Sync(length float64) {
	if c.last == editedCount {
		if c.Count >= 2 && length > 0 {
			c.Distance = length / float64(c.Count-1)
		}
		return
	}
	c.Count = c.NodeCountFor(length)
}
