// Package heightmap holds a terrain height grid and samples it bilinearly.
// Heights are stored as float16, which halves the footprint of large maps
// and is far more precision than terrain export needs. The grid implements
// the XML writer's height source for the Y column.
package heightmap

import (
	"fmt"
	"math"

	"github.com/x448/float16"
	"gonum.org/v1/gonum/spatial/r2"
)

// Map is a regular height grid anchored at a world origin. Cell (0,0)
// sits at the origin; cell (ix,iz) at origin + (ix,iz)*cellSize.
type Map struct {
	cols, rows int
	origin     r2.Vec
	cellSize   float64
	samples    []float16.Float16
}

// New creates a flat grid of cols x rows samples.
func New(cols, rows int, origin r2.Vec, cellSize float64) (*Map, error) {
	if cols < 2 || rows < 2 {
		return nil, fmt.Errorf("heightmap: grid %dx%d too small", cols, rows)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("heightmap: cell size %v", cellSize)
	}
	return &Map{
		cols:     cols,
		rows:     rows,
		origin:   origin,
		cellSize: cellSize,
		samples:  make([]float16.Float16, cols*rows),
	}, nil
}

// Bounds returns the world rectangle the grid covers.
func (m *Map) Bounds() (min, max r2.Vec) {
	return m.origin, r2.Add(m.origin, r2.Vec{
		X: float64(m.cols-1) * m.cellSize,
		Y: float64(m.rows-1) * m.cellSize,
	})
}

// Set stores the height of one grid sample. Out-of-range indices are
// ignored.
func (m *Map) Set(ix, iz int, h float64) {
	if ix < 0 || ix >= m.cols || iz < 0 || iz >= m.rows {
		return
	}
	m.samples[iz*m.cols+ix] = float16.Fromfloat32(float32(h))
}

// At returns the height of one grid sample, clamping indices to the edge.
func (m *Map) At(ix, iz int) float64 {
	ix = clamp(ix, 0, m.cols-1)
	iz = clamp(iz, 0, m.rows-1)
	return float64(m.samples[iz*m.cols+ix].Float32())
}

// HeightAt samples the terrain at a world position with bilinear
// interpolation. Positions outside the grid clamp to the border.
func (m *Map) HeightAt(pos r2.Vec) float64 {
	gx := (pos.X - m.origin.X) / m.cellSize
	gz := (pos.Y - m.origin.Y) / m.cellSize

	x0 := int(math.Floor(gx))
	z0 := int(math.Floor(gz))
	fx := gx - float64(x0)
	fz := gz - float64(z0)
	if x0 < 0 {
		x0, fx = 0, 0
	}
	if z0 < 0 {
		z0, fz = 0, 0
	}
	if x0 >= m.cols-1 {
		x0, fx = m.cols-2, 1
	}
	if z0 >= m.rows-1 {
		z0, fz = m.rows-2, 1
	}

	h00 := m.At(x0, z0)
	h10 := m.At(x0+1, z0)
	h01 := m.At(x0, z0+1)
	h11 := m.At(x0+1, z0+1)
	top := h00 + (h10-h00)*fx
	bot := h01 + (h11-h01)*fx
	return top + (bot-top)*fz
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
