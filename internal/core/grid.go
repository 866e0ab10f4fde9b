package core

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Cell addresses a single grid node.
type Cell struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Grid stores a square grid of float64 values in row-major order. It backs
// both the terrain height field and the water level grid.
type Grid struct {
	Size int
	data []float64
}

// NewGrid allocates a zeroed size*size grid.
func NewGrid(size int) *Grid {
	if size <= 0 {
		size = 1
	}
	return &Grid{Size: size, data: make([]float64, size*size)}
}

// GridFromRows builds a grid from a square slice of rows, mostly for tests and
// hand-made scenarios.
func GridFromRows(rows [][]float64) (*Grid, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("grid: no rows")
	}
	g := NewGrid(n)
	for y, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("grid: row %d has %d values, want %d", y, len(row), n)
		}
		copy(g.data[y*n:(y+1)*n], row)
	}
	return g, nil
}

// Cells exposes the backing slice so callers can read/write values directly.
func (g *Grid) Cells() []float64 { return g.data }

// Index returns the linear slice index for coordinates (x, y).
func (g *Grid) Index(x, y int) int { return y*g.Size + x }

// InBounds reports whether (x, y) addresses a node inside the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Size && y < g.Size
}

// At returns the value at (x, y). Out-of-range coordinates panic like any
// slice access.
func (g *Grid) At(x, y int) float64 { return g.data[y*g.Size+x] }

// Set stores v at (x, y).
func (g *Grid) Set(x, y int, v float64) { g.data[y*g.Size+x] = v }

// Add increments the value at (x, y) by delta.
func (g *Grid) Add(x, y int, delta float64) { g.data[y*g.Size+x] += delta }

// Fill assigns v to every node.
func (g *Grid) Fill(v float64) {
	for i := range g.data {
		g.data[i] = v
	}
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{Size: g.Size, data: make([]float64, len(g.data))}
	copy(out.data, g.data)
	return out
}

// CopyFrom overwrites g with the contents of src. Both grids must share a size.
func (g *Grid) CopyFrom(src *Grid) {
	if src.Size != g.Size {
		panic(fmt.Sprintf("grid: copy from size %d into size %d", src.Size, g.Size))
	}
	copy(g.data, src.data)
}

// Sum returns the total of all node values.
func (g *Grid) Sum() float64 { return floats.Sum(g.data) }

// MinMax returns the smallest and largest node values.
func (g *Grid) MinMax() (float64, float64) {
	return floats.Min(g.data), floats.Max(g.data)
}

// Sample is the bilinear interpolation of a grid at a continuous position
// together with the height gradient of the enclosing cell.
type Sample struct {
	Height    float64
	GradientX float64
	GradientY float64
}

// SampleAt interpolates the four nodes surrounding (px, py). It reports false
// when the enclosing cell does not lie fully inside the grid, i.e. when the
// position falls outside [0, Size-1) on either axis.
func (g *Grid) SampleAt(px, py float64) (Sample, bool) {
	if px < 0 || py < 0 {
		return Sample{}, false
	}
	cx := int(px)
	cy := int(py)
	if cx >= g.Size-1 || cy >= g.Size-1 {
		return Sample{}, false
	}

	x := px - float64(cx)
	y := py - float64(cy)

	idx := cy*g.Size + cx
	nw := g.data[idx]
	ne := g.data[idx+1]
	sw := g.data[idx+g.Size]
	se := g.data[idx+g.Size+1]

	return Sample{
		Height:    nw*(1-x)*(1-y) + ne*x*(1-y) + sw*(1-x)*y + se*x*y,
		GradientX: (ne-nw)*(1-y) + (se-sw)*y,
		GradientY: (sw-nw)*(1-x) + (se-ne)*x,
	}, true
}
