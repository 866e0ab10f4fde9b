package hydro

import "hydrosim/internal/core"

// Point is a snapshot of a grid node and its terrain height at the time it was
// recorded. Points compare by coordinates only.
type Point struct {
	X, Y   int
	Height float64
}

// Cell returns the point's coordinates.
func (p Point) Cell() core.Cell { return core.Cell{X: p.X, Y: p.Y} }

// Pool is one body of standing water.
type Pool struct {
	id     int
	cells  []Point
	index  map[core.Cell]int
	volume float64

	leak    Point
	hasLeak bool
}

func newPool(id int, first Point, volume float64) *Pool {
	p := &Pool{id: id, index: make(map[core.Cell]int), volume: volume}
	p.add(first)
	p.leak = first
	return p
}

// ID returns the pool's unique identifier.
func (p *Pool) ID() int { return p.id }

// Len returns the number of member cells.
func (p *Pool) Len() int { return len(p.cells) }

// Volume returns the nominal water volume tracked by the pool.
func (p *Pool) Volume() float64 { return p.volume }

// Points returns a copy of the member points in membership order.
func (p *Pool) Points() []Point {
	out := make([]Point, len(p.cells))
	copy(out, p.cells)
	return out
}

// Contains reports whether the cell is a member.
func (p *Pool) Contains(c core.Cell) bool {
	_, ok := p.index[c]
	return ok
}

// Leak returns the last discovered overflow candidate and whether one exists.
func (p *Pool) Leak() (Point, bool) { return p.leak, p.hasLeak }

// representative returns the member whose level stands for the pool level.
func (p *Pool) representative() Point { return p.cells[0] }

func (p *Pool) add(pt Point) {
	p.index[pt.Cell()] = len(p.cells)
	p.cells = append(p.cells, pt)
}

// remove drops a member while keeping the remaining order stable.
func (p *Pool) remove(c core.Cell) bool {
	i, ok := p.index[c]
	if !ok {
		return false
	}
	delete(p.index, c)
	copy(p.cells[i:], p.cells[i+1:])
	p.cells = p.cells[:len(p.cells)-1]
	for j := i; j < len(p.cells); j++ {
		p.index[p.cells[j].Cell()] = j
	}
	return true
}

func (p *Pool) clone() *Pool {
	out := &Pool{
		id:      p.id,
		cells:   make([]Point, len(p.cells)),
		index:   make(map[core.Cell]int, len(p.index)),
		volume:  p.volume,
		leak:    p.leak,
		hasLeak: p.hasLeak,
	}
	copy(out.cells, p.cells)
	for k, v := range p.index {
		out.index[k] = v
	}
	return out
}
