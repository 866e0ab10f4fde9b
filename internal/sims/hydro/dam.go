package hydro

import (
	"fmt"
	"strconv"
	"strings"

	"hydrosim/internal/core"
)

// Rect is a half-open node rectangle [X0,X1) x [Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// ParseRect parses "x0,y0,x1,y1".
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("rect %q: want x0,y0,x1,y1", s)
	}
	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = n
	}
	return Rect{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}, nil
}

// Validate checks that r is non-empty and inside a size*size grid.
func (r Rect) Validate(size int) error {
	if r.X0 < 0 || r.Y0 < 0 || r.X1 > size || r.Y1 > size || r.X0 >= r.X1 || r.Y0 >= r.Y1 {
		return fmt.Errorf("%w: rect %d,%d..%d,%d in grid of %d", ErrOutOfRange, r.X0, r.Y0, r.X1, r.Y1, size)
	}
	return nil
}

// Area returns the number of nodes in r.
func (r Rect) Area() int { return (r.X1 - r.X0) * (r.Y1 - r.Y0) }

// Contains reports whether the node lies in r.
func (r Rect) Contains(c core.Cell) bool {
	return c.X >= r.X0 && c.X < r.X1 && c.Y >= r.Y0 && c.Y < r.Y1
}

// BuildDam flattens r to raise times its average height and rebuilds the
// pools that touch it. On error the grids and registry are restored.
func (e *PoolEngine) BuildDam(r Rect, raise float64) error {
	size := e.heights.Size
	if err := r.Validate(size); err != nil {
		return err
	}
	if raise <= 0 {
		return fmt.Errorf("%w: raise %v", ErrOutOfRange, raise)
	}

	prevHeights := e.heights.Clone()
	prevWater := e.water.Clone()
	prevReg := e.reg.Clone()
	prevStats := e.stats

	sum := 0.0
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			sum += e.heights.At(x, y)
		}
	}
	height := sum / float64(r.Area()) * raise
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			e.heights.Set(x, y, height)
		}
	}
	e.log.Debug("dam raised", "x0", r.X0, "y0", r.Y0, "x1", r.X1, "y1", r.Y1, "height", height)

	if err := e.rebuild(prevHeights, r); err != nil {
		e.heights.CopyFrom(prevHeights)
		e.water.CopyFrom(prevWater)
		e.reg = prevReg
		e.stats = prevStats
		return fmt.Errorf("build dam: %w", err)
	}
	return nil
}

// rebuild reconciles pools with terrain that changed inside r. Members now
// under their terrain are evicted and the depth they held goes back to their
// pool; members still submerged return the water the new terrain displaced.
// Every pool with a member in or next to r is then corrected.
func (e *PoolEngine) rebuild(prev *core.Grid, r Rect) error {
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			c := core.Cell{X: x, Y: y}
			oldT, newT := prev.At(x, y), e.heights.At(x, y)
			level := e.water.At(x, y)

			p, owned := e.reg.Owner(c)
			if !owned {
				if level > oldT {
					return fmt.Errorf("%w: %d,%d", ErrUntrackedWater, x, y)
				}
				e.water.Set(x, y, newT)
				continue
			}

			if level < newT {
				e.reg.release(p, c)
				e.water.Set(x, y, newT)
				e.stats.Evictions++
				e.spread(p, level-oldT)
				continue
			}
			if displaced := newT - oldT; displaced != 0 {
				e.spread(p, displaced)
			}
			if i, ok := p.index[c]; ok {
				p.cells[i].Height = newT
			}
		}
	}

	touched := e.poolsNear(r)
	for _, p := range touched {
		if !e.reg.live(p) {
			continue
		}
		if len(p.cells) == 0 {
			e.log.Warn("pool evicted by dam", "pool", p.id, "volume", p.volume)
			e.reg.retire(p)
			continue
		}
		e.levelCorrection(p)
		if err := e.correct(p); err != nil {
			return err
		}
	}
	return nil
}

// poolsNear returns the live pools with a member in r grown by one node, in
// registry order. Pools emptied by eviction are included.
func (e *PoolEngine) poolsNear(r Rect) []*Pool {
	grown := Rect{X0: r.X0 - 1, Y0: r.Y0 - 1, X1: r.X1 + 1, Y1: r.Y1 + 1}
	var out []*Pool
	for _, p := range e.reg.pools {
		if len(p.cells) == 0 {
			out = append(out, p)
			continue
		}
		for _, m := range p.cells {
			if grown.Contains(m.Cell()) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
