package hydro

import "fmt"

// correct drives p to a fixpoint: it keeps absorbing the leak cell, or merging
// with the pool that owns it, until the pool is sealed or its level no longer
// clears the leak by more than epsilon.
func (e *PoolEngine) correct(p *Pool) error {
	for steps := 0; ; steps++ {
		if steps > e.guard {
			return fmt.Errorf("%w: pool %d after %d steps", ErrNoConvergence, p.id, steps)
		}
		if len(p.cells) == 0 {
			e.log.Debug("pool drained", "pool", p.id)
			e.reg.retire(p)
			return nil
		}

		leak, ok := e.findLeak(p)
		if !ok {
			return nil
		}
		rep := p.representative()
		if e.water.At(rep.X, rep.Y) <= leak.Height+e.params.Epsilon {
			return nil
		}

		c := leak.Cell()
		if other, owned := e.reg.Owner(c); owned {
			if other != p {
				e.merge(p, other)
				continue
			}
			return nil
		}
		if e.water.At(c.X, c.Y) > leak.Height {
			return fmt.Errorf("%w: %d,%d", ErrUntrackedWater, c.X, c.Y)
		}
		e.absorb(p, leak)
		e.levelCorrection(p)
	}
}

// absorb adds pt at the pool level and takes the water it needs evenly from
// every member, so the measured volume is unchanged.
func (e *PoolEngine) absorb(p *Pool, pt Point) {
	rep := p.representative()
	dif := e.water.At(rep.X, rep.Y) - pt.Height
	e.reg.claim(p, pt)
	e.water.Set(pt.X, pt.Y, pt.Height+dif)

	share := dif / float64(len(p.cells))
	for _, m := range p.cells {
		e.water.Add(m.X, m.Y, -share)
	}
	e.stats.Absorbed++
}

// levelCorrection repeatedly removes the member whose water sits furthest
// below its terrain and charges that deficit to the remaining members.
// Removed members go dry.
func (e *PoolEngine) levelCorrection(p *Pool) {
	for len(p.cells) > 0 {
		worst, deficit := -1, 0.0
		for i, m := range p.cells {
			if d := e.heights.At(m.X, m.Y) - e.water.At(m.X, m.Y); d > deficit {
				worst, deficit = i, d
			}
		}
		if worst < 0 {
			return
		}

		m := p.cells[worst]
		e.reg.release(p, m.Cell())
		e.water.Set(m.X, m.Y, e.heights.At(m.X, m.Y))
		e.stats.Removed++
		if len(p.cells) == 0 {
			return
		}
		share := deficit / float64(len(p.cells))
		for _, r := range p.cells {
			e.water.Add(r.X, r.Y, -share)
		}
	}
}

// merge folds b into a. b's cells are dried, its volume spread over a, and
// each of its cells re-absorbed into a one at a time.
func (e *PoolEngine) merge(a, b *Pool) {
	e.log.Debug("pools merged", "into", a.id, "from", b.id, "cells", len(b.cells))
	moved := b.Points()
	for _, pt := range moved {
		e.water.Set(pt.X, pt.Y, e.heights.At(pt.X, pt.Y))
	}
	e.reg.retire(b)

	a.volume += b.volume
	e.spread(a, b.volume)
	for _, pt := range moved {
		if a.Contains(pt.Cell()) {
			continue
		}
		e.absorb(a, e.point(pt.Cell()))
	}
	e.levelCorrection(a)
	e.stats.Merges++
}
