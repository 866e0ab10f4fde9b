package hydro

import "hydrosim/internal/core"

// findLeak scans the 8-neighbourhood of every member for the non-member whose
// terrain sits furthest below the member's water level. Ties keep the first
// candidate in member order. The result is cached on the pool.
func (e *PoolEngine) findLeak(p *Pool) (Point, bool) {
	size := e.heights.Size
	best := 0.0
	var leak Point
	found := false

	for _, m := range p.cells {
		level := e.water.At(m.X, m.Y)
		for dy := -1; dy <= 1; dy++ {
			ny := m.Y + dy
			if ny < 0 || ny >= size {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := m.X + dx
				if (dx == 0 && dy == 0) || nx < 0 || nx >= size {
					continue
				}
				c := core.Cell{X: nx, Y: ny}
				if p.Contains(c) {
					continue
				}
				if dif := level - e.heights.At(nx, ny); dif > best {
					best = dif
					leak = e.point(c)
					found = true
				}
			}
		}
	}

	p.hasLeak = found
	if found {
		p.leak = leak
	}
	return leak, found
}
