package hydro

import (
	"fmt"

	"hydrosim/internal/core"
)

// Registry owns every live pool and the cell -> pool reverse index. It is the
// only place pools are created, merged away or dropped.
type Registry struct {
	pools  []*Pool
	claims map[core.Cell]*Pool
	nextID int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{claims: make(map[core.Cell]*Pool)}
}

// Pools returns the live pools ordered by id.
func (r *Registry) Pools() []*Pool {
	out := make([]*Pool, len(r.pools))
	copy(out, r.pools)
	return out
}

// Len returns the number of live pools.
func (r *Registry) Len() int { return len(r.pools) }

// Owner returns the pool claiming the cell.
func (r *Registry) Owner(c core.Cell) (*Pool, bool) {
	p, ok := r.claims[c]
	return p, ok
}

// Lookup returns the pool with the given id.
func (r *Registry) Lookup(id int) (*Pool, bool) {
	for _, p := range r.pools {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

// create registers a singleton pool. The cell must be unclaimed.
func (r *Registry) create(first Point, volume float64) *Pool {
	p := newPool(r.nextID, first, volume)
	r.nextID++
	r.pools = append(r.pools, p)
	r.claims[first.Cell()] = p
	return p
}

// claim adds pt to p and indexes it.
func (r *Registry) claim(p *Pool, pt Point) {
	p.add(pt)
	r.claims[pt.Cell()] = p
}

// release drops a member from p and the index.
func (r *Registry) release(p *Pool, c core.Cell) {
	if p.remove(c) && r.claims[c] == p {
		delete(r.claims, c)
	}
}

// retire removes p from the live list. Any cells it still claims are
// unindexed.
func (r *Registry) retire(p *Pool) {
	for _, pt := range p.cells {
		if r.claims[pt.Cell()] == p {
			delete(r.claims, pt.Cell())
		}
	}
	for i, q := range r.pools {
		if q == p {
			r.pools = append(r.pools[:i], r.pools[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy whose pools are independent of r.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		pools:  make([]*Pool, len(r.pools)),
		claims: make(map[core.Cell]*Pool, len(r.claims)),
		nextID: r.nextID,
	}
	for i, p := range r.pools {
		q := p.clone()
		out.pools[i] = q
		for _, pt := range q.cells {
			out.claims[pt.Cell()] = q
		}
	}
	return out
}

// Check verifies the reverse index and member sets agree and that no cell
// belongs to two pools.
func (r *Registry) Check() error {
	seen := 0
	for _, p := range r.pools {
		if len(p.cells) != len(p.index) {
			return fmt.Errorf("pool %d: %d members but %d index entries", p.id, len(p.cells), len(p.index))
		}
		for _, pt := range p.cells {
			owner, ok := r.claims[pt.Cell()]
			if !ok {
				return fmt.Errorf("pool %d: member %d,%d missing from index", p.id, pt.X, pt.Y)
			}
			if owner != p {
				return fmt.Errorf("pool %d: member %d,%d indexed to pool %d", p.id, pt.X, pt.Y, owner.id)
			}
			seen++
		}
	}
	if seen != len(r.claims) {
		return fmt.Errorf("index holds %d cells, pools hold %d", len(r.claims), seen)
	}
	return nil
}

// live reports whether p is still registered.
func (r *Registry) live(p *Pool) bool {
	for _, q := range r.pools {
		if q == p {
			return true
		}
	}
	return false
}
