package hydro

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"hydrosim/internal/core"
	"hydrosim/internal/persistence/snapshot"
)

// ExportSnapshot captures terrain, water and pools.
func (w *World) ExportSnapshot() (snapshot.SnapshotV1, error) {
	cfg, err := yaml.Marshal(w.cfg)
	if err != nil {
		return snapshot.SnapshotV1{}, fmt.Errorf("encode config: %w", err)
	}
	reg := w.pools.reg
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			Seed:    w.cfg.Seed,
			Size:    w.heights.Size,
			Pools:   reg.Len(),
			Phase:   w.phase.String(),
		},
		Config:  cfg,
		Heights: append([]float64(nil), w.heights.Cells()...),
		Water:   append([]float64(nil), w.pools.water.Cells()...),
		NextID:  reg.nextID,
	}
	for _, p := range reg.pools {
		pv := snapshot.PoolV1{ID: p.id, Volume: p.volume}
		for _, pt := range p.cells {
			pv.Cells = append(pv.Cells, [2]int{pt.X, pt.Y})
			pv.Height = append(pv.Height, pt.Height)
		}
		snap.Pools = append(snap.Pools, pv)
	}
	return snap, nil
}

// SaveSnapshot writes the world to path.
func (w *World) SaveSnapshot(path string) error {
	snap, err := w.ExportSnapshot()
	if err != nil {
		return err
	}
	return snapshot.WriteSnapshot(path, snap)
}

// ImportSnapshot rebuilds a world from snap. Playback resumes at the pool
// phase.
func ImportSnapshot(snap snapshot.SnapshotV1) (*World, error) {
	cfg := DefaultConfig()
	if len(snap.Config) > 0 {
		if err := yaml.Unmarshal(snap.Config, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	size := snap.Header.Size
	if len(snap.Heights) != size*size || len(snap.Water) != size*size {
		return nil, fmt.Errorf("%w: snapshot grids do not match size %d", ErrOutOfRange, size)
	}
	heights := core.NewGrid(size)
	copy(heights.Cells(), snap.Heights)
	w, err := NewFromHeights(cfg, heights)
	if err != nil {
		return nil, err
	}

	e := w.pools
	copy(e.water.Cells(), snap.Water)
	reg := NewRegistry()
	for _, pv := range snap.Pools {
		if len(pv.Cells) == 0 || len(pv.Height) != len(pv.Cells) {
			return nil, fmt.Errorf("pool %d: malformed member list", pv.ID)
		}
		p := &Pool{id: pv.ID, index: make(map[core.Cell]int), volume: pv.Volume}
		for i, c := range pv.Cells {
			cell := core.Cell{X: c[0], Y: c[1]}
			if !heights.InBounds(cell.X, cell.Y) {
				return nil, fmt.Errorf("%w: pool %d member %d,%d", ErrOutOfRange, pv.ID, cell.X, cell.Y)
			}
			if _, taken := reg.claims[cell]; taken {
				return nil, fmt.Errorf("pool %d: member %d,%d claimed twice", pv.ID, cell.X, cell.Y)
			}
			p.add(Point{X: cell.X, Y: cell.Y, Height: pv.Height[i]})
			reg.claims[cell] = p
		}
		reg.pools = append(reg.pools, p)
	}
	reg.nextID = snap.NextID
	e.reg = reg
	w.phase = PhasePools
	if snap.Header.Phase == PhaseDone.String() {
		w.phase = PhaseDone
	}
	w.refreshDisplay()
	return w, nil
}

// LoadSnapshot reads and imports the snapshot at path.
func LoadSnapshot(path string) (*World, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return ImportSnapshot(snap)
}
