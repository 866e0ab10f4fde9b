package hydro

import (
	"fmt"
	"log/slog"
	"math"

	"hydrosim/internal/core"
	"hydrosim/internal/terrain"
)

// Phase is the playback stage driven by Step.
type Phase uint8

const (
	// PhaseErosion runs erosion droplet batches.
	PhaseErosion Phase = iota
	// PhasePools runs pool droplet batches.
	PhasePools
	// PhaseDone means both phases finished; Step is a no-op.
	PhaseDone
	// PhaseFailed means a batch or terrain generation returned an error,
	// available from Err; Step is a no-op.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseErosion:
		return "erosion"
	case PhasePools:
		return "pools"
	case PhaseDone:
		return "done"
	default:
		return "failed"
	}
}

// World owns the height grid together with the erosion and pool engines that
// mutate it.
type World struct {
	cfg Config

	heights *core.Grid
	eroder  *Eroder
	pools   *PoolEngine
	display []uint8
	log     *slog.Logger

	phase Phase
	done  int
	err   error
}

// New returns a hydro world with the given visible map edge using defaults.
func New(mapSize int) *World {
	cfg := DefaultConfig()
	cfg.MapSize = mapSize
	return NewWithConfig(cfg)
}

// NewWithConfig returns a flat world configured from cfg. Call Reset to fill
// the terrain.
func NewWithConfig(cfg Config) *World {
	size := cfg.GridSize()
	if size < 0 {
		size = 0
	}
	return newWorld(cfg, core.NewGrid(size))
}

// NewFromHeights wraps an existing height grid. The grid is used in place.
func NewFromHeights(cfg Config, heights *core.Grid) (*World, error) {
	if err := CheckGrid(heights.Size, cfg.Params.Erosion.Radius); err != nil {
		return nil, err
	}
	cfg.MapSize = heights.Size - 2*cfg.Params.Erosion.Radius
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newWorld(cfg, heights), nil
}

func newWorld(cfg Config, heights *core.Grid) *World {
	w := &World{
		cfg:     cfg,
		heights: heights,
		eroder:  NewEroder(cfg.Params.Erosion, cfg.Seed),
		pools:   NewPoolEngine(heights, cfg.Params.Pools, cfg.Seed+1),
		display: make([]uint8, heights.Size*heights.Size),
		log:     slog.New(discardHandler{}),
	}
	w.refreshDisplay()
	return w
}

// SetLogger routes diagnostics to l.
func (w *World) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	w.log = l
	w.pools.SetLogger(l)
}

// Name returns the simulation identifier.
func (w *World) Name() string { return "hydro" }

// Size reports the grid dimensions including the erosion border.
func (w *World) Size() core.Size { return core.Size{W: w.heights.Size, H: w.heights.Size} }

// Cells exposes the display buffer.
func (w *World) Cells() []uint8 { return w.display }

// Config returns the active configuration.
func (w *World) Config() Config { return w.cfg }

// Heights exposes the terrain grid.
func (w *World) Heights() *core.Grid { return w.heights }

// Water exposes the water surface grid.
func (w *World) Water() *core.Grid { return w.pools.Water() }

// Registry exposes the live pools.
func (w *World) Registry() *Registry { return w.pools.Registry() }

// Stats returns the pool engine counters.
func (w *World) Stats() Stats { return w.pools.Stats() }

// InTransit returns the sediment left suspended by the last erosion pass.
func (w *World) InTransit() float64 { return w.eroder.InTransit() }

// Phase returns the playback stage.
func (w *World) Phase() Phase { return w.phase }

// Err returns the error that moved playback to PhaseFailed.
func (w *World) Err() error { return w.err }

// Reset regenerates terrain from seed (0 keeps the configured seed), dries the
// map and rewinds playback. If the terrain cannot be generated the world moves
// to PhaseFailed and keeps its previous heights.
func (w *World) Reset(seed int64) {
	if seed != 0 {
		w.cfg.Seed = seed
	}
	g, err := terrain.Generate(w.heights.Size, w.cfg.Seed, w.cfg.Terrain)
	if err == nil {
		w.heights.CopyFrom(g)
	}
	w.eroder = NewEroder(w.cfg.Params.Erosion, w.cfg.Seed)
	w.pools.Reset(w.cfg.Seed + 1)
	w.phase, w.done, w.err = PhaseErosion, 0, nil
	if err != nil {
		w.phase, w.err = PhaseFailed, fmt.Errorf("generate terrain: %w", err)
		w.log.Error("terrain generation failed", "err", err)
	}
	w.refreshDisplay()
}

// ResetPools drops every pool and restarts playback at the pool phase.
func (w *World) ResetPools() {
	w.pools.Reset(w.cfg.Seed + 1)
	w.phase, w.done, w.err = PhasePools, 0, nil
	w.refreshDisplay()
}

// Step runs one playback batch of the current phase. Erosion and pool
// formation are each split into Config.Batches batches.
func (w *World) Step() {
	var err error
	switch w.phase {
	case PhaseErosion:
		n := w.batchSize(w.cfg.ErosionIterations)
		err = w.Erode(n)
		w.done += n
		if w.done >= w.cfg.ErosionIterations {
			w.phase, w.done = PhasePools, 0
		}
	case PhasePools:
		n := w.batchSize(w.cfg.PoolIterations)
		err = w.GeneratePools(n, w.cfg.Start)
		w.done += n
		if w.done >= w.cfg.PoolIterations {
			w.phase, w.done = PhaseDone, 0
			w.log.Info("pools settled", "pools", w.Registry().Len())
		}
	default:
		return
	}
	if err != nil {
		w.phase, w.err = PhaseFailed, err
		w.log.Error("step failed", "err", err)
	}
	w.refreshDisplay()
}

func (w *World) batchSize(total int) int {
	remaining := total - w.done
	n := (total + w.cfg.Batches - 1) / w.cfg.Batches
	if n > remaining {
		n = remaining
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Erode runs iterations erosion droplets. Pools standing on changed terrain
// are re-levelled and their volume re-measured afterwards.
func (w *World) Erode(iterations int) error {
	w.eroder.SetParams(w.cfg.Params.Erosion)
	if err := w.eroder.Erode(w.heights, iterations); err != nil {
		return err
	}
	w.log.Debug("erosion batch", "droplets", iterations, "in_transit", w.eroder.InTransit())
	return w.pools.resync()
}

// GeneratePools runs iterations pool droplets, from start when non-nil.
func (w *World) GeneratePools(iterations int, start *core.Cell) error {
	w.pools.SetParams(w.cfg.Params.Pools)
	return w.pools.Generate(iterations, start)
}

// AddWater pours volume onto a single node.
func (w *World) AddWater(c core.Cell, volume float64) error {
	return w.pools.AddWater(c, volume)
}

// BuildDam raises r and rebuilds the pools it touches.
func (w *World) BuildDam(r Rect) error {
	if err := w.pools.BuildDam(r, w.cfg.Params.Dam.Raise); err != nil {
		return err
	}
	w.refreshDisplay()
	return nil
}

// Flooded reports whether the node at (x, y) holds standing water.
func (w *World) Flooded(x, y int) bool {
	if !w.heights.InBounds(x, y) {
		return false
	}
	return w.pools.Wet(core.Cell{X: x, Y: y})
}

// TracePath returns the cells a pool droplet from start would cross.
func (w *World) TracePath(start core.Cell) ([]core.Cell, error) {
	return w.pools.TracePath(start)
}

// MeasuredVolume sums water above terrain over p's members.
func (w *World) MeasuredVolume(p *Pool) float64 { return w.pools.measured(p) }

// Audit checks the pool invariants: registry agreement, every wet node
// claimed, members at one level, and tracked volume matching the grid.
func (w *World) Audit() error { return w.pools.Audit() }

// Summary is a point-in-time digest of a world.
type Summary struct {
	Phase     string  `json:"phase"`
	Pools     int     `json:"pools"`
	Flooded   int     `json:"flooded_cells"`
	Volume    float64 `json:"volume"`
	InTransit float64 `json:"sediment_in_transit"`
	Stats     Stats   `json:"stats"`
}

// Summary reports pool counts, flooded area and measured water volume.
func (w *World) Summary() Summary {
	s := Summary{
		Phase:     w.phase.String(),
		Pools:     w.Registry().Len(),
		InTransit: w.eroder.InTransit(),
		Stats:     w.pools.Stats(),
	}
	for _, p := range w.Registry().Pools() {
		s.Flooded += p.Len()
		s.Volume += w.pools.measured(p)
	}
	return s
}

// Leaks returns the overflow candidate of every pool that has one.
func (w *World) Leaks() []core.Cell {
	var out []core.Cell
	for _, p := range w.Registry().Pools() {
		if pt, ok := p.Leak(); ok {
			out = append(out, pt.Cell())
		}
	}
	return out
}

// resync dries unclaimed nodes after the terrain moved under them, re-levels
// every pool and adopts the measured volume.
func (e *PoolEngine) resync() error {
	size := e.heights.Size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if _, ok := e.reg.Owner(core.Cell{X: x, Y: y}); !ok {
				e.water.Set(x, y, e.heights.At(x, y))
			}
		}
	}
	for _, p := range e.reg.Pools() {
		for i := range p.cells {
			p.cells[i].Height = e.heights.At(p.cells[i].X, p.cells[i].Y)
		}
		e.levelCorrection(p)
		p.volume = e.measured(p)
	}
	return e.CorrectAll()
}

func (e *PoolEngine) measured(p *Pool) float64 {
	sum := 0.0
	for _, m := range p.cells {
		sum += e.water.At(m.X, m.Y) - e.heights.At(m.X, m.Y)
	}
	return sum
}

// Audit verifies the engine invariants.
func (e *PoolEngine) Audit() error {
	if err := e.reg.Check(); err != nil {
		return err
	}
	size := e.heights.Size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := core.Cell{X: x, Y: y}
			if _, ok := e.reg.Owner(c); !ok && e.Wet(c) {
				return fmt.Errorf("%w: %d,%d", ErrUntrackedWater, x, y)
			}
		}
	}
	for _, p := range e.reg.pools {
		if len(p.cells) == 0 {
			return fmt.Errorf("pool %d has no members", p.id)
		}
		rep := p.representative()
		level := e.water.At(rep.X, rep.Y)
		tol := 1e-9 * (1 + math.Abs(level))
		for _, m := range p.cells {
			l := e.water.At(m.X, m.Y)
			if math.Abs(l-level) > tol {
				return fmt.Errorf("pool %d: member %d,%d level %v, pool level %v", p.id, m.X, m.Y, l, level)
			}
			if t := e.heights.At(m.X, m.Y); l < t-tol {
				return fmt.Errorf("pool %d: member %d,%d level %v below terrain %v", p.id, m.X, m.Y, l, t)
			}
		}
		if got := e.measured(p); math.Abs(got-p.volume) > 1e-6*(1+p.volume) {
			return fmt.Errorf("pool %d: tracked volume %v, measured %v", p.id, p.volume, got)
		}
	}
	return nil
}

// newFromMap is the registry factory. A flag map that does not validate falls
// back to DefaultConfig so the viewer always gets a runnable world.
func newFromMap(cfg map[string]string) core.Sim {
	c := FromMap(cfg)
	if err := c.Validate(); err != nil {
		slog.Warn("hydro: invalid config, using defaults", "err", err)
		c = DefaultConfig()
	}
	return NewWithConfig(c)
}

func init() {
	core.Register("hydro", newFromMap)
}
