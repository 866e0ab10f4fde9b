package hydro

import (
	"context"
	"fmt"
	"log/slog"

	"hydrosim/internal/core"
)

// Stats counts pool engine events since the last reset.
type Stats struct {
	Droplets  int `json:"droplets"`
	Created   int `json:"created"`
	Joined    int `json:"joined"`
	Dropped   int `json:"dropped"`
	Absorbed  int `json:"absorbed"`
	Removed   int `json:"removed"`
	Merges    int `json:"merges"`
	Evictions int `json:"evictions"`
}

// PoolEngine grows standing water on a height grid. Water holds the water
// surface per node; a dry node holds its terrain height.
type PoolEngine struct {
	heights *core.Grid
	water   *core.Grid
	reg     *Registry
	params  PoolParams
	rng     *core.RNG
	stats   Stats
	log     *slog.Logger

	// guard bounds the steps of one correction fixpoint.
	guard int
}

// NewPoolEngine returns an engine with no pools over heights. The engine keeps
// the grid and reads it on every operation.
func NewPoolEngine(heights *core.Grid, params PoolParams, seed int64) *PoolEngine {
	e := &PoolEngine{
		heights: heights,
		water:   heights.Clone(),
		reg:     NewRegistry(),
		params:  params,
		rng:     core.NewRNG(seed),
		log:     slog.New(discardHandler{}),
	}
	e.guard = 16*heights.Size*heights.Size + 64
	return e
}

// SetLogger routes engine diagnostics to l.
func (e *PoolEngine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.log = l
	}
}

// Params returns the pool tunables.
func (e *PoolEngine) Params() PoolParams { return e.params }

// SetParams replaces the pool tunables.
func (e *PoolEngine) SetParams(p PoolParams) { e.params = p }

// Registry returns the live pools.
func (e *PoolEngine) Registry() *Registry { return e.reg }

// Water returns the water surface grid.
func (e *PoolEngine) Water() *core.Grid { return e.water }

// Stats returns the event counters.
func (e *PoolEngine) Stats() Stats { return e.stats }

// Reset drops every pool, dries the map and reseeds the droplet stream.
func (e *PoolEngine) Reset(seed int64) {
	e.water.CopyFrom(e.heights)
	e.reg = NewRegistry()
	e.rng = core.NewRNG(seed)
	e.stats = Stats{}
}

// Wet reports whether the node holds water above its terrain.
func (e *PoolEngine) Wet(c core.Cell) bool {
	return e.water.At(c.X, c.Y) > e.heights.At(c.X, c.Y)
}

// Depth returns water above terrain at c, zero when dry.
func (e *PoolEngine) Depth(c core.Cell) float64 {
	d := e.water.At(c.X, c.Y) - e.heights.At(c.X, c.Y)
	if d < 0 {
		return 0
	}
	return d
}

func (e *PoolEngine) point(c core.Cell) Point {
	return Point{X: c.X, Y: c.Y, Height: e.heights.At(c.X, c.Y)}
}

func (e *PoolEngine) kinematics() Kinematics {
	return Kinematics{
		Inertia:        e.params.Inertia,
		Gravity:        e.params.Gravity,
		EvaporateSpeed: e.params.EvaporateSpeed,
	}
}

// inGrid reports whether (x, y) is a node droplets may spawn on.
func inGrid(size, x, y int) bool {
	return x >= 0 && y >= 0 && x < size-1 && y < size-1
}

// Generate drops iterations droplets and lets each one join, create or miss a
// pool. Droplets spawn at start when it is non-nil, otherwise uniformly.
func (e *PoolEngine) Generate(iterations int, start *core.Cell) error {
	size := e.heights.Size
	if size < 2 {
		return fmt.Errorf("%w: size %d", ErrGridTooSmall, size)
	}
	if start != nil && !inGrid(size, start.X, start.Y) {
		return fmt.Errorf("%w: start %d,%d outside grid of %d", ErrOutOfRange, start.X, start.Y, size)
	}

	for i := 0; i < iterations; i++ {
		var x, y int
		if start != nil {
			x, y = start.X, start.Y
		} else {
			x = e.rng.IntN(size - 1)
			y = e.rng.IntN(size - 1)
		}
		d := NewDroplet(float64(x), float64(y), e.params.InitialSpeed, e.params.InitialWaterVolume)
		if err := e.drop(&d); err != nil {
			return fmt.Errorf("droplet %d: %w", i, err)
		}
	}
	return e.CorrectAll()
}

// drop traces one droplet until it stops, then resolves where its water goes.
func (e *PoolEngine) drop(d *Droplet) error {
	e.stats.Droplets++
	k := e.kinematics()
	minVolume := e.params.MinVolumeFraction * d.Volume
	uphill := false

	for life := 0; life < e.params.MaxLifetime; life++ {
		if c := d.Cell(); e.Wet(c) {
			return e.join(c, d.Volume)
		}
		step, outcome := d.Advance(e.heights, k)
		if outcome != StepMoved {
			break
		}
		dh := step.DeltaHeight()
		uphill = dh > 0
		if !uphill {
			d.Settle(dh, k)
		}
		if d.Volume <= minVolume {
			break
		}
	}

	c := d.Cell()
	switch {
	case e.Wet(c):
		return e.join(c, d.Volume)
	case uphill:
		return e.create(c, d.Volume)
	default:
		e.stats.Dropped++
		return nil
	}
}

// AddWater pours volume onto the node, joining the pool there or starting a
// new one.
func (e *PoolEngine) AddWater(c core.Cell, volume float64) error {
	if !e.heights.InBounds(c.X, c.Y) {
		return fmt.Errorf("%w: cell %d,%d", ErrOutOfRange, c.X, c.Y)
	}
	if volume <= 0 {
		return fmt.Errorf("%w: volume %v", ErrOutOfRange, volume)
	}
	if e.Wet(c) {
		return e.join(c, volume)
	}
	return e.create(c, volume)
}

func (e *PoolEngine) join(c core.Cell, volume float64) error {
	p, ok := e.reg.Owner(c)
	if !ok {
		return fmt.Errorf("%w: %d,%d", ErrUntrackedWater, c.X, c.Y)
	}
	e.stats.Joined++
	p.volume += volume
	e.spread(p, volume)
	return e.correct(p)
}

func (e *PoolEngine) create(c core.Cell, volume float64) error {
	if p, ok := e.reg.Owner(c); ok {
		e.stats.Joined++
		p.volume += volume
		e.spread(p, volume)
		return e.correct(p)
	}
	pt := e.point(c)
	e.water.Set(c.X, c.Y, pt.Height+volume)
	p := e.reg.create(pt, volume)
	e.stats.Created++
	e.log.Debug("pool created", "pool", p.id, "x", c.X, "y", c.Y)
	return e.correct(p)
}

// spread raises every member by an equal share of volume.
func (e *PoolEngine) spread(p *Pool, volume float64) {
	if len(p.cells) == 0 {
		return
	}
	share := volume / float64(len(p.cells))
	for _, m := range p.cells {
		e.water.Add(m.X, m.Y, share)
	}
}

// CorrectAll runs a correction pass over every live pool.
func (e *PoolEngine) CorrectAll() error {
	for _, p := range e.reg.Pools() {
		if !e.reg.live(p) {
			continue
		}
		if err := e.correct(p); err != nil {
			return err
		}
	}
	return nil
}

// TracePath follows a pool droplet from start without touching any grid and
// returns the cells it visits, ending where it would resolve.
func (e *PoolEngine) TracePath(start core.Cell) ([]core.Cell, error) {
	if !inGrid(e.heights.Size, start.X, start.Y) {
		return nil, fmt.Errorf("%w: start %d,%d", ErrOutOfRange, start.X, start.Y)
	}
	d := NewDroplet(float64(start.X), float64(start.Y), e.params.InitialSpeed, e.params.InitialWaterVolume)
	k := e.kinematics()
	minVolume := e.params.MinVolumeFraction * d.Volume
	path := []core.Cell{start}

	for life := 0; life < e.params.MaxLifetime; life++ {
		if e.Wet(d.Cell()) {
			break
		}
		step, outcome := d.Advance(e.heights, k)
		if outcome != StepMoved {
			break
		}
		if c := d.Cell(); c != path[len(path)-1] {
			path = append(path, c)
		}
		if dh := step.DeltaHeight(); dh <= 0 {
			d.Settle(dh, k)
		}
		if d.Volume <= minVolume {
			break
		}
	}
	return path, nil
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
