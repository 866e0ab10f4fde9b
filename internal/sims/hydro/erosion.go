package hydro

import (
	"fmt"
	"math"

	"hydrosim/internal/core"
)

// Eroder runs droplet erosion over a height grid. It caches the brush for the
// last (size, radius) pair it saw.
type Eroder struct {
	params ErosionParams
	rng    *core.RNG
	brush  *Brush

	// Sediment still carried by droplets when they terminated during the
	// last Erode call.
	inTransit float64
}

// NewEroder builds an eroder with its own seeded random stream.
func NewEroder(params ErosionParams, seed int64) *Eroder {
	return &Eroder{params: params, rng: core.NewRNG(seed)}
}

// Params returns the erosion tunables.
func (e *Eroder) Params() ErosionParams { return e.params }

// SetParams replaces the tunables; a changed radius rebuilds the brush on the
// next pass.
func (e *Eroder) SetParams(p ErosionParams) { e.params = p }

// InTransit reports the sediment left suspended by the previous Erode call.
func (e *Eroder) InTransit() float64 { return e.inTransit }

// CheckGrid verifies the grid is large enough for the erosion radius.
func CheckGrid(size, radius int) error {
	if size < 2*radius+2 {
		return fmt.Errorf("%w: size %d, radius %d", ErrGridTooSmall, size, radius)
	}
	return nil
}

// Erode simulates iterations droplets, mutating heights in place.
func (e *Eroder) Erode(heights *core.Grid, iterations int) error {
	size := heights.Size
	radius := e.params.Radius
	if err := CheckGrid(size, radius); err != nil {
		return err
	}
	if !e.brush.Matches(size, radius) {
		e.brush = BuildBrush(size, radius)
	}

	e.inTransit = 0
	for i := 0; i < iterations; i++ {
		x := float64(e.rng.IntRange(radius, size-1-radius))
		y := float64(e.rng.IntRange(radius, size-1-radius))
		d := NewDroplet(x, y, e.params.InitialSpeed, e.params.InitialWaterVolume)
		e.inTransit += e.run(heights, &d)
	}
	return nil
}

// run traces a single droplet and returns the sediment it still carries when
// it terminates.
func (e *Eroder) run(heights *core.Grid, d *Droplet) float64 {
	p := e.params
	k := Kinematics{Inertia: p.Inertia, Gravity: p.Gravity, EvaporateSpeed: p.EvaporateSpeed}
	cells := heights.Cells()
	size := heights.Size

	for life := 0; life < p.MaxLifetime; life++ {
		step, outcome := d.Advance(heights, k)
		if outcome != StepMoved {
			return d.Sediment
		}

		dh := step.DeltaHeight()
		capacity := math.Max(-dh*d.Speed*d.Volume*p.SedimentCapacityFactor, p.MinSedimentCapacity)

		if d.Sediment > capacity || dh > 0 {
			var amount float64
			if dh > 0 {
				amount = math.Min(dh, d.Sediment)
			} else {
				amount = (d.Sediment - capacity) * p.DepositSpeed
			}
			d.Sediment -= amount

			// Deposition stays on the four corners of the old cell so pits fill.
			nw := step.Cell.Y*size + step.Cell.X
			ox, oy := step.OffsetX, step.OffsetY
			cells[nw] += amount * (1 - ox) * (1 - oy)
			cells[nw+1] += amount * ox * (1 - oy)
			cells[nw+size] += amount * (1 - ox) * oy
			cells[nw+size+1] += amount * ox * oy
		} else {
			amount := math.Min((capacity-d.Sediment)*p.ErodeSpeed, -dh)
			indices, weights := e.brush.At(step.Cell.X, step.Cell.Y)
			for i, idx := range indices {
				want := amount * weights[i]
				removed := math.Min(cells[idx], want)
				if removed < 0 {
					removed = 0
				}
				cells[idx] -= removed
				d.Sediment += removed
			}
		}

		d.Settle(dh, k)
		if d.Volume <= p.MinVolume {
			return d.Sediment
		}
	}
	return d.Sediment
}
