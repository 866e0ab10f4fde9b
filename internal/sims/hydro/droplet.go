package hydro

import (
	"math"

	"hydrosim/internal/core"
)

// Droplet is a transient unit of water traced across the height field.
type Droplet struct {
	X, Y       float64
	DirX, DirY float64
	Speed      float64
	Volume     float64
	Sediment   float64
}

// Kinematics are the droplet motion parameters shared by erosion and pool
// formation.
type Kinematics struct {
	Inertia        float64
	Gravity        float64
	EvaporateSpeed float64
}

// StepOutcome describes how a droplet step ended.
type StepOutcome uint8

const (
	// StepMoved means the droplet advanced one unit and both samples were valid.
	StepMoved StepOutcome = iota
	// StepStalled means the blended direction was exactly zero.
	StepStalled
	// StepLeftGrid means the next position fell outside [0, size-1).
	StepLeftGrid
)

// Step records what one advance saw. Cell and offsets refer to the position
// the droplet left.
type Step struct {
	Cell      core.Cell
	OffsetX   float64
	OffsetY   float64
	OldHeight float64
	NewHeight float64
}

// DeltaHeight is positive when the droplet moved uphill.
func (s Step) DeltaHeight() float64 { return s.NewHeight - s.OldHeight }

// NewDroplet spawns a droplet at rest at (x, y).
func NewDroplet(x, y, speed, volume float64) Droplet {
	return Droplet{X: x, Y: y, Speed: speed, Volume: volume}
}

// Cell returns the grid node whose cell currently contains the droplet.
func (d *Droplet) Cell() core.Cell {
	return core.Cell{X: int(d.X), Y: int(d.Y)}
}

// Advance blends the droplet direction with the local downhill gradient and
// moves it one unit. On StepStalled and StepLeftGrid the position is left
// unchanged so the droplet still sits in a valid cell.
func (d *Droplet) Advance(heights *core.Grid, k Kinematics) (Step, StepOutcome) {
	old, ok := heights.SampleAt(d.X, d.Y)
	if !ok {
		return Step{}, StepLeftGrid
	}

	cx, cy := int(d.X), int(d.Y)
	step := Step{
		Cell:      core.Cell{X: cx, Y: cy},
		OffsetX:   d.X - float64(cx),
		OffsetY:   d.Y - float64(cy),
		OldHeight: old.Height,
	}

	dirX := d.DirX*k.Inertia - old.GradientX*(1-k.Inertia)
	dirY := d.DirY*k.Inertia - old.GradientY*(1-k.Inertia)
	length := math.Hypot(dirX, dirY)
	if length == 0 {
		d.DirX, d.DirY = 0, 0
		return step, StepStalled
	}
	dirX /= length
	dirY /= length
	d.DirX, d.DirY = dirX, dirY

	nx, ny := d.X+dirX, d.Y+dirY
	next, ok := heights.SampleAt(nx, ny)
	if !ok {
		return step, StepLeftGrid
	}
	d.X, d.Y = nx, ny
	step.NewHeight = next.Height
	return step, StepMoved
}

// Settle applies the speed and evaporation update after a move, using
// speed^2 + deltaHeight*gravity clamped at zero.
func (d *Droplet) Settle(deltaHeight float64, k Kinematics) {
	d.Speed = math.Sqrt(math.Max(0, d.Speed*d.Speed+deltaHeight*k.Gravity))
	d.Volume *= 1 - k.EvaporateSpeed
}
