//go:build ebiten

package ui

import (
	"image/color"
	"math"

	"hydrosim/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type pathTracer interface {
	TracePath(start core.Cell) ([]core.Cell, error)
}

type leakProvider interface {
	Leaks() []core.Cell
}

// Overlay draws optional debugging visuals on top of the base simulation:
// the path a droplet dropped under the cursor would take (key 1) and the
// overflow candidate of every pool (key 2).
type Overlay struct {
	sim       core.Sim
	scale     int
	showPath  bool
	showLeaks bool
	path      []core.Cell
	pixel     *ebiten.Image
}

// NewOverlay constructs a new overlay instance.
func NewOverlay(sim core.Sim, scale int) *Overlay {
	o := &Overlay{sim: sim, scale: scale}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update toggles layers and re-traces the cursor path.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit1) {
		o.showPath = !o.showPath
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit2) {
		o.showLeaks = !o.showLeaks
	}
	o.path = o.path[:0]
	if !o.showPath {
		return
	}
	tracer, ok := o.sim.(pathTracer)
	if !ok {
		return
	}
	cell, ok := CursorCell(o.sim.Size(), o.scale)
	if !ok {
		return
	}
	if path, err := tracer.TracePath(cell); err == nil {
		o.path = append(o.path, path...)
	}
}

// Draw renders the enabled layers onto screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	scale := float64(o.scale)
	if scale <= 0 {
		scale = 1
	}
	center := func(c core.Cell) (float64, float64) {
		return (float64(c.X) + 0.5) * scale, (float64(c.Y) + 0.5) * scale
	}

	pathColor := color.RGBA{R: 255, G: 230, B: 90, A: 230}
	for i := 1; i < len(o.path); i++ {
		x1, y1 := center(o.path[i-1])
		x2, y2 := center(o.path[i])
		o.drawLine(screen, x1, y1, x2, y2, math.Max(1, scale/3), pathColor)
	}
	if len(o.path) > 0 {
		x, y := center(o.path[len(o.path)-1])
		o.drawPoint(screen, x, y, math.Max(3, scale), pathColor)
	}

	if !o.showLeaks {
		return
	}
	if provider, ok := o.sim.(leakProvider); ok {
		for _, c := range provider.Leaks() {
			x, y := center(c)
			o.drawPoint(screen, x, y, math.Max(2, scale*0.8), color.RGBA{R: 240, G: 60, B: 60, A: 255})
		}
	}
}

// CursorCell maps the mouse position to a grid node.
func CursorCell(size core.Size, scale int) (core.Cell, bool) {
	if scale <= 0 {
		scale = 1
	}
	mx, my := ebiten.CursorPosition()
	c := core.Cell{X: mx / scale, Y: my / scale}
	if mx < 0 || my < 0 || c.X >= size.W || c.Y >= size.H {
		return core.Cell{}, false
	}
	return c, true
}

func (o *Overlay) drawPoint(screen *ebiten.Image, x, y, size float64, col color.RGBA) {
	if o.pixel == nil || size <= 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(size, size)
	op.GeoM.Translate(x-size*0.5, y-size*0.5)
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(o.pixel, op)
}

func (o *Overlay) drawLine(screen *ebiten.Image, x1, y1, x2, y2, thickness float64, col color.RGBA) {
	if o.pixel == nil || thickness <= 0 {
		return
	}
	dx := x2 - x1
	dy := y2 - y1
	length := math.Hypot(dx, dy)
	if length <= 1e-4 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(length, thickness)
	op.GeoM.Translate(0, -thickness/2)
	op.GeoM.Rotate(math.Atan2(dy, dx))
	op.GeoM.Translate(x1, y1)
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(o.pixel, op)
}
