//go:build ebiten

package ui

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"hydrosim/internal/core"
	"hydrosim/internal/sims/hydro"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

type parameterProvider interface {
	Parameters() core.ParameterSnapshot
}

type summaryProvider interface {
	Summary() hydro.Summary
}

// HUD renders run statistics and the adjustable parameters to the right of
// the simulation view. Up/Down select a control, Left/Right adjust it.
type HUD struct {
	sim   core.Sim
	width int
	panel *ebiten.Image

	controls    []core.ParameterControl
	values      map[string]core.Parameter
	selected    int
	intSetter   core.IntParameterSetter
	floatSetter core.FloatParameterSetter

	summary    hydro.Summary
	hasSummary bool
}

// NewHUD constructs a HUD for the provided simulation and panel width.
func NewHUD(sim core.Sim, width int) *HUD {
	if width < 0 {
		width = 0
	}
	h := &HUD{sim: sim, width: width, values: map[string]core.Parameter{}}
	if provider, ok := sim.(core.ParameterControlsProvider); ok {
		h.controls = provider.ParameterControls()
	}
	if setter, ok := sim.(core.IntParameterSetter); ok {
		h.intSetter = setter
	}
	if setter, ok := sim.(core.FloatParameterSetter); ok {
		h.floatSetter = setter
	}
	return h
}

// Update refreshes cached values and handles keyboard adjustments.
func (h *HUD) Update() {
	if h == nil {
		return
	}
	if provider, ok := h.sim.(parameterProvider); ok {
		for _, group := range provider.Parameters().Groups {
			for _, p := range group.Params {
				h.values[p.Key] = p
			}
		}
	}
	if provider, ok := h.sim.(summaryProvider); ok {
		h.summary, h.hasSummary = provider.Summary(), true
	}
	if len(h.controls) == 0 {
		return
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		h.selected = (h.selected + 1) % len(h.controls)
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		h.selected = (h.selected + len(h.controls) - 1) % len(h.controls)
	case inpututil.IsKeyJustPressed(ebiten.KeyRight):
		h.adjust(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft):
		h.adjust(-1)
	}
}

func (h *HUD) adjust(direction int) {
	ctrl := h.controls[h.selected]
	current, ok := h.values[ctrl.Key]
	if !ok {
		return
	}
	switch ctrl.Type {
	case core.ParamTypeInt:
		v, err := strconv.Atoi(current.Value)
		if err != nil || h.intSetter == nil {
			return
		}
		step := int(math.Max(1, math.Round(ctrl.Step)))
		h.intSetter.SetIntParameter(ctrl.Key, v+direction*step)
	case core.ParamTypeFloat:
		v, err := strconv.ParseFloat(current.Value, 64)
		if err != nil || h.floatSetter == nil {
			return
		}
		h.floatSetter.SetFloatParameter(ctrl.Key, v+float64(direction)*ctrl.Step)
	}
}

// Draw paints the panel at offsetX.
func (h *HUD) Draw(screen *ebiten.Image, offsetX int, scale int) {
	if h == nil || h.width <= 0 {
		return
	}
	if scale <= 0 {
		scale = 1
	}
	height := h.sim.Size().H * scale
	if height <= 0 {
		return
	}
	if h.panel == nil || h.panel.Bounds().Dx() != h.width || h.panel.Bounds().Dy() != height {
		h.panel = ebiten.NewImage(h.width, height)
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})

	face := basicfont.Face7x13
	title := color.RGBA{R: 200, G: 200, B: 210, A: 255}
	body := color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dim := color.RGBA{R: 150, G: 150, B: 160, A: 255}
	highlight := color.RGBA{R: 120, G: 190, B: 255, A: 255}

	y := panelPadding + lineHeight
	text.Draw(h.panel, h.sim.Name(), face, panelPadding, y, title)
	if h.hasSummary {
		s := h.summary
		for _, line := range []string{
			fmt.Sprintf("phase    %s", s.Phase),
			fmt.Sprintf("pools    %d", s.Pools),
			fmt.Sprintf("flooded  %d", s.Flooded),
			fmt.Sprintf("volume   %.3f", s.Volume),
			fmt.Sprintf("merges   %d", s.Stats.Merges),
			fmt.Sprintf("dropped  %d", s.Stats.Dropped),
		} {
			y += lineHeight
			text.Draw(h.panel, line, face, panelPadding, y, body)
		}
	}

	y += lineHeight
	for i, ctrl := range h.controls {
		y += lineHeight
		col := dim
		if i == h.selected {
			col = highlight
		}
		value := "--"
		if p, ok := h.values[ctrl.Key]; ok {
			value = formatValue(ctrl, p.Value)
		}
		text.Draw(h.panel, fmt.Sprintf("%-20s %s", ctrl.Label, value), face, panelPadding, y, col)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}

func formatValue(ctrl core.ParameterControl, raw string) string {
	if ctrl.Type != core.ParamTypeFloat {
		return raw
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	precision := 1
	switch {
	case ctrl.Step < 0.001:
		precision = 4
	case ctrl.Step < 0.01:
		precision = 3
	case ctrl.Step < 0.1:
		precision = 2
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

const (
	panelPadding = 12
	lineHeight   = 16
)
