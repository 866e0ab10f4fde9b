package hydro

import (
	"image/color"
	"math"
)

const (
	displayWaterBit   = 0x80
	displayLevelMask  = 0x7f
	displayLevelSteps = displayLevelMask + 1
)

var hydroPalette = buildHydroPalette()

// Palette exposes the color palette used for rendering the hydro world.
// Indices below 128 shade terrain from low to high; indices from 128 shade
// water from shallow to deep.
func (w *World) Palette() []color.RGBA {
	return hydroPalette
}

func buildHydroPalette() []color.RGBA {
	palette := make([]color.RGBA, 2*displayLevelSteps)
	lowland := color.NRGBA{R: 62, G: 120, B: 52, A: 255}
	highland := color.NRGBA{R: 150, G: 118, B: 82, A: 255}
	peak := color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	shallow := color.NRGBA{R: 96, G: 170, B: 230, A: 255}
	deep := color.NRGBA{R: 18, G: 48, B: 130, A: 255}

	for i := 0; i < displayLevelSteps; i++ {
		t := float64(i) / float64(displayLevelSteps-1)
		var land color.NRGBA
		if t < 0.7 {
			land = blendColors(lowland, highland, t/0.7)
		} else {
			land = blendColors(highland, peak, (t-0.7)/0.3)
		}
		palette[i] = toRGBA(land)
		palette[displayWaterBit|i] = toRGBA(blendColors(shallow, deep, t))
	}
	return palette
}

func toRGBA(c color.NRGBA) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func blendColors(base, overlay color.NRGBA, overlayWeight float64) color.NRGBA {
	if overlayWeight <= 0 {
		return base
	}
	if overlayWeight >= 1 {
		return overlay
	}
	inv := 1 - overlayWeight
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*inv + float64(b)*overlayWeight))
	}
	return color.NRGBA{R: mix(base.R, overlay.R), G: mix(base.G, overlay.G), B: mix(base.B, overlay.B), A: 255}
}

// refreshDisplay encodes terrain height, or water depth on flooded nodes,
// into palette indices.
func (w *World) refreshDisplay() {
	size := w.heights.Size
	if len(w.display) != size*size {
		w.display = make([]uint8, size*size)
	}
	if size == 0 {
		return
	}
	lo, hi := w.heights.MinMax()
	span := hi - lo

	water := w.pools.Water()
	maxDepth := 0.0
	for i, h := range w.heights.Cells() {
		maxDepth = math.Max(maxDepth, water.Cells()[i]-h)
	}

	for i, h := range w.heights.Cells() {
		if depth := water.Cells()[i] - h; depth > 0 && maxDepth > 0 {
			w.display[i] = displayWaterBit | quantize(depth/maxDepth)
			continue
		}
		level := 0.0
		if span > 0 {
			level = (h - lo) / span
		}
		w.display[i] = quantize(level)
	}
}

func quantize(v float64) uint8 {
	n := int(v * float64(displayLevelMask))
	if n < 0 {
		n = 0
	}
	if n > displayLevelMask {
		n = displayLevelMask
	}
	return uint8(n)
}
