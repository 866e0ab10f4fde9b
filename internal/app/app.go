//go:build ebiten

package app

import (
	"image/color"
	"log/slog"
	"time"

	"hydrosim/internal/core"
	"hydrosim/internal/render"
	"hydrosim/internal/sims/hydro"
	"hydrosim/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type paletteProvider interface {
	Palette() []color.RGBA
}

type damBuilder interface {
	BuildDam(r hydro.Rect) error
}

type poolResetter interface {
	ResetPools()
}

// Game adapts a core simulation to the ebiten.Game interface. Batches run at
// most once per clock interval.
type Game struct {
	sim     core.Sim
	painter *render.GridPainter
	overlay *ui.Overlay
	hud     *ui.HUD
	clock   *core.BatchClock
	log     *slog.Logger

	scale    int
	panel    int
	paused   bool
	tickOnce bool
	seed     int64
}

// New constructs a Game for the provided simulation.
func New(sim core.Sim, cfg *Config, log *slog.Logger) *Game {
	gp := render.NewGridPainter(sim.Size().W, sim.Size().H)
	return &Game{
		sim:     sim,
		painter: gp,
		overlay: ui.NewOverlay(sim, cfg.Scale),
		hud:     ui.NewHUD(sim, cfg.Panel),
		clock:   core.NewBatchClock(cfg.Interval),
		log:     log,
		scale:   cfg.Scale,
		panel:   cfg.Panel,
		seed:    cfg.Seed,
	}
}

// Reset reinitializes the simulation state with the provided seed.
func (g *Game) Reset(seed int64) {
	g.seed = seed
	g.sim.Reset(seed)
	g.tickOnce = false
}

// Update handles per-frame logic and advances the simulation.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Reset(g.seed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.Reset(time.Now().UnixNano())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		if r, ok := g.sim.(poolResetter); ok {
			r.ResetPools()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		next := nextInterval(g.clock.Interval(), inpututil.IsKeyJustPressed(ebiten.KeyEqual))
		g.clock.SetInterval(next)
		g.log.Debug("batch interval", "interval", next)
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.buildDamAtCursor()
	}

	g.overlay.Update()
	g.hud.Update()

	if g.tickOnce || (!g.paused && g.clock.Ready()) {
		g.sim.Step()
		g.tickOnce = false
	}
	return nil
}

// buildDamAtCursor raises a 3x3 block centred on the cursor.
func (g *Game) buildDamAtCursor() {
	b, ok := g.sim.(damBuilder)
	if !ok {
		return
	}
	size := g.sim.Size()
	c, ok := ui.CursorCell(size, g.scale)
	if !ok {
		return
	}
	r := hydro.Rect{X0: max(c.X-1, 0), Y0: max(c.Y-1, 0), X1: min(c.X+2, size.W), Y1: min(c.Y+2, size.H)}
	if err := b.BuildDam(r); err != nil {
		g.log.Warn("dam rejected", "x", c.X, "y", c.Y, "err", err)
	}
}

// Draw renders the current simulation state.
func (g *Game) Draw(screen *ebiten.Image) {
	var palette []color.RGBA
	if p, ok := g.sim.(paletteProvider); ok {
		palette = p.Palette()
	}
	g.painter.Blit(screen, g.sim.Cells(), palette, g.scale)
	g.overlay.Draw(screen)
	g.hud.Draw(screen, g.sim.Size().W*g.scale, g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.sim.Size()
	return s.W*g.scale + g.panel, s.H * g.scale
}
