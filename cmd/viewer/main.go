//go:build ebiten

package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"hydrosim/internal/app"
	"hydrosim/internal/core"
	"hydrosim/internal/sims/hydro"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	if f := flag.Lookup("sim"); f != nil {
		f.Usage = "simulation to run: " + strings.Join(core.SimNames(), ", ")
	}
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sim, err := newSim(cfg)
	if err != nil {
		logger.Error("create sim", "err", err)
		os.Exit(1)
	}
	if w, ok := sim.(*hydro.World); ok {
		w.SetLogger(logger)
	}
	sim.Reset(cfg.Seed)

	game := app.New(sim, cfg, logger)
	size := sim.Size()

	ebiten.SetWindowTitle("hydrosim - " + sim.Name())
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(size.W*cfg.Scale+cfg.Panel, size.H*cfg.Scale)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		logger.Error("viewer stopped", "err", err)
		os.Exit(1)
	}
}

// newSim builds the selected simulation. A hydro config file takes precedence
// over the registry defaults.
func newSim(cfg *app.Config) (core.Sim, error) {
	if cfg.Config != "" {
		c, err := hydro.LoadFile(cfg.Config)
		if err != nil {
			return nil, err
		}
		return hydro.NewWithConfig(c), nil
	}
	factory, ok := core.Sims()[cfg.Sim]
	if !ok {
		return nil, fmt.Errorf("unknown sim %q (have %s)", cfg.Sim, strings.Join(core.SimNames(), ", "))
	}
	return factory(nil), nil
}
