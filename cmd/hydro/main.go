package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"hydrosim/internal/persistence/runindex"
	"hydrosim/internal/render"
	"hydrosim/internal/sims/hydro"
)

type options struct {
	config   string
	seed     int64
	size     int
	erosion  int
	pools    int
	start    string
	dam      string
	snapshot string
	index    string
	label    string
	png      string
	verbose  bool
	sets     overrides
}

// overrides collects repeated -set key=value flags.
type overrides []string

func (o *overrides) String() string { return strings.Join(*o, ",") }

func (o *overrides) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*o = append(*o, v)
	return nil
}

// apply sets each pair on cfg. Unknown keys and unparsable values are errors.
func (o overrides) apply(cfg *hydro.Config) error {
	for _, kv := range o {
		key, value, _ := strings.Cut(kv, "=")
		if !hydro.ApplyOverride(cfg, strings.TrimSpace(key), strings.TrimSpace(value)) {
			return fmt.Errorf("bad override %q", kv)
		}
	}
	return nil
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "", "YAML config file")
	flag.Int64Var(&opts.seed, "seed", 0, "terrain and droplet seed (0 keeps the config seed)")
	flag.IntVar(&opts.size, "size", 0, "visible map edge (0 keeps the config size)")
	flag.IntVar(&opts.erosion, "erosion", -1, "erosion droplets (-1 keeps the config count)")
	flag.IntVar(&opts.pools, "pools", -1, "pool droplets (-1 keeps the config count)")
	flag.StringVar(&opts.start, "start", "", "spawn every pool droplet at x,y")
	flag.StringVar(&opts.dam, "dam", "", "build a dam over x0,y0,x1,y1 after pools settle")
	flag.StringVar(&opts.snapshot, "snapshot", "", "write a compressed snapshot to this path")
	flag.StringVar(&opts.index, "index", "", "record the run in this SQLite index")
	flag.StringVar(&opts.label, "label", "cli", "run label stored in the index")
	flag.StringVar(&opts.png, "png", "", "render the final map to this PNG")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Var(&opts.sets, "set", "override a config key, e.g. -set epsilon=0.02 (repeatable)")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), opts, logger); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	var dam *hydro.Rect
	if opts.dam != "" {
		r, err := hydro.ParseRect(opts.dam)
		if err != nil {
			return err
		}
		if err := r.Validate(cfg.GridSize()); err != nil {
			return err
		}
		dam = &r
	}

	world := hydro.NewWithConfig(cfg)
	world.SetLogger(logger)
	world.Reset(0)

	logger.Info("eroding", "size", world.Size().W, "droplets", cfg.ErosionIterations, "seed", cfg.Seed)
	if err := world.Erode(cfg.ErosionIterations); err != nil {
		return fmt.Errorf("erode: %w", err)
	}
	logger.Info("forming pools", "droplets", cfg.PoolIterations)
	if err := world.GeneratePools(cfg.PoolIterations, cfg.Start); err != nil {
		return fmt.Errorf("pools: %w", err)
	}
	if dam != nil {
		if err := world.BuildDam(*dam); err != nil {
			return err
		}
		logger.Info("dam built", "rect", opts.dam, "pools", world.Registry().Len())
	}
	if err := world.Audit(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	summary := world.Summary()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}

	if opts.snapshot != "" {
		if err := world.SaveSnapshot(opts.snapshot); err != nil {
			return err
		}
		logger.Info("snapshot written", "path", opts.snapshot)
	}
	if opts.png != "" {
		size := world.Size()
		img, err := render.Image(world.Cells(), size.W, size.H, world.Palette())
		if err != nil {
			return err
		}
		if err := render.WritePNG(opts.png, img); err != nil {
			return err
		}
		logger.Info("image written", "path", opts.png)
	}
	if opts.index != "" {
		if err := record(ctx, opts, world, summary, logger); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(opts options) (hydro.Config, error) {
	cfg := hydro.DefaultConfig()
	if opts.config != "" {
		loaded, err := hydro.LoadFile(opts.config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if opts.seed != 0 {
		cfg.Seed = opts.seed
	}
	if opts.size > 0 {
		cfg.MapSize = opts.size
	}
	if opts.erosion >= 0 {
		cfg.ErosionIterations = opts.erosion
	}
	if opts.pools >= 0 {
		cfg.PoolIterations = opts.pools
	}
	if opts.start != "" {
		c, err := hydro.ParseCell(opts.start)
		if err != nil {
			return cfg, err
		}
		cfg.Start = &c
	}
	if err := opts.sets.apply(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func record(ctx context.Context, opts options, world *hydro.World, s hydro.Summary, logger *slog.Logger) error {
	idx, err := runindex.Open(opts.index)
	if err != nil {
		return err
	}
	cfg := world.Config()
	id, err := idx.Record(ctx, runindex.Run{
		Label:    opts.label,
		Seed:     cfg.Seed,
		MapSize:  cfg.MapSize,
		Erosion:  cfg.ErosionIterations,
		Droplets: s.Stats.Droplets,
		Pools:    s.Pools,
		Volume:   s.Volume,
		Merges:   s.Stats.Merges,
		Dropped:  s.Stats.Dropped,
		Snapshot: opts.snapshot,
		Params:   world.Parameters().Values(),
	})
	if err == nil {
		logger.Info("run recorded", "id", id, "index", opts.index)
	}
	return errors.Join(err, idx.Close())
}
