package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgravesa/go-parallel/parallel"

	"hydrosim/internal/persistence/runindex"
	"hydrosim/internal/sims/hydro"
)

type paramSet struct {
	seed     int64
	epsilon  float64
	inertia  float64
	volume   float64
	lifetime int
}

func (p paramSet) String() string {
	return fmt.Sprintf("seed=%d eps=%.4f inertia=%.2f volume=%.3f lifetime=%d",
		p.seed, p.epsilon, p.inertia, p.volume, p.lifetime)
}

type scenarioResult struct {
	params   paramSet
	summary  hydro.Summary
	settings map[string]string
	elapsed  time.Duration
	err      error
}

func main() {
	configPath := flag.String("config", "", "YAML base config")
	seeds := flag.Int("seeds", 4, "seeds per parameter set")
	firstSeed := flag.Int64("seed", 1337, "first seed")
	size := flag.Int("size", 64, "visible map edge")
	erosion := flag.Int("erosion", 20000, "erosion droplets per scenario")
	pools := flag.Int("pools", 4000, "pool droplets per scenario")
	top := flag.Int("top", 5, "rows to print")
	indexPath := flag.String("index", "", "record every scenario in this SQLite index")
	label := flag.String("label", "sweep", "run label stored in the index")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	base := hydro.DefaultConfig()
	if *configPath != "" {
		loaded, err := hydro.LoadFile(*configPath)
		if err != nil {
			logger.Error("load config", "err", err)
			os.Exit(1)
		}
		base = loaded
	}
	base.MapSize = *size
	base.ErosionIterations = *erosion
	base.PoolIterations = *pools
	if err := base.Validate(); err != nil {
		logger.Error("invalid base config", "err", err)
		os.Exit(1)
	}

	epsilonOptions := []float64{0.001, 0.01, 0.05}
	inertiaOptions := []float64{0.05, 0.3}
	volumeOptions := []float64{0.005, 0.01, 0.02}
	lifetimeOptions := []int{base.Params.Pools.MaxLifetime}

	var sets []paramSet
	for s := 0; s < *seeds; s++ {
		for _, eps := range epsilonOptions {
			for _, inertia := range inertiaOptions {
				for _, vol := range volumeOptions {
					for _, life := range lifetimeOptions {
						sets = append(sets, paramSet{
							seed:     *firstSeed + int64(s),
							epsilon:  eps,
							inertia:  inertia,
							volume:   vol,
							lifetime: life,
						})
					}
				}
			}
		}
	}

	fmt.Printf("Sweeping %d scenarios (map %d, %d erosion / %d pool droplets)\n", len(sets), base.MapSize, *erosion, *pools)

	start := time.Now()
	results := make([]scenarioResult, len(sets))
	parallel.For(len(sets), func(i, _ int) {
		results[i] = runScenario(base, sets[i])
	})
	elapsed := time.Since(start)

	var ok []scenarioResult
	for _, res := range results {
		if res.err != nil {
			logger.Warn("scenario failed", "params", res.params.String(), "err", res.err)
			continue
		}
		logger.Debug("scenario done", "params", res.params.String(), "pools", res.summary.Pools, "elapsed", res.elapsed)
		ok = append(ok, res)
	}

	if *indexPath != "" {
		if err := recordAll(context.Background(), *indexPath, *label, base, ok); err != nil {
			logger.Error("record sweep", "err", err)
			os.Exit(1)
		}
	}

	sort.Slice(ok, func(i, j int) bool {
		if ok[i].summary.Volume != ok[j].summary.Volume {
			return ok[i].summary.Volume > ok[j].summary.Volume
		}
		return ok[i].summary.Pools > ok[j].summary.Pools
	})

	fmt.Printf("\nTop %d results (elapsed %s, %d failed):\n", *top, elapsed.Round(time.Millisecond), len(results)-len(ok))
	for i := 0; i < len(ok) && i < *top; i++ {
		res := ok[i]
		s := res.summary
		fmt.Printf("%2d) pools=%d flooded=%d volume=%.4f merges=%d dropped=%d/%d params=%s\n",
			i+1, s.Pools, s.Flooded, s.Volume, s.Stats.Merges, s.Stats.Dropped, s.Stats.Droplets, res.params)
	}
}

func runScenario(base hydro.Config, params paramSet) scenarioResult {
	cfg := base
	cfg.Seed = params.seed
	cfg.Params.Pools.Epsilon = params.epsilon
	cfg.Params.Pools.Inertia = params.inertia
	cfg.Params.Pools.InitialWaterVolume = params.volume
	cfg.Params.Pools.MaxLifetime = params.lifetime

	began := time.Now()
	res := scenarioResult{params: params}
	world := hydro.NewWithConfig(cfg)
	world.Reset(0)
	for world.Phase() != hydro.PhaseDone && world.Phase() != hydro.PhaseFailed {
		world.Step()
	}
	if err := world.Err(); err != nil {
		res.err = err
		return res
	}
	if err := world.Audit(); err != nil {
		res.err = fmt.Errorf("audit: %w", err)
		return res
	}
	res.summary = world.Summary()
	res.settings = world.Parameters().Values()
	res.elapsed = time.Since(began)
	return res
}

func recordAll(ctx context.Context, path, label string, base hydro.Config, results []scenarioResult) error {
	idx, err := runindex.Open(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	for _, res := range results {
		s := res.summary
		_, err := idx.Record(ctx, runindex.Run{
			Label:    label,
			Seed:     res.params.seed,
			MapSize:  base.MapSize,
			Erosion:  base.ErosionIterations,
			Droplets: s.Stats.Droplets,
			Pools:    s.Pools,
			Volume:   s.Volume,
			Merges:   s.Stats.Merges,
			Dropped:  s.Stats.Dropped,
			Params:   res.settings,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
