package app

import (
	"flag"
	"time"
)

// Config represents the command-line parameters for the viewer.
type Config struct {
	Sim      string
	Config   string
	Scale    int
	TPS      int
	Seed     int64
	Interval time.Duration
	Panel    int
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{Sim: "hydro", Scale: 4, TPS: 60, Seed: 1337, Interval: 250 * time.Millisecond, Panel: 260}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Sim, "sim", c.Sim, "simulation to run")
	fs.StringVar(&c.Config, "config", c.Config, "YAML config file")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for simulation reset")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "minimum time between batches")
	fs.IntVar(&c.Panel, "panel", c.Panel, "HUD panel width in pixels (0 hides it)")
}

const (
	minInterval = 10 * time.Millisecond
	maxInterval = 4 * time.Second
)

// nextInterval halves the batch interval when faster is set and doubles it
// otherwise, clamped to [minInterval, maxInterval].
func nextInterval(cur time.Duration, faster bool) time.Duration {
	next := cur * 2
	if faster {
		next = cur / 2
	}
	if next < minInterval {
		return minInterval
	}
	if next > maxInterval {
		return maxInterval
	}
	return next
}
