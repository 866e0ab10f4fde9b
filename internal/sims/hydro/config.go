package hydro

import (
	"fmt"
	"strconv"
	"strings"

	"hydrosim/internal/core"
	"hydrosim/internal/terrain"
)

// ErosionParams holds the droplet erosion tunables.
type ErosionParams struct {
	Radius                 int     `yaml:"radius" json:"radius"`
	Inertia                float64 `yaml:"inertia" json:"inertia"`
	SedimentCapacityFactor float64 `yaml:"sediment_capacity_factor" json:"sediment_capacity_factor"`
	MinSedimentCapacity    float64 `yaml:"min_sediment_capacity" json:"min_sediment_capacity"`
	ErodeSpeed             float64 `yaml:"erode_speed" json:"erode_speed"`
	DepositSpeed           float64 `yaml:"deposit_speed" json:"deposit_speed"`
	EvaporateSpeed         float64 `yaml:"evaporate_speed" json:"evaporate_speed"`
	Gravity                float64 `yaml:"gravity" json:"gravity"`
	MaxLifetime            int     `yaml:"max_lifetime" json:"max_lifetime"`
	InitialWaterVolume     float64 `yaml:"initial_water_volume" json:"initial_water_volume"`
	InitialSpeed           float64 `yaml:"initial_speed" json:"initial_speed"`
	MinVolume              float64 `yaml:"min_volume" json:"min_volume"`
}

// PoolParams holds the pool formation tunables.
type PoolParams struct {
	Inertia            float64 `yaml:"inertia" json:"inertia"`
	EvaporateSpeed     float64 `yaml:"evaporate_speed" json:"evaporate_speed"`
	Gravity            float64 `yaml:"gravity" json:"gravity"`
	MaxLifetime        int     `yaml:"max_lifetime" json:"max_lifetime"`
	InitialWaterVolume float64 `yaml:"initial_water_volume" json:"initial_water_volume"`
	InitialSpeed       float64 `yaml:"initial_speed" json:"initial_speed"`
	// MinVolumeFraction stops a droplet once its volume drops to this share
	// of the initial volume.
	MinVolumeFraction float64 `yaml:"min_volume_fraction" json:"min_volume_fraction"`
	Epsilon           float64 `yaml:"epsilon" json:"epsilon"`
}

// DamParams holds the dam editor tunables.
type DamParams struct {
	// Raise multiplies the average height of the flattened rectangle.
	Raise float64 `yaml:"raise" json:"raise"`
}

// Params holds every tunable of the simulation.
type Params struct {
	Erosion ErosionParams `yaml:"erosion" json:"erosion"`
	Pools   PoolParams    `yaml:"pools" json:"pools"`
	Dam     DamParams     `yaml:"dam" json:"dam"`
}

// Config controls the hydro simulation dimensions and run shape.
type Config struct {
	// MapSize is the visible map edge; the height grid adds an erosion radius
	// border on each side.
	MapSize int   `yaml:"map_size" json:"map_size"`
	Seed    int64 `yaml:"seed" json:"seed"`

	ErosionIterations int `yaml:"erosion_iterations" json:"erosion_iterations"`
	PoolIterations    int `yaml:"pool_iterations" json:"pool_iterations"`
	// Batches splits each phase into this many playback steps.
	Batches int `yaml:"batches" json:"batches"`

	// Start, when set, spawns every pool droplet at a fixed cell.
	Start *core.Cell `yaml:"start,omitempty" json:"start,omitempty"`

	Terrain terrain.Options `yaml:"terrain" json:"terrain"`
	Params  Params          `yaml:"params" json:"params"`
}

// GridSize returns the height grid edge including the erosion border.
func (c Config) GridSize() int {
	return c.MapSize + 2*c.Params.Erosion.Radius
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		MapSize:           128,
		Seed:              1337,
		ErosionIterations: 60000,
		PoolIterations:    10000,
		Batches:           10,
		Terrain:           terrain.DefaultOptions(),
		Params:            DefaultParams(),
	}
}

// DefaultParams returns the standard tunables.
func DefaultParams() Params {
	return Params{
		Erosion: ErosionParams{
			Radius:                 3,
			Inertia:                0.05,
			SedimentCapacityFactor: 4,
			MinSedimentCapacity:    0.01,
			ErodeSpeed:             0.3,
			DepositSpeed:           0.3,
			EvaporateSpeed:         0.01,
			Gravity:                4,
			MaxLifetime:            30,
			InitialWaterVolume:     1,
			InitialSpeed:           1,
			MinVolume:              1e-4,
		},
		Pools: PoolParams{
			Inertia:            0.05,
			EvaporateSpeed:     0.01,
			Gravity:            4,
			MaxLifetime:        300,
			InitialWaterVolume: 0.01,
			InitialSpeed:       1,
			MinVolumeFraction:  0.1,
			Epsilon:            0.01,
		},
		Dam: DamParams{Raise: 1.3},
	}
}

// Validate checks ranges that the engines rely on.
func (c Config) Validate() error {
	p := c.Params
	switch {
	case c.MapSize < 2:
		return fmt.Errorf("%w: map_size %d < 2", ErrOutOfRange, c.MapSize)
	case p.Erosion.Radius < 1:
		return fmt.Errorf("%w: erosion radius %d < 1", ErrOutOfRange, p.Erosion.Radius)
	case p.Erosion.Inertia < 0 || p.Erosion.Inertia > 1:
		return fmt.Errorf("%w: erosion inertia %v outside [0,1]", ErrOutOfRange, p.Erosion.Inertia)
	case p.Pools.Inertia < 0 || p.Pools.Inertia > 1:
		return fmt.Errorf("%w: pool inertia %v outside [0,1]", ErrOutOfRange, p.Pools.Inertia)
	case p.Erosion.MaxLifetime < 1 || p.Pools.MaxLifetime < 1:
		return fmt.Errorf("%w: droplet lifetime must be positive", ErrOutOfRange)
	case p.Pools.Epsilon < 0:
		return fmt.Errorf("%w: epsilon %v < 0", ErrOutOfRange, p.Pools.Epsilon)
	case p.Dam.Raise <= 0:
		return fmt.Errorf("%w: dam raise %v <= 0", ErrOutOfRange, p.Dam.Raise)
	case c.Batches < 1:
		return fmt.Errorf("%w: batches %d < 1", ErrOutOfRange, c.Batches)
	}
	if err := c.Terrain.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	if c.Start != nil && !inGrid(c.GridSize(), c.Start.X, c.Start.Y) {
		return fmt.Errorf("%w: start %d,%d outside grid of %d", ErrOutOfRange, c.Start.X, c.Start.Y, c.GridSize())
	}
	return nil
}

// FromMap populates the config from a string map (flag-style key/value pairs).
// Unknown keys and unparsable values are ignored.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	for key, value := range cfg {
		applyOverride(&c, key, value)
	}
	return c
}

// ApplyOverride sets a single key=value pair and reports whether the key was
// recognised and the value parsed.
func ApplyOverride(c *Config, key, value string) bool {
	return applyOverride(c, key, value)
}

func applyOverride(c *Config, key, value string) bool {
	if ptr, ok := intFields(c)[key]; ok {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return false
		}
		*ptr = parsed
		return true
	}
	if ptr, ok := floatFields(c)[key]; ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		*ptr = parsed
		return true
	}
	switch key {
	case "seed":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false
		}
		c.Seed = parsed
		return true
	case "noise":
		if value != terrain.NoisePerlin && value != terrain.NoiseSimplex {
			return false
		}
		c.Terrain.Noise = value
		return true
	case "start":
		cell, err := ParseCell(value)
		if err != nil {
			return false
		}
		c.Start = &cell
		return true
	}
	return false
}

// ParseCell parses "x,y".
func ParseCell(s string) (core.Cell, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return core.Cell{}, fmt.Errorf("cell %q: want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return core.Cell{}, fmt.Errorf("cell %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return core.Cell{}, fmt.Errorf("cell %q: %w", s, err)
	}
	return core.Cell{X: x, Y: y}, nil
}

func intFields(c *Config) map[string]*int {
	return map[string]*int{
		"map_size":             &c.MapSize,
		"erosion_iterations":   &c.ErosionIterations,
		"pool_iterations":      &c.PoolIterations,
		"batches":              &c.Batches,
		"octaves":              &c.Terrain.Octaves,
		"erosion_radius":       &c.Params.Erosion.Radius,
		"erosion_max_lifetime": &c.Params.Erosion.MaxLifetime,
		"pool_max_lifetime":    &c.Params.Pools.MaxLifetime,
	}
}

func floatFields(c *Config) map[string]*float64 {
	e := &c.Params.Erosion
	p := &c.Params.Pools
	return map[string]*float64{
		"persistence":              &c.Terrain.Persistence,
		"lacunarity":               &c.Terrain.Lacunarity,
		"initial_scale":            &c.Terrain.InitialScale,
		"erosion_inertia":          &e.Inertia,
		"sediment_capacity_factor": &e.SedimentCapacityFactor,
		"min_sediment_capacity":    &e.MinSedimentCapacity,
		"erode_speed":              &e.ErodeSpeed,
		"deposit_speed":            &e.DepositSpeed,
		"erosion_evaporate_speed":  &e.EvaporateSpeed,
		"erosion_gravity":          &e.Gravity,
		"erosion_water_volume":     &e.InitialWaterVolume,
		"erosion_initial_speed":    &e.InitialSpeed,
		"pool_inertia":             &p.Inertia,
		"pool_evaporate_speed":     &p.EvaporateSpeed,
		"pool_gravity":             &p.Gravity,
		"pool_water_volume":        &p.InitialWaterVolume,
		"pool_initial_speed":       &p.InitialSpeed,
		"pool_min_volume_fraction": &p.MinVolumeFraction,
		"epsilon":                  &p.Epsilon,
		"dam_raise":                &c.Params.Dam.Raise,
	}
}
