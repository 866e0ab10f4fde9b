// Package terrain fills height grids with octave noise.
package terrain

import (
	"fmt"

	perlin "github.com/aquilax/go-perlin"
	"github.com/dgravesa/go-parallel/parallel"
	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/floats"

	"hydrosim/internal/core"
)

// Noise kinds understood by Generate.
const (
	NoisePerlin  = "perlin"
	NoiseSimplex = "simplex"
)

// Options controls the noise fill of a height grid.
type Options struct {
	Noise        string  `yaml:"noise" json:"noise"`
	Octaves      int     `yaml:"octaves" json:"octaves"`
	Persistence  float64 `yaml:"persistence" json:"persistence"`
	Lacunarity   float64 `yaml:"lacunarity" json:"lacunarity"`
	InitialScale float64 `yaml:"initial_scale" json:"initial_scale"`
}

// DefaultOptions returns a seven octave perlin fill.
func DefaultOptions() Options {
	return Options{
		Noise:        NoisePerlin,
		Octaves:      7,
		Persistence:  0.5,
		Lacunarity:   2,
		InitialScale: 2,
	}
}

// Validate reports options Generate cannot use.
func (o Options) Validate() error {
	switch {
	case o.Noise != NoisePerlin && o.Noise != NoiseSimplex:
		return fmt.Errorf("terrain: unknown noise %q", o.Noise)
	case o.Octaves < 1:
		return fmt.Errorf("terrain: octaves %d < 1", o.Octaves)
	case o.Persistence <= 0:
		return fmt.Errorf("terrain: persistence %v <= 0", o.Persistence)
	case o.Lacunarity <= 0:
		return fmt.Errorf("terrain: lacunarity %v <= 0", o.Lacunarity)
	case o.InitialScale <= 0:
		return fmt.Errorf("terrain: initial scale %v <= 0", o.InitialScale)
	}
	return nil
}

type sampler func(x, y float64) float64

// Generate returns a size*size grid with heights normalized to [0, 1].
func Generate(size int, seed int64, opts Options) (*core.Grid, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	g := core.NewGrid(size)
	if size == 0 {
		return g, nil
	}

	var sample sampler
	switch opts.Noise {
	case NoiseSimplex:
		sample = simplexSampler(seed, opts)
	default:
		sample = perlinSampler(seed, opts)
	}

	rng := core.NewRNG(seed)
	offX := rng.Float64() * 1000
	offY := rng.Float64() * 1000
	cells := g.Cells()
	// Rows are independent and the samplers only read their tables.
	parallel.For(size, func(y, _ int) {
		ny := float64(y)/float64(size)*opts.InitialScale + offY
		for x := 0; x < size; x++ {
			nx := float64(x)/float64(size)*opts.InitialScale + offX
			cells[y*size+x] = sample(nx, ny)
		}
	})
	normalize(cells)
	return g, nil
}

// perlinSampler maps persistence onto go-perlin's alpha divisor.
func perlinSampler(seed int64, opts Options) sampler {
	p := perlin.NewPerlin(1/opts.Persistence, opts.Lacunarity, int32(opts.Octaves), seed)
	return p.Noise2D
}

func simplexSampler(seed int64, opts Options) sampler {
	noise := opensimplex.New(seed)
	return func(x, y float64) float64 {
		total, amplitude, frequency, maxVal := 0.0, 1.0, 1.0, 0.0
		for i := 0; i < opts.Octaves; i++ {
			total += noise.Eval2(x*frequency, y*frequency) * amplitude
			maxVal += amplitude
			amplitude *= opts.Persistence
			frequency *= opts.Lacunarity
		}
		return total / maxVal
	}
}

func normalize(cells []float64) {
	lo, hi := floats.Min(cells), floats.Max(cells)
	span := hi - lo
	if span == 0 {
		for i := range cells {
			cells[i] = 0
		}
		return
	}
	floats.AddConst(-lo, cells)
	for i := range cells {
		cells[i] /= span
	}
}
