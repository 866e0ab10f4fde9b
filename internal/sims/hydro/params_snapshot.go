package hydro

import (
	"strconv"

	"hydrosim/internal/core"
)

// Parameters returns the current tunables grouped for display.
func (w *World) Parameters() core.ParameterSnapshot {
	c := w.cfg
	e := c.Params.Erosion
	p := c.Params.Pools
	groups := []core.ParameterGroup{
		{
			Name: "World",
			Params: []core.Parameter{
				intParam("map_size", "Map size", c.MapSize),
				int64Param("seed", "Seed", c.Seed),
				intParam("erosion_iterations", "Erosion droplets", c.ErosionIterations),
				intParam("pool_iterations", "Pool droplets", c.PoolIterations),
				intParam("batches", "Batches per phase", c.Batches),
			},
		},
		{
			Name: "Terrain",
			Params: []core.Parameter{
				{Key: "noise", Label: "Noise", Type: core.ParamTypeText, Value: c.Terrain.Noise},
				intParam("octaves", "Octaves", c.Terrain.Octaves),
				floatParam("persistence", "Persistence", c.Terrain.Persistence),
				floatParam("lacunarity", "Lacunarity", c.Terrain.Lacunarity),
				floatParam("initial_scale", "Initial scale", c.Terrain.InitialScale),
			},
		},
		{
			Name: "Erosion",
			Params: []core.Parameter{
				intParam("erosion_radius", "Brush radius", e.Radius),
				floatParam("erosion_inertia", "Inertia", e.Inertia),
				floatParam("sediment_capacity_factor", "Sediment capacity factor", e.SedimentCapacityFactor),
				floatParam("min_sediment_capacity", "Min sediment capacity", e.MinSedimentCapacity),
				floatParam("erode_speed", "Erode speed", e.ErodeSpeed),
				floatParam("deposit_speed", "Deposit speed", e.DepositSpeed),
				floatParam("erosion_evaporate_speed", "Evaporate speed", e.EvaporateSpeed),
				floatParam("erosion_gravity", "Gravity", e.Gravity),
				intParam("erosion_max_lifetime", "Max lifetime", e.MaxLifetime),
			},
		},
		{
			Name: "Pools",
			Params: []core.Parameter{
				floatParam("pool_inertia", "Inertia", p.Inertia),
				floatParam("pool_evaporate_speed", "Evaporate speed", p.EvaporateSpeed),
				floatParam("pool_gravity", "Gravity", p.Gravity),
				intParam("pool_max_lifetime", "Max lifetime", p.MaxLifetime),
				floatParam("pool_water_volume", "Droplet volume", p.InitialWaterVolume),
				floatParam("pool_min_volume_fraction", "Min volume fraction", p.MinVolumeFraction),
				floatParam("epsilon", "Leak epsilon", p.Epsilon),
				floatParam("dam_raise", "Dam raise", c.Params.Dam.Raise),
			},
		},
	}
	return core.ParameterSnapshot{Groups: groups}
}

// ParameterControls lists the tunables that can change while a run is live.
func (w *World) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		floatControl("erosion_inertia", "Erosion inertia", 0.01, 0, 1),
		floatControl("erode_speed", "Erode speed", 0.05, 0, 1),
		floatControl("deposit_speed", "Deposit speed", 0.05, 0, 1),
		floatControl("pool_inertia", "Pool inertia", 0.01, 0, 1),
		floatControl("pool_water_volume", "Pool droplet volume", 0.005, 0.001, 1),
		floatControl("epsilon", "Leak epsilon", 0.005, 0, 1),
		floatControl("dam_raise", "Dam raise", 0.1, 0.1, 5),
		{Key: "pool_max_lifetime", Label: "Pool lifetime", Type: core.ParamTypeInt, Step: 10, Min: 1, HasMin: true},
	}
}

// SetFloatParameter updates a float tunable, clamping to its control bounds.
func (w *World) SetFloatParameter(key string, value float64) bool {
	for _, ctrl := range w.ParameterControls() {
		if ctrl.Key == key && ctrl.Type == core.ParamTypeFloat {
			value = clampControl(ctrl, value)
			break
		}
	}
	ptr, ok := floatFields(&w.cfg)[key]
	if !ok {
		return false
	}
	*ptr = value
	w.applyParams()
	return true
}

// SetIntParameter updates an int tunable. Only values that do not change the
// grid shape are accepted while a run is live.
func (w *World) SetIntParameter(key string, value int) bool {
	switch key {
	case "map_size", "erosion_radius":
		return false
	}
	ptr, ok := intFields(&w.cfg)[key]
	if !ok || value < 1 {
		return false
	}
	*ptr = value
	w.applyParams()
	return true
}

func (w *World) applyParams() {
	w.eroder.SetParams(w.cfg.Params.Erosion)
	w.pools.SetParams(w.cfg.Params.Pools)
}

func clampControl(ctrl core.ParameterControl, v float64) float64 {
	if ctrl.HasMin && v < ctrl.Min {
		v = ctrl.Min
	}
	if ctrl.HasMax && v > ctrl.Max {
		v = ctrl.Max
	}
	return v
}

func floatControl(key, label string, step, min, max float64) core.ParameterControl {
	return core.ParameterControl{
		Key:    key,
		Label:  label,
		Type:   core.ParamTypeFloat,
		Step:   step,
		Min:    min,
		Max:    max,
		HasMin: true,
		HasMax: true,
	}
}

func intParam(key, label string, value int) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.Itoa(value),
	}
}

func int64Param(key, label string, value int64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.FormatInt(value, 10),
	}
}

func floatParam(key, label string, value float64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeFloat,
		Value: strconv.FormatFloat(value, 'f', -1, 64),
	}
}
