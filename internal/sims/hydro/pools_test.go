package hydro

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"hydrosim/internal/core"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.Erosion.Radius = 1
	return cfg
}

func worldFromRows(t *testing.T, rows [][]float64) *World {
	t.Helper()
	g, err := core.GridFromRows(rows)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	w, err := NewFromHeights(testConfig(), g)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func pitRows() [][]float64 {
	rows := make([][]float64, 5)
	for y := range rows {
		rows[y] = []float64{1, 1, 1, 1, 1}
	}
	rows[2][2] = 0
	return rows
}

// basinRows holds two unit-deep pits joined by a saddle at 0.3.
func basinRows() [][]float64 {
	rows := make([][]float64, 7)
	for y := range rows {
		rows[y] = []float64{1, 1, 1, 1, 1, 1, 1}
	}
	rows[3][2] = 0
	rows[3][3] = 0.3
	rows[3][4] = 0
	return rows
}

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPitCollectsDroplet(t *testing.T) {
	w := worldFromRows(t, pitRows())
	w.cfg.Params.Pools.MaxLifetime = 1
	start := core.Cell{X: 2, Y: 2}

	if err := w.GeneratePools(1, &start); err != nil {
		t.Fatalf("generate: %v", err)
	}
	pools := w.Registry().Pools()
	if len(pools) != 1 {
		t.Fatalf("expected one pool, got %d", len(pools))
	}
	p := pools[0]
	if p.Len() != 1 || !p.Contains(start) {
		t.Fatalf("expected pool of the pit cell, got %+v", p.Points())
	}
	v := w.cfg.Params.Pools.InitialWaterVolume
	if !closeTo(p.Volume(), v) {
		t.Fatalf("expected volume %v, got %v", v, p.Volume())
	}
	if got := w.Water().At(2, 2); !closeTo(got, v) {
		t.Fatalf("expected level %v, got %v", v, got)
	}
	if !w.Flooded(2, 2) || w.Flooded(1, 1) {
		t.Fatalf("expected only the pit flooded")
	}
	if _, ok := p.Leak(); ok {
		t.Fatalf("expected a sealed pool")
	}
	st := w.Stats()
	if st.Created != 1 || st.Absorbed != 1 || st.Removed != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
}

func TestTracePathDoesNotMutate(t *testing.T) {
	w := worldFromRows(t, pitRows())
	w.cfg.Params.Pools.MaxLifetime = 1
	w.pools.SetParams(w.cfg.Params.Pools)

	path, err := w.TracePath(core.Cell{X: 2, Y: 2})
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if len(path) != 2 || path[1] != (core.Cell{X: 1, Y: 1}) {
		t.Fatalf("unexpected path %v", path)
	}
	if w.Registry().Len() != 0 || w.Water().Sum() != w.Heights().Sum() {
		t.Fatalf("trace must not create water")
	}
	if _, err := w.TracePath(core.Cell{X: 4, Y: 0}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange on the last column, got %v", err)
	}
}

func mergedBasin(t *testing.T) *World {
	t.Helper()
	w := worldFromRows(t, basinRows())
	a, b := core.Cell{X: 2, Y: 3}, core.Cell{X: 4, Y: 3}
	for _, step := range []struct {
		cell   core.Cell
		volume float64
	}{{a, 0.2}, {b, 0.2}} {
		if err := w.AddWater(step.cell, step.volume); err != nil {
			t.Fatalf("add water: %v", err)
		}
	}
	if w.Registry().Len() != 2 {
		t.Fatalf("expected two separate pools below the saddle, got %d", w.Registry().Len())
	}
	if err := w.AddWater(a, 0.3); err != nil {
		t.Fatalf("add water: %v", err)
	}
	return w
}

func TestPoolsMergeOverSaddle(t *testing.T) {
	w := mergedBasin(t)

	pools := w.Registry().Pools()
	if len(pools) != 1 {
		t.Fatalf("expected pools to merge, got %d", len(pools))
	}
	p := pools[0]
	for _, c := range []core.Cell{{X: 2, Y: 3}, {X: 3, Y: 3}, {X: 4, Y: 3}} {
		if !p.Contains(c) {
			t.Fatalf("expected merged pool to contain %v, got %+v", c, p.Points())
		}
	}
	if !closeTo(p.Volume(), 0.7) {
		t.Fatalf("expected volume 0.7, got %v", p.Volume())
	}
	if got := w.MeasuredVolume(p); !closeTo(got, 0.7) {
		t.Fatalf("expected measured volume 0.7, got %v", got)
	}
	if got := w.Water().At(3, 3); !closeTo(got, 1.0/3) {
		t.Fatalf("unexpected level %v", got)
	}
	if w.Stats().Merges != 1 {
		t.Fatalf("expected one merge, got %d", w.Stats().Merges)
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
}

func TestCorrectionIsIdempotent(t *testing.T) {
	w := mergedBasin(t)
	before := w.Water().Clone()
	if err := w.pools.CorrectAll(); err != nil {
		t.Fatalf("correct: %v", err)
	}
	for i, v := range before.Cells() {
		if w.Water().Cells()[i] != v {
			t.Fatalf("node %d changed from %v to %v", i, v, w.Water().Cells()[i])
		}
	}
}

func TestDamEvictsChannel(t *testing.T) {
	w := mergedBasin(t)
	saddle := core.Cell{X: 3, Y: 3}

	if err := w.BuildDam(Rect{X0: 3, Y0: 3, X1: 4, Y1: 4}); err != nil {
		t.Fatalf("dam: %v", err)
	}
	if got := w.Heights().At(3, 3); !closeTo(got, 0.3*1.3) {
		t.Fatalf("expected dam height 0.39, got %v", got)
	}
	if _, ok := w.Registry().Owner(saddle); ok {
		t.Fatalf("expected saddle evicted")
	}
	if w.Flooded(3, 3) {
		t.Fatalf("expected dam cell dry")
	}
	pools := w.Registry().Pools()
	if len(pools) != 1 || pools[0].Len() != 2 {
		t.Fatalf("expected the two pits to remain, got %d pools", len(pools))
	}
	if got := w.MeasuredVolume(pools[0]); !closeTo(got, 0.7) {
		t.Fatalf("expected volume conserved at 0.7, got %v", got)
	}
	if w.Stats().Evictions != 1 {
		t.Fatalf("expected one eviction, got %d", w.Stats().Evictions)
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
}

func TestBuildDamRejectsBadRect(t *testing.T) {
	w := worldFromRows(t, pitRows())
	before := w.Heights().Clone()
	for _, r := range []Rect{
		{X0: 2, Y0: 2, X1: 2, Y1: 3},
		{X0: -1, Y0: 0, X1: 2, Y1: 2},
		{X0: 0, Y0: 0, X1: 6, Y1: 2},
	} {
		if err := w.BuildDam(r); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("rect %+v: expected ErrOutOfRange, got %v", r, err)
		}
	}
	for i, v := range before.Cells() {
		if w.Heights().Cells()[i] != v {
			t.Fatalf("heights changed at %d", i)
		}
	}
}

func TestBuildDamRollsBackOnUntrackedWater(t *testing.T) {
	w := worldFromRows(t, pitRows())
	w.pools.water.Set(1, 1, 5)
	before := w.Heights().Clone()

	err := w.BuildDam(Rect{X0: 0, Y0: 0, X1: 3, Y1: 3})
	if !errors.Is(err, ErrUntrackedWater) {
		t.Fatalf("expected ErrUntrackedWater, got %v", err)
	}
	for i, v := range before.Cells() {
		if w.Heights().Cells()[i] != v {
			t.Fatalf("heights not restored at %d", i)
		}
	}
	if got := w.Water().At(1, 1); got != 5 {
		t.Fatalf("water not restored, got %v", got)
	}
}

func TestAddWaterRejectsBadInput(t *testing.T) {
	w := worldFromRows(t, pitRows())
	if err := w.AddWater(core.Cell{X: 9, Y: 0}, 1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for cell, got %v", err)
	}
	if err := w.AddWater(core.Cell{X: 2, Y: 2}, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for volume, got %v", err)
	}
}

func TestFindLeakPicksDeepestNeighbour(t *testing.T) {
	rows := [][]float64{
		{5, 5, 5, 5},
		{5, 0, 2, 5},
		{5, 1, 5, 5},
		{5, 5, 5, 5},
	}
	w := worldFromRows(t, rows)
	e := w.pools
	p := e.reg.create(e.point(core.Cell{X: 1, Y: 1}), 3)
	e.water.Set(1, 1, 3)

	leak, ok := e.findLeak(p)
	if !ok || leak.Cell() != (core.Cell{X: 1, Y: 2}) {
		t.Fatalf("expected leak at 1,2, got %+v %v", leak, ok)
	}
	if cached, ok := p.Leak(); !ok || cached != leak {
		t.Fatalf("expected leak cached on pool")
	}
	if again, ok := e.findLeak(p); !ok || again != leak {
		t.Fatalf("expected repeated discovery to return %+v, got %+v", leak, again)
	}

	e.water.Set(1, 1, 0.5)
	if _, ok := e.findLeak(p); ok {
		t.Fatalf("expected no leak below every neighbour")
	}
}

func TestSummaryReportsMergedBasin(t *testing.T) {
	w := mergedBasin(t)
	s := w.Summary()
	if s.Pools != 1 || s.Flooded != 3 {
		t.Fatalf("expected one pool over 3 nodes, got %+v", s)
	}
	if !closeTo(s.Volume, 0.7) {
		t.Fatalf("expected volume 0.7, got %v", s.Volume)
	}
	if leaks := w.Leaks(); len(leaks) != 0 {
		t.Fatalf("sealed basin reported leaks %v", leaks)
	}
}

func TestResetPoolsDriesMap(t *testing.T) {
	w := mergedBasin(t)
	w.ResetPools()
	if w.Registry().Len() != 0 {
		t.Fatalf("expected no pools after reset")
	}
	for i, v := range w.Heights().Cells() {
		if w.Water().Cells()[i] != v {
			t.Fatalf("node %d still wet", i)
		}
	}
	if w.Phase() != PhasePools {
		t.Fatalf("expected pool phase, got %v", w.Phase())
	}
}

func TestGeneratePoolsOnNoiseTerrain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MapSize = 24
	cfg.Seed = 5
	w := NewWithConfig(cfg)
	w.Reset(0)

	if err := w.Erode(2000); err != nil {
		t.Fatalf("erode: %v", err)
	}
	if err := w.GeneratePools(3000, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if w.Stats().Droplets != 3000 {
		t.Fatalf("expected 3000 droplets, got %d", w.Stats().Droplets)
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
	if err := w.BuildDam(Rect{X0: 10, Y0: 10, X1: 14, Y1: 13}); err != nil {
		t.Fatalf("dam: %v", err)
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit after dam: %v", err)
	}
}

func TestStepPlaysBothPhases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MapSize = 16
	cfg.ErosionIterations = 500
	cfg.PoolIterations = 400
	cfg.Batches = 3
	w := NewWithConfig(cfg)
	w.Reset(11)

	for i := 0; i < 10 && w.Phase() != PhaseDone; i++ {
		w.Step()
	}
	if w.Phase() != PhaseDone {
		t.Fatalf("expected playback to finish, phase %v err %v", w.Phase(), w.Err())
	}
	if w.Stats().Droplets != 400 {
		t.Fatalf("expected 400 pool droplets, got %d", w.Stats().Droplets)
	}
	if len(w.Cells()) != w.Size().W*w.Size().H {
		t.Fatalf("display buffer has wrong size")
	}
	w.Step()
	if w.Stats().Droplets != 400 {
		t.Fatalf("step after done must be a no-op")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	w := mergedBasin(t)
	path := filepath.Join(t.TempDir(), "basin.snap.zst")
	if err := w.SaveSnapshot(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Registry().Len() != 1 {
		t.Fatalf("expected one pool, got %d", got.Registry().Len())
	}
	want := w.Registry().Pools()[0]
	p := got.Registry().Pools()[0]
	if p.ID() != want.ID() || p.Len() != want.Len() || p.Volume() != want.Volume() {
		t.Fatalf("pool mismatch: %+v vs %+v", p.Points(), want.Points())
	}
	for i, v := range w.Water().Cells() {
		if got.Water().Cells()[i] != v {
			t.Fatalf("water %d: expected %v, got %v", i, v, got.Water().Cells()[i])
		}
	}
	if err := got.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
	if err := got.AddWater(core.Cell{X: 3, Y: 3}, 0.01); err != nil {
		t.Fatalf("restored world should accept water: %v", err)
	}
}

func TestDropletsJoinWetPit(t *testing.T) {
	w := worldFromRows(t, pitRows())
	pit := core.Cell{X: 2, Y: 2}
	if err := w.AddWater(pit, 0.5); err != nil {
		t.Fatalf("add water: %v", err)
	}

	if err := w.GeneratePools(3, &pit); err != nil {
		t.Fatalf("generate: %v", err)
	}
	st := w.Stats()
	if st.Droplets != 3 || st.Joined != 3 || st.Created != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	pools := w.Registry().Pools()
	if len(pools) != 1 || pools[0].Len() != 1 {
		t.Fatalf("expected the single pit pool, got %d pools", len(pools))
	}
	if !closeTo(pools[0].Volume(), 0.53) {
		t.Fatalf("expected volume 0.53, got %v", pools[0].Volume())
	}
	if got := w.MeasuredVolume(pools[0]); !closeTo(got, 0.53) {
		t.Fatalf("expected measured volume 0.53, got %v", got)
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
}

func TestDownhillDropletsAreDropped(t *testing.T) {
	rows := make([][]float64, 6)
	for y := range rows {
		rows[y] = make([]float64, 6)
		for x := range rows[y] {
			rows[y][x] = 1 - 0.1*float64(x)
		}
	}
	g, err := core.GridFromRows(rows)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	cfg := testConfig()
	cfg.Params.Pools.MaxLifetime = 2
	w, err := NewFromHeights(cfg, g)
	if err != nil {
		t.Fatalf("world: %v", err)
	}

	start := core.Cell{X: 0, Y: 2}
	if err := w.GeneratePools(2, &start); err != nil {
		t.Fatalf("generate: %v", err)
	}
	st := w.Stats()
	if st.Dropped != 2 || st.Created != 0 || st.Joined != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if w.Registry().Len() != 0 || w.Water().Sum() != w.Heights().Sum() {
		t.Fatalf("dropped droplets must leave no water")
	}
}

func TestCorrectionGuardReportsNoConvergence(t *testing.T) {
	w := worldFromRows(t, basinRows())
	w.pools.guard = 0

	err := w.AddWater(core.Cell{X: 2, Y: 3}, 0.5)
	if !errors.Is(err, ErrNoConvergence) {
		t.Fatalf("expected ErrNoConvergence, got %v", err)
	}
}

func TestResyncFollowsRaisedTerrain(t *testing.T) {
	w := worldFromRows(t, pitRows())
	pit := core.Cell{X: 2, Y: 2}
	if err := w.AddWater(pit, 0.3); err != nil {
		t.Fatalf("add water: %v", err)
	}

	w.Heights().Set(2, 2, 0.1)
	w.Heights().Set(0, 0, 0.5)
	if err := w.pools.resync(); err != nil {
		t.Fatalf("resync: %v", err)
	}

	if got := w.Water().At(0, 0); got != 0.5 {
		t.Fatalf("expected dry node to follow terrain, got %v", got)
	}
	p, ok := w.Registry().Owner(pit)
	if !ok {
		t.Fatalf("expected pit pool to survive")
	}
	if !closeTo(p.Volume(), 0.2) || !closeTo(w.MeasuredVolume(p), 0.2) {
		t.Fatalf("expected adopted volume 0.2, got %v measured %v", p.Volume(), w.MeasuredVolume(p))
	}
	if pts := p.Points(); pts[0].Height != 0.1 {
		t.Fatalf("expected member height refreshed, got %v", pts[0].Height)
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
}

func TestErodeUnderLivePools(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MapSize = 24
	cfg.Seed = 5
	w := NewWithConfig(cfg)
	w.Reset(0)

	if err := w.Erode(2000); err != nil {
		t.Fatalf("erode: %v", err)
	}
	if err := w.GeneratePools(3000, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if w.Registry().Len() == 0 {
		t.Fatalf("expected pools before the second erosion pass")
	}
	if err := w.Erode(1000); err != nil {
		t.Fatalf("erode under pools: %v", err)
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
	for _, p := range w.Registry().Pools() {
		if !closeTo(p.Volume(), w.MeasuredVolume(p)) {
			t.Fatalf("pool %d: tracked %v, measured %v", p.ID(), p.Volume(), w.MeasuredVolume(p))
		}
	}
}

// channelRows holds two pits at x=1 and x=4 joined by a flat 0.2 channel.
func channelRows() [][]float64 {
	rows := make([][]float64, 7)
	for y := range rows {
		rows[y] = []float64{1, 1, 1, 1, 1, 1, 1}
	}
	rows[3][1] = 0
	rows[3][2] = 0.2
	rows[3][3] = 0.2
	rows[3][4] = 0
	return rows
}

func TestDamRaisesChannelBetweenPools(t *testing.T) {
	w := worldFromRows(t, channelRows())
	a, b := core.Cell{X: 1, Y: 3}, core.Cell{X: 4, Y: 3}
	for _, c := range []core.Cell{a, b} {
		if err := w.AddWater(c, 0.215); err != nil {
			t.Fatalf("add water: %v", err)
		}
	}
	if w.Registry().Len() != 2 {
		t.Fatalf("expected two pools, got %d", w.Registry().Len())
	}
	for _, c := range []core.Cell{{X: 2, Y: 3}, {X: 3, Y: 3}} {
		if _, ok := w.Registry().Owner(c); !ok {
			t.Fatalf("expected channel node %v submerged", c)
		}
	}

	if err := w.BuildDam(Rect{X0: 2, Y0: 3, X1: 4, Y1: 4}); err != nil {
		t.Fatalf("dam: %v", err)
	}
	if got := w.Heights().At(2, 3); !closeTo(got, 0.26) {
		t.Fatalf("expected channel raised to 0.26, got %v", got)
	}
	if w.Stats().Evictions != 2 {
		t.Fatalf("expected both channel nodes evicted, got %d", w.Stats().Evictions)
	}
	pools := w.Registry().Pools()
	if len(pools) != 2 {
		t.Fatalf("expected two pools after the dam, got %d", len(pools))
	}
	for _, p := range pools {
		if p.Len() != 1 {
			t.Fatalf("pool %d: expected only its pit, got %+v", p.ID(), p.Points())
		}
		if got := w.MeasuredVolume(p); !closeTo(got, 0.215) {
			t.Fatalf("pool %d: expected volume 0.215, got %v", p.ID(), got)
		}
	}
	if w.Flooded(2, 3) || w.Flooded(3, 3) {
		t.Fatalf("expected dam nodes dry")
	}
	if err := w.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
}

func TestResetFailsOnBadTerrain(t *testing.T) {
	cfg := testConfig()
	cfg.MapSize = 8
	cfg.Terrain.Noise = "worley"
	w := NewWithConfig(cfg)

	w.Reset(0)
	if w.Phase() != PhaseFailed || w.Err() == nil {
		t.Fatalf("expected failed phase, got %v err %v", w.Phase(), w.Err())
	}
	w.Step()
	if w.Phase() != PhaseFailed || w.Stats().Droplets != 0 {
		t.Fatalf("expected Step to stay idle after failure")
	}
}
