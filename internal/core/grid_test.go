package core

import (
	"math"
	"testing"
	"time"
)

func TestGridFromRowsRejectsRagged(t *testing.T) {
	if _, err := GridFromRows([][]float64{{0, 1}, {2}}); err == nil {
		t.Fatalf("expected ragged rows to fail")
	}
	g, err := GridFromRows([][]float64{{0, 1}, {2, 3}})
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if g.At(1, 0) != 1 || g.At(0, 1) != 2 || g.Sum() != 6 {
		t.Fatalf("unexpected layout %v", g.Cells())
	}
	lo, hi := g.MinMax()
	if lo != 0 || hi != 3 {
		t.Fatalf("unexpected range %v..%v", lo, hi)
	}
}

func TestSampleAtBilinear(t *testing.T) {
	g, _ := GridFromRows([][]float64{
		{0, 1, 2},
		{1, 2, 3},
		{2, 3, 4},
	})
	s, ok := g.SampleAt(0.5, 0.5)
	if !ok {
		t.Fatalf("expected interior sample")
	}
	if math.Abs(s.Height-1) > 1e-12 || s.GradientX != 1 || s.GradientY != 1 {
		t.Fatalf("unexpected sample %+v", s)
	}
	for _, p := range [][2]float64{{-0.1, 0}, {0, 2}, {2.5, 0.5}} {
		if _, ok := g.SampleAt(p[0], p[1]); ok {
			t.Fatalf("%v: expected out of range", p)
		}
	}
	if _, ok := g.SampleAt(1.99, 1.99); !ok {
		t.Fatalf("expected last cell to sample")
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := NewGrid(3)
	c := g.Clone()
	c.Set(1, 1, 5)
	if g.At(1, 1) != 0 {
		t.Fatalf("clone shares storage")
	}
	g.CopyFrom(c)
	if g.At(1, 1) != 5 {
		t.Fatalf("copy failed")
	}
}

func TestBatchClockPacing(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewBatchClock(time.Second)
	c.now = func() time.Time { return now }

	if !c.Ready() {
		t.Fatalf("first batch should be ready")
	}
	now = now.Add(500 * time.Millisecond)
	if c.Ready() {
		t.Fatalf("batch ran before interval elapsed")
	}
	now = now.Add(600 * time.Millisecond)
	if !c.Ready() {
		t.Fatalf("batch should run after interval")
	}
	c.SetInterval(0)
	if !c.Ready() || !c.Ready() {
		t.Fatalf("zero interval should always be ready")
	}
}
