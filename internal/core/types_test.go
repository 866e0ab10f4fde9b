package core

import (
	"sort"
	"testing"
)

type stubSim struct{}

func (stubSim) Name() string   { return "stub" }
func (stubSim) Size() Size     { return Size{} }
func (stubSim) Reset(int64)    {}
func (stubSim) Step()          {}
func (stubSim) Cells() []uint8 { return nil }

func TestSimNamesSorted(t *testing.T) {
	f := func(map[string]string) Sim { return stubSim{} }
	Register("zz-stub", f)
	Register("aa-stub", f)
	Register("", f)
	Register("nil-stub", nil)

	names := SimNames()
	if !sort.StringsAreSorted(names) {
		t.Fatalf("expected sorted names, got %v", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["aa-stub"] || !seen["zz-stub"] {
		t.Fatalf("expected registered stubs in %v", names)
	}
	if seen[""] || seen["nil-stub"] {
		t.Fatalf("expected empty name and nil factory rejected, got %v", names)
	}
}
