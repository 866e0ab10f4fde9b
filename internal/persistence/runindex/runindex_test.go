package runindex

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRecordAndList(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	for i, label := range []string{"sweep", "cli", "sweep"} {
		id, err := idx.Record(ctx, Run{
			Label:   label,
			Seed:    int64(i),
			MapSize: 32,
			Pools:   i + 1,
			Volume:  float64(i) * 0.5,
			Params:  map[string]string{"epsilon": "0.01"},
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if id != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, id)
		}
	}

	sweeps, err := idx.List(ctx, "sweep", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sweeps) != 2 {
		t.Fatalf("expected 2 sweep runs, got %d", len(sweeps))
	}
	if sweeps[0].Seed != 2 || sweeps[1].Seed != 0 {
		t.Fatalf("expected newest first, got seeds %d, %d", sweeps[0].Seed, sweeps[1].Seed)
	}
	if sweeps[0].Params["epsilon"] != "0.01" {
		t.Fatalf("params not restored: %v", sweeps[0].Params)
	}
	if sweeps[0].RecordedAt.IsZero() {
		t.Fatalf("expected recorded_at to be stamped")
	}

	all, err := idx.List(ctx, "", 1)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].Label != "sweep" {
		t.Fatalf("expected single newest run, got %+v", all)
	}
}
