package snapshot

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "world.snap.zst")
	snap := SnapshotV1{
		Header:  Header{Seed: 9, Size: 2, Pools: 1, Phase: "done"},
		Config:  []byte("map_size: 2\n"),
		Heights: []float64{0, 1, 2, 3},
		Water:   []float64{0.5, 1, 2, 3},
		Pools:   []PoolV1{{ID: 4, Volume: 0.5, Cells: [][2]int{{0, 0}}, Height: []float64{0}}},
		NextID:  5,
	}
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.Version != Version || h.Seed != 9 || h.Pools != 1 {
		t.Fatalf("unexpected header %+v", h)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.NextID != 5 || len(got.Pools) != 1 || got.Pools[0].ID != 4 {
		t.Fatalf("unexpected pools %+v next %d", got.Pools, got.NextID)
	}
	for i, v := range snap.Water {
		if got.Water[i] != v {
			t.Fatalf("water %d: expected %v, got %v", i, v, got.Water[i])
		}
	}
	if string(got.Config) != "map_size: 2\n" {
		t.Fatalf("config mismatch: %q", got.Config)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); !errors.Is(err, ErrVersion) {
		t.Fatalf("expected ErrVersion, got %v", err)
	}
}

func TestEncodeReportsWriterFailure(t *testing.T) {
	want := errors.New("disk full")
	snap := SnapshotV1{Heights: []float64{0, 1, 2, 3}, Water: []float64{0, 1, 2, 3}}
	if err := Encode(failingWriter{err: want}, snap); err == nil {
		t.Fatalf("expected writer failure to surface")
	}

	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected compressed output")
	}
}
