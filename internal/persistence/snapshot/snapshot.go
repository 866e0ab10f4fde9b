// Package snapshot stores hydro worlds as zstd-compressed files: one JSON
// header line followed by a gob body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Version is the current snapshot layout.
const Version = 1

// ErrVersion reports a snapshot written with an unknown layout.
var ErrVersion = errors.New("snapshot: unsupported version")

type Header struct {
	Version int    `json:"version"`
	Seed    int64  `json:"seed"`
	Size    int    `json:"size"`
	Pools   int    `json:"pools"`
	Phase   string `json:"phase,omitempty"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	// Config is the YAML encoding of the run configuration.
	Config []byte `json:"config"`

	Heights []float64 `json:"heights"`
	Water   []float64 `json:"water"`
	Pools   []PoolV1  `json:"pools"`
	NextID  int       `json:"next_id"`
}

type PoolV1 struct {
	ID     int       `json:"id"`
	Volume float64   `json:"volume"`
	Cells  [][2]int  `json:"cells"`
	Height []float64 `json:"height"`
}

// WriteSnapshot writes snap to path, creating parent directories.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Encode(f, snap); err != nil {
		return err
	}
	return f.Close()
}

// Encode writes the compressed header line and gob body to w. The zstd
// encoder is closed on every path.
func Encode(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = enc.Close()
		}
	}()
	bw := bufio.NewWriterSize(enc, 256*1024)

	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	closed = true
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// ReadSnapshot decodes the snapshot at path.
func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("%w: %d", ErrVersion, snap.Header.Version)
	}
	return snap, nil
}
