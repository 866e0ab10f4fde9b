// Package runindex records finished hydro runs in a SQLite table so sweeps
// and repeated CLI runs can be compared later.
package runindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run summarizes one completed simulation.
type Run struct {
	ID         int64
	Label      string
	Seed       int64
	MapSize    int
	Erosion    int
	Droplets   int
	Pools      int
	Volume     float64
	Merges     int
	Dropped    int
	Snapshot   string
	Params     map[string]string
	RecordedAt time.Time
}

// Index is a SQLite-backed run table.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index at path.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			seed INTEGER NOT NULL,
			map_size INTEGER NOT NULL,
			erosion INTEGER NOT NULL,
			droplets INTEGER NOT NULL,
			pools INTEGER NOT NULL,
			volume REAL NOT NULL,
			merges INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			snapshot TEXT NOT NULL,
			params_json TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database.
func (x *Index) Close() error {
	if x == nil {
		return nil
	}
	return x.db.Close()
}

// Record inserts r and returns its row id. A zero RecordedAt is stamped with
// the current time.
func (x *Index) Record(ctx context.Context, r Run) (int64, error) {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	params := r.Params
	if params == nil {
		params = map[string]string{}
	}
	pj, err := json.Marshal(params)
	if err != nil {
		return 0, err
	}
	res, err := x.db.ExecContext(ctx,
		`INSERT INTO runs (label, seed, map_size, erosion, droplets, pools, volume, merges, dropped, snapshot, params_json, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Label, r.Seed, r.MapSize, r.Erosion, r.Droplets, r.Pools, r.Volume, r.Merges, r.Dropped,
		r.Snapshot, string(pj), r.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// List returns runs with the given label (all runs when label is empty),
// newest first, at most limit rows (no limit when limit <= 0).
func (x *Index) List(ctx context.Context, label string, limit int) ([]Run, error) {
	q := `SELECT id, label, seed, map_size, erosion, droplets, pools, volume, merges, dropped, snapshot, params_json, recorded_at FROM runs`
	var args []any
	if label != "" {
		q += ` WHERE label = ?`
		args = append(args, label)
	}
	q += ` ORDER BY id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var pj, at string
		if err := rows.Scan(&r.ID, &r.Label, &r.Seed, &r.MapSize, &r.Erosion, &r.Droplets, &r.Pools,
			&r.Volume, &r.Merges, &r.Dropped, &r.Snapshot, &pj, &at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pj), &r.Params); err != nil {
			return nil, fmt.Errorf("run %d params: %w", r.ID, err)
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("run %d time: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
