package main

import (
	"flag"
	"testing"
)

func TestSetFlagOverridesConfig(t *testing.T) {
	var opts options
	fs := flag.NewFlagSet("hydro", flag.ContinueOnError)
	fs.Var(&opts.sets, "set", "")
	if err := fs.Parse([]string{"-set", "epsilon=0.05", "-set", "pool_iterations = 12"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts.erosion, opts.pools = -1, -1

	cfg, err := loadConfig(opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Params.Pools.Epsilon != 0.05 || cfg.PoolIterations != 12 {
		t.Fatalf("overrides not applied: eps %v pools %d", cfg.Params.Pools.Epsilon, cfg.PoolIterations)
	}
}

func TestSetFlagRejectsBadPairs(t *testing.T) {
	var sets overrides
	if err := sets.Set("epsilon"); err == nil {
		t.Fatalf("expected missing '=' rejected")
	}

	opts := options{erosion: -1, pools: -1, sets: overrides{"no_such_key=1"}}
	if _, err := loadConfig(opts); err == nil {
		t.Fatalf("expected unknown key rejected")
	}
	opts.sets = overrides{"epsilon=-1"}
	if _, err := loadConfig(opts); err == nil {
		t.Fatalf("expected invalid value rejected by validation")
	}
}
