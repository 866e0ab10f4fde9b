package app

import (
	"flag"
	"testing"
	"time"
)

func TestBindParsesFlags(t *testing.T) {
	cfg := NewConfig()
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	cfg.Bind(fs)
	if err := fs.Parse([]string{"-scale", "2", "-interval", "1s", "-config", "run.yaml"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Scale != 2 || cfg.Interval != time.Second || cfg.Config != "run.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Sim != "hydro" {
		t.Fatalf("expected default sim hydro, got %q", cfg.Sim)
	}
}

func TestNextIntervalClamps(t *testing.T) {
	if got := nextInterval(200*time.Millisecond, true); got != 100*time.Millisecond {
		t.Fatalf("expected halved interval, got %v", got)
	}
	if got := nextInterval(200*time.Millisecond, false); got != 400*time.Millisecond {
		t.Fatalf("expected doubled interval, got %v", got)
	}
	if got := nextInterval(15*time.Millisecond, true); got != minInterval {
		t.Fatalf("expected floor %v, got %v", minInterval, got)
	}
	if got := nextInterval(0, false); got != minInterval {
		t.Fatalf("expected paced clock from zero interval, got %v", got)
	}
	if got := nextInterval(3*time.Second, false); got != maxInterval {
		t.Fatalf("expected ceiling %v, got %v", maxInterval, got)
	}
}
