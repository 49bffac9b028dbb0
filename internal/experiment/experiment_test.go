package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/integrators"
	"github.com/san-kum/clothsim/internal/metrics"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.NumX, cfg.NumY = 4, 4
	cfg.Duration = 0.32
	cfg.SampleEvery = 5
	return cfg
}

func TestExperimentRun(t *testing.T) {
	exp := New("small", smallConfig())
	if _, err := exp.Run(context.Background()); err == nil {
		t.Fatal("Run before Setup should fail")
	}

	exp.RecordFrames(true)
	if err := exp.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.StepsTaken != 20 {
		t.Errorf("steps = %d, want 20", result.StepsTaken)
	}
	if len(result.Frames) == 0 {
		t.Error("no frames recorded")
	}
	for _, m := range metrics.Standard() {
		if _, ok := result.Metrics[m.Name()]; !ok {
			t.Errorf("missing standard metric %s", m.Name())
		}
	}
	if exp.Elapsed() <= 0 {
		t.Error("elapsed time not recorded")
	}
}

func TestExperimentCustomMetrics(t *testing.T) {
	exp := New("ke", smallConfig())
	if err := exp.Setup(metrics.NewKineticEnergy()); err != nil {
		t.Fatal(err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Metrics) != 1 {
		t.Errorf("metrics = %v, want only kinetic_energy", result.Metrics)
	}
}

func TestExperimentSetupRejectsBadConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Mass = 0
	if err := New("bad", cfg).Setup(); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("Setup: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	names := r.Names()
	if len(names) != len(config.ListPresets())+1 {
		t.Errorf("names = %v", names)
	}

	a, err := r.Get("drape")
	if err != nil {
		t.Fatal(err)
	}
	a.NumX = 99
	b, _ := r.Get("drape")
	if b.NumX == 99 {
		t.Error("Get returned a shared config")
	}

	if _, err := r.Get("missing"); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("Get(missing): %v", err)
	}

	cfg, err := r.Resolve("", "")
	if err != nil || cfg.NumX != config.DefaultNumX {
		t.Errorf("Resolve default: %v %v", cfg, err)
	}

	r.Register("tiny", smallConfig)
	cfg, err = r.Resolve("tiny", "")
	if err != nil || cfg.NumX != 4 {
		t.Errorf("Resolve tiny: %v", err)
	}
}

func TestRegistryResolveFilePrecedence(t *testing.T) {
	path := t.TempDir() + "/cloth.yaml"
	cfg := smallConfig()
	cfg.NumX = 7
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := NewRegistry().Resolve("drape", path)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumX != 7 {
		t.Errorf("file did not win over preset: num_x=%d", got.NumX)
	}
}

func TestCompareIntegrators(t *testing.T) {
	methods := integrators.Methods()
	out, elapsed, err := CompareIntegrators(context.Background(), smallConfig(), methods)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed <= 0 {
		t.Error("no elapsed time")
	}
	if len(out) != len(methods) {
		t.Fatalf("got %d comparisons", len(out))
	}
	for i, c := range out {
		if c.Integrator != methods[i] {
			t.Errorf("comparison %d is %v, want %v", i, c.Integrator, methods[i])
		}
		if c.Result == nil || c.Result.StepsTaken != 20 {
			t.Errorf("%v: incomplete result", c.Integrator)
		}
		if _, ok := c.Result.Metrics["energy_drift"]; !ok {
			t.Errorf("%v: missing energy drift", c.Integrator)
		}
	}
}
