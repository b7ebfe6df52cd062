package config

import (
	"path/filepath"
	"testing"

	"github.com/physbench/physbench/internal/models"
)

func TestNewBenchmarkConfig_DefaultValues(t *testing.T) {
	spec := &models.BenchmarkSpec{Name: "test-spec"}

	cfg := NewBenchmarkConfig(spec)

	if cfg.Spec() != spec {
		t.Fatalf("Spec() = %p, want %p", cfg.Spec(), spec)
	}
	if cfg.SpecDir() != "" {
		t.Fatalf("SpecDir() = %q, want empty", cfg.SpecDir())
	}
	if cfg.Verbose() {
		t.Fatalf("Verbose() = true, want false")
	}
	if cfg.OutputDir() != models.DefaultOutputDir {
		t.Fatalf("OutputDir() = %q, want %q", cfg.OutputDir(), models.DefaultOutputDir)
	}
	if cfg.MaxWorkers() != models.DefaultMaxWorkers {
		t.Fatalf("MaxWorkers() = %d, want %d", cfg.MaxWorkers(), models.DefaultMaxWorkers)
	}
	if cfg.MaxDrawAttempts() != models.DefaultMaxDrawAttempts {
		t.Fatalf("MaxDrawAttempts() = %d, want %d", cfg.MaxDrawAttempts(), models.DefaultMaxDrawAttempts)
	}
	s, u := cfg.Iterations()
	if s != 0 || u != 0 {
		t.Fatalf("Iterations() = (%d, %d), want (0, 0)", s, u)
	}
}

func TestNewBenchmarkConfig_SpecValues(t *testing.T) {
	spec := &models.BenchmarkSpec{Config: models.RunConfig{
		SolvableIterations:   3,
		UnsolvableIterations: 2,
		MaxWorkers:           7,
		OutputDir:            "outputs/v3",
		MaxDrawAttempts:      9,
	}}

	cfg := NewBenchmarkConfig(spec)

	if cfg.OutputDir() != "outputs/v3" {
		t.Fatalf("OutputDir() = %q, want %q", cfg.OutputDir(), "outputs/v3")
	}
	if cfg.CSVDir() != filepath.Join("outputs/v3", "csv") {
		t.Fatalf("CSVDir() = %q", cfg.CSVDir())
	}
	if cfg.MaxWorkers() != 7 {
		t.Fatalf("MaxWorkers() = %d, want 7", cfg.MaxWorkers())
	}
	if cfg.MaxDrawAttempts() != 9 {
		t.Fatalf("MaxDrawAttempts() = %d, want 9", cfg.MaxDrawAttempts())
	}
	s, u := cfg.Iterations()
	if s != 3 || u != 2 {
		t.Fatalf("Iterations() = (%d, %d), want (3, 2)", s, u)
	}
}

func TestNewBenchmarkConfig_AppliesFunctionalOptions(t *testing.T) {
	spec := &models.BenchmarkSpec{Config: models.RunConfig{SolvableIterations: 5, MaxWorkers: 3}}

	cfg := NewBenchmarkConfig(
		spec,
		WithSpecDir("/tmp/specs"),
		WithVerbose(true),
		WithOutputDir("out"),
		WithMaxWorkers(2),
		WithMaxDrawAttempts(4),
		WithIterations(1, 0),
	)

	if cfg.SpecDir() != "/tmp/specs" {
		t.Fatalf("SpecDir() = %q, want %q", cfg.SpecDir(), "/tmp/specs")
	}
	if !cfg.Verbose() {
		t.Fatalf("Verbose() = false, want true")
	}
	if cfg.OutputDir() != "out" {
		t.Fatalf("OutputDir() = %q, want %q", cfg.OutputDir(), "out")
	}
	if cfg.MaxWorkers() != 2 {
		t.Fatalf("MaxWorkers() = %d, want 2", cfg.MaxWorkers())
	}
	if cfg.MaxDrawAttempts() != 4 {
		t.Fatalf("MaxDrawAttempts() = %d, want 4", cfg.MaxDrawAttempts())
	}
	s, u := cfg.Iterations()
	if s != 1 || u != 0 {
		t.Fatalf("Iterations() = (%d, %d), want (1, 0)", s, u)
	}
}

func TestOptionOrder_LastOptionWins(t *testing.T) {
	cfg := NewBenchmarkConfig(
		&models.BenchmarkSpec{},
		WithVerbose(true),
		WithVerbose(false),
		WithOutputDir("first"),
		WithOutputDir("second"),
	)

	if cfg.Verbose() {
		t.Fatalf("Verbose() = true, want false")
	}
	if cfg.OutputDir() != "second" {
		t.Fatalf("OutputDir() = %q, want %q", cfg.OutputDir(), "second")
	}
}

func TestResolvePath(t *testing.T) {
	cfg := NewBenchmarkConfig(nil, WithSpecDir("/bench"))

	if got := cfg.ResolvePath("data/q.json"); got != filepath.Join("/bench", "data/q.json") {
		t.Fatalf("ResolvePath(relative) = %q", got)
	}
	if got := cfg.ResolvePath("/abs/q.json"); got != "/abs/q.json" {
		t.Fatalf("ResolvePath(absolute) = %q", got)
	}
	if got := cfg.ResolvePath(""); got != "" {
		t.Fatalf("ResolvePath(empty) = %q", got)
	}
}

func TestNewBenchmarkConfig_NilSpecAllowed(t *testing.T) {
	cfg := NewBenchmarkConfig(nil)

	if cfg.Spec() != nil {
		t.Fatalf("Spec() = %v, want nil", cfg.Spec())
	}
	if cfg.OutputDir() != models.DefaultOutputDir {
		t.Fatalf("OutputDir() = %q", cfg.OutputDir())
	}
}

func TestNewBenchmarkConfig_NilOptionPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for nil option, got none")
		}
	}()

	_ = NewBenchmarkConfig(&models.BenchmarkSpec{}, nil)
}
