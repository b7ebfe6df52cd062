package config

import (
	"path/filepath"

	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/utils"
)

// BenchmarkConfig is the resolved configuration for one benchmark run: the
// loaded spec plus overrides coming from flags and the environment.
type BenchmarkConfig struct {
	spec    *models.BenchmarkSpec
	specDir string
	verbose bool

	outputDir       string
	maxWorkers      int
	maxDrawAttempts int

	solvableIterations   *int
	unsolvableIterations *int
}

// Option configures a BenchmarkConfig.
type Option func(*BenchmarkConfig)

// NewBenchmarkConfig builds a config from a spec and options. Options are
// applied in order, so the last one wins. A nil option panics.
func NewBenchmarkConfig(spec *models.BenchmarkSpec, opts ...Option) *BenchmarkConfig {
	c := &BenchmarkConfig{spec: spec}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithSpecDir sets the directory relative dataset paths resolve against.
func WithSpecDir(dir string) Option {
	return func(c *BenchmarkConfig) { c.specDir = dir }
}

func WithVerbose(v bool) Option {
	return func(c *BenchmarkConfig) { c.verbose = v }
}

// WithOutputDir overrides config.output_dir.
func WithOutputDir(dir string) Option {
	return func(c *BenchmarkConfig) { c.outputDir = dir }
}

// WithMaxWorkers overrides config.max_workers. Values <= 0 are ignored.
func WithMaxWorkers(n int) Option {
	return func(c *BenchmarkConfig) { c.maxWorkers = n }
}

// WithMaxDrawAttempts overrides config.max_draw_attempts. Values <= 0 are ignored.
func WithMaxDrawAttempts(n int) Option {
	return func(c *BenchmarkConfig) { c.maxDrawAttempts = n }
}

// WithIterations overrides both iteration counts.
func WithIterations(solvable, unsolvable int) Option {
	return func(c *BenchmarkConfig) {
		c.solvableIterations = &solvable
		c.unsolvableIterations = &unsolvable
	}
}

func (c *BenchmarkConfig) Spec() *models.BenchmarkSpec { return c.spec }
func (c *BenchmarkConfig) SpecDir() string             { return c.specDir }
func (c *BenchmarkConfig) Verbose() bool               { return c.verbose }

// OutputDir returns the output directory, preferring the override.
func (c *BenchmarkConfig) OutputDir() string {
	if c.outputDir != "" {
		return c.outputDir
	}
	if c.spec != nil && c.spec.Config.OutputDir != "" {
		return c.spec.Config.OutputDir
	}
	return models.DefaultOutputDir
}

// CSVDir is where aggregate exports are written.
func (c *BenchmarkConfig) CSVDir() string {
	return filepath.Join(c.OutputDir(), "csv")
}

// MaxWorkers returns the iteration pool cap.
func (c *BenchmarkConfig) MaxWorkers() int {
	if c.maxWorkers > 0 {
		return c.maxWorkers
	}
	if c.spec != nil && c.spec.Config.MaxWorkers > 0 {
		return c.spec.Config.MaxWorkers
	}
	return models.DefaultMaxWorkers
}

// MaxDrawAttempts bounds the idempotent question search of one iteration.
func (c *BenchmarkConfig) MaxDrawAttempts() int {
	if c.maxDrawAttempts > 0 {
		return c.maxDrawAttempts
	}
	if c.spec != nil && c.spec.Config.MaxDrawAttempts > 0 {
		return c.spec.Config.MaxDrawAttempts
	}
	return models.DefaultMaxDrawAttempts
}

// Iterations returns the solvable and unsolvable iteration counts.
func (c *BenchmarkConfig) Iterations() (solvable, unsolvable int) {
	if c.spec != nil {
		solvable = c.spec.Config.SolvableIterations
		unsolvable = c.spec.Config.UnsolvableIterations
	}
	if c.solvableIterations != nil {
		solvable = *c.solvableIterations
	}
	if c.unsolvableIterations != nil {
		unsolvable = *c.unsolvableIterations
	}
	return solvable, unsolvable
}

// ResolvePath resolves a spec-relative path against the spec directory.
func (c *BenchmarkConfig) ResolvePath(path string) string {
	return utils.ResolvePath(path, c.specDir)
}
