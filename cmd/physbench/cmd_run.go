package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/physbench/physbench/internal/cache"
	"github.com/physbench/physbench/internal/claims"
	"github.com/physbench/physbench/internal/config"
	"github.com/physbench/physbench/internal/dataset"
	"github.com/physbench/physbench/internal/gateway"
	"github.com/physbench/physbench/internal/metrics"
	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/orchestration"
	"github.com/physbench/physbench/internal/prompts"
	"github.com/physbench/physbench/internal/reporting"
)

// MetricsFile is the Prometheus textfile written next to the results.
const MetricsFile = "metrics.prom"

const apiKeyEnv = "OPENROUTER_API_KEY"

// runOptions are the resolved flag and environment values of a run.
type runOptions struct {
	outputDir            string
	maxWorkers           int
	maxDrawAttempts      int
	solvableIterations   int
	unsolvableIterations int
	junitPath            string
	verbose              bool
	progress             bool
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <benchmark.yaml>",
		Short: "Run a benchmark",
		Long: `Run the solvable and unsolvable iterations of a benchmark spec.

Each iteration picks a question that has no artifact yet, asks every
configured model, judges the answers and writes a markdown artifact under
the output directory. CSV exports, results.json and a Prometheus metrics
file are written when the run ends.

Every flag can also be set through a PHYSBENCH_ environment variable, for
example PHYSBENCH_MAX_WORKERS=4. The API key is read from ` + apiKeyEnv + `,
which may live in a .env file.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().String("output-dir", "", "Output directory (overrides config.output_dir)")
	cmd.Flags().Int("max-workers", 0, "Maximum concurrent iterations (overrides config.max_workers)")
	cmd.Flags().Int("max-draw-attempts", 0, "Draws per iteration before giving up on finding a new question")
	cmd.Flags().Int("solvable", -1, "Number of solvable iterations (overrides the spec)")
	cmd.Flags().Int("unsolvable", -1, "Number of unsolvable iterations (overrides the spec)")
	cmd.Flags().String("junit", "", "Also write a JUnit XML report to this path")
	cmd.Flags().BoolP("verbose", "v", false, "Print every response and judgment")
	cmd.Flags().Bool("progress", true, "Show progress while running")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	v, err := bindEnv(cmd)
	if err != nil {
		return err
	}
	opts := runOptions{
		outputDir:            v.GetString("output-dir"),
		maxWorkers:           v.GetInt("max-workers"),
		maxDrawAttempts:      v.GetInt("max-draw-attempts"),
		solvableIterations:   v.GetInt("solvable"),
		unsolvableIterations: v.GetInt("unsolvable"),
		junitPath:            v.GetString("junit"),
		verbose:              v.GetBool("verbose"),
		progress:             v.GetBool("progress"),
	}

	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("%s is not set", apiKeyEnv)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := newReporter(cmd.OutOrStdout(), opts)
	defer rep.stop()

	results, err := runBenchmark(ctx, args[0], apiKey, opts, rep.listen)
	rep.stop()
	if err != nil {
		return err
	}

	printRunSummary(cmd.OutOrStdout(), results)

	if n := len(results.Failures); n > 0 {
		return &IterationFailureError{Failed: n, Total: n + len(results.Solvable) + len(results.Unsolvable)}
	}
	return nil
}

// runBenchmark loads the spec, runs every iteration and writes the run's
// outputs. It returns the results even when some iterations failed.
func runBenchmark(ctx context.Context, specPath, apiKey string, opts runOptions, listener orchestration.ProgressListener) (*reporting.RunResults, error) {
	spec, err := models.LoadBenchmarkSpec(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec: %w", err)
	}

	specDir := filepath.Dir(specPath)
	if abs, err := filepath.Abs(specDir); err == nil {
		specDir = abs
	}

	cfgOpts := []config.Option{
		config.WithSpecDir(specDir),
		config.WithOutputDir(opts.outputDir),
		config.WithMaxWorkers(opts.maxWorkers),
		config.WithMaxDrawAttempts(opts.maxDrawAttempts),
		config.WithVerbose(opts.verbose),
	}
	if opts.solvableIterations >= 0 || opts.unsolvableIterations >= 0 {
		s, u := spec.Config.SolvableIterations, spec.Config.UnsolvableIterations
		if opts.solvableIterations >= 0 {
			s = opts.solvableIterations
		}
		if opts.unsolvableIterations >= 0 {
			u = opts.unsolvableIterations
		}
		cfgOpts = append(cfgOpts, config.WithIterations(s, u))
	}
	cfg := config.NewBenchmarkConfig(spec, cfgOpts...)

	nSolvable, nUnsolvable := cfg.Iterations()
	if nSolvable > 0 && spec.Datasets.Solvable == nil {
		return nil, errors.New("solvable iterations requested but datasets.solvable is missing")
	}
	if nUnsolvable > 0 && spec.Datasets.Unsolvable == nil {
		return nil, errors.New("unsolvable iterations requested but datasets.unsolvable is missing")
	}

	logger := slog.Default()
	m := metrics.New()

	orchOpts := []orchestration.Option{
		orchestration.WithMetrics(m),
		orchestration.WithLogger(logger),
	}
	if d := spec.Datasets.Solvable; d != nil {
		src, err := dataset.Open(*d, cfg.ResolvePath(d.Path))
		if err != nil {
			return nil, fmt.Errorf("opening solvable dataset: %w", err)
		}
		orchOpts = append(orchOpts, orchestration.WithSolvableSource(src))
	}
	if d := spec.Datasets.Unsolvable; d != nil {
		src, err := dataset.Open(*d, cfg.ResolvePath(d.Path))
		if err != nil {
			return nil, fmt.Errorf("opening unsolvable dataset: %w", err)
		}
		orchOpts = append(orchOpts, orchestration.WithUnsolvableSource(src))
	}

	store, err := claims.Open(spec.Claims, cfg.OutputDir())
	if err != nil {
		return nil, fmt.Errorf("opening claim store: %w", err)
	}
	defer store.Close() //nolint:errcheck
	orchOpts = append(orchOpts, orchestration.WithClaimStore(store))

	clients, err := buildClients(cfg, apiKey, m, logger)
	if err != nil {
		return nil, err
	}

	orch, err := orchestration.New(cfg, clients, orchOpts...)
	if err != nil {
		return nil, err
	}
	runner := orchestration.NewBenchmarkRunner(cfg, orch,
		orchestration.WithRunnerMetrics(m),
		orchestration.WithRunnerLogger(logger))
	if listener != nil {
		runner.OnProgress(listener)
	}

	started := time.Now()
	out, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	results := reporting.NewRunResults(spec.Name, orch.Metrics(), started)
	results.FinishedAt = time.Now().UTC()
	results.Solvable = out.Solvable
	results.Unsolvable = out.Unsolvable
	results.Failures = out.Failures

	if err := writeOutputs(cfg, results, m, opts.junitPath); err != nil {
		return nil, err
	}
	return results, nil
}

// buildClients creates one gateway client per configured model and role.
// All clients share one rate limiter when requests_per_second is set.
func buildClients(cfg *config.BenchmarkConfig, apiKey string, m *metrics.Collectors, logger *slog.Logger) (orchestration.Clients, error) {
	spec := cfg.Spec()
	g := spec.Gateway

	var limiter *rate.Limiter
	if g.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(g.RequestsPerSecond), max(1, int(g.RequestsPerSecond)))
	}

	var rc *cache.ResponseCache
	if g.CacheDir != "" {
		var err error
		rc, err = cache.New(cfg.ResolvePath(g.CacheDir))
		if err != nil {
			return orchestration.Clients{}, fmt.Errorf("opening response cache: %w", err)
		}
	}

	build := func(names []string, role prompts.Role) []gateway.Invoker {
		out := make([]gateway.Invoker, len(names))
		for i, name := range names {
			out[i] = gateway.NewClient(name, apiKey,
				gateway.WithAPIURL(g.APIURL),
				gateway.WithRetryConfig(gateway.RetryConfigFromSpec(g)),
				gateway.WithMaxTokens(g.MaxTokens),
				gateway.WithDefaultSystemPrompt(prompts.Resolve(spec.Prompts, role)),
				gateway.WithRateLimiter(limiter),
				gateway.WithResponseCache(rc),
				gateway.WithMetrics(m),
				gateway.WithLogger(logger),
			)
		}
		return out
	}

	return orchestration.Clients{
		Solvers:    build(spec.Models.Solvers, prompts.RoleSolver),
		Theorists:  build(spec.Models.Theorists, prompts.RoleTheorist),
		Evaluators: build(spec.Models.Evaluators, prompts.RoleEvaluator),
		Rankers:    build(spec.Models.Rankers, prompts.RoleRanker),
	}, nil
}

func writeOutputs(cfg *config.BenchmarkConfig, results *reporting.RunResults, m *metrics.Collectors, junitPath string) error {
	if err := reporting.ExportCSV(cfg.CSVDir(), results.Solvable, results.Unsolvable, results.Metrics); err != nil {
		return fmt.Errorf("exporting CSV: %w", err)
	}
	if err := reporting.WriteResults(filepath.Join(cfg.OutputDir(), reporting.ResultsFile), results); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	if err := m.WriteTextfile(filepath.Join(cfg.OutputDir(), MetricsFile)); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	if junitPath != "" {
		if err := reporting.WriteJUnitXML(results, junitPath); err != nil {
			return fmt.Errorf("writing JUnit report: %w", err)
		}
	}
	return nil
}
