package orchestration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/physbench/physbench/internal/config"
	"github.com/physbench/physbench/internal/metrics"
	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/reporting"
	"github.com/physbench/physbench/internal/utils"
)

// BenchmarkRunner executes many iterations with bounded parallelism and
// collects their reports.
type BenchmarkRunner struct {
	orch    *Orchestrator
	cfg     *config.BenchmarkConfig
	metrics *metrics.Collectors
	logger  *slog.Logger
}

// RunnerOption configures a BenchmarkRunner.
type RunnerOption func(*BenchmarkRunner)

func WithRunnerMetrics(m *metrics.Collectors) RunnerOption {
	return func(r *BenchmarkRunner) { r.metrics = m }
}

func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *BenchmarkRunner) { r.logger = l }
}

// NewBenchmarkRunner creates a runner over orch.
func NewBenchmarkRunner(cfg *config.BenchmarkConfig, orch *Orchestrator, opts ...RunnerOption) *BenchmarkRunner {
	r := &BenchmarkRunner{cfg: cfg, orch: orch}
	for _, o := range opts {
		o(r)
	}
	r.logger = utils.Component(r.logger, "runner")
	return r
}

// OnProgress registers a progress listener for runner and iteration events.
func (r *BenchmarkRunner) OnProgress(listener ProgressListener) {
	r.orch.OnProgress(listener)
}

// RunOutcome holds the reports of the iterations that completed, in
// completion order, and the iterations that failed.
type RunOutcome struct {
	Solvable   []models.SolvableReport
	Unsolvable []models.UnsolvableReport
	Failures   []reporting.IterationFailure
}

type iteration struct {
	category models.Category
	num      int
}

// Run executes the configured iteration counts.
func (r *BenchmarkRunner) Run(ctx context.Context) (*RunOutcome, error) {
	nSolvable, nUnsolvable := r.cfg.Iterations()
	return r.RunIterations(ctx, nSolvable, nUnsolvable)
}

// RunIterations runs nSolvable solvable and nUnsolvable unsolvable
// iterations with min(total, MaxWorkers) workers. A failed iteration is
// logged and recorded in the outcome; it never stops its siblings. When ctx
// is cancelled, iterations not yet started are dropped and the context
// error is returned without an outcome.
func (r *BenchmarkRunner) RunIterations(ctx context.Context, nSolvable, nUnsolvable int) (*RunOutcome, error) {
	out := &RunOutcome{}
	total := nSolvable + nUnsolvable
	if total <= 0 {
		r.logger.Warn("no iterations to run")
		return out, nil
	}

	iterations := make([]iteration, 0, total)
	for i := range nSolvable {
		iterations = append(iterations, iteration{category: models.CategorySolvable, num: i + 1})
	}
	for i := range nUnsolvable {
		iterations = append(iterations, iteration{category: models.CategoryUnsolvable, num: i + 1})
	}

	workers := min(total, r.cfg.MaxWorkers())
	r.logger.Info("run_start",
		slog.Int("solvable", nSolvable),
		slog.Int("unsolvable", nUnsolvable),
		slog.Int("workers", workers))
	r.orch.notifyProgress(ProgressEvent{EventType: EventRunStart, Total: total})

	start := time.Now()
	var mu sync.Mutex
	_, err := fanOut(ctx, iterations, workers, func(ctx context.Context, _ int, it iteration) (struct{}, error) {
		r.orch.notifyProgress(ProgressEvent{EventType: EventIterationStart, Category: it.category, Iteration: it.num, Total: total})
		itStart := time.Now()

		var (
			solvable   *models.SolvableReport
			unsolvable *models.UnsolvableReport
			questionID string
			err        error
		)
		if it.category == models.CategorySolvable {
			solvable, err = r.orch.RunSolvable(ctx)
			if solvable != nil {
				questionID = solvable.QuestionID
			}
		} else {
			unsolvable, err = r.orch.RunUnsolvable(ctx)
			if unsolvable != nil {
				questionID = unsolvable.QuestionID
			}
		}
		elapsed := time.Since(itStart)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return struct{}{}, ctxErr
			}
			r.logger.Error("iteration_failed",
				slog.String("category", string(it.category)),
				slog.Int("iteration", it.num),
				slog.String("error", err.Error()))
			r.metrics.RecordIteration(string(it.category), metrics.OutcomeFailed, elapsed)

			mu.Lock()
			out.Failures = append(out.Failures, reporting.IterationFailure{Category: it.category, Iteration: it.num, Error: err.Error()})
			mu.Unlock()

			r.orch.notifyProgress(ProgressEvent{EventType: EventIterationFailed, Category: it.category, Iteration: it.num, Total: total, Duration: elapsed, Err: err})
			return struct{}{}, nil
		}

		r.metrics.RecordIteration(string(it.category), metrics.OutcomeSuccess, elapsed)
		mu.Lock()
		if solvable != nil {
			out.Solvable = append(out.Solvable, *solvable)
		} else {
			out.Unsolvable = append(out.Unsolvable, *unsolvable)
		}
		mu.Unlock()

		r.orch.notifyProgress(ProgressEvent{
			EventType:  EventIterationComplete,
			Category:   it.category,
			Iteration:  it.num,
			Total:      total,
			QuestionID: questionID,
			Duration:   elapsed,
		})
		return struct{}{}, nil
	})
	if err != nil {
		r.logger.Warn("run_cancelled", slog.String("error", err.Error()))
		return nil, err
	}

	r.logger.Info("run_complete",
		slog.Int("solvable", len(out.Solvable)),
		slog.Int("unsolvable", len(out.Unsolvable)),
		slog.Int("failed", len(out.Failures)),
		slog.Duration("elapsed", time.Since(start)))
	r.orch.notifyProgress(ProgressEvent{
		EventType: EventRunComplete,
		Total:     total,
		Duration:  time.Since(start),
		Details:   map[string]any{"failed": len(out.Failures)},
	})
	return out, nil
}
