// Package orchestration runs benchmark iterations: one question end to end
// per iteration, fanned out over every configured model, and a runner that
// executes many iterations with bounded parallelism.
package orchestration

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/physbench/physbench/internal/claims"
	"github.com/physbench/physbench/internal/config"
	"github.com/physbench/physbench/internal/dataset"
	"github.com/physbench/physbench/internal/gateway"
	"github.com/physbench/physbench/internal/judge"
	"github.com/physbench/physbench/internal/metrics"
	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/scoring"
	"github.com/physbench/physbench/internal/utils"
)

// Clients holds the model clients of each role in canonical order. Report
// lists and artifact sections follow this order regardless of which call
// finishes first.
type Clients struct {
	Solvers    []gateway.Invoker
	Theorists  []gateway.Invoker
	Evaluators []gateway.Invoker
	Rankers    []gateway.Invoker
}

// Orchestrator processes single questions. It is safe for concurrent use:
// every iteration has its own artifact and the shared sources serialize
// their cursors.
type Orchestrator struct {
	cfg *config.BenchmarkConfig

	solvers    []gateway.Invoker
	theorists  []gateway.Invoker
	evaluators []*judge.Evaluator
	rankers    []*judge.Ranker

	solvable   dataset.QuestionSource
	unsolvable dataset.QuestionSource
	claims     claims.Store
	suite      *scoring.Suite

	metrics *metrics.Collectors
	logger  *slog.Logger

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

const (
	EventRunStart          EventType = "run_start"
	EventRunComplete       EventType = "run_complete"
	EventIterationStart    EventType = "iteration_start"
	EventIterationComplete EventType = "iteration_complete"
	EventIterationFailed   EventType = "iteration_failed"
	EventQuestionSelected  EventType = "question_selected"
	EventResponse          EventType = "response"
	EventJudgment          EventType = "judgment"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType  EventType
	Category   models.Category
	Iteration  int
	Total      int
	QuestionID string
	Model      string
	Duration   time.Duration
	Err        error
	Details    map[string]any
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithSolvableSource(s dataset.QuestionSource) Option {
	return func(o *Orchestrator) { o.solvable = s }
}

func WithUnsolvableSource(s dataset.QuestionSource) Option {
	return func(o *Orchestrator) { o.unsolvable = s }
}

// WithClaimStore replaces the default artifact-existence claim store.
func WithClaimStore(s claims.Store) Option {
	return func(o *Orchestrator) { o.claims = s }
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator for the given clients.
func New(cfg *config.BenchmarkConfig, clients Clients, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("benchmark config is required")
	}

	o := &Orchestrator{
		cfg:       cfg,
		solvers:   clients.Solvers,
		theorists: clients.Theorists,
		listeners: []ProgressListener{},
	}
	for _, opt := range opts {
		opt(o)
	}
	base := o.logger
	o.logger = utils.Component(base, "orchestrator")

	names := models.DefaultMetrics
	if spec := cfg.Spec(); spec != nil && len(spec.Config.Metrics) > 0 {
		names = spec.Config.Metrics
	}
	suite, err := scoring.NewSuite(names...)
	if err != nil {
		return nil, fmt.Errorf("building metric suite: %w", err)
	}
	o.suite = suite

	if o.claims == nil {
		o.claims = claims.NewFileStore(cfg.OutputDir())
	}

	judgeOpts := []judge.Option{judge.WithLogger(base), judge.WithMetrics(o.metrics)}
	for _, c := range clients.Evaluators {
		o.evaluators = append(o.evaluators, judge.NewEvaluator(c, judgeOpts...))
	}
	for _, c := range clients.Rankers {
		o.rankers = append(o.rankers, judge.NewRanker(c, judgeOpts...))
	}

	return o, nil
}

// Metrics returns the names of the deterministic metrics, in column order.
func (o *Orchestrator) Metrics() []string {
	return o.suite.Names()
}

// OnProgress registers a progress listener
func (o *Orchestrator) OnProgress(listener ProgressListener) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.listeners = append(o.listeners, listener)
}

func (o *Orchestrator) notifyProgress(event ProgressEvent) {
	o.progressMu.Lock()
	listeners := make([]ProgressListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.progressMu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}

// datasetConfig returns the dataset settings for a category, falling back
// to the defaults a spec would apply.
func (o *Orchestrator) datasetConfig(category models.Category) models.DatasetConfig {
	var d *models.DatasetConfig
	if spec := o.cfg.Spec(); spec != nil {
		if category == models.CategorySolvable {
			d = spec.Datasets.Solvable
		} else {
			d = spec.Datasets.Unsolvable
		}
	}
	if d != nil {
		return *d
	}

	if category == models.CategorySolvable {
		return models.DatasetConfig{Draw: models.DrawRandom, QuestionField: "message_1", AnswerField: "message_2"}
	}
	return models.DatasetConfig{Draw: models.DrawSequential, QuestionField: "question"}
}

func (o *Orchestrator) source(category models.Category) (dataset.QuestionSource, error) {
	src := o.solvable
	if category == models.CategoryUnsolvable {
		src = o.unsolvable
	}
	if src == nil {
		return nil, fmt.Errorf("no %s question source configured", category)
	}
	return src, nil
}
