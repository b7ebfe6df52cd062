// Package judge runs evaluation and ranking requests against a judge model
// and turns the structured replies into scores.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/physbench/physbench/internal/gateway"
	"github.com/physbench/physbench/internal/metrics"
	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/utils"
)

// Candidate is one named response submitted for judgment.
type Candidate struct {
	Name string
	Text string
}

// Option configures an Evaluator or Ranker.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Collectors
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics counts degraded judge contributions.
func WithMetrics(m *metrics.Collectors) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(client gateway.Invoker, opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	o.logger = utils.Component(o.logger, "judge").With("judge", client.Model())
	return o
}

// Evaluator grades a batch of candidate answers to a solvable question in
// a single call.
type Evaluator struct {
	client gateway.Invoker
	options
}

// NewEvaluator wraps client, which should carry the evaluator system prompt.
func NewEvaluator(client gateway.Invoker, opts ...Option) *Evaluator {
	return &Evaluator{client: client, options: buildOptions(client, opts)}
}

// Model returns the judge's model id.
func (e *Evaluator) Model() string { return e.client.Model() }

type batchEntry struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// EvaluateBatch scores every candidate. The returned map has one Score per
// candidate name. Call and parse failures are reported in-band as absent
// scores; the error is non-nil only when ctx is done.
func (e *Evaluator) EvaluateBatch(ctx context.Context, question, trueAnswer string, candidates []Candidate) (map[string]models.Score, time.Duration, error) {
	keys := make([]string, len(candidates))
	for i, c := range candidates {
		keys[i] = c.Name
	}

	text, elapsed, err := e.client.Invoke(ctx, batchPrompt(question, trueAnswer, candidates),
		gateway.WithSchema(BatchSchemaName, BatchSchema(keys)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		e.logger.Error("evaluator_call_failed", slog.String("error", err.Error()))
		e.metrics.RecordJudgeFailure(e.client.Model(), "api")
		return fill(keys, models.ErrorText(err.Error())), 0, nil
	}

	var payload struct {
		Evaluations map[string]json.RawMessage `json:"evaluations"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &payload); err != nil || payload.Evaluations == nil {
		if err == nil {
			err = errors.New(`missing "evaluations" object`)
		}
		perr := &ParseError{Judge: e.client.Model(), Err: err}
		e.logger.Error("evaluator_parse_failed", slog.String("error", perr.Error()))
		e.metrics.RecordJudgeFailure(e.client.Model(), "parse")
		return fill(keys, "Parse Error: "+err.Error()), elapsed, nil
	}

	scores := make(map[string]models.Score, len(keys))
	for _, key := range keys {
		raw, ok := payload.Evaluations[key]
		if !ok {
			e.logger.Warn("evaluation_missing", slog.String("candidate", key))
			scores[key] = models.AbsentScore(models.MetricLogicality, "Evaluation failed")
			continue
		}
		if err := validateJSON(entrySchema, raw); err != nil {
			e.logger.Warn("evaluation_invalid", slog.String("candidate", key), slog.String("error", err.Error()))
			scores[key] = models.AbsentScore(models.MetricLogicality, "Parse Error: "+err.Error())
			continue
		}
		var entry batchEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			scores[key] = models.AbsentScore(models.MetricLogicality, "Parse Error: "+err.Error())
			continue
		}
		scores[key] = models.NewScore(models.MetricLogicality, float64(entry.Score), entry.Reasoning)
	}
	return scores, elapsed, nil
}

func fill(keys []string, reasoning string) map[string]models.Score {
	scores := make(map[string]models.Score, len(keys))
	for _, key := range keys {
		scores[key] = models.AbsentScore(models.MetricLogicality, reasoning)
	}
	return scores
}

func batchPrompt(question, trueAnswer string, candidates []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Question:\n%s\n\n## True Answer:\n%s\n\n", question, trueAnswer)
	for _, c := range candidates {
		fmt.Fprintf(&b, "## Response from %s:\n%s\n\n", c.Name, c.Text)
	}
	return b.String()
}
