package orchestration

import (
	"context"
	"log/slog"
	"time"

	"github.com/physbench/physbench/internal/dataset"
	"github.com/physbench/physbench/internal/gateway"
	"github.com/physbench/physbench/internal/judge"
	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/reporting"
)

type evaluation struct {
	scores  map[string]models.Score
	elapsed time.Duration
}

// RunSolvable processes one solvable question: every solver answers, the
// valid answers are scored and then judged by every evaluator in a single
// batched call each.
func (o *Orchestrator) RunSolvable(ctx context.Context) (*models.SolvableReport, error) {
	category := models.CategorySolvable
	dcfg := o.datasetConfig(category)

	q, err := o.selectQuestion(ctx, category, dcfg.Draw)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With("category", string(category), "question_id", q.ID)

	fields, err := dataset.ExtractSolvable(q, dcfg.QuestionField, dcfg.AnswerField)
	if err != nil {
		o.release(ctx, category, q.ID, logger)
		return nil, err
	}
	o.notifyProgress(ProgressEvent{EventType: EventQuestionSelected, Category: category, QuestionID: q.ID})

	path := reporting.ArtifactPath(o.cfg.OutputDir(), category, q.ID)
	if err := reporting.WriteSolvableHeader(path, q.ID, fields.Question, fields.TrueAnswer); err != nil {
		return nil, err
	}
	art := newArtifact(path, logger)

	responses, err := fanOut(ctx, o.solvers, len(o.solvers), func(ctx context.Context, _ int, c gateway.Invoker) (models.ModelResponse, error) {
		r := models.ModelResponse{ModelName: c.Model()}
		text, elapsed, err := c.Invoke(ctx, fields.Question)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r, ctxErr
			}
			logger.Warn("solver_failed", slog.String("model", c.Model()), slog.String("error", err.Error()))
			r.ResponseText = models.ErrorText(err.Error())
		} else {
			r.ResponseText = text
			r.GenerationTime = elapsed
			o.logResponse(ctx, logger, r.ModelName, text, elapsed)
		}

		art.do(func(path string) error { return reporting.AppendResponse(path, r.ModelName, r.ResponseText) })
		o.notifyProgress(ProgressEvent{
			EventType:  EventResponse,
			Category:   category,
			QuestionID: q.ID,
			Model:      r.ModelName,
			Duration:   r.GenerationTime,
			Details:    map[string]any{"failed": r.Failed()},
		})
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	var candidates []judge.Candidate
	for i := range responses {
		r := &responses[i]
		if r.Failed() {
			continue
		}
		r.DeterministicScores = o.suite.Score(r.ResponseText, fields.TrueAnswer)
		candidates = append(candidates, judge.Candidate{Name: r.ModelName, Text: r.ResponseText})
	}

	var evaluations []evaluation
	if len(candidates) == 0 {
		logger.Warn("no valid candidates")
	} else {
		evaluations, err = fanOut(ctx, o.evaluators, len(o.evaluators), func(ctx context.Context, _ int, e *judge.Evaluator) (evaluation, error) {
			scores, elapsed, err := e.EvaluateBatch(ctx, fields.Question, fields.TrueAnswer, candidates)
			if err != nil {
				return evaluation{}, err
			}
			o.notifyProgress(ProgressEvent{EventType: EventJudgment, Category: category, QuestionID: q.ID, Model: e.Model(), Duration: elapsed})
			return evaluation{scores: scores, elapsed: elapsed}, nil
		})
		if err != nil {
			return nil, err
		}
		o.mergeEvaluations(responses, evaluations)
	}

	o.writeSolvableAnalysis(art, responses, evaluations)

	return &models.SolvableReport{
		QuestionID: q.ID,
		Question:   fields.Question,
		TrueAnswer: fields.TrueAnswer,
		Responses:  responses,
	}, nil
}

// mergeEvaluations attaches each evaluator's verdicts to the valid
// responses, in evaluator order. evaluations is indexed like o.evaluators.
func (o *Orchestrator) mergeEvaluations(responses []models.ModelResponse, evaluations []evaluation) {
	for i := range responses {
		r := &responses[i]
		if r.Failed() {
			continue
		}
		for j, e := range o.evaluators {
			score, ok := evaluations[j].scores[r.ModelName]
			if !ok {
				score = models.AbsentScore(models.MetricLogicality, "Evaluation failed")
			}
			r.LLMEvaluations = append(r.LLMEvaluations, models.CrossEvaluation{
				EvaluatorModelName: e.Model(),
				Evaluation:         score,
				EvaluationTime:     evaluations[j].elapsed,
			})
		}
	}
}

func (o *Orchestrator) writeSolvableAnalysis(art *artifact, responses []models.ModelResponse, evaluations []evaluation) {
	metricNames := o.suite.Names()
	evaluatorNames := make([]string, len(o.evaluators))
	for i, e := range o.evaluators {
		evaluatorNames[i] = e.Model()
	}

	art.do(func(path string) error {
		if evaluations == nil {
			if err := reporting.AppendNoCandidates(path); err != nil {
				return err
			}
		}

		if err := reporting.StartAnalysisTable(path, metricNames, evaluatorNames); err != nil {
			return err
		}
		for _, r := range responses {
			cells := make([]string, 0, len(metricNames)+len(evaluatorNames))
			for _, m := range metricNames {
				s, ok := r.DeterministicScore(m)
				cells = append(cells, reporting.FormatMetric(s, ok))
			}
			for _, name := range evaluatorNames {
				e, ok := r.Evaluation(name)
				if !ok {
					cells = append(cells, "N/A")
					continue
				}
				cells = append(cells, reporting.FormatRating(e.Evaluation))
			}
			if err := reporting.WriteAnalysisRow(path, r.ModelName, cells); err != nil {
				return err
			}
		}

		if evaluations != nil {
			if err := reporting.StartEvaluatorSection(path); err != nil {
				return err
			}
			var judged []string
			for _, r := range responses {
				if !r.Failed() {
					judged = append(judged, r.ModelName)
				}
			}
			for _, name := range evaluatorNames {
				scores := make([]models.Score, len(judged))
				for i, model := range judged {
					r := responseByModel(responses, model)
					e, _ := r.Evaluation(name)
					scores[i] = e.Evaluation
				}
				if err := reporting.AppendEvaluatorReasoning(path, name, judged, scores); err != nil {
					return err
				}
			}
		}

		rows := make([]reporting.TimingRow, 0, len(responses)+len(evaluations))
		for _, r := range responses {
			rows = append(rows, reporting.TimingRow{Model: r.ModelName, Role: "solver", Elapsed: r.GenerationTime})
		}
		for i, e := range evaluations {
			rows = append(rows, reporting.TimingRow{Model: evaluatorNames[i], Role: "evaluator", Elapsed: e.elapsed})
		}
		return reporting.WriteTimingSummary(path, rows)
	})
}

func responseByModel(responses []models.ModelResponse, model string) models.ModelResponse {
	for _, r := range responses {
		if r.ModelName == model {
			return r
		}
	}
	return models.ModelResponse{}
}

// logResponse records a successful generation. Verbose runs log it at
// info level.
func (o *Orchestrator) logResponse(ctx context.Context, logger *slog.Logger, model, text string, elapsed time.Duration) {
	level := slog.LevelDebug
	if o.cfg.Verbose() {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, "response_received",
		slog.String("model", model),
		slog.Duration("elapsed", elapsed),
		slog.Int("chars", len(text)))
}

// release gives a claimed question back so a later run can retry it.
func (o *Orchestrator) release(ctx context.Context, category models.Category, id string, logger *slog.Logger) {
	if err := o.claims.Release(context.WithoutCancel(ctx), category, id); err != nil {
		logger.Warn("claim_release_failed", slog.String("error", err.Error()))
	}
}
