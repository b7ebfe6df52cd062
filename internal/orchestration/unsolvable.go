package orchestration

import (
	"context"
	"log/slog"

	"github.com/physbench/physbench/internal/dataset"
	"github.com/physbench/physbench/internal/gateway"
	"github.com/physbench/physbench/internal/judge"
	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/reporting"
)

// RunUnsolvable processes one open question: every theorist proposes a
// hypothesis and every ranker orders the valid ones.
func (o *Orchestrator) RunUnsolvable(ctx context.Context) (*models.UnsolvableReport, error) {
	category := models.CategoryUnsolvable
	dcfg := o.datasetConfig(category)

	q, err := o.selectQuestion(ctx, category, dcfg.Draw)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With("category", string(category), "question_id", q.ID)

	fields, err := dataset.ExtractUnsolvable(q, dcfg.QuestionField)
	if err != nil {
		o.release(ctx, category, q.ID, logger)
		return nil, err
	}
	o.notifyProgress(ProgressEvent{EventType: EventQuestionSelected, Category: category, QuestionID: q.ID})

	path := reporting.ArtifactPath(o.cfg.OutputDir(), category, q.ID)
	if err := reporting.WriteUnsolvableHeader(path, q.ID, fields.Question); err != nil {
		return nil, err
	}
	art := newArtifact(path, logger)

	hypotheses, err := fanOut(ctx, o.theorists, len(o.theorists), func(ctx context.Context, _ int, c gateway.Invoker) (models.ModelHypothesis, error) {
		h := models.ModelHypothesis{ModelName: c.Model()}
		text, elapsed, err := c.Invoke(ctx, fields.Question)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return h, ctxErr
			}
			logger.Warn("theorist_failed", slog.String("model", c.Model()), slog.String("error", err.Error()))
			h.ResponseText = models.ErrorText(err.Error())
		} else {
			h.ResponseText = text
			h.GenerationTime = elapsed
			o.logResponse(ctx, logger, h.ModelName, text, elapsed)
		}

		art.do(func(path string) error { return reporting.AppendHypothesis(path, h.ModelName, h.ResponseText) })
		o.notifyProgress(ProgressEvent{
			EventType:  EventResponse,
			Category:   category,
			QuestionID: q.ID,
			Model:      h.ModelName,
			Duration:   h.GenerationTime,
			Details:    map[string]any{"failed": h.Failed()},
		})
		return h, nil
	})
	if err != nil {
		return nil, err
	}

	var names, texts []string
	for _, h := range hypotheses {
		if h.Failed() {
			continue
		}
		names = append(names, h.ModelName)
		texts = append(texts, h.ResponseText)
	}

	var rankings []models.CrossRanking
	if len(texts) == 0 {
		logger.Warn("no valid candidates")
	} else {
		rankings, err = fanOut(ctx, o.rankers, len(o.rankers), func(ctx context.Context, _ int, r *judge.Ranker) (models.CrossRanking, error) {
			score, elapsed, err := r.Rank(ctx, fields.Question, texts)
			if err != nil {
				return models.CrossRanking{}, err
			}
			o.notifyProgress(ProgressEvent{EventType: EventJudgment, Category: category, QuestionID: q.ID, Model: r.Model(), Duration: elapsed})
			return models.CrossRanking{
				RankerModelName: r.Model(),
				Ranking:         score,
				RankingTime:     elapsed,
				Candidates:      names,
			}, nil
		})
		if err != nil {
			return nil, err
		}
	}

	art.do(func(path string) error {
		if err := reporting.StartRankings(path); err != nil {
			return err
		}
		if len(texts) == 0 {
			if err := reporting.AppendNoHypotheses(path); err != nil {
				return err
			}
		}
		for _, rk := range rankings {
			if err := reporting.AppendRanking(path, rk.RankerModelName, rk.Ranking.Reasoning); err != nil {
				return err
			}
		}

		rows := make([]reporting.TimingRow, 0, len(hypotheses)+len(rankings))
		for _, h := range hypotheses {
			rows = append(rows, reporting.TimingRow{Model: h.ModelName, Role: "theorist", Elapsed: h.GenerationTime})
		}
		for _, rk := range rankings {
			rows = append(rows, reporting.TimingRow{Model: rk.RankerModelName, Role: "ranker", Elapsed: rk.RankingTime})
		}
		return reporting.WriteTimingSummary(path, rows)
	})

	return &models.UnsolvableReport{
		QuestionID: q.ID,
		Question:   fields.Question,
		Hypotheses: hypotheses,
		Rankings:   rankings,
	}, nil
}
