package reporting

import (
	"time"

	"github.com/physbench/physbench/internal/judge"
	"github.com/physbench/physbench/internal/models"
)

func fixtureSolvable() models.SolvableReport {
	return models.SolvableReport{
		QuestionID: "q1",
		Question:   "What is 2+2?",
		TrueAnswer: "4",
		Responses: []models.ModelResponse{
			{
				ModelName:      "a/solver",
				ResponseText:   "4",
				GenerationTime: 1500 * time.Millisecond,
				DeterministicScores: []models.Score{
					models.NewScore("token_f1", 1, "Precision: 1.000, Recall: 1.000"),
				},
				LLMEvaluations: []models.CrossEvaluation{
					{EvaluatorModelName: "judge/z", Evaluation: models.NewScore(models.MetricLogicality, 5, "correct"), EvaluationTime: 2 * time.Second},
					{EvaluatorModelName: "judge/y", Evaluation: models.AbsentScore(models.MetricLogicality, "Evaluation failed"), EvaluationTime: 2 * time.Second},
				},
			},
			{
				ModelName:    "b/solver",
				ResponseText: models.ErrorText("quota exceeded"),
			},
		},
	}
}

func fixtureUnsolvable() models.UnsolvableReport {
	return models.UnsolvableReport{
		QuestionID: "u1",
		Question:   "What is dark matter?",
		Hypotheses: []models.ModelHypothesis{
			{ModelName: "a/theorist", ResponseText: "axions", GenerationTime: time.Second},
			{ModelName: "b/theorist", ResponseText: models.ErrorText("timeout")},
			{ModelName: "c/theorist", ResponseText: "modified gravity", GenerationTime: 3 * time.Second},
		},
		Rankings: []models.CrossRanking{
			{
				RankerModelName: "judge/r",
				Ranking: models.Score{
					MetricName: models.MetricRanking,
					Reasoning:  judge.RankingPayload{Rankings: []int{2, 1}, Explanation: "gravity fits"}.Marshal(),
				},
				RankingTime: 4 * time.Second,
				Candidates:  []string{"a/theorist", "c/theorist"},
			},
			{
				RankerModelName: "judge/q",
				Ranking: models.Score{
					MetricName: models.MetricRanking,
					Reasoning:  judge.DegradedRanking(2, "boom").Marshal(),
				},
				Candidates: []string{"a/theorist", "c/theorist"},
			},
		},
	}
}

func fixtureResults() *RunResults {
	r := NewRunResults("physics", []string{"token_f1"}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	r.FinishedAt = r.StartedAt.Add(time.Minute)
	r.Solvable = []models.SolvableReport{fixtureSolvable()}
	r.Unsolvable = []models.UnsolvableReport{fixtureUnsolvable()}
	r.Failures = []IterationFailure{{Category: models.CategorySolvable, Iteration: 2, Error: "schema error"}}
	return r
}
