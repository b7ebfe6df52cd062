package models

import (
	"strings"
	"time"
)

// ErrorMarker prefixes response text produced by a failed model call.
// Responses carrying it are reported but never scored or judged.
const ErrorMarker = "API Error: "

// Judge metric names.
const (
	MetricLogicality = "llm_logicality_score"
	MetricRanking    = "llm_hypothesis_ranking"
)

// Score is a single metric result. A nil Value means the evaluation failed.
type Score struct {
	MetricName string   `json:"metric_name"`
	Value      *float64 `json:"score"`
	Reasoning  string   `json:"reasoning"`
}

// NewScore returns a Score with a present value.
func NewScore(metric string, value float64, reasoning string) Score {
	return Score{MetricName: metric, Value: &value, Reasoning: reasoning}
}

// AbsentScore returns a Score marking a failed evaluation.
func AbsentScore(metric, reasoning string) Score {
	return Score{MetricName: metric, Reasoning: reasoning}
}

// Present reports whether the score carries a value.
func (s Score) Present() bool {
	return s.Value != nil
}

// CrossEvaluation is one evaluator's verdict on one response.
type CrossEvaluation struct {
	EvaluatorModelName string        `json:"evaluator_model_name"`
	Evaluation         Score         `json:"evaluation"`
	EvaluationTime     time.Duration `json:"evaluation_time_ns"`
}

// CrossRanking is one ranker's ordering of the valid hypotheses for a
// question. Candidates lists the hypothesis models in the order the ranker
// saw them, so Ranking's payload rankings[i] belongs to Candidates[i].
type CrossRanking struct {
	RankerModelName string        `json:"ranker_model_name"`
	Ranking         Score         `json:"ranking"`
	RankingTime     time.Duration `json:"ranking_time_ns"`
	Candidates      []string      `json:"candidates"`
}

// ModelResponse is one solver's answer to a solvable question.
type ModelResponse struct {
	ModelName           string            `json:"model_name"`
	ResponseText        string            `json:"response_text"`
	GenerationTime      time.Duration     `json:"generation_time_ns"`
	DeterministicScores []Score           `json:"deterministic_scores"`
	LLMEvaluations      []CrossEvaluation `json:"llm_evaluations"`
}

// Failed reports whether the response is an error marker.
func (r ModelResponse) Failed() bool {
	return IsErrorText(r.ResponseText)
}

// DeterministicScore finds a deterministic score by metric name.
func (r ModelResponse) DeterministicScore(metric string) (Score, bool) {
	for _, s := range r.DeterministicScores {
		if s.MetricName == metric {
			return s, true
		}
	}
	return Score{}, false
}

// Evaluation finds the evaluation produced by the named evaluator.
func (r ModelResponse) Evaluation(evaluator string) (CrossEvaluation, bool) {
	for _, e := range r.LLMEvaluations {
		if e.EvaluatorModelName == evaluator {
			return e, true
		}
	}
	return CrossEvaluation{}, false
}

// ModelHypothesis is one theorist's answer to an unsolvable question.
type ModelHypothesis struct {
	ModelName      string        `json:"model_name"`
	ResponseText   string        `json:"response_text"`
	GenerationTime time.Duration `json:"generation_time_ns"`
}

// Failed reports whether the hypothesis is an error marker.
func (h ModelHypothesis) Failed() bool {
	return IsErrorText(h.ResponseText)
}

// SolvableReport binds a solvable question to its responses and evaluations.
type SolvableReport struct {
	QuestionID string          `json:"question_id"`
	Question   string          `json:"question"`
	TrueAnswer string          `json:"true_answer"`
	Responses  []ModelResponse `json:"responses"`
}

// UnsolvableReport binds an unsolvable question to its hypotheses and rankings.
type UnsolvableReport struct {
	QuestionID string            `json:"question_id"`
	Question   string            `json:"question"`
	Hypotheses []ModelHypothesis `json:"hypotheses"`
	Rankings   []CrossRanking    `json:"rankings"`
}

// IsErrorText reports whether text starts with the error marker.
func IsErrorText(text string) bool {
	return strings.HasPrefix(text, ErrorMarker)
}

// ErrorText formats a failure message as error-marker response text.
func ErrorText(msg string) string {
	return ErrorMarker + msg
}
