package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/physbench/physbench/internal/gateway"
	"github.com/physbench/physbench/internal/models"
)

// RankingPayload is the structured ranking a ranker returns. Rankings[i]
// is the rank given to the i-th hypothesis, 1 being best.
type RankingPayload struct {
	Rankings    []int  `json:"rankings"`
	Explanation string `json:"explanation"`
}

// DegradedRanking is recorded when a ranker could not produce a ranking:
// every rank is 0.
func DegradedRanking(n int, reason string) RankingPayload {
	return RankingPayload{
		Rankings:    make([]int, n),
		Explanation: "Ranking failed: " + reason,
	}
}

// Degraded reports whether p marks a failed ranking.
func (p RankingPayload) Degraded() bool {
	for _, r := range p.Rankings {
		if r != 0 {
			return false
		}
	}
	return true
}

// Validate checks that p assigns each of the ranks 1..n exactly once.
func (p RankingPayload) Validate(n int) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	schema, err := rankingValidator(n)
	if err != nil {
		return err
	}
	return validateJSON(schema, raw)
}

// Marshal returns the canonical JSON encoding stored in a ranking Score.
func (p RankingPayload) Marshal() string {
	if p.Rankings == nil {
		p.Rankings = []int{}
	}
	data, _ := json.Marshal(p)
	return string(data)
}

// ParseRanking decodes a ranking payload.
func ParseRanking(text string) (RankingPayload, error) {
	var p RankingPayload
	if err := json.Unmarshal([]byte(extractJSON(text)), &p); err != nil {
		return RankingPayload{}, err
	}
	return p, nil
}

// Ranker orders the hypotheses for an unsolvable question.
type Ranker struct {
	client gateway.Invoker
	options
}

// NewRanker wraps client, which should carry the ranker system prompt.
func NewRanker(client gateway.Invoker, opts ...Option) *Ranker {
	return &Ranker{client: client, options: buildOptions(client, opts)}
}

// Model returns the judge's model id.
func (r *Ranker) Model() string { return r.client.Model() }

// Rank returns a Score whose Reasoning holds the marshaled RankingPayload.
// A failed call or a malformed reply yields a degraded ranking instead of
// an error; the error is non-nil only when ctx is done.
func (r *Ranker) Rank(ctx context.Context, question string, hypotheses []string) (models.Score, time.Duration, error) {
	n := len(hypotheses)
	text, elapsed, err := r.client.Invoke(ctx, rankingPrompt(question, hypotheses),
		gateway.WithSchema(RankingSchemaName, RankingSchema(n)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Score{}, 0, ctxErr
		}
		r.logger.Error("ranker_call_failed", slog.String("error", err.Error()))
		r.metrics.RecordJudgeFailure(r.client.Model(), "api")
		return degradedScore(n, err.Error()), 0, nil
	}

	payload, err := ParseRanking(text)
	if err == nil {
		err = payload.Validate(n)
	}
	if err != nil {
		perr := &ParseError{Judge: r.client.Model(), Err: err}
		r.logger.Error("ranker_parse_failed", slog.String("error", perr.Error()))
		r.metrics.RecordJudgeFailure(r.client.Model(), "parse")
		return degradedScore(n, perr.Error()), elapsed, nil
	}

	return models.Score{MetricName: models.MetricRanking, Reasoning: payload.Marshal()}, elapsed, nil
}

func degradedScore(n int, reason string) models.Score {
	return models.Score{MetricName: models.MetricRanking, Reasoning: DegradedRanking(n, reason).Marshal()}
}

func rankingPrompt(question string, hypotheses []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Unsolved Question:\n%s\n\n## Generated Responses:\n", question)
	for i, h := range hypotheses {
		fmt.Fprintf(&b, "--- Response %d ---\n%s\n\n", i+1, h)
	}
	return b.String()
}
