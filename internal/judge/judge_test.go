package judge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/physbench/physbench/internal/gateway"
	"github.com/physbench/physbench/internal/metrics"
	"github.com/physbench/physbench/internal/models"
)

func newMockJudge(t *testing.T, model string) *gateway.MockInvoker {
	ctrl := gomock.NewController(t)
	m := gateway.NewMockInvoker(ctrl)
	m.EXPECT().Model().Return(model).AnyTimes()
	return m
}

var twoCandidates = []Candidate{
	{Name: "a/solver", Text: "F = ma"},
	{Name: "c/solver", Text: "F = mv"},
}

func TestEvaluateBatch_Success(t *testing.T) {
	m := newMockJudge(t, "judge/one")

	var gotPrompt string
	var gotOpts gateway.CallOptions
	m.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, prompt string, opts ...gateway.CallOption) (string, time.Duration, error) {
			gotPrompt = prompt
			gotOpts = gateway.ResolveCallOptions(opts...)
			return `{"evaluations":{"a/solver":{"score":5,"reasoning":"right"},"c/solver":{"score":2,"reasoning":"wrong units"}}}`, 3 * time.Second, nil
		})

	scores, elapsed, err := NewEvaluator(m).EvaluateBatch(context.Background(), "What is force?", "F = ma", twoCandidates)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, elapsed)

	require.Len(t, scores, 2)
	assert.InDelta(t, 5, *scores["a/solver"].Value, 0)
	assert.Equal(t, "right", scores["a/solver"].Reasoning)
	assert.InDelta(t, 2, *scores["c/solver"].Value, 0)
	assert.Equal(t, models.MetricLogicality, scores["c/solver"].MetricName)

	assert.Equal(t, "## Question:\nWhat is force?\n\n## True Answer:\nF = ma\n\n"+
		"## Response from a/solver:\nF = ma\n\n## Response from c/solver:\nF = mv\n\n", gotPrompt)
	require.NotNil(t, gotOpts.Schema)
	assert.Equal(t, BatchSchemaName, gotOpts.Schema.Name)
}

func TestEvaluateBatch_MissingCandidate(t *testing.T) {
	m := newMockJudge(t, "judge/one")
	m.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("```json\n{\"evaluations\":{\"a/solver\":{\"score\":4,\"reasoning\":\"ok\"}}}\n```", time.Second, nil)

	scores, _, err := NewEvaluator(m).EvaluateBatch(context.Background(), "q", "a", twoCandidates)
	require.NoError(t, err)

	assert.True(t, scores["a/solver"].Present())
	assert.False(t, scores["c/solver"].Present())
	assert.Equal(t, "Evaluation failed", scores["c/solver"].Reasoning)
}

func TestEvaluateBatch_InvalidEntry(t *testing.T) {
	m := newMockJudge(t, "judge/one")
	m.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(`{"evaluations":{"a/solver":{"score":9,"reasoning":"too high"},"c/solver":{"score":"3","reasoning":"string"}}}`, time.Second, nil)

	scores, _, err := NewEvaluator(m).EvaluateBatch(context.Background(), "q", "a", twoCandidates)
	require.NoError(t, err)
	for _, s := range scores {
		assert.False(t, s.Present())
		assert.Contains(t, s.Reasoning, "Parse Error: ")
	}
}

func TestEvaluateBatch_APIError(t *testing.T) {
	m := newMockJudge(t, "judge/one")
	m.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", time.Duration(0), &gateway.APIError{Message: "quota", Kind: gateway.KindFatal})

	col := metrics.New()
	scores, elapsed, err := NewEvaluator(m, WithMetrics(col)).EvaluateBatch(context.Background(), "q", "a", twoCandidates)
	require.NoError(t, err)
	assert.Zero(t, elapsed)
	for _, s := range scores {
		assert.False(t, s.Present())
		assert.Equal(t, "API Error: quota", s.Reasoning)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(col.JudgeFailures.WithLabelValues("judge/one", "api")), 0)
}

func TestEvaluateBatch_ParseError(t *testing.T) {
	m := newMockJudge(t, "judge/one")
	m.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return("I think both are fine.", time.Second, nil)

	scores, _, err := NewEvaluator(m).EvaluateBatch(context.Background(), "q", "a", twoCandidates)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	for _, s := range scores {
		assert.False(t, s.Present())
		assert.Contains(t, s.Reasoning, "Parse Error: ")
	}
}

func TestEvaluateBatch_Canceled(t *testing.T) {
	m := newMockJudge(t, "judge/one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return("", time.Duration(0), context.Canceled)

	_, _, err := NewEvaluator(m).EvaluateBatch(ctx, "q", "a", twoCandidates)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank_Success(t *testing.T) {
	m := newMockJudge(t, "judge/rank")

	var gotPrompt string
	m.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, prompt string, _ ...gateway.CallOption) (string, time.Duration, error) {
			gotPrompt = prompt
			return `{"rankings":[2,3,1],"explanation":"third is boldest"}`, 2 * time.Second, nil
		})

	score, elapsed, err := NewRanker(m).Rank(context.Background(), "Why is there something?", []string{"h1", "h2", "h3"})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, elapsed)
	assert.Equal(t, models.MetricRanking, score.MetricName)
	assert.False(t, score.Present())

	p, err := ParseRanking(score.Reasoning)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 1}, p.Rankings)
	assert.Equal(t, "third is boldest", p.Explanation)
	assert.Contains(t, gotPrompt, "## Unsolved Question:\nWhy is there something?\n\n## Generated Responses:\n--- Response 1 ---\nh1\n\n")
	assert.Contains(t, gotPrompt, "--- Response 3 ---\nh3\n\n")
}

func TestRank_DegradesOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		err     error
		elapsed time.Duration
		reason  string
	}{
		{name: "api error", err: errors.New("boom"), reason: "Ranking failed: boom"},
		{name: "not json", text: "first is best", elapsed: time.Second, reason: "Ranking failed: parsing response"},
		{name: "duplicate rank", text: `{"rankings":[1,1,2],"explanation":"x"}`, elapsed: time.Second, reason: "Ranking failed: parsing response"},
		{name: "wrong length", text: `{"rankings":[1,2],"explanation":"x"}`, elapsed: time.Second, reason: "Ranking failed: parsing response"},
		{name: "out of range", text: `{"rankings":[1,2,4],"explanation":"x"}`, elapsed: time.Second, reason: "Ranking failed: parsing response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockJudge(t, "judge/rank")
			m.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.text, tt.elapsed, tt.err)

			score, elapsed, err := NewRanker(m).Rank(context.Background(), "q", []string{"a", "b", "c"})
			require.NoError(t, err)
			assert.Equal(t, tt.elapsed, elapsed)

			p, err := ParseRanking(score.Reasoning)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 0, 0}, p.Rankings)
			assert.True(t, p.Degraded())
			assert.Contains(t, p.Explanation, tt.reason)
		})
	}
}

func TestRankingPayload_RoundTrip(t *testing.T) {
	for _, rankings := range [][]int{{1}, {2, 1}, {3, 1, 2}, {4, 2, 1, 3}} {
		p := RankingPayload{Rankings: rankings, Explanation: "because"}
		require.NoError(t, p.Validate(len(rankings)))

		parsed, err := ParseRanking(p.Marshal())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
		assert.Equal(t, p.Marshal(), parsed.Marshal())
	}
}

func TestRankingPayload_Validate(t *testing.T) {
	assert.Error(t, RankingPayload{Rankings: []int{0, 1}}.Validate(2))
	assert.Error(t, RankingPayload{Rankings: []int{1, 2, 3}}.Validate(2))
	assert.NoError(t, RankingPayload{Rankings: []int{2, 1}}.Validate(2))
	assert.Error(t, DegradedRanking(3, "x").Validate(3))
}

func TestBatchSchema(t *testing.T) {
	s := BatchSchema([]string{"a", "b"})
	ev := s["properties"].(map[string]any)["evaluations"].(map[string]any)
	assert.Equal(t, []any{"a", "b"}, ev["required"])
	assert.Equal(t, false, ev["additionalProperties"])
	assert.Len(t, ev["properties"], 2)

	_, err := compile("batch.json", s)
	require.NoError(t, err)
	_, err = compile("ranking.json", RankingSchema(3))
	require.NoError(t, err)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("  {\"a\":1}\n"))
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("```\n{\"a\":1}\n```"))
}
