package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/physbench/physbench/internal/config"
	"github.com/physbench/physbench/internal/dataset"
	"github.com/physbench/physbench/internal/gateway"
	"github.com/physbench/physbench/internal/models"
)

// fakeInvoker is a scripted model client.
type fakeInvoker struct {
	model string
	fn    func(ctx context.Context, prompt string, opts gateway.CallOptions) (string, error)
	calls atomic.Int32
}

func (f *fakeInvoker) Model() string { return f.model }

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string, opts ...gateway.CallOption) (string, time.Duration, error) {
	f.calls.Add(1)
	start := time.Now()
	text, err := f.fn(ctx, prompt, gateway.ResolveCallOptions(opts...))
	if err != nil {
		return "", 0, err
	}
	return text, time.Since(start) + time.Millisecond, nil
}

func answering(model, text string) *fakeInvoker {
	return &fakeInvoker{model: model, fn: func(context.Context, string, gateway.CallOptions) (string, error) {
		return text, nil
	}}
}

func failing(model, msg string) *fakeInvoker {
	return &fakeInvoker{model: model, fn: func(context.Context, string, gateway.CallOptions) (string, error) {
		return "", fmt.Errorf("%s", msg)
	}}
}

func blocking(model string) *fakeInvoker {
	return &fakeInvoker{model: model, fn: func(ctx context.Context, _ string, _ gateway.CallOptions) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
}

func delayed(inv *fakeInvoker, d time.Duration) *fakeInvoker {
	fn := inv.fn
	inv.fn = func(ctx context.Context, prompt string, opts gateway.CallOptions) (string, error) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return fn(ctx, prompt, opts)
	}
	return inv
}

// scoringJudge answers batch evaluations with the same score for every
// requested key and records the keys it was asked about.
type scoringJudge struct {
	*fakeInvoker
	mu   sync.Mutex
	seen [][]string
}

func newScoringJudge(model string, score int) *scoringJudge {
	j := &scoringJudge{}
	j.fakeInvoker = &fakeInvoker{model: model, fn: func(_ context.Context, _ string, opts gateway.CallOptions) (string, error) {
		keys := batchKeys(opts)
		j.mu.Lock()
		j.seen = append(j.seen, keys)
		j.mu.Unlock()

		evaluations := make(map[string]any, len(keys))
		for _, k := range keys {
			evaluations[k] = map[string]any{"score": score, "reasoning": "checked by " + model}
		}
		data, err := json.Marshal(map[string]any{"evaluations": evaluations})
		return string(data), err
	}}
	return j
}

func (j *scoringJudge) keys() [][]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([][]string(nil), j.seen...)
}

func batchKeys(opts gateway.CallOptions) []string {
	if opts.Schema == nil {
		return nil
	}
	props := opts.Schema.Schema["properties"].(map[string]any)
	evals := props["evaluations"].(map[string]any)["properties"].(map[string]any)
	keys := make([]string, 0, len(evals))
	for k := range evals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// reverseRanker ranks the last response best.
func reverseRanker(model string) *fakeInvoker {
	return &fakeInvoker{model: model, fn: func(_ context.Context, prompt string, _ gateway.CallOptions) (string, error) {
		n := strings.Count(prompt, "--- Response ")
		rankings := make([]int, n)
		for i := range rankings {
			rankings[i] = n - i
		}
		data, err := json.Marshal(map[string]any{"rankings": rankings, "explanation": "later is better"})
		return string(data), err
	}}
}

func solvableRecords(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{
			"message_1": fmt.Sprintf("question %d", i),
			"message_2": "cat dog",
		}
	}
	return records
}

func unsolvableRecords(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{"question": fmt.Sprintf("open problem %d", i)}
	}
	return records
}

func testConfig(t *testing.T, opts ...config.Option) *config.BenchmarkConfig {
	t.Helper()
	spec := &models.BenchmarkSpec{
		Name: "test",
		Config: models.RunConfig{
			MaxWorkers:      2,
			MaxDrawAttempts: 10,
			Metrics:         []string{"token_f1", "rouge_l"},
		},
	}
	base := []config.Option{config.WithOutputDir(t.TempDir())}
	return config.NewBenchmarkConfig(spec, append(base, opts...)...)
}

func newTestOrchestrator(t *testing.T, cfg *config.BenchmarkConfig, clients Clients, solvable, unsolvable []map[string]any, opts ...Option) *Orchestrator {
	t.Helper()
	base := []Option{}
	if solvable != nil {
		base = append(base, WithSolvableSource(dataset.NewListSourceFromRecords(solvable, dataset.WithSeed(7))))
	}
	if unsolvable != nil {
		base = append(base, WithUnsolvableSource(dataset.NewListSourceFromRecords(unsolvable)))
	}
	o, err := New(cfg, clients, append(base, opts...)...)
	require.NoError(t, err)
	return o
}

func invokers(fakes ...*fakeInvoker) []gateway.Invoker {
	out := make([]gateway.Invoker, len(fakes))
	for i, f := range fakes {
		out[i] = f
	}
	return out
}
