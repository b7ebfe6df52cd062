package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physbench/physbench/internal/models"
)

func records(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"question": fmt.Sprintf("question %d", i)}
	}
	return out
}

func TestDrawRandom_NeverRepeatsUntilReset(t *testing.T) {
	src := NewListSourceFromRecords(records(20), WithSeed(7))

	seen := make(map[string]bool)
	for range 20 {
		q, err := src.DrawRandom()
		require.NoError(t, err)
		assert.False(t, seen[q.ID], "id %s drawn twice", q.ID)
		seen[q.ID] = true
	}
	assert.Len(t, seen, 20)

	_, err := src.DrawRandom()
	assert.ErrorIs(t, err, ErrExhausted)

	src.ResetRandom()
	_, err = src.DrawRandom()
	assert.NoError(t, err)
}

func TestDrawRandom_SeedIsReproducible(t *testing.T) {
	draw := func() []string {
		src := NewListSourceFromRecords(records(10), WithSeed(42))
		var ids []string
		for range 10 {
			q, err := src.DrawRandom()
			require.NoError(t, err)
			ids = append(ids, q.ID)
		}
		return ids
	}
	assert.Equal(t, draw(), draw())
}

func TestDrawNext_SequentialAndIndependent(t *testing.T) {
	src := NewListSourceFromRecords(records(3))

	// A random draw does not move the sequential cursor.
	_, err := src.DrawRandom()
	require.NoError(t, err)

	for i := range 3 {
		q, err := src.DrawNext()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), q.ID)
		assert.Equal(t, fmt.Sprintf("question %d", i), q.Payload["question"])
	}

	_, err = src.DrawNext()
	assert.ErrorIs(t, err, ErrExhausted)

	src.ResetSequential()
	q, err := src.DrawNext()
	require.NoError(t, err)
	assert.Equal(t, "0", q.ID)
}

func TestDrawRandom_ConcurrentDrawsNeverCollide(t *testing.T) {
	const n = 200
	src := NewListSourceFromRecords(records(n))

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				q, err := src.DrawRandom()
				if errors.Is(err, ErrExhausted) {
					return
				}
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[q.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "id %s drawn %d times", id, count)
	}
}

func TestGet(t *testing.T) {
	src := NewListSourceFromRecords(records(2))

	payload, err := src.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "question 1", payload["question"])

	_, err = src.Get("2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = src.Get("abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, src.Len())
}

func TestFileSetSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b7.json", `{"message_1": "Find the ground state energy.", "message_2": "-13.6 eV"}`)
	writeFile(t, dir, "a1.json", `{"message_1": "What is h-bar?", "message_2": "h / 2 pi"}`)
	writeFile(t, dir, "notes.txt", "ignored")

	src, err := NewFileSetSource(dir, WithCacheSize(1))
	require.NoError(t, err)
	assert.Equal(t, 2, src.Len())

	q, err := src.DrawNext()
	require.NoError(t, err)
	assert.Equal(t, "a1", q.ID)
	assert.Equal(t, "What is h-bar?", q.Payload["message_1"])

	payload, err := src.Get("b7")
	require.NoError(t, err)
	assert.Equal(t, "-13.6 eV", payload["message_2"])

	// Evicted entries are re-read from disk.
	payload, err = src.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, "h / 2 pi", payload["message_2"])

	_, err = src.Get("zz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSetSource_BadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "q.json", `{not json`)

	src, err := NewFileSetSource(dir)
	require.NoError(t, err)
	_, err = src.DrawRandom()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing q.json")
}

func TestFileSetSource_MissingDir(t *testing.T) {
	_, err := NewFileSetSource(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestNewListSource_Formats(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "u.json", `[{"question": "Why is gravity weak?"}, {"question": "What is dark energy?"}]`},
		{"yaml", "u.yaml", "- question: Why is gravity weak?\n- question: What is dark energy?\n"},
		{"csv", "u.csv", "question\nWhy is gravity weak?\nWhat is dark energy?\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewListSource(writeFile(t, dir, tt.file, tt.content))
			require.NoError(t, err)
			require.Equal(t, 2, src.Len())

			q, err := src.DrawNext()
			require.NoError(t, err)
			assert.Equal(t, "0", q.ID)
			assert.Equal(t, "Why is gravity weak?", q.Payload["question"])
		})
	}

	_, err := NewListSource(writeFile(t, dir, "u.txt", "x"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "u.json", `[{"question": "q"}]`)

	src, err := Open(models.DatasetConfig{Kind: models.SourceList}, list)
	require.NoError(t, err)
	assert.Equal(t, 1, src.Len())

	src, err = Open(models.DatasetConfig{Kind: models.SourceFileSet, CacheSize: 4}, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, src.Len())

	_, err = Open(models.DatasetConfig{Kind: "kaggle"}, dir)
	assert.Error(t, err)
}

func TestExtractSolvable(t *testing.T) {
	q := models.Question{ID: "q1", Payload: map[string]any{"prompt": "What?", "true_answer": "cat dog"}}

	f, err := ExtractSolvable(q, "prompt", "true_answer")
	require.NoError(t, err)
	assert.Equal(t, "What?", f.Question)
	assert.Equal(t, "cat dog", f.TrueAnswer)

	// Numeric answers are accepted as text.
	q.Payload["true_answer"] = 42
	f, err = ExtractSolvable(q, "prompt", "true_answer")
	require.NoError(t, err)
	assert.Equal(t, "42", f.TrueAnswer)
}

func TestExtract_MissingFieldIsSchemaError(t *testing.T) {
	q := models.Question{ID: "q9", Payload: map[string]any{"message_1": "What?"}}

	_, err := ExtractSolvable(q, "message_1", "message_2")
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "q9", schemaErr.QuestionID)
	assert.Equal(t, []string{"message_2"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "question q9 is missing required field(s): message_2")

	_, err = ExtractUnsolvable(models.Question{ID: "3", Payload: map[string]any{}}, "question")
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"question"}, schemaErr.Missing)
}
