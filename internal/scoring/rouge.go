package scoring

import (
	"fmt"

	"github.com/physbench/physbench/internal/models"
)

const MetricRougeL = "rouge_l"

// RougeL is the ROUGE-L F1 score: precision and recall of the longest
// common token subsequence.
func RougeL(generated, reference string) models.Score {
	gen, ref := Tokenize(generated), Tokenize(reference)
	if len(gen) == 0 && len(ref) == 0 {
		return models.NewScore(MetricRougeL, 1.0, "Both empty.")
	}
	if len(gen) == 0 || len(ref) == 0 {
		return models.NewScore(MetricRougeL, 0.0, "One is empty.")
	}

	l := lcs(gen, ref)
	if l == 0 {
		return models.NewScore(MetricRougeL, 0.0, "LCS: 0")
	}
	precision := float64(l) / float64(len(gen))
	recall := float64(l) / float64(len(ref))
	f := 2 * precision * recall / (precision + recall)
	return models.NewScore(MetricRougeL, f, fmt.Sprintf("LCS: %d, Precision: %.3f, Recall: %.3f", l, precision, recall))
}

// lcs computes the longest common subsequence length with two rolling rows.
func lcs(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
