package scoring

import (
	"fmt"

	"github.com/physbench/physbench/internal/models"
)

const (
	MetricTokenF1  = "token_f1"
	MetricSymbolF1 = "symbol_f1"
)

// TokenF1 is the harmonic mean of token precision and recall between the
// generated text and the reference, counting repeated tokens as a multiset.
func TokenF1(generated, reference string) models.Score {
	return multisetF1(MetricTokenF1, Tokenize(generated), Tokenize(reference))
}

// SymbolF1 is TokenF1 restricted to mathematical symbols and numbers.
func SymbolF1(generated, reference string) models.Score {
	return multisetF1(MetricSymbolF1, Symbols(generated), Symbols(reference))
}

func multisetF1(metric string, gen, ref []string) models.Score {
	if len(gen) == 0 && len(ref) == 0 {
		return models.NewScore(metric, 1.0, "Both empty.")
	}
	if len(gen) == 0 || len(ref) == 0 {
		return models.NewScore(metric, 0.0, "One is empty.")
	}

	common := overlap(gen, ref)
	precision := float64(common) / float64(len(gen))
	recall := float64(common) / float64(len(ref))

	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return models.NewScore(metric, f1, fmt.Sprintf("Precision: %.3f, Recall: %.3f", precision, recall))
}
