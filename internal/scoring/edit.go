package scoring

import (
	"fmt"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/physbench/physbench/internal/models"
)

const MetricWordEditSimilarity = "word_edit_similarity"

var wordEditOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// WordEditSimilarity is 1 - WER-style word edit distance normalized by the
// longer token sequence.
func WordEditSimilarity(generated, reference string) models.Score {
	gen, ref := Tokenize(generated), Tokenize(reference)
	if len(gen) == 0 && len(ref) == 0 {
		return models.NewScore(MetricWordEditSimilarity, 1.0, "Both empty.")
	}

	// The distance works on runes, so give every distinct word its own rune.
	alphabet := make(map[string]rune)
	encode := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			r, ok := alphabet[w]
			if !ok {
				r = rune(0xF0000 + len(alphabet))
				alphabet[w] = r
			}
			out[i] = r
		}
		return out
	}
	src, tgt := encode(ref), encode(gen)

	distance := levenshtein.DistanceForStrings(src, tgt, wordEditOptions)
	longest := max(len(gen), len(ref))
	sim := 1 - float64(distance)/float64(longest)

	return models.NewScore(MetricWordEditSimilarity, sim, fmt.Sprintf("Edits: %d over %d words", distance, longest))
}
