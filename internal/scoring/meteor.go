package scoring

import (
	"fmt"
	"math"

	"github.com/physbench/physbench/internal/models"
)

const MetricMeteor = "meteor"

// Meteor is a simplified METEOR: exact unigram alignment, recall-weighted
// harmonic mean (alpha = 0.9) and a fragmentation penalty of
// 0.5 * (chunks / matches)^3.
func Meteor(generated, reference string) models.Score {
	gen, ref := Tokenize(generated), Tokenize(reference)
	if len(gen) == 0 && len(ref) == 0 {
		return models.NewScore(MetricMeteor, 1.0, "Both empty.")
	}
	if len(gen) == 0 || len(ref) == 0 {
		return models.NewScore(MetricMeteor, 0.0, "One is empty.")
	}

	matches, chunks := align(gen, ref)
	if matches == 0 {
		return models.NewScore(MetricMeteor, 0.0, "No matches.")
	}

	precision := float64(matches) / float64(len(gen))
	recall := float64(matches) / float64(len(ref))
	fmean := 10 * precision * recall / (recall + 9*precision)
	penalty := 0.5 * math.Pow(float64(chunks)/float64(matches), 3)
	score := fmean * (1 - penalty)

	return models.NewScore(MetricMeteor, score,
		fmt.Sprintf("Matches: %d, Chunks: %d, Fmean: %.3f, Penalty: %.3f", matches, chunks, fmean, penalty))
}

// align maps each generated token to the earliest unused identical reference
// token and counts matches and contiguous chunks of the alignment.
func align(gen, ref []string) (matches, chunks int) {
	used := make([]bool, len(ref))
	lastRef := -2
	for _, tok := range gen {
		pos := -1
		// Prefer continuing the current chunk.
		if lastRef+1 >= 0 && lastRef+1 < len(ref) && !used[lastRef+1] && ref[lastRef+1] == tok {
			pos = lastRef + 1
		} else {
			for j, r := range ref {
				if !used[j] && r == tok {
					pos = j
					break
				}
			}
		}
		if pos < 0 {
			lastRef = -2
			continue
		}
		used[pos] = true
		matches++
		if pos != lastRef+1 {
			chunks++
		}
		lastRef = pos
	}
	return matches, chunks
}
