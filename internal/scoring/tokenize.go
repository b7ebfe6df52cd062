package scoring

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	symbolPattern = regexp.MustCompile(`\\[A-Za-z]+|\d+(?:\.\d+)?|\p{Greek}|[=+\-*/^<>≤≥≈≠∝∞∑∏∫√ħ∂∇±×·]`)
)

// normalize folds case and compatibility forms so "Ψ" and "ψ", or "ﬁ" and
// "fi", compare equal.
func normalize(text string) string {
	// Casers are stateful; one per call.
	return cases.Fold().String(norm.NFKC.String(text))
}

// Tokenize splits text into case-folded word tokens.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(normalize(text), -1)
}

// Symbols extracts the mathematical tokens of text: numbers, LaTeX
// commands, Greek letters and operators.
func Symbols(text string) []string {
	return symbolPattern.FindAllString(norm.NFKC.String(text), -1)
}

func counts(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}

// overlap returns the multiset intersection size of a and b.
func overlap(a, b []string) int {
	ca, cb := counts(a), counts(b)
	n := 0
	for tok, x := range ca {
		n += min(x, cb[tok])
	}
	return n
}
