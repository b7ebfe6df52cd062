package scoring

import (
	"fmt"
	"sort"

	"github.com/physbench/physbench/internal/models"
)

// Metric scores generated text against a reference.
type Metric func(generated, reference string) models.Score

var registry = map[string]Metric{
	MetricTokenF1:            TokenF1,
	MetricMeteor:             Meteor,
	MetricRougeL:             RougeL,
	MetricSymbolF1:           SymbolF1,
	MetricWordEditSimilarity: WordEditSimilarity,
}

// Names lists the registered metric names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Suite is an ordered set of metrics computed together.
type Suite struct {
	names   []string
	metrics []Metric
}

// NewSuite resolves metric names. Unknown names are an error.
func NewSuite(names ...string) (*Suite, error) {
	s := &Suite{}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		m, ok := registry[n]
		if !ok {
			return nil, fmt.Errorf("unknown metric %q (available: %v)", n, Names())
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		s.names = append(s.names, n)
		s.metrics = append(s.metrics, m)
	}
	return s, nil
}

// Names returns the suite's metric names in evaluation order.
func (s *Suite) Names() []string {
	return append([]string(nil), s.names...)
}

// Score runs every metric of the suite.
func (s *Suite) Score(generated, reference string) []models.Score {
	out := make([]models.Score, 0, len(s.metrics))
	for _, m := range s.metrics {
		out = append(out, m(generated, reference))
	}
	return out
}
