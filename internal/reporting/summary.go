package reporting

import (
	"fmt"
	"io"
	"slices"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/physbench/physbench/internal/statistics"
)

const modelColumnWidth = 36

// SolverSummary aggregates one solver's solvable results.
type SolverSummary struct {
	Model      string
	Responses  int
	Failures   int
	MeanRating float64
	Ratings    int
	TokenF1    statistics.ConfidenceInterval
}

// TheoristSummary aggregates one theorist's unsolvable results. Lower mean
// rank is better.
type TheoristSummary struct {
	Model      string
	Hypotheses int
	Failures   int
	MeanRank   float64
	Ranks      int
}

// Summary is the per-model digest of a run.
type Summary struct {
	Solvers   []SolverSummary
	Theorists []TheoristSummary
}

// Summarize digests r. Models are listed in first-seen order.
func Summarize(r *RunResults, confidence float64) Summary {
	var s Summary

	var solverOrder []string
	ratings := map[string][]float64{}
	f1s := map[string][]float64{}
	counts := map[string]*SolverSummary{}
	for _, rep := range r.Solvable {
		for _, resp := range rep.Responses {
			c, ok := counts[resp.ModelName]
			if !ok {
				c = &SolverSummary{Model: resp.ModelName}
				counts[resp.ModelName] = c
				solverOrder = append(solverOrder, resp.ModelName)
			}
			c.Responses++
			if resp.Failed() {
				c.Failures++
				continue
			}
			if f1, ok := resp.DeterministicScore("token_f1"); ok && f1.Present() {
				f1s[resp.ModelName] = append(f1s[resp.ModelName], *f1.Value)
			}
			for _, e := range resp.LLMEvaluations {
				if e.Evaluation.Present() {
					ratings[resp.ModelName] = append(ratings[resp.ModelName], *e.Evaluation.Value)
				}
			}
		}
	}
	for _, m := range solverOrder {
		c := counts[m]
		c.MeanRating = statistics.Mean(ratings[m])
		c.Ratings = len(ratings[m])
		c.TokenF1 = statistics.BootstrapCI(f1s[m], confidence)
		s.Solvers = append(s.Solvers, *c)
	}

	var theoristOrder []string
	ranks := map[string][]float64{}
	tcounts := map[string]*TheoristSummary{}
	for _, rep := range r.Unsolvable {
		for _, h := range rep.Hypotheses {
			c, ok := tcounts[h.ModelName]
			if !ok {
				c = &TheoristSummary{Model: h.ModelName}
				tcounts[h.ModelName] = c
				theoristOrder = append(theoristOrder, h.ModelName)
			}
			c.Hypotheses++
			if h.Failed() {
				c.Failures++
			}
		}
		for _, rk := range rep.Rankings {
			for model, rank := range RanksByModel(rk) {
				ranks[model] = append(ranks[model], float64(rank))
			}
		}
	}
	for _, m := range theoristOrder {
		c := tcounts[m]
		c.MeanRank = statistics.Mean(ranks[m])
		c.Ranks = len(ranks[m])
		s.Theorists = append(s.Theorists, *c)
	}
	return s
}

// WriteSummary renders s as terminal tables.
func WriteSummary(w io.Writer, s Summary) error {
	p := message.NewPrinter(language.English)

	if len(s.Solvers) > 0 {
		fmt.Fprintln(w, "Solvable")
		rows := make([][]string, 0, len(s.Solvers))
		for _, m := range s.Solvers {
			ci := "N/A"
			if m.TokenF1.N > 0 {
				ci = p.Sprintf("%.3f [%.3f, %.3f]", m.TokenF1.Mean, m.TokenF1.Lower, m.TokenF1.Upper)
			}
			rating := "N/A"
			if m.Ratings > 0 {
				rating = p.Sprintf("%.2f (n=%d)", m.MeanRating, m.Ratings)
			}
			rows = append(rows, []string{
				runewidth.Truncate(m.Model, modelColumnWidth, "…"),
				p.Sprintf("%d", m.Responses),
				p.Sprintf("%d", m.Failures),
				rating,
				ci,
			})
		}
		if err := renderTable(w, []string{"Model", "Responses", "Failures", "Mean rating", "Token F1 (95% CI)"}, rows); err != nil {
			return err
		}
	}

	if len(s.Theorists) > 0 {
		if len(s.Solvers) > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "Unsolvable")
		sorted := slices.Clone(s.Theorists)
		slices.SortStableFunc(sorted, func(a, b TheoristSummary) int {
			switch {
			case a.Ranks == 0 && b.Ranks > 0:
				return 1
			case b.Ranks == 0 && a.Ranks > 0:
				return -1
			case a.MeanRank < b.MeanRank:
				return -1
			case a.MeanRank > b.MeanRank:
				return 1
			}
			return 0
		})
		rows := make([][]string, 0, len(sorted))
		for _, m := range sorted {
			rank := "N/A"
			if m.Ranks > 0 {
				rank = p.Sprintf("%.2f (n=%d)", m.MeanRank, m.Ranks)
			}
			rows = append(rows, []string{
				runewidth.Truncate(m.Model, modelColumnWidth, "…"),
				p.Sprintf("%d", m.Hypotheses),
				p.Sprintf("%d", m.Failures),
				rank,
			})
		}
		if err := renderTable(w, []string{"Model", "Hypotheses", "Failures", "Mean rank"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{Borders: tw.BorderNone}),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
