package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/physbench/physbench/internal/judge"
	"github.com/physbench/physbench/internal/models"
)

// Export file names under the CSV directory.
const (
	SolvableCSV    = "solvable.csv"
	UnsolvableCSV  = "unsolvable.csv"
	EvaluationsCSV = "evaluations.csv"
)

// ExportCSV writes the three aggregate exports into dir. Empty report
// lists produce header-only files.
func ExportCSV(dir string, solvable []models.SolvableReport, unsolvable []models.UnsolvableReport, metrics []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating csv directory: %w", err)
	}
	if err := writeCSV(filepath.Join(dir, SolvableCSV), SolvableRows(solvable, metrics)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, UnsolvableCSV), UnsolvableRows(unsolvable)); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, EvaluationsCSV), EvaluationRows(solvable, unsolvable))
}

// SolvableRows builds solvable.csv: one row per (question, model) with a
// column per metric and per evaluator rating. Evaluator columns follow the
// order evaluations were recorded in, which is the configured order. The
// first row is the header.
func SolvableRows(reports []models.SolvableReport, metrics []string) [][]string {
	var evaluators []string
	for _, r := range reports {
		for _, resp := range r.Responses {
			for _, e := range resp.LLMEvaluations {
				evaluators = appendUnique(evaluators, e.EvaluatorModelName)
			}
		}
	}

	header := []string{"question_id", "model", "time"}
	header = append(header, metrics...)
	for _, e := range evaluators {
		header = append(header, e+"_rating")
	}

	rows := [][]string{header}
	for _, r := range reports {
		for _, resp := range r.Responses {
			row := []string{r.QuestionID, resp.ModelName, seconds(resp.GenerationTime)}
			for _, m := range metrics {
				s, ok := resp.DeterministicScore(m)
				row = append(row, scoreCell(s, ok))
			}
			for _, e := range evaluators {
				ev, ok := resp.Evaluation(e)
				row = append(row, scoreCell(ev.Evaluation, ok))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// UnsolvableRows builds unsolvable.csv: one row per (question, model) with
// the hypothesis index the rankers saw and a rank column per ranker.
// Ranker columns follow the configured order. Failed hypotheses and
// degraded rankings leave their cells empty.
func UnsolvableRows(reports []models.UnsolvableReport) [][]string {
	var rankers []string
	for _, r := range reports {
		for _, rk := range r.Rankings {
			rankers = appendUnique(rankers, rk.RankerModelName)
		}
	}

	header := []string{"question_id", "model", "hypothesis_index", "time"}
	for _, rk := range rankers {
		header = append(header, rk+"_rank")
	}

	rows := [][]string{header}
	for _, r := range reports {
		ranks := make(map[string]map[string]int, len(r.Rankings))
		for _, rk := range r.Rankings {
			ranks[rk.RankerModelName] = RanksByModel(rk)
		}

		index := 0
		for _, h := range r.Hypotheses {
			idx := ""
			if !h.Failed() {
				index++
				idx = strconv.Itoa(index)
			}
			row := []string{r.QuestionID, h.ModelName, idx, seconds(h.GenerationTime)}
			for _, rk := range rankers {
				cell := ""
				if rank, ok := ranks[rk][h.ModelName]; ok {
					cell = strconv.Itoa(rank)
				}
				row = append(row, cell)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// RanksByModel maps each ranked candidate model to its rank. Degraded or
// unparseable rankings map nothing.
func RanksByModel(rk models.CrossRanking) map[string]int {
	out := make(map[string]int, len(rk.Candidates))
	p, err := judge.ParseRanking(rk.Ranking.Reasoning)
	if err != nil || p.Degraded() {
		return out
	}
	for i, model := range rk.Candidates {
		if i < len(p.Rankings) && p.Rankings[i] > 0 {
			out[model] = p.Rankings[i]
		}
	}
	return out
}

// EvaluationRows builds evaluations.csv: one row per evaluator verdict and
// one per ranker call.
func EvaluationRows(solvable []models.SolvableReport, unsolvable []models.UnsolvableReport) [][]string {
	rows := [][]string{{"question_type", "question_id", "evaluator_model", "evaluated_model", "time", "score"}}
	for _, r := range solvable {
		for _, resp := range r.Responses {
			for _, e := range resp.LLMEvaluations {
				rows = append(rows, []string{
					string(models.CategorySolvable), r.QuestionID, e.EvaluatorModelName, resp.ModelName,
					seconds(e.EvaluationTime), scoreCell(e.Evaluation, true),
				})
			}
		}
	}
	for _, r := range unsolvable {
		for _, rk := range r.Rankings {
			rows = append(rows, []string{
				string(models.CategoryUnsolvable), r.QuestionID, rk.RankerModelName, "",
				seconds(rk.RankingTime), "",
			})
		}
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func scoreCell(s models.Score, ok bool) string {
	if !ok || !s.Present() {
		return ""
	}
	return strconv.FormatFloat(*s.Value, 'f', -1, 64)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
