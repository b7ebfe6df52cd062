// Package reporting writes per-question markdown artifacts and the
// aggregate exports of a run.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/utils"
)

// The markdown writers below append to the artifact at path. They are not
// synchronized; callers hold one lock per artifact.

// ArtifactPath names the markdown artifact for a question. Its existence
// marks the question as processed.
func ArtifactPath(outDir string, category models.Category, id string) string {
	return filepath.Join(outDir, string(category), utils.SanitizeFileName(id)+".md")
}

// WriteSolvableHeader starts a solvable artifact, truncating any
// previous content.
func WriteSolvableHeader(path, id, question, trueAnswer string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Solvable Question Analysis (ID: %s)\n\n", id)
	fmt.Fprintf(&b, "## Question\n%s\n\n", question)
	fmt.Fprintf(&b, "## True Answer\n%s\n\n", trueAnswer)
	b.WriteString("## Model Responses\n\n")
	return writeFile(path, b.String())
}

// AppendResponse appends one solver's response.
func AppendResponse(path, model, text string) error {
	return appendFile(path, "### "+model+"\n"+entryBody(text))
}

// StartAnalysisTable appends the analysis table header: one column per
// deterministic metric and one per evaluator.
func StartAnalysisTable(path string, metrics, evaluators []string) error {
	cols := append(append([]string{"Response"}, metrics...), evaluators...)
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	return appendFile(path, "## Analysis Table\n\n"+tableRow(cols)+tableRow(seps))
}

// WriteAnalysisRow appends one table row.
func WriteAnalysisRow(path, model string, cells []string) error {
	return appendFile(path, tableRow(append([]string{model}, cells...)))
}

// AppendNoCandidates records that no response was valid for judgment.
func AppendNoCandidates(path string) error {
	return appendFile(path, "_No valid responses to evaluate._\n\n")
}

// AppendEvaluatorReasoning appends one evaluator's per-response verdicts.
// responses and scores are parallel.
func AppendEvaluatorReasoning(path, evaluator string, responses []string, scores []models.Score) error {
	var b strings.Builder
	fmt.Fprintf(&b, "#### Judge: %s\n", evaluator)
	for i, model := range responses {
		s := scores[i]
		fmt.Fprintf(&b, "- **%s** (%s): %s\n", model, FormatRating(s), oneLine(s.Reasoning))
	}
	b.WriteString("\n")
	return appendFile(path, b.String())
}

// StartEvaluatorSection opens the evaluator reasoning section.
func StartEvaluatorSection(path string) error {
	return appendFile(path, "\n### Evaluator Reasoning\n\n")
}

// WriteUnsolvableHeader starts an unsolvable artifact, truncating any
// previous content.
func WriteUnsolvableHeader(path, id, question string) error {
	var b strings.Builder
	b.WriteString("# Unsolvable Question Analysis\n\n")
	fmt.Fprintf(&b, "## Question %s\n%s\n\n", id, question)
	b.WriteString("### Hypotheses\n\n")
	return writeFile(path, b.String())
}

// AppendHypothesis appends one theorist's hypothesis.
func AppendHypothesis(path, model, text string) error {
	return appendFile(path, "#### "+model+"\n"+entryBody(text))
}

// StartRankings opens the rankings section.
func StartRankings(path string) error {
	return appendFile(path, "### Rankings\n\n")
}

// AppendRanking appends one ranker's raw ranking payload.
func AppendRanking(path, ranker, reasoning string) error {
	return appendFile(path, fmt.Sprintf("#### Judge: %s\n%s\n\n", ranker, reasoning))
}

// AppendNoHypotheses records that ranking was skipped.
func AppendNoHypotheses(path string) error {
	return appendFile(path, "_No valid hypotheses generated for ranking._\n\n")
}

// TimingRow is one line of an artifact's timing summary.
type TimingRow struct {
	Model   string
	Role    string
	Elapsed time.Duration
}

// WriteTimingSummary appends the timing table and closes the artifact with
// a separator.
func WriteTimingSummary(path string, rows []TimingRow) error {
	var b strings.Builder
	b.WriteString("## Timing Summary\n\n")
	b.WriteString(tableRow([]string{"Model", "Role", "Time (s)"}))
	b.WriteString(tableRow([]string{"---", "---", "---"}))
	for _, r := range rows {
		b.WriteString(tableRow([]string{r.Model, r.Role, fmt.Sprintf("%.2f", r.Elapsed.Seconds())}))
	}
	b.WriteString("\n---\n\n")
	return appendFile(path, b.String())
}

// FormatMetric renders a deterministic score cell.
func FormatMetric(s models.Score, ok bool) string {
	if !ok || !s.Present() {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", *s.Value)
}

// FormatRating renders a judge rating cell.
func FormatRating(s models.Score) string {
	if !s.Present() {
		return "N/A"
	}
	return fmt.Sprintf("%d/5", int(*s.Value))
}

func entryBody(text string) string {
	if models.IsErrorText(text) {
		return "**Error:** " + text + "\n\n"
	}
	return text + "\n\n"
}

func tableRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return "| " + strings.Join(escaped, " | ") + " |\n"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
