package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/physbench/physbench/internal/models"
)

// ResultsFile is the run record written next to the artifacts.
const ResultsFile = "results.json"

// IterationFailure records an iteration excluded from the results.
type IterationFailure struct {
	Category  models.Category `json:"category"`
	Iteration int             `json:"iteration"`
	Error     string          `json:"error"`
}

// RunResults is everything a run produced, in a form the export and
// summary commands can reload.
type RunResults struct {
	RunID      string                    `json:"run_id"`
	Name       string                    `json:"name"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Metrics    []string                  `json:"metrics"`
	Solvable   []models.SolvableReport   `json:"solvable"`
	Unsolvable []models.UnsolvableReport `json:"unsolvable"`
	Failures   []IterationFailure        `json:"failures,omitempty"`
}

// NewRunResults starts a record with a fresh run id.
func NewRunResults(name string, metrics []string, started time.Time) *RunResults {
	return &RunResults{
		RunID:     uuid.NewString(),
		Name:      name,
		StartedAt: started.UTC(),
		Metrics:   metrics,
	}
}

// WriteResults writes r as indented JSON.
func WriteResults(path string, r *RunResults) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadResults reads a results file.
func LoadResults(path string) (*RunResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r RunResults
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if _, err := uuid.Parse(r.RunID); err != nil {
		return nil, fmt.Errorf("%s: invalid run_id %q", path, r.RunID)
	}
	return &r, nil
}
