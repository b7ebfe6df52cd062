package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/physbench/physbench/internal/reporting"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <results.json>",
		Short: "Regenerate CSV exports from a results file",
		Long: `Regenerate solvable.csv, unsolvable.csv and evaluations.csv from the
results.json a run wrote, optionally with a JUnit XML report.`,
		Args: cobra.ExactArgs(1),
		RunE: exportCommandE,
	}

	cmd.Flags().String("csv-dir", "", "Directory for the CSV files (default: csv/ next to the results file)")
	cmd.Flags().String("junit", "", "Also write a JUnit XML report to this path")

	return cmd
}

func exportCommandE(cmd *cobra.Command, args []string) error {
	v, err := bindEnv(cmd)
	if err != nil {
		return err
	}

	results, err := reporting.LoadResults(args[0])
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	dir := v.GetString("csv-dir")
	if dir == "" {
		dir = filepath.Join(filepath.Dir(args[0]), "csv")
	}
	if err := reporting.ExportCSV(dir, results.Solvable, results.Unsolvable, results.Metrics); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "CSV files written to: %s\n", dir)

	if path := v.GetString("junit"); path != "" {
		if err := reporting.WriteJUnitXML(results, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "JUnit report written to: %s\n", path)
	}
	return nil
}
