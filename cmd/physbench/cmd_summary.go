package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/physbench/physbench/internal/reporting"
)

func newSummaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <results.json>",
		Short: "Print per-model summary tables for a run",
		Args:  cobra.ExactArgs(1),
		RunE:  summaryCommandE,
	}

	cmd.Flags().Float64("confidence", 0.95, "Confidence level of the token F1 interval")

	return cmd
}

func summaryCommandE(cmd *cobra.Command, args []string) error {
	v, err := bindEnv(cmd)
	if err != nil {
		return err
	}
	confidence := v.GetFloat64("confidence")
	if confidence <= 0 || confidence >= 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", confidence)
	}

	results, err := reporting.LoadResults(args[0])
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	return reporting.WriteSummary(cmd.OutOrStdout(), reporting.Summarize(results, confidence))
}
