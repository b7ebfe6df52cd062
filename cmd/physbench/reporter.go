package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/physbench/physbench/internal/orchestration"
	"github.com/physbench/physbench/internal/reporting"
	"github.com/physbench/physbench/internal/spinner"
)

// reporter turns progress events into terminal output: a spinner with a
// running count on a TTY, plain lines otherwise.
type reporter struct {
	w       io.Writer
	verbose bool
	enabled bool

	mu      sync.Mutex
	spin    *spinner.Spinner
	done    int
	failed  int
	total   int
	useSpin bool
}

func newReporter(w io.Writer, opts runOptions) *reporter {
	return &reporter{
		w:       w,
		verbose: opts.verbose,
		enabled: opts.progress,
		useSpin: opts.progress && spinner.IsTerminal(w),
	}
}

func (r *reporter) listen(event orchestration.ProgressEvent) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.EventType {
	case orchestration.EventRunStart:
		r.total = event.Total
		r.println(fmt.Sprintf("Running %d iteration(s)...", event.Total))
		if r.useSpin {
			r.spin = spinner.Start(r.w, r.status())
		}
	case orchestration.EventIterationComplete:
		r.done++
		r.println(color.GreenString("✓") + fmt.Sprintf(" [%d/%d] %s %s (%s)",
			r.done+r.failed, r.total, event.Category, event.QuestionID, event.Duration.Round(10*time.Millisecond)))
	case orchestration.EventIterationFailed:
		r.failed++
		r.println(color.RedString("✗") + fmt.Sprintf(" [%d/%d] %s iteration %d: %v",
			r.done+r.failed, r.total, event.Category, event.Iteration, event.Err))
	case orchestration.EventResponse:
		if r.verbose {
			mark := "response"
			if failed, _ := event.Details["failed"].(bool); failed {
				mark = color.YellowString("error")
			}
			r.println(fmt.Sprintf("  %s %s from %s (%s)", event.QuestionID, mark, event.Model, event.Duration.Round(10*time.Millisecond)))
		}
	case orchestration.EventJudgment:
		if r.verbose {
			r.println(fmt.Sprintf("  %s judged by %s (%s)", event.QuestionID, event.Model, event.Duration.Round(10*time.Millisecond)))
		}
	case orchestration.EventRunComplete:
		r.stopLocked()
	}

	if r.spin != nil {
		r.spin.Update(r.status())
	}
}

func (r *reporter) status() string {
	return fmt.Sprintf("%d/%d iterations done", r.done+r.failed, r.total)
}

// println prints above the spinner when one is running. Callers hold mu.
func (r *reporter) println(line string) {
	if r.spin != nil {
		r.spin.Println(line)
		return
	}
	fmt.Fprintln(r.w, line) //nolint:errcheck
}

func (r *reporter) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *reporter) stopLocked() {
	if r.spin != nil {
		r.spin.Stop()
		r.spin = nil
	}
}

func printRunSummary(w io.Writer, results *reporting.RunResults) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	color.New(color.Bold).Fprintln(w, " BENCHMARK RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Run ID:         %s\n", results.RunID)
	fmt.Fprintf(w, "Duration:       %s\n", results.FinishedAt.Sub(results.StartedAt).Round(time.Second))
	fmt.Fprintf(w, "Solvable:       %d\n", len(results.Solvable))
	fmt.Fprintf(w, "Unsolvable:     %d\n", len(results.Unsolvable))

	if n := len(results.Failures); n > 0 {
		color.New(color.FgRed).Fprintf(w, "Failed:         %d\n", n)
		for _, f := range results.Failures {
			fmt.Fprintf(w, "  - %s #%d: %s\n", f.Category, f.Iteration, f.Error)
		}
	} else {
		color.New(color.FgGreen).Fprintln(w, "Failed:         0")
	}
	fmt.Fprintln(w)

	if err := reporting.WriteSummary(w, reporting.Summarize(results, 0.95)); err != nil {
		fmt.Fprintf(w, "could not render summary: %v\n", err)
	}
}
