package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess         = 0 // Every iteration completed
	ExitIterationFailed = 1 // The run finished but some iterations failed
	ExitError           = 2 // Configuration or runtime error
)

// IterationFailureError indicates that the run completed and its outputs
// were written, but one or more iterations were excluded.
type IterationFailureError struct {
	Failed int
	Total  int
}

func (e *IterationFailureError) Error() string {
	return fmt.Sprintf("run completed with %d of %d iteration(s) failed", e.Failed, e.Total)
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var iterErr *IterationFailureError
	if errors.As(err, &iterErr) {
		return ExitIterationFailed
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
