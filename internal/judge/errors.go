package judge

import "fmt"

// ParseError reports a judge response that did not match the requested
// structure.
type ParseError struct {
	Judge string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing response from judge %s: %v", e.Judge, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
