package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExhausted is returned by a draw once its cursor has covered every
	// question. It is recoverable by the matching reset.
	ErrExhausted = errors.New("dataset: all questions drawn")

	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("dataset: question not found")
)

// SchemaError reports a question whose payload lacks required fields.
type SchemaError struct {
	QuestionID string
	Missing    []string
	Err        error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("question %s is missing required field(s): %s", e.QuestionID, strings.Join(e.Missing, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }
