package sqlexec

import (
	"context"
	"errors"
	"strings"
)

// ExecutionError reports a failed statement or connection. Message is the
// text recorded on the conversation state; it never reaches end users directly.
type ExecutionError struct {
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func newExecutionError(err error) *ExecutionError {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "query execution failed"
	}
	return &ExecutionError{Message: msg, Err: err}
}

// ErrEmptyStatement is returned for blank SQL.
var ErrEmptyStatement = errors.New("empty sql statement")

// Result holds the rows of one statement along with the column order.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Executor runs a single SQL statement. Every failure is an *ExecutionError
// and the underlying connection is released on every exit path.
type Executor interface {
	Execute(ctx context.Context, sql string) (*Result, error)
}

// AsExecutionError extracts the ExecutionError from err, wrapping foreign errors.
func AsExecutionError(err error) *ExecutionError {
	if err == nil {
		return nil
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}
	return newExecutionError(err)
}
