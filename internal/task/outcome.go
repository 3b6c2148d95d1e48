package task

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Signal names the notifications a task emits.
type Signal string

const (
	SignalProgress Signal = "progress"
	SignalResult   Signal = "result"
	SignalError    Signal = "error"
	SignalFinished Signal = "finished"
)

// Failure describes why a task did not produce a value.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

func (f Failure) Error() string {
	return f.Kind + ": " + f.Message
}

// Outcome is either a success value or a failure. Exactly one of the two
// is meaningful: Failure is nil on success.
type Outcome struct {
	Value   any
	Failure *Failure
}

// Success wraps a value.
func Success(v any) Outcome {
	return Outcome{Value: v}
}

// Failed wraps a failure.
func Failed(f Failure) Outcome {
	return Outcome{Failure: &f}
}

// OK reports whether the task returned normally.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Err returns the failure as an error, or nil.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return *o.Failure
}

// failureFromError converts a returned error. The kind is the dynamic type
// of the innermost wrapped error.
func failureFromError(err error) Failure {
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}

	var trace strings.Builder
	fmt.Fprintf(&trace, "%+v\n", err)
	trace.Write(debug.Stack())

	return Failure{
		Kind:    fmt.Sprintf("%T", root),
		Message: err.Error(),
		Trace:   trace.String(),
	}
}

// failureFromPanic converts a recovered panic value and the stack it was
// recovered on.
func failureFromPanic(rec any, stack []byte) Failure {
	kind := "panic"
	if err, ok := rec.(error); ok {
		kind = fmt.Sprintf("panic(%T)", err)
	}
	trace := string(stack)
	if trace == "" {
		trace = fmt.Sprintf("panic: %v", rec)
	}
	return Failure{
		Kind:    kind,
		Message: fmt.Sprint(rec),
		Trace:   trace,
	}
}
