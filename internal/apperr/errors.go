// Package apperr defines the job error taxonomy shared by the pipeline
// packages and the controller.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	// KindValidation blocks a start; nothing was mutated.
	KindValidation Kind = iota
	// KindSubmission is a backend failure; the local simulation still runs.
	KindSubmission
	// KindStage halts a stage or track and prevents the merge.
	KindStage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindSubmission:
		return "SubmissionError"
	case KindStage:
		return "StageError"
	default:
		return "UnknownError"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func Wrap(err error, kind Kind, message string) *Error {
	e := New(kind, message)
	e.Cause = err
	return e
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Submission(cause error) *Error {
	return Wrap(cause, KindSubmission, "job submission failed")
}

// Stage reports that the named stage or track could not complete.
func Stage(name string, cause error) *Error {
	return Wrap(cause, KindStage, name+" failed").WithContext("stage", name)
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s", e.Kind, e.Message)}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "context: "+strings.Join(ctxParts, ", "))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

// Display is the short form shown as a job status line.
func (e *Error) Display() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Message returns the status-line form of err, whatever its type.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Display()
	}
	return err.Error()
}
