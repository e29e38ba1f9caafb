package utils

import (
	"errors"
	"fmt"
)

// ErrIncidentNotFound signals that the incident could not be resolved
// upstream. It terminates the analysis call.
var ErrIncidentNotFound = errors.New("incident not found")

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// StageError wraps a failure from a scoring stage with the stage name and
// incident id so callers can attribute the error without parsing text.
func StageError(stage, incidentID string, err error) error {
	return &AppError{Op: stage, Msg: "incident " + incidentID, Err: err}
}
