package request

import (
	"errors"
	"fmt"
)

// Code identifies a request error category
type Code string

const (
	CodeSolverNotReady         Code = "SOLVER_NOT_READY"
	CodeInsufficientStops      Code = "INSUFFICIENT_STOPS"
	CodeInsufficientFacilities Code = "INSUFFICIENT_FACILITIES"
	CodeSolverExecutionFailed  Code = "SOLVER_EXECUTION_FAILED"
	CodeActionNotAllowed       Code = "ACTION_NOT_ALLOWED"
	CodeNoDirections           Code = "NO_DIRECTIONS"
)

// RequestError is a recoverable, user-presentable error.
// Title and Message are shown in a dismissible dialog.
type RequestError struct {
	Code    Code
	Title   string
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is matches any RequestError with the same code
func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	return ok && t.Code == e.Code
}

var (
	ErrSolverNotReady = &RequestError{
		Code:    CodeSolverNotReady,
		Title:   "Route Params",
		Message: "Route Params not yet loaded. Please try again.",
	}

	ErrInsufficientStops = &RequestError{
		Code:    CodeInsufficientStops,
		Title:   "Not enough stops",
		Message: "Add at least two stops before solving a route.",
	}

	ErrInsufficientFacilities = &RequestError{
		Code:    CodeInsufficientFacilities,
		Title:   "No facilities",
		Message: "Must have at least one Facility on the map!",
	}

	ErrNoDirections = &RequestError{
		Code:    CodeNoDirections,
		Title:   "No directions",
		Message: "Add stops and barriers, then click 'Route' before displaying directions.",
	}

	ErrActionNotAllowed = &RequestError{
		Code:    CodeActionNotAllowed,
		Title:   "Not available",
		Message: "That action is not available right now.",
	}

	ErrSolverExecutionFailed = &RequestError{
		Code:  CodeSolverExecutionFailed,
		Title: "Solver error",
	}
)

// ActionNotAllowed reports that the current mode disables action
func ActionNotAllowed(action, mode string) *RequestError {
	return &RequestError{
		Code:    CodeActionNotAllowed,
		Title:   ErrActionNotAllowed.Title,
		Message: fmt.Sprintf("Cannot %s while %s.", action, mode),
	}
}

// ExecutionFailed wraps a solver failure. The underlying message is kept
// verbatim after prefix.
func ExecutionFailed(title, prefix string, err error) *RequestError {
	msg := prefix
	if err != nil {
		msg = fmt.Sprintf("%s Message: %s", prefix, err.Error())
	}
	return &RequestError{
		Code:    CodeSolverExecutionFailed,
		Title:   title,
		Message: msg,
		Err:     err,
	}
}

// CodeOf returns the request error code carried by err, or "" if none
func CodeOf(err error) Code {
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return ""
}
