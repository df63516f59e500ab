package domain

import (
	"errors"
	"fmt"
)

// Code identifies a failure class. Codes are stable and surface on the wire.
type Code string

const (
	// Input errors.
	CodeInvalidK          Code = "INVALID_K"
	CodeEmptyInput        Code = "EMPTY_INPUT"
	CodeEmptyCluster      Code = "EMPTY_CLUSTER"
	CodeIllegalState      Code = "ILLEGAL_STATE"
	CodeUnknownPackage    Code = "UNKNOWN_PACKAGE"
	CodeWrongCourier      Code = "WRONG_COURIER"
	CodeUnknownCourier    Code = "UNKNOWN_COURIER"
	CodeUnknownRoute      Code = "UNKNOWN_ROUTE"
	CodeCourierBusy       Code = "COURIER_BUSY"
	CodeCourierInactive   Code = "COURIER_INACTIVE"
	CodeCapacityExceeded  Code = "CAPACITY_EXCEEDED"
	CodeUnknownSession    Code = "UNKNOWN_SESSION"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeDuplicateCourier  Code = "DUPLICATE_COURIER"
	CodeDuplicateSession  Code = "DUPLICATE_SESSION"
	CodeDuplicateBatchID  Code = "DUPLICATE_BATCH_ID"
	CodeCoordOutOfRange   Code = "COORD_OUT_OF_RANGE"
	CodeDuplicatePackage  Code = "DUPLICATE_PACKAGE_ID"
	CodeStopMismatch      Code = "STOP_COORD_MISMATCH"
	CodeNotFound          Code = "NOT_FOUND"
	CodeProviderDown      Code = "PROVIDER_UNAVAILABLE"
	CodeUngeocoded        Code = "UNGEOCODED"
	CodeAlreadyDelivered  Code = "ALREADY_DELIVERED"
	CodeInactiveSeparator Code = "INACTIVE_SEPARATOR"
)

// Error is the structured failure returned by the planner core.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = string(e.Code) + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidK          = &Error{Code: CodeInvalidK}
	ErrEmptyInput        = &Error{Code: CodeEmptyInput}
	ErrEmptyCluster      = &Error{Code: CodeEmptyCluster}
	ErrIllegalState      = &Error{Code: CodeIllegalState}
	ErrUnknownPackage    = &Error{Code: CodeUnknownPackage}
	ErrWrongCourier      = &Error{Code: CodeWrongCourier}
	ErrUnknownCourier    = &Error{Code: CodeUnknownCourier}
	ErrUnknownRoute      = &Error{Code: CodeUnknownRoute}
	ErrCourierBusy       = &Error{Code: CodeCourierBusy}
	ErrCourierInactive   = &Error{Code: CodeCourierInactive}
	ErrCapacityExceeded  = &Error{Code: CodeCapacityExceeded}
	ErrUnknownSession    = &Error{Code: CodeUnknownSession}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument}
	ErrDuplicateCourier  = &Error{Code: CodeDuplicateCourier}
	ErrDuplicateSession  = &Error{Code: CodeDuplicateSession}
	ErrDuplicateBatchID  = &Error{Code: CodeDuplicateBatchID}
	ErrCoordOutOfRange   = &Error{Code: CodeCoordOutOfRange}
	ErrDuplicatePackage  = &Error{Code: CodeDuplicatePackage}
	ErrStopMismatch      = &Error{Code: CodeStopMismatch}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrProviderDown      = &Error{Code: CodeProviderDown, Retryable: true}
	ErrUngeocoded        = &Error{Code: CodeUngeocoded}
	ErrAlreadyDelivered  = &Error{Code: CodeAlreadyDelivered}
	ErrInactiveSeparator = &Error{Code: CodeInactiveSeparator}
)

// Errorf builds an *Error with a formatted message. ProviderUnavailable is always retryable.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: code == CodeProviderDown,
	}
}

// Wrap attaches a code to an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	e := Errorf(code, format, args...)
	e.Err = err
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether err carries a retryable domain error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
