// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package errors

import (
	stderrors "errors"
	"fmt"
)

// GetErrCode returns the error code if the error is
// associated to recognizable error types
func GetErrCode(err error) ErrCode {
	val, ok := err.(*Error)
	if ok {
		return ErrCode(val.code)
	}
	return Unknown
}

// base error structure
type Error struct {
	code ErrCode
	msg  string
}

// Error() prints out the error message string
func (e Error) Error() string {
	return e.msg
}

// Creates a new error msg without error code
func New(msg string) error {
	return &Error{
		msg: msg,
	}
}

// Wraps the error msg with recognized error codes
func Wrap(code ErrCode, msg string) error {
	return &Error{
		code: code,
		msg:  msg,
	}
}

// Wrapf is similar to Wrap, while working with a format
// specifier and relevant arguments
func Wrapf(code ErrCode, format string, args ...any) error {
	return &Error{
		code: code,
		msg:  fmt.Sprintf(format, args...),
	}
}

// Is reports whether any error in err's chain matches target,
// re-exported from the standard library for consumers working
// with context and io errors alongside this package
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// IsNotFound returns true if err
// item isn't found in the space
func IsNotFound(err error) bool {
	return GetErrCode(err) == NotFound
}

// IsAlreadyExists returns true if err
// item already exists in the space
func IsAlreadyExists(err error) bool {
	return GetErrCode(err) == AlreadyExists
}

// IsInvalidArgument returns true if err
// item is invalid argument
func IsInvalidArgument(err error) bool {
	return GetErrCode(err) == InvalidArgument
}

// IsInterrupted returns true if err indicates a
// blocking operation cut short by cancellation
func IsInterrupted(err error) bool {
	return GetErrCode(err) == Interrupted
}

// IsUnavailable returns true if err indicates an
// unreachable or unhealthy backing service
func IsUnavailable(err error) bool {
	return GetErrCode(err) == Unavailable
}
