// Package errors attaches process exit codes to errors returned by the taskstate binaries.
package errors

type ExitCodeError struct {
	code ExitCode
	error
}

func NewError(err error, exitCode ExitCode) *ExitCodeError {
	if err == nil {
		return nil
	}
	return &ExitCodeError{exitCode, err}
}

func (e *ExitCodeError) GetExitCode() ExitCode {
	if e == nil {
		return 0
	}
	return e.code
}

// Cause returns the wrapped error so pkg/errors.Cause can see through exit codes.
func (e *ExitCodeError) Cause() error {
	if e == nil {
		return nil
	}
	return e.error
}

// ExitCodeOf returns the exit code attached to err, GenericFailureExitCode for
// plain errors and 0 for nil.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return 0
	}
	if e, ok := err.(*ExitCodeError); ok {
		return e.GetExitCode()
	}
	return GenericFailureExitCode
}
