package herrors

import (
	"fmt"

	"github.com/filecoin-project/go-state-types/exitcode"
)

// HookError is the error type flowing through hook invocations. Errors are
// either recoverable, carrying an exit code the dispatcher may act on, or
// fatal, meaning the whole dispatch (and the transaction enclosing it) must
// not proceed.
type HookError interface {
	error
	IsFatal() bool
	RetCode() exitcode.ExitCode
}

type hookError struct {
	fatal   bool
	retCode exitcode.ExitCode

	msg string
	err error
}

func (h *hookError) IsFatal() bool {
	return h.fatal
}

func (h *hookError) RetCode() exitcode.ExitCode {
	return h.retCode
}

func (h *hookError) Error() string {
	if h.err != nil {
		return fmt.Sprintf("%s: %s", h.msg, h.err)
	}
	return h.msg
}

func (h *hookError) Unwrap() error {
	return h.err
}

// IsFatal reports whether err cannot be recovered from by the caller. A nil
// error is not fatal.
func IsFatal(err HookError) bool {
	return err != nil && err.IsFatal()
}

// RetCode returns the exit code carried by err, or Ok for nil.
func RetCode(err HookError) exitcode.ExitCode {
	if err == nil {
		return exitcode.Ok
	}
	return err.RetCode()
}

// New creates a recoverable error with the given exit code.
func New(retCode exitcode.ExitCode, msg string) HookError {
	if retCode == exitcode.Ok {
		return &hookError{
			fatal:   true,
			retCode: exitcode.SysErrorIllegalArgument,
			msg:     "tried to create an error with zero exit code: " + msg,
		}
	}
	return &hookError{
		retCode: retCode,
		msg:     msg,
	}
}

// Newf is New with formatting.
func Newf(retCode exitcode.ExitCode, format string, args ...interface{}) HookError {
	return New(retCode, fmt.Sprintf(format, args...))
}

// Fatal creates an unrecoverable error. Fatal errors carry no meaningful
// exit code.
func Fatal(msg string) HookError {
	return &hookError{
		fatal: true,
		msg:   msg,
	}
}

// Fatalf is Fatal with formatting.
func Fatalf(format string, args ...interface{}) HookError {
	return Fatal(fmt.Sprintf(format, args...))
}

// Wrap extends the chain of errors behind err with msg, preserving the exit
// code and fatality.
func Wrap(err HookError, msg string) HookError {
	if err == nil {
		return nil
	}
	return &hookError{
		fatal:   err.IsFatal(),
		retCode: err.RetCode(),
		msg:     msg,
		err:     err,
	}
}

// Wrapf is Wrap with formatting.
func Wrapf(err HookError, format string, args ...interface{}) HookError {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Absorb converts a plain error into a recoverable HookError with the given
// exit code. Absorbing an already-fatal HookError keeps it fatal.
func Absorb(err error, retCode exitcode.ExitCode, msg string) HookError {
	if err == nil {
		return nil
	}
	if herr, ok := err.(HookError); ok && IsFatal(herr) {
		return &hookError{
			fatal:   true,
			retCode: retCode,
			msg:     "tried to absorb a fatal error: " + msg,
			err:     err,
		}
	}
	if retCode == exitcode.Ok {
		return &hookError{
			fatal:   true,
			retCode: exitcode.SysErrorIllegalArgument,
			msg:     "tried to absorb an error with zero exit code: " + msg,
			err:     err,
		}
	}
	return &hookError{
		retCode: retCode,
		msg:     msg,
		err:     err,
	}
}

// Escalate converts a plain error into a fatal HookError. Used when an
// internal operation fails in a way that makes continuing unsound.
func Escalate(err error, msg string) HookError {
	if err == nil {
		return nil
	}
	return &hookError{
		fatal: true,
		msg:   msg,
		err:   err,
	}
}
