package osiris

import (
	"errors"
	"fmt"

	"github.com/ehrlich-b/osiris-go/task"
)

// RuntimeErrorCode groups RuntimeError values into broad categories, the way
// the teacher repo's UblkErrorCode groups device errors.
type RuntimeErrorCode string

const (
	ErrCodeIO              RuntimeErrorCode = "I/O error"
	ErrCodeTimeout         RuntimeErrorCode = "timeout"
	ErrCodeCancelled       RuntimeErrorCode = "cancelled"
	ErrCodeUnsupportedOp   RuntimeErrorCode = "operation not supported by backend"
	ErrCodeBackendMissing  RuntimeErrorCode = "no reactor backend available"
	ErrCodeInvalidArgument RuntimeErrorCode = "invalid argument"
	ErrCodeClosed          RuntimeErrorCode = "reactor closed"
)

// RuntimeError is the ordinary (non-panic) error value of the root package.
// New wraps a backend that can't be constructed in one; NewErrnoError builds
// one from a negative CQE result. The reactor's ops themselves do not return
// RuntimeErrors: they report a failed completion as the Errno field of their
// result struct. Task panics, aborts, and internal invariant violations are NOT
// RuntimeErrors: those travel as Go panics, never as error values, because
// unlike a failed read or a timed-out connect they are not conditions a
// caller is expected to branch on.
type RuntimeError struct {
	Op    string
	Code  RuntimeErrorCode
	Errno int
	Msg   string
	Inner error
}

func (e *RuntimeError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		if e.Errno != 0 {
			return fmt.Sprintf("osiris: %s: %s (errno %d)", e.Op, msg, e.Errno)
		}
		return fmt.Sprintf("osiris: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("osiris: %s", msg)
}

func (e *RuntimeError) Unwrap() error {
	return e.Inner
}

func (e *RuntimeError) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*RuntimeError); ok {
		return e.Code == te.Code
	}
	return false
}

// NewRuntimeError builds a RuntimeError for the named op.
func NewRuntimeError(op string, code RuntimeErrorCode, msg string) *RuntimeError {
	return &RuntimeError{Op: op, Code: code, Msg: msg}
}

// NewErrnoError builds a RuntimeError from a CQE result that came back
// negative, for callers that want an op's Errno as an error value.
func NewErrnoError(op string, errno int) *RuntimeError {
	return &RuntimeError{
		Op:    op,
		Code:  mapErrnoToCode(errno),
		Errno: errno,
		Msg:   errnoString(errno),
	}
}

// WrapError attaches op context to an existing error, preserving code/errno
// if it is already a RuntimeError.
func WrapError(op string, inner error) *RuntimeError {
	if inner == nil {
		return nil
	}
	if re, ok := inner.(*RuntimeError); ok {
		return &RuntimeError{Op: op, Code: re.Code, Errno: re.Errno, Msg: re.Msg, Inner: re.Inner}
	}
	return &RuntimeError{Op: op, Code: ErrCodeIO, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno int) RuntimeErrorCode {
	switch errno {
	case 110: // ETIMEDOUT
		return ErrCodeTimeout
	case 125: // ECANCELED
		return ErrCodeCancelled
	case 22: // EINVAL
		return ErrCodeInvalidArgument
	case 95: // EOPNOTSUPP
		return ErrCodeUnsupportedOp
	default:
		return ErrCodeIO
	}
}

func errnoString(errno int) string {
	return fmt.Sprintf("errno %d", errno)
}

// IsCode reports whether err is a RuntimeError carrying the given code.
func IsCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// Panic and abort payloads live in package task (Panic, AbortedError),
// since the executor and JoinHandle need them and task cannot import this
// package without a cycle. Aliased here so callers only ever write
// osiris.TaskPanic / osiris.AbortedError.
type TaskPanic = task.Panic
type AbortedError = task.AbortedError
