package fbcore

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured fbcore error with context and errno mapping.
type Error struct {
	Op    string       // operation that failed (e.g., "shmq.NewMessage", "sidechannel.WaitAck")
	Pid   int          // pid of the intercepted process (0 if not applicable)
	AckID int32        // ack id in flight when the error occurred (-1 if not applicable)
	Code  FbErrorCode  // high-level error category
	Errno syscall.Errno // originating errno (0 if not applicable)
	Msg   string        // human-readable message
	Inner error         // wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.Pid != 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", e.Pid))
	}

	if e.AckID >= 0 {
		parts = append(parts, fmt.Sprintf("ack=%d", e.AckID))
	}

	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("fbcore: %s (%s)", msg, parts[0])
	}

	return fmt.Sprintf("fbcore: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support comparing by category.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// FbErrorCode represents high-level error categories raised across the
// interceptor and supervisor.
type FbErrorCode string

const (
	ErrCodeNotImplemented    FbErrorCode = "not implemented"
	ErrCodeSocketIO          FbErrorCode = "sidechannel socket I/O error"
	ErrCodeAckMismatch       FbErrorCode = "ack id mismatch"
	ErrCodeMalformedMessage  FbErrorCode = "malformed fbb message"
	ErrCodeShmFailure        FbErrorCode = "shared memory queue failure"
	ErrCodeForkCloneFailure  FbErrorCode = "fork/clone failure"
	ErrCodeInvalidParameters FbErrorCode = "invalid parameters"
	ErrCodePermissionDenied  FbErrorCode = "permission denied"
	ErrCodeInsufficientMemory FbErrorCode = "insufficient memory"
	ErrCodeIOError           FbErrorCode = "I/O error"
	ErrCodeTimeout           FbErrorCode = "timeout"
	ErrCodeProcessGone       FbErrorCode = "intercepted process gone"
)

// Error constructors

// NewError creates a new structured error with no pid/ack context.
func NewError(op string, code FbErrorCode, msg string) *Error {
	return &Error{
		Op:    op,
		AckID: -1,
		Code:  code,
		Msg:   msg,
	}
}

// NewErrorWithErrno creates a new structured error carrying an errno.
func NewErrorWithErrno(op string, code FbErrorCode, errno syscall.Errno) *Error {
	return &Error{
		Op:    op,
		AckID: -1,
		Code:  code,
		Errno: errno,
		Msg:   errno.Error(),
	}
}

// NewProcessError creates a new error scoped to a specific intercepted pid.
func NewProcessError(op string, pid int, code FbErrorCode, msg string) *Error {
	return &Error{
		Op:    op,
		Pid:   pid,
		AckID: -1,
		Code:  code,
		Msg:   msg,
	}
}

// NewAckError creates a new error scoped to a specific pid and ack id, for
// sidechannel ack-wait and shmq message failures.
func NewAckError(op string, pid int, ackID int32, code FbErrorCode, msg string) *Error {
	return &Error{
		Op:    op,
		Pid:   pid,
		AckID: ackID,
		Code:  code,
		Msg:   msg,
	}
}

// WrapError wraps an existing error with fbcore context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if fe, ok := inner.(*Error); ok {
		return &Error{
			Op:    op,
			Pid:   fe.Pid,
			AckID: fe.AckID,
			Code:  fe.Code,
			Errno: fe.Errno,
			Msg:   fe.Msg,
			Inner: fe.Inner,
		}
	}

	code := ErrCodeIOError
	if errno, ok := inner.(syscall.Errno); ok {
		code = mapErrnoToCode(errno)
		return &Error{
			Op:    op,
			AckID: -1,
			Code:  code,
			Errno: errno,
			Msg:   errno.Error(),
			Inner: inner,
		}
	}

	return &Error{
		Op:    op,
		AckID: -1,
		Code:  code,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// mapErrnoToCode maps a wrapped libc errno to a high-level error category.
func mapErrnoToCode(errno syscall.Errno) FbErrorCode {
	switch errno {
	case syscall.ESRCH, syscall.ECHILD:
		return ErrCodeProcessGone
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParameters
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeNotImplemented
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.ENOMEM, syscall.ENOSPC:
		return ErrCodeInsufficientMemory
	case syscall.EAGAIN, syscall.ETIMEDOUT:
		return ErrCodeTimeout
	case syscall.EPIPE, syscall.ECONNRESET, syscall.ENOTCONN:
		return ErrCodeSocketIO
	default:
		return ErrCodeIOError
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code FbErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsErrno checks if an error matches a specific errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Errno == errno
	}
	return false
}
