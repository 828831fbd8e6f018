package app

import (
	"errors"
	"fmt"
)

// DeviceTarget names the device or image a command works on
type DeviceTarget struct {
	Path string
}

// Validate ensures a device was given
func (dt *DeviceTarget) Validate() error {
	if dt.Path == "" {
		return errors.New("no device specified")
	}
	return nil
}

// String returns the device path
func (dt *DeviceTarget) String() string {
	return dt.Path
}

// ExitStatus is a process exit code. fsck statuses are additive: a run that
// both changed the file system and left errors exits with 7.
type ExitStatus int

const (
	ExitOK          ExitStatus = 0
	ExitChanged     ExitStatus = 3
	ExitUncorrected ExitStatus = 4
	ExitError       ExitStatus = 8
	ExitUsage       ExitStatus = 16
)

// CheckStatus composes the exit status of a completed check
func CheckStatus(changed, uncorrected bool) ExitStatus {
	status := ExitOK
	if changed {
		status += ExitChanged
	}
	if uncorrected {
		status += ExitUncorrected
	}
	return status
}

// ExitStatusFor maps an error to an exit status. Invalid input is a usage
// error; everything else is an operational error.
func ExitStatusFor(err error) ExitStatus {
	if err == nil {
		return ExitOK
	}
	var ce *CommonError
	if errors.As(err, &ce) && ce.Code == ErrCodeInvalidInput {
		return ExitUsage
	}
	return ExitError
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeDeviceAccess  = "DEVICE_ACCESS"
	ErrCodeBadSuperblock = "BAD_SUPERBLOCK"
	ErrCodeMounted       = "MOUNTED"
	ErrCodeNotMinix      = "NOT_MINIX"
	ErrCodeTooBig        = "TOO_BIG"
	ErrCodeNeedTerminal  = "NEED_TERMINAL"
	ErrCodeFatal         = "FATAL"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
