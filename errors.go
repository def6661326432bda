package cqlx

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/dispatch"
	"github.com/txix-open/cqlx/driver"
)

var (
	ErrDuplicateCallback = errors.New("callback already registered")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNoHosts           = errors.New("no hosts provided")
	ErrSessionClosed     = errors.New("session is closed")
	ErrDispatcherClosed  = dispatch.ErrClosed

	ErrUnknownColumn = errors.New("unknown column")
	ErrType          = errors.New("unexpected value type")
	ErrRange         = errors.New("value out of range")
)

// ConnectError is returned when no contact point accepted the connection.
type ConnectError struct {
	Code    driver.ErrorCode
	Message string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect: %s: %s", e.Code, e.Message)
}

// ExecutionError is the failure of a completed operation.
type ExecutionError struct {
	Kind    Kind
	Code    driver.ErrorCode
	Message string
}

func newExecutionError(kind Kind, op driver.Operation) *ExecutionError {
	return &ExecutionError{
		Kind:    kind,
		Code:    op.ErrorCode(),
		Message: op.ErrorMessage(),
	}
}

func (e *ExecutionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
}

func (e *ExecutionError) Timeout() bool {
	return e.Code == driver.CodeTimeout
}

type BindError struct {
	Column string
	Type   driver.Type
	Err    error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s (%s): %v", e.Column, e.Type, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
