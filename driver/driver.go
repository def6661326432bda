// Package driver defines the narrow contract cqlx drives a native asynchronous
// database driver through: submit an operation, poll or wait for completion,
// read its error code and take its payload exactly once.
package driver

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotReady = errors.New("operation is not ready")
	ErrConsumed = errors.New("operation payload already consumed")
)

// Operation is a pending native call. Readiness is monotonic.
// ErrorCode, ErrorMessage and Payload are valid only once Ready reports true.
type Operation interface {
	Ready() bool
	Wait()
	ErrorCode() ErrorCode
	ErrorMessage() string
	// Payload returns *PreparedMetadata for prepare operations and *ResultSet
	// for execute operations. The second call returns ErrConsumed.
	Payload() (any, error)
	Close() error
}

// Conn submits operations. Submission never waits for completion.
// Close completes every operation still pending.
type Conn interface {
	Prepare(query string) Operation
	Execute(stmt *BoundStatement) Operation
	Close() error
}

type Driver interface {
	Connect(ctx context.Context, cfg Config) (Conn, error)
}

type Config struct {
	Hosts                    []string
	Port                     int
	Keyspace                 string
	ProtocolVersion          int
	ConnectTimeout           time.Duration
	RequestTimeout           time.Duration
	ResolveTimeout           time.Duration
	SpeculativeDelay         time.Duration
	MaxSpeculativeExecutions int
}

// ConnectError is returned by Driver.Connect when no contact point succeeded.
type ConnectError struct {
	Code    ErrorCode
	Message string
}

func (e *ConnectError) Error() string {
	return e.Code.String() + ": " + e.Message
}
