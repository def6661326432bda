// Package tdriver is an in-process driver whose operations are completed
// by a Responder or by the test itself.
package tdriver

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/txix-open/cqlx/driver"
)

type RequestKind int

const (
	Prepare RequestKind = iota
	Execute
)

type Request struct {
	Kind      RequestKind
	Query     string
	Statement *driver.BoundStatement
}

// Response completes a request after Delay. A Pending response leaves it to the test.
type Response struct {
	Code    driver.ErrorCode
	Message string
	Payload any
	Delay   time.Duration
	Pending bool
}

type Responder func(req Request) Response

type Op struct {
	*driver.Op
	Request Request
}

type Driver struct {
	responder  Responder
	connectErr error

	mu     sync.Mutex
	conns  []*Conn
	config driver.Config
}

func New(responder Responder) *Driver {
	return &Driver{
		responder: responder,
	}
}

// FailConnect makes every Connect fail with the code.
func (d *Driver) FailConnect(code driver.ErrorCode, message string) *Driver {
	d.connectErr = &driver.ConnectError{Code: code, Message: message}
	return d
}

func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.config = cfg
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	conn := &Conn{responder: d.responder}
	d.conns = append(d.conns, conn)
	return conn, nil
}

// Conn returns the last established connection.
func (d *Driver) Conn() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *Driver) Config() driver.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

type Conn struct {
	responder Responder

	mu     sync.Mutex
	ops    []*Op
	closed bool
}

func (c *Conn) Prepare(query string) driver.Operation {
	return c.submit(Request{Kind: Prepare, Query: query})
}

func (c *Conn) Execute(stmt *driver.BoundStatement) driver.Operation {
	return c.submit(Request{Kind: Execute, Query: stmt.Prepared.Query, Statement: stmt})
}

func (c *Conn) submit(req Request) *Op {
	op := &Op{Op: driver.NewOp(), Request: req}

	c.mu.Lock()
	closed := c.closed
	c.ops = append(c.ops, op)
	c.mu.Unlock()

	if closed {
		op.Complete(driver.CodeClosed, "connection is closed", nil)
		return op
	}

	resp := Response{Pending: true}
	if c.responder != nil {
		resp = c.responder(req)
	}
	switch {
	case resp.Pending:
	case resp.Delay > 0:
		time.AfterFunc(resp.Delay, func() {
			op.Complete(resp.Code, resp.Message, resp.Payload)
		})
	default:
		op.Complete(resp.Code, resp.Message, resp.Payload)
	}
	return op
}

func (c *Conn) Ops() []*Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Op{}, c.ops...)
}

func (c *Conn) Count(kind RequestKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, op := range c.ops {
		if op.Request.Kind == kind {
			count++
		}
	}
	return count
}

// Last returns the most recently submitted operation.
func (c *Conn) Last() *Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ops) == 0 {
		return nil
	}
	return c.ops[len(c.ops)-1]
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close fails every operation still pending.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	ops := append([]*Op{}, c.ops...)
	c.mu.Unlock()

	for _, op := range ops {
		op.Complete(driver.CodeClosed, "connection is closed", nil)
	}
	return nil
}

// Pending leaves every operation incomplete.
func Pending() Responder {
	return func(req Request) Response {
		return Response{Pending: true}
	}
}

// Fail completes every operation with the code.
func Fail(code driver.ErrorCode, message string) Responder {
	return func(req Request) Response {
		return Response{Code: code, Message: message}
	}
}

// Delayed completes the responses of next after delay.
func Delayed(delay time.Duration, next Responder) Responder {
	return func(req Request) Response {
		resp := next(req)
		resp.Delay = delay
		return resp
	}
}

// Table prepares any query with columns as parameters and
// executes it by returning rows one page at a time.
func Table(columns []driver.Column, rows [][]any) Responder {
	return func(req Request) Response {
		if req.Kind == Prepare {
			return Response{Payload: &driver.PreparedMetadata{
				Query:  req.Query,
				Params: append([]driver.Column{}, columns...),
			}}
		}

		offset := 0
		if len(req.Statement.PagingState) == 8 {
			offset = int(binary.BigEndian.Uint64(req.Statement.PagingState))
		}
		offset = min(offset, len(rows))
		end := len(rows)
		if req.Statement.PageSize > 0 {
			end = min(offset+req.Statement.PageSize, len(rows))
		}

		rs := &driver.ResultSet{
			Columns: append([]driver.Column{}, columns...),
			Rows:    rows[offset:end],
		}
		if end < len(rows) {
			rs.HasMorePages = true
			rs.PagingState = binary.BigEndian.AppendUint64(nil, uint64(end))
		}
		return Response{Payload: rs}
	}
}
