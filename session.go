package cqlx

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/isp-kit/app"
	"github.com/txix-open/isp-kit/log"
)

type Session struct {
	conn          driver.Conn
	dispatcher    *Dispatcher
	ownDispatcher bool
	logger        log.Logger
	hook          Hook
	closed        atomic.Bool
}

// Prepare blocks until the query is prepared.
func (s *Session) Prepare(query string) (*Statement, error) {
	err := s.checkQuery(query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	op := s.conn.Prepare(query)
	defer func() {
		_ = op.Close()
	}()
	payload, err := s.wait(KindPrepare, op, start)
	if err != nil {
		return nil, err
	}
	return newStatement(payload)
}

// PrepareAsync submits the query and returns immediately.
func (s *Session) PrepareAsync(query string) (*Future[*Statement], error) {
	err := s.checkQuery(query)
	if err != nil {
		return nil, err
	}

	op := s.conn.Prepare(query)
	return newFuture(KindPrepare, op, s.dispatcher.Pool(KindPrepare), s.logger, newStatement), nil
}

// Execute blocks until the first page of the statement is fetched.
func (s *Session) Execute(statement *Statement) (*Result, error) {
	payload, err := s.execute(statement)
	if err != nil {
		return nil, err
	}
	return newResult(s, statement, payload)
}

// ExecuteAsync submits the statement with its values as bound right now.
func (s *Session) ExecuteAsync(statement *Statement) (*Future[*Result], error) {
	err := s.checkStatement(statement)
	if err != nil {
		return nil, err
	}

	op := s.conn.Execute(statement.bound())
	build := func(payload any) (*Result, error) {
		return newResult(s, statement, payload)
	}
	return newFuture(KindExecute, op, s.dispatcher.Pool(KindExecute), s.logger, build), nil
}

func (s *Session) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Close closes the connection, which completes every pending operation,
// and then drains pending callbacks. A dispatcher passed with WithDispatcher is left to its owner.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	closers := []app.Closer{
		s.conn,
		app.CloserFunc(func() error {
			if !s.ownDispatcher {
				return nil
			}
			return s.dispatcher.Close()
		}),
	}
	for _, closer := range closers {
		err := closer.Close()
		if err != nil {
			return errors.WithMessage(err, "close session")
		}
	}
	s.logger.Debug(context.Background(), "session closed")
	return nil
}

func (s *Session) execute(statement *Statement) (any, error) {
	err := s.checkStatement(statement)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	op := s.conn.Execute(statement.bound())
	defer func() {
		_ = op.Close()
	}()
	return s.wait(KindExecute, op, start)
}

func (s *Session) wait(kind Kind, op driver.Operation, start time.Time) (any, error) {
	op.Wait()
	s.hook(HookData{
		Kind:     kind,
		Code:     op.ErrorCode(),
		Duration: time.Since(start),
	})
	if op.ErrorCode() != driver.CodeOK {
		return nil, newExecutionError(kind, op)
	}
	payload, err := op.Payload()
	if err != nil {
		return nil, errors.WithMessagef(err, "take %s payload", kind)
	}
	return payload, nil
}

func (s *Session) checkQuery(query string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if strings.TrimSpace(query) == "" {
		return errors.WithMessage(ErrInvalidArgument, "query is empty")
	}
	return nil
}

func (s *Session) checkStatement(statement *Statement) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if statement == nil {
		return errors.WithMessage(ErrInvalidArgument, "statement is required")
	}
	return nil
}
