package cqlx

import (
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/driver"
)

// Statement is a prepared query with its bound values and paging cursor.
type Statement struct {
	prepared *driver.PreparedMetadata
	index    map[string]int

	mu          sync.Mutex
	values      []any
	pageSize    int
	pagingState []byte
}

func newStatement(payload any) (*Statement, error) {
	meta, ok := payload.(*driver.PreparedMetadata)
	if !ok || meta == nil {
		return nil, errors.Errorf("unexpected prepare payload %T", payload)
	}

	index := make(map[string]int, len(meta.Params))
	for i, param := range meta.Params {
		name := strings.ToLower(param.Name)
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	return &Statement{
		prepared: meta,
		index:    index,
		values:   make([]any, len(meta.Params)),
	}, nil
}

func (s *Statement) Query() string {
	return s.prepared.Query
}

func (s *Statement) Params() []driver.Column {
	return slices.Clone(s.prepared.Params)
}

// Bind sets values by column name. Either all values are bound or none is.
func (s *Statement) Bind(values map[string]any) error {
	converted := make(map[int]any, len(values))
	for name, value := range values {
		i, ok := s.index[strings.ToLower(name)]
		if !ok {
			return &BindError{Column: name, Err: ErrUnknownColumn}
		}
		param := s.prepared.Params[i]
		v, err := bindValue(param.Type, value)
		if err != nil {
			return &BindError{Column: param.Name, Type: param.Type, Err: err}
		}
		converted[i] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range converted {
		s.values[i] = v
	}
	return nil
}

// SetPageSize limits rows per page. Zero disables paging.
func (s *Statement) SetPageSize(n int) error {
	if n < 0 {
		return errors.WithMessagef(ErrInvalidArgument, "page size %d", n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
	return nil
}

func (s *Statement) PageSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageSize
}

// ResetPaging makes the next execution start from the first page.
func (s *Statement) ResetPaging() {
	s.setPagingState(nil)
}

// Close releases the prepared handle held by the driver.
func (s *Statement) Close() error {
	closer, ok := s.prepared.Handle.(io.Closer)
	if !ok {
		return nil
	}
	err := closer.Close()
	if err != nil {
		return errors.WithMessage(err, "close prepared statement")
	}
	return nil
}

func (s *Statement) setPagingState(state []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagingState = slices.Clone(state)
}

func (s *Statement) bound() *driver.BoundStatement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &driver.BoundStatement{
		Prepared:    s.prepared,
		Values:      slices.Clone(s.values),
		PageSize:    s.pageSize,
		PagingState: slices.Clone(s.pagingState),
	}
}
