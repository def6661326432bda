package cqlx

import (
	"iter"
	"slices"

	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/cqlx/enc"
)

// Row maps column names to decoded values.
type Row map[string]any

// Result is one page of rows. NextPage replaces the page in place,
// so a Result must not be paged from several goroutines at once.
type Result struct {
	session   *Session
	statement *Statement
	rs        *driver.ResultSet
}

func newResult(session *Session, statement *Statement, payload any) (*Result, error) {
	rs, ok := payload.(*driver.ResultSet)
	if !ok || rs == nil {
		return nil, errors.Errorf("unexpected execute payload %T", payload)
	}
	return &Result{
		session:   session,
		statement: statement,
		rs:        rs,
	}, nil
}

func (r *Result) Columns() []driver.Column {
	return slices.Clone(r.rs.Columns)
}

func (r *Result) Len() int {
	return len(r.rs.Rows)
}

func (r *Result) Each() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, values := range r.rs.Rows {
			if !yield(r.row(values)) {
				return
			}
		}
	}
}

func (r *Result) Rows() []Row {
	rows := make([]Row, 0, len(r.rs.Rows))
	for row := range r.Each() {
		rows = append(rows, row)
	}
	return rows
}

func (r *Result) HasMorePages() bool {
	return r.rs.HasMorePages
}

// NextPage fetches the following page into r and returns r.
// It returns nil without touching the driver when there are no more pages.
func (r *Result) NextPage() (*Result, error) {
	if !r.rs.HasMorePages {
		return nil, nil
	}

	r.statement.setPagingState(r.rs.PagingState)
	payload, err := r.session.execute(r.statement)
	if err != nil {
		return nil, errors.WithMessage(err, "fetch next page")
	}
	rs, ok := payload.(*driver.ResultSet)
	if !ok || rs == nil {
		return nil, errors.Errorf("unexpected execute payload %T", payload)
	}
	r.rs = rs
	return r, nil
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return enc.Marshal(r.Rows())
}

func (r *Result) row(values []any) Row {
	row := make(Row, len(r.rs.Columns))
	for i, column := range r.rs.Columns {
		if i < len(values) {
			row[column.Name] = values[i]
		} else {
			row[column.Name] = nil
		}
	}
	return row
}
