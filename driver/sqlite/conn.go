package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/isp-kit/log"
)

// prepared is the driver handle of a prepared statement.
type prepared struct {
	stmt   *sql.Stmt
	params []param
	rows   bool
	paged  bool
}

func (p *prepared) Close() error {
	return p.stmt.Close()
}

type Conn struct {
	db             *sql.DB
	pool           *ants.Pool
	requestTimeout time.Duration
	closeTimeout   time.Duration
	logger         log.Logger
	host           string
	closed         atomic.Bool
}

func (c *Conn) Prepare(query string) driver.Operation {
	op := driver.NewOp().OnClose(func(unconsumed any) {
		meta, ok := unconsumed.(*driver.PreparedMetadata)
		if !ok {
			return
		}
		if closer, ok := meta.Handle.(io.Closer); ok {
			_ = closer.Close()
		}
	})
	c.submit(op, func(ctx context.Context) (any, error) {
		return c.prepare(ctx, query)
	})
	return op
}

func (c *Conn) Execute(stmt *driver.BoundStatement) driver.Operation {
	op := driver.NewOp()
	c.submit(op, func(ctx context.Context) (any, error) {
		return c.execute(ctx, stmt)
	})
	return op
}

// Close waits for running requests and closes the database.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	ctx := log.ToContext(context.Background(), log.String("host", c.host))
	err := c.pool.ReleaseTimeout(c.closeTimeout)
	if err != nil {
		c.logger.Warn(ctx, errors.WithMessage(err, "wait running sqlite requests"))
	}
	err = c.db.Close()
	if err != nil {
		return errors.WithMessage(err, "close sqlite database")
	}
	c.logger.Debug(ctx, "sqlite database closed")
	return nil
}

func (c *Conn) submit(op *driver.Op, call func(ctx context.Context) (any, error)) {
	if c.closed.Load() {
		op.Complete(driver.CodeClosed, "connection is closed", nil)
		return
	}

	err := c.pool.Submit(func() {
		ctx := context.Background()
		cancel := context.CancelFunc(func() {})
		if c.requestTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		}
		defer cancel()
		defer func() {
			r := recover()
			if r != nil {
				op.Complete(driver.CodeServer, fmt.Sprintf("request panicked: %v", r), nil)
				panic(r)
			}
		}()

		payload, err := call(ctx)
		if err != nil {
			op.Complete(errorCode(ctx, err), err.Error(), nil)
			return
		}
		op.Complete(driver.CodeOK, "", payload)
	})
	switch {
	case err == nil:
	case errors.Is(err, ants.ErrPoolClosed):
		op.Complete(driver.CodeClosed, "connection is closed", nil)
	default:
		op.Complete(driver.CodeUnavailable, errors.WithMessage(err, "submit request").Error(), nil)
	}
}

func (c *Conn) prepare(ctx context.Context, query string) (*driver.PreparedMetadata, error) {
	tokens := tokenize(query)
	markers := params(tokens)
	err := c.compile(ctx, query, tokens, markers)
	if err != nil {
		return nil, err
	}

	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	handle := &prepared{
		stmt:   stmt,
		params: markers,
		rows:   returnsRows(tokens),
		paged:  pageable(tokens),
	}
	columns, err := c.columnTypes(ctx, table(tokens), describesTable(tokens))
	if err != nil {
		_ = stmt.Close()
		return nil, err
	}

	meta := &driver.PreparedMetadata{
		Query:  query,
		Params: make([]driver.Column, 0, len(handle.params)),
		Handle: handle,
	}
	for _, p := range handle.params {
		meta.Params = append(meta.Params, driver.Column{
			Name: p.name,
			Type: columns[strings.ToLower(p.name)],
		})
	}
	return meta, nil
}

// compile makes sqlite parse the query and resolve its tables without running it.
// Preparing through database/sql defers both until the first execution.
func (c *Conn) compile(ctx context.Context, query string, tokens []token, markers []param) error {
	if len(tokens) > 0 && tokens[0].is("explain") {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, "EXPLAIN "+query, args(markers, make([]any, len(markers)))...)
	if err != nil {
		return err
	}
	return rows.Close()
}

// columnTypes reads declared column types. A table that must exist and has no columns is reported missing.
func (c *Conn) columnTypes(ctx context.Context, table string, mustExist bool) (map[string]driver.Type, error) {
	types := make(map[string]driver.Type)
	if table == "" {
		return types, nil
	}

	rows, err := c.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, errors.WithMessagef(err, "read %s columns", table)
	}
	defer rows.Close()

	for rows.Next() {
		var name, declared string
		err := rows.Scan(&name, &declared)
		if err != nil {
			return nil, errors.WithMessagef(err, "scan %s column", table)
		}
		types[strings.ToLower(name)] = driver.ParseType(declared)
	}
	err = rows.Err()
	if err != nil {
		return nil, errors.WithMessagef(err, "read %s columns", table)
	}
	if mustExist && len(types) == 0 {
		return nil, errors.Errorf("no such table: %s", table)
	}
	return types, nil
}

func (c *Conn) execute(ctx context.Context, stmt *driver.BoundStatement) (*driver.ResultSet, error) {
	handle, ok := stmt.Prepared.Handle.(*prepared)
	if !ok {
		return nil, errors.Errorf("statement is not prepared by sqlite driver: %T", stmt.Prepared.Handle)
	}
	values := args(handle.params, stmt.Values)

	if !handle.rows {
		_, err := handle.stmt.ExecContext(ctx, values...)
		if err != nil {
			return nil, err
		}
		return &driver.ResultSet{}, nil
	}

	if stmt.PageSize <= 0 || !handle.paged {
		rows, err := handle.stmt.QueryContext(ctx, values...)
		if err != nil {
			return nil, err
		}
		return readRows(rows, -1)
	}

	offset := uint64(0)
	if len(stmt.PagingState) == 8 {
		offset = binary.BigEndian.Uint64(stmt.PagingState)
	}
	rows, err := c.db.QueryContext(ctx, pageQuery(stmt.Prepared.Query, stmt.PageSize+1, offset), values...)
	if err != nil {
		return nil, err
	}
	rs, err := readRows(rows, stmt.PageSize)
	if err != nil {
		return nil, err
	}
	if rs.HasMorePages {
		rs.PagingState = binary.BigEndian.AppendUint64(nil, offset+uint64(stmt.PageSize))
	}
	return rs, nil
}

// readRows reads at most limit rows when limit is not negative and reports whether more follow.
func readRows(rows *sql.Rows, limit int) (*driver.ResultSet, error) {
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.WithMessage(err, "column types")
	}
	rs := &driver.ResultSet{
		Columns: make([]driver.Column, 0, len(columnTypes)),
		Rows:    make([][]any, 0),
	}
	for _, ct := range columnTypes {
		rs.Columns = append(rs.Columns, driver.Column{
			Name: ct.Name(),
			Type: driver.ParseType(ct.DatabaseTypeName()),
		})
	}

	for rows.Next() {
		if limit >= 0 && len(rs.Rows) == limit {
			rs.HasMorePages = true
			break
		}

		raw := make([]any, len(rs.Columns))
		ptrs := make([]any, len(raw))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		err := rows.Scan(ptrs...)
		if err != nil {
			return nil, errors.WithMessage(err, "scan row")
		}

		row := make([]any, len(raw))
		for i, value := range raw {
			row[i], err = decode(rs.Columns[i].Type, value)
			if err != nil {
				return nil, errors.WithMessagef(err, "decode column %s", rs.Columns[i].Name)
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, rows.Err()
}
