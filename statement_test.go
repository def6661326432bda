package cqlx_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/cqlx/driver/tdriver"
)

var (
	typedColumns = []driver.Column{
		{Name: "tinyint", Type: driver.TypeTinyInt},
		{Name: "smallint", Type: driver.TypeSmallInt},
		{Name: "int", Type: driver.TypeInt},
		{Name: "bigint", Type: driver.TypeBigInt},
		{Name: "float", Type: driver.TypeFloat},
		{Name: "double", Type: driver.TypeDouble},
		{Name: "boolean", Type: driver.TypeBoolean},
		{Name: "text", Type: driver.TypeText},
		{Name: "timestamp", Type: driver.TypeTimestamp},
		{Name: "uuid", Type: driver.TypeUUID},
		{Name: "blob", Type: driver.TypeBlob},
	}
)

func boundValues(t *testing.T, session *cqlx.Session, conn *tdriver.Conn, statement *cqlx.Statement) []any {
	t.Helper()

	_, err := session.Execute(statement)
	require.NoError(t, err)
	return conn.Last().Request.Statement.Values
}

func TestBindConvertsValues(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, conn := tdriver.Serve(t, tdriver.Table(typedColumns, nil))
	statement, err := session.Prepare("INSERT INTO typed JSON ?")
	require.NoError(err)

	id := uuid.New()
	at := time.Now()
	err = statement.Bind(map[string]any{
		"tinyint":   -128,
		"SMALLINT":  int16(32767),
		"int":       uint32(7),
		"bigint":    int64(math.MaxInt64),
		"float":     3,
		"double":    float32(1.5),
		"boolean":   true,
		"text":      []byte("hello"),
		"timestamp": at,
		"uuid":      id.String(),
		"blob":      "raw",
	})
	require.NoError(err)

	values := boundValues(t, session, conn, statement)
	require.Equal([]any{
		int8(-128),
		int16(32767),
		int32(7),
		int64(math.MaxInt64),
		float32(3),
		float64(1.5),
		true,
		"hello",
		at,
		id,
		[]byte("raw"),
	}, values)

	require.NoError(statement.Bind(map[string]any{"text": nil}))
	values = boundValues(t, session, conn, statement)
	require.Nil(values[7])
}

func TestBindRejectsInvalidValues(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, _ := tdriver.Serve(t, tdriver.Table(typedColumns, nil))
	statement, err := session.Prepare("INSERT INTO typed JSON ?")
	require.NoError(err)

	cases := []struct {
		column string
		value  any
		cause  error
	}{
		{"tinyint", 128, cqlx.ErrRange},
		{"tinyint", -129, cqlx.ErrRange},
		{"smallint", 32768, cqlx.ErrRange},
		{"int", int64(math.MaxInt32) + 1, cqlx.ErrRange},
		{"bigint", uint64(math.MaxInt64) + 1, cqlx.ErrRange},
		{"bigint", 1.5, cqlx.ErrType},
		{"int", "1", cqlx.ErrType},
		{"float", 3.402820018375656e+39, cqlx.ErrRange},
		{"float", -3.402820018375656e+39, cqlx.ErrRange},
		{"double", "1.5", cqlx.ErrType},
		{"boolean", 1, cqlx.ErrType},
		{"text", 1, cqlx.ErrType},
		{"timestamp", "2024-01-01", cqlx.ErrType},
		{"uuid", "not-a-uuid", cqlx.ErrType},
		{"blob", 1, cqlx.ErrType},
		{"unknown", 1, cqlx.ErrUnknownColumn},
	}
	for _, c := range cases {
		err := statement.Bind(map[string]any{c.column: c.value})
		require.ErrorIs(err, c.cause, "%s = %v", c.column, c.value)

		bindErr := &cqlx.BindError{}
		require.ErrorAs(err, &bindErr)
		require.Equal(c.column, bindErr.Column)
	}

	require.NoError(statement.Bind(map[string]any{"float": 3.402820018375656e+38}))
}

func TestBindIsAtomic(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, conn := tdriver.Serve(t, tdriver.Table(messageColumns, nil))
	statement := prepare(t, session)
	require.NoError(statement.Bind(map[string]any{"id": 1, "message": "kept"}))

	err := statement.Bind(map[string]any{"id": 2, "message": 3})
	require.ErrorIs(err, cqlx.ErrType)

	require.Equal([]any{int64(1), "kept"}, boundValues(t, session, conn, statement))
}

func TestSetPageSize(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, _ := tdriver.Serve(t, tdriver.Table(messageColumns, nil))
	statement := prepare(t, session)

	require.ErrorIs(statement.SetPageSize(-1), cqlx.ErrInvalidArgument)
	require.NoError(statement.SetPageSize(0))
	require.NoError(statement.SetPageSize(100))
	require.Equal(100, statement.PageSize())
	require.NoError(statement.Close())
}
