package cqlx_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/cqlx/driver/tdriver"
	"github.com/txix-open/isp-kit/log"
	"github.com/txix-open/isp-kit/test/fake"
)

var (
	messageColumns = []driver.Column{
		{Name: "id", Type: driver.TypeBigInt},
		{Name: "message", Type: driver.TypeText},
	}
)

func messages(n int) [][]any {
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []any{int64(i), fake.It[string]()})
	}
	return rows
}

// pendingExecute prepares right away and leaves executions to the test.
func pendingExecute(columns []driver.Column) tdriver.Responder {
	table := tdriver.Table(columns, nil)
	return func(req tdriver.Request) tdriver.Response {
		if req.Kind == tdriver.Execute {
			return tdriver.Response{Pending: true}
		}
		return table(req)
	}
}

func prepare(t *testing.T, session *cqlx.Session) *cqlx.Statement {
	t.Helper()

	statement, err := session.Prepare("SELECT * FROM messages")
	require.NoError(t, err)
	return statement
}

func logger(t *testing.T) log.Logger {
	t.Helper()

	logger, err := log.New()
	require.NoError(t, err)
	return logger
}
