package cqlx_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx"
	"github.com/txix-open/cqlx/driver/tdriver"
)

func TestResultPaging(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	rows := messages(10)
	session, conn := tdriver.Serve(t, tdriver.Table(messageColumns, rows))
	statement := prepare(t, session)
	require.NoError(statement.SetPageSize(4))

	result, err := session.Execute(statement)
	require.NoError(err)
	require.Equal(4, result.Len())
	require.True(result.HasMorePages())

	ids := make([]int64, 0)
	for {
		for row := range result.Each() {
			ids = append(ids, row["id"].(int64))
		}
		next, err := result.NextPage()
		require.NoError(err)
		if next == nil {
			break
		}
		require.Same(result, next)
	}
	require.Equal([]int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ids)
	require.False(result.HasMorePages())
	require.Equal(2, result.Len())
	require.Equal(3, conn.Count(tdriver.Execute))

	next, err := result.NextPage()
	require.NoError(err)
	require.Nil(next)
	require.Equal(3, conn.Count(tdriver.Execute))

	statement.ResetPaging()
	first, err := session.Execute(statement)
	require.NoError(err)
	require.Equal(rows[0][1], first.Rows()[0]["message"])
}

func TestResultEachStops(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, _ := tdriver.Serve(t, tdriver.Table(messageColumns, messages(5)))
	result, err := session.Execute(prepare(t, session))
	require.NoError(err)
	require.False(result.HasMorePages())
	require.Len(result.Columns(), 2)

	seen := 0
	for range result.Each() {
		seen++
		if seen == 2 {
			break
		}
	}
	require.Equal(2, seen)
}

func TestResultMarshalJSON(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	rows := messages(2)
	session, _ := tdriver.Serve(t, tdriver.Table(messageColumns, rows))
	result, err := session.Execute(prepare(t, session))
	require.NoError(err)

	data, err := json.Marshal(result)
	require.NoError(err)

	decoded := make([]cqlx.Row, 0)
	require.NoError(json.Unmarshal(data, &decoded))
	require.Len(decoded, 2)
	require.EqualValues(1, decoded[1]["id"])
	require.Equal(rows[1][1], decoded[1]["message"])
}
