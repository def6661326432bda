package cqlx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/cqlx/driver/tdriver"
)

func TestPrepareFailure(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, conn := tdriver.Serve(t, tdriver.Fail(driver.CodeSyntax, "line 1:0 no viable alternative"))
	_, err := session.Prepare("SELEC * FROM messages")
	execErr := &cqlx.ExecutionError{}
	require.ErrorAs(err, &execErr)
	require.Equal(cqlx.KindPrepare, execErr.Kind)
	require.Equal(driver.CodeSyntax, execErr.Code)
	require.Contains(err.Error(), "no viable alternative")
	require.True(conn.Last().Closed())
}

func TestInvalidArguments(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, conn := tdriver.Serve(t, tdriver.Table(messageColumns, nil))
	_, err := session.Prepare(" ")
	require.ErrorIs(err, cqlx.ErrInvalidArgument)
	_, err = session.PrepareAsync("")
	require.ErrorIs(err, cqlx.ErrInvalidArgument)
	_, err = session.Execute(nil)
	require.ErrorIs(err, cqlx.ErrInvalidArgument)
	_, err = session.ExecuteAsync(nil)
	require.ErrorIs(err, cqlx.ErrInvalidArgument)
	require.Empty(conn.Ops())
}

func TestExecuteAsyncSnapshotsValues(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, conn := tdriver.Serve(t, pendingExecute(messageColumns))
	statement := prepare(t, session)
	require.NoError(statement.Bind(map[string]any{"id": 1, "message": "first"}))
	require.NoError(statement.SetPageSize(10))

	future, err := session.ExecuteAsync(statement)
	require.NoError(err)
	submitted := conn.Last()

	require.NoError(statement.Bind(map[string]any{"id": 2}))
	require.Equal([]any{int64(1), "first"}, submitted.Request.Statement.Values)
	require.Equal(10, submitted.Request.Statement.PageSize)

	submitted.Complete(driver.CodeOK, "", &driver.ResultSet{})
	require.NoError(future.Err())
}

func TestSessionClose(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	session, conn := tdriver.Serve(t, pendingExecute(messageColumns))
	future, err := session.ExecuteAsync(prepare(t, session))
	require.NoError(err)

	var failure error
	require.NoError(future.OnFailure(func(err error) {
		failure = err
	}))

	require.NoError(session.Close())
	require.NoError(session.Close())
	require.True(conn.Closed())

	future.Await()
	execErr := &cqlx.ExecutionError{}
	require.ErrorAs(failure, &execErr)
	require.Equal(driver.CodeClosed, execErr.Code)

	_, err = session.Prepare("SELECT * FROM messages")
	require.ErrorIs(err, cqlx.ErrSessionClosed)
	_, err = session.ExecuteAsync(&cqlx.Statement{})
	require.ErrorIs(err, cqlx.ErrSessionClosed)
}

func TestSharedDispatcher(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dispatcher := cqlx.NewDispatcher(logger(t), cqlx.ExecuteWorkers(2))
	first, _ := tdriver.Serve(t, tdriver.Table(messageColumns, nil), cqlx.WithDispatcher(dispatcher))
	second, _ := tdriver.Serve(t, tdriver.Delayed(5*time.Millisecond, tdriver.Table(messageColumns, nil)), cqlx.WithDispatcher(dispatcher))
	require.Same(dispatcher, first.Dispatcher())
	require.Same(dispatcher, second.Dispatcher())

	require.NoError(first.Close())
	future, err := second.ExecuteAsync(prepare(t, second))
	require.NoError(err)
	called := make(chan struct{})
	require.NoError(future.OnSuccessFunc(func() {
		close(called)
	}))
	<-called

	require.NoError(second.Close())
	require.NoError(dispatcher.Close())
	require.NoError(dispatcher.Close())

	depth := dispatcher.QueueDepthMetric().Collect()
	require.Len(depth, 2)
}

func TestHook(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	mu := sync.Mutex{}
	calls := make([]cqlx.HookData, 0)
	hook := func(data cqlx.HookData) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, data)
	}
	session, _ := tdriver.Serve(t, tdriver.Table(messageColumns, messages(1)), cqlx.WithHook(hook))
	_, err := session.Execute(prepare(t, session))
	require.NoError(err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(calls, 2)
	require.Equal(cqlx.KindPrepare, calls[0].Kind)
	require.Equal(cqlx.KindExecute, calls[1].Kind)
	require.Equal(driver.CodeOK, calls[1].Code)
}

func TestMetricsHook(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	hook := cqlx.MetricsHook()
	require.NotPanics(func() {
		hook(cqlx.HookData{Kind: cqlx.KindExecute, Code: driver.CodeTimeout, Duration: time.Second})
		cqlx.MetricsHook()(cqlx.HookData{Kind: cqlx.KindPrepare})
	})
}
