package cqlx_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx"
	"github.com/txix-open/cqlx/driver/tdriver"
)

func TestLoadConfig(t *testing.T) {
	require := require.New(t)

	t.Setenv("CQLX_HOSTS", "db1,db2")
	t.Setenv("CQLX_KEYSPACE", "test")
	t.Setenv("CQLX_REQUEST_TIMEOUT", "250ms")
	t.Setenv("CQLX_EXECUTE_WORKERS", "2")

	cfg, err := cqlx.LoadConfig(cqlx.DefaultEnvPrefix)
	require.NoError(err)
	require.Equal([]string{"db1", "db2"}, cfg.Hosts)
	require.Equal(9042, cfg.Port)
	require.Equal("test", cfg.Keyspace)
	require.Equal(250*time.Millisecond, cfg.RequestTimeout)
	require.Equal(15*time.Second, cfg.SpeculativeDelay)
	require.Equal(2, cfg.MaxSpeculativeExecutions)

	drv := tdriver.New(tdriver.Pending())
	opts := append(cfg.Options(), cqlx.WithLogger(logger(t)))
	session, err := cqlx.NewCluster(drv, opts...).Connect(context.Background())
	require.NoError(err)
	t.Cleanup(func() {
		_ = session.Close()
	})

	applied := drv.Config()
	require.ElementsMatch(cfg.Hosts, applied.Hosts)
	require.Equal("test", applied.Keyspace)
	require.Equal(250*time.Millisecond, applied.RequestTimeout)
	require.Equal(2, applied.MaxSpeculativeExecutions)
	require.Equal(2, session.Dispatcher().Pool(cqlx.KindExecute).Workers())
	require.Equal(4, session.Dispatcher().Pool(cqlx.KindPrepare).Workers())
}
