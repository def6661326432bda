package tdriver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/cqlx"
	"github.com/txix-open/isp-kit/log"
)

// Serve connects a session to a fresh Driver and closes it on cleanup.
func Serve(t *testing.T, responder Responder, opts ...cqlx.Option) (*cqlx.Session, *Conn) {
	t.Helper()
	require := require.New(t)

	logger, err := log.New()
	require.NoError(err)

	drv := New(responder)
	opts = append([]cqlx.Option{cqlx.Hosts("tdriver"), cqlx.WithLogger(logger)}, opts...)
	session, err := cqlx.NewCluster(drv, opts...).Connect(context.Background())
	require.NoError(err)
	t.Cleanup(func() {
		err := session.Close()
		require.NoError(err)
	})
	return session, drv.Conn()
}
